package tracker

import (
	"context"
	"errors"
	"fmt"

	"dividend_tracker/internal/models"
	"dividend_tracker/internal/storage"
)

// Initialize restores the portfolio from the store slot.
//
// An absent slot starts an empty portfolio. Unparseable contents are logged and
// also start empty. Values in an older schema are migrated and written back. Only a
// failing store read is returned: starting empty on top of unreadable data would
// overwrite it on the next mutation.
func (t *Tracker) Initialize(ctx context.Context) error {
	b, err := t.store.Load(ctx, t.storeKey)
	if errors.Is(err, storage.ErrNotFound) {
		t.log.Infof("No saved portfolio under %q, starting empty", t.storeKey)
		t.reset(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load portfolio: %w", err)
	}

	state, migrated, err := storage.DecodeState(b)
	if err != nil {
		t.log.Warnf("%v: %v. Starting empty.", ErrMalformedPersistedData, err)
		t.reset(nil)
		return nil
	}

	t.reset(state.Positions)
	t.log.Infof("Restored %d positions (schema %s)", len(state.Positions), state.Version)

	if migrated {
		t.mu.Lock()
		t.syncLocked(ctx)
		t.mu.Unlock()
	}
	return nil
}

func (t *Tracker) reset(positions []models.Position) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if positions == nil {
		positions = []models.Position{}
	}
	t.positions = positions
	t.metrics.SetPositions(len(positions))
}

// syncLocked writes the full current sequence to the store slot, overwriting the
// previous value. Must be called with mu held so writes land in mutation order.
// Failures are logged and counted, never returned.
func (t *Tracker) syncLocked(ctx context.Context) {
	t.metrics.SetPositions(len(t.positions))

	b, err := storage.EncodeState(models.PortfolioState{Positions: t.positions})
	if err != nil {
		t.metrics.StoreError()
		t.log.Errorf("ERROR: Failed to encode portfolio: %v", err)
		return
	}
	// The caller's context may already be cancelled (client went away);
	// the checkpoint must still be written.
	if err := t.store.Save(context.WithoutCancel(ctx), t.storeKey, b); err != nil {
		t.metrics.StoreError()
		t.log.Errorf("ERROR: Failed to save portfolio: %v", err)
	}
}
