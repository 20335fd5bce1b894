package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"dividend_tracker/internal/models"
)

// NormalizeSymbol returns the canonical form of a user-entered ticker.
func NormalizeSymbol(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}

// AddPosition fetches dividend metadata for symbolInput and appends a new position
// with one share. Either exactly one position is appended or nothing changes.
func (t *Tracker) AddPosition(ctx context.Context, symbolInput string) (models.Position, error) {
	pos, err := t.addPosition(ctx, symbolInput)
	t.metrics.Operation("add", result(err))
	return pos, err
}

func (t *Tracker) addPosition(ctx context.Context, symbolInput string) (models.Position, error) {
	symbol := NormalizeSymbol(symbolInput)
	if symbol == "" {
		return models.Position{}, ErrEmptySymbol
	}

	// Reserve the symbol before the fetch
	t.mu.Lock()
	if t.indexLocked(symbol) >= 0 || t.reserved[symbol] {
		t.mu.Unlock()
		return models.Position{}, fmt.Errorf("%w: %s", ErrDuplicateSymbol, symbol)
	}
	t.reserved[symbol] = true
	t.mu.Unlock()

	fetchCtx, cancel := t.fetchContext(ctx)
	info, err := t.fetcher.FetchDividendInfo(fetchCtx, symbol)
	cancel()
	if err == nil && info == nil {
		err = errors.New("empty quote")
	}

	t.mu.Lock()
	delete(t.reserved, symbol)
	if err != nil {
		t.mu.Unlock()
		t.log.Warnf("Quote fetch failed for %s: %v", symbol, err)
		return models.Position{}, fmt.Errorf("%w for %s: %v", ErrQuoteUnavailable, symbol, err)
	}

	// The returned symbol's casing is replaced by the normalized input
	pos := models.Position{
		Symbol:        symbol,
		Shares:        1,
		DividendYield: copyFloat(info.DividendYield),
		DividendRate:  copyFloat(info.DividendRate),
		ForwardEps:    copyFloat(info.ForwardEps),
	}
	t.positions = append(t.positions, pos)
	t.commitAndUnlock(ctx)

	t.log.Infof("Position added: %s", symbol)
	return pos, nil
}

// RemovePosition deletes the position at index, keeping the order of the rest.
func (t *Tracker) RemovePosition(ctx context.Context, index int) error {
	_, err := t.TakePosition(ctx, index)
	return err
}

// TakePosition removes the position at index like RemovePosition and returns
// the position that was removed.
func (t *Tracker) TakePosition(ctx context.Context, index int) (models.Position, error) {
	pos, err := t.removePosition(ctx, index)
	t.metrics.Operation("remove", result(err))
	return pos, err
}

func (t *Tracker) removePosition(ctx context.Context, index int) (models.Position, error) {
	t.mu.Lock()
	if index < 0 || index >= len(t.positions) {
		n := len(t.positions)
		t.mu.Unlock()
		return models.Position{}, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, n)
	}

	removed := copyPositions(t.positions[index : index+1])[0]
	updated := make([]models.Position, 0, len(t.positions)-1)
	updated = append(updated, t.positions[:index]...)
	updated = append(updated, t.positions[index+1:]...)
	t.positions = updated
	t.commitAndUnlock(ctx)

	t.log.Infof("Position removed: %s", removed.Symbol)
	return removed, nil
}

// SetShares replaces the share count at index with the coerced rawValue.
// Non-numeric input is stored as NaN rather than rejected.
func (t *Tracker) SetShares(ctx context.Context, index int, rawValue string) error {
	err := t.setShares(ctx, index, rawValue)
	t.metrics.Operation("set_shares", result(err))
	return err
}

func (t *Tracker) setShares(ctx context.Context, index int, rawValue string) error {
	shares := CoerceShares(rawValue)

	t.mu.Lock()
	if index < 0 || index >= len(t.positions) {
		n := len(t.positions)
		t.mu.Unlock()
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, n)
	}

	t.positions[index].Shares = shares
	symbol := t.positions[index].Symbol
	t.commitAndUnlock(ctx)

	if !shares.IsNumeric() {
		t.log.Warnf("Shares for %s set to non-numeric value from input %q", symbol, rawValue)
	}
	return nil
}

func (t *Tracker) indexLocked(symbol string) int {
	for i, p := range t.positions {
		if strings.EqualFold(p.Symbol, symbol) {
			return i
		}
	}
	return -1
}

// CoerceShares converts user input to a number the way a browser number field
// does: surrounding space is ignored, empty input is 0, decimal and exponent
// notation plus 0x/0o/0b integers are accepted, and anything else becomes NaN.
func CoerceShares(raw string) models.Shares {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	switch s {
	case "Infinity", "+Infinity":
		return models.Shares(math.Inf(1))
	case "-Infinity":
		return models.Shares(math.Inf(-1))
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return models.Shares(math.NaN())
			}
			return models.Shares(n)
		}
	}

	// strconv also reads "inf", "nan" and hex floats; a number field does not
	for _, r := range s {
		if unicode.IsLetter(r) && r != 'e' && r != 'E' {
			return models.Shares(math.NaN())
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return models.Shares(math.NaN())
	}
	return models.Shares(f)
}
