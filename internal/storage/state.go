package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dividend_tracker/internal/models"

	"go.uber.org/zap"
)

// CurrentVersion is the schema version written by EncodeState.
const CurrentVersion = "1.1"

// ErrMalformed is returned by DecodeState when the stored bytes cannot be read as a portfolio.
var ErrMalformed = errors.New("storage: malformed persisted data")

// EncodeState serializes the full state. LastSync is stamped here.
func EncodeState(s models.PortfolioState) ([]byte, error) {
	s.Version = CurrentVersion
	s.LastSync = time.Now().UTC().Format(time.RFC3339)
	if s.Positions == nil {
		s.Positions = []models.Position{}
	}
	// MarshalIndent keeps the file human-readable
	return json.MarshalIndent(s, "", "  ")
}

// DecodeState parses a stored value. It understands the current envelope, older
// envelope versions and the bare JSON array written by the browser version of the
// tracker. The returned bool is true when the value was migrated and should be
// written back.
func DecodeState(b []byte) (models.PortfolioState, bool, error) {
	var s models.PortfolioState

	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return s, false, ErrMalformed
	}

	switch trimmed[0] {
	case '[':
		var legacy []legacyPosition
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return models.PortfolioState{}, false, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		s.Version = "1.0"
		s.Positions = make([]models.Position, 0, len(legacy))
		for _, lp := range legacy {
			s.Positions = append(s.Positions, lp.position())
		}
	case '{':
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return models.PortfolioState{}, false, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	default:
		return s, false, ErrMalformed
	}

	// CHECK FOR MIGRATION
	migrated := migrateState(&s)
	if migrated {
		zap.S().Infof("State migrated to version %s", s.Version)
	}
	return s, migrated, nil
}

// migrateState handles schema evolution.
// Returns true if changes were made and the state needs to be saved.
func migrateState(s *models.PortfolioState) bool {
	updated := false

	// 1.0 -> 1.1: symbols canonical upper case and unique
	if s.Version < "1.1" {
		zap.S().Infof("Migrating state schema from %q to 1.1", s.Version)
		s.Positions = canonicalPositions(s.Positions)
		s.Version = "1.1"
		updated = true
	}

	if s.Positions == nil {
		s.Positions = []models.Position{}
	}
	return updated
}

// canonicalPositions upper-cases symbols, drops empty ones and keeps the first
// occurrence of every symbol.
func canonicalPositions(in []models.Position) []models.Position {
	seen := make(map[string]bool, len(in))
	out := make([]models.Position, 0, len(in))
	for _, p := range in {
		p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
		if p.Symbol == "" {
			continue
		}
		if seen[p.Symbol] {
			zap.S().Warnf("dropping duplicate stored position %s", p.Symbol)
			continue
		}
		seen[p.Symbol] = true
		out = append(out, p)
	}
	return out
}

// legacyPosition is one element of the browser-era array. The quote service of
// that era answered "N/A" for missing numbers and the browser copied it verbatim.
type legacyPosition struct {
	Symbol        string        `json:"symbol"`
	Shares        models.Shares `json:"shares"`
	DividendYield looseNumber   `json:"dividendYield"`
	DividendRate  looseNumber   `json:"dividendRate"`
	ForwardEps    looseNumber   `json:"forwardEps"`
}

func (lp legacyPosition) position() models.Position {
	return models.Position{
		Symbol:        lp.Symbol,
		Shares:        lp.Shares,
		DividendYield: lp.DividendYield.value,
		DividendRate:  lp.DividendRate.value,
		ForwardEps:    lp.ForwardEps.value,
	}
}

// looseNumber decodes a JSON number, a numeric string, or any placeholder
// (null, "N/A", "") as absent.
type looseNumber struct {
	value *float64
}

func (n *looseNumber) UnmarshalJSON(b []byte) error {
	n.value = models.ParseOptionalNumber(b)
	return nil
}
