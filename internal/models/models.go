package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Position represents a single tracked security.
//
// The optional dividend fields are pointers so that "absent" (the quote source had
// no value) stays distinguishable from a real zero.
type Position struct {
	Symbol        string   `json:"symbol"`                  // Canonical upper-case ticker (e.g., "KO")
	Shares        Shares   `json:"shares"`                  // Number of shares owned, user editable
	DividendYield *float64 `json:"dividendYield,omitempty"` // Fraction, 0.02 = 2%
	DividendRate  *float64 `json:"dividendRate,omitempty"`  // Currency paid per share per year
	ForwardEps    *float64 `json:"forwardEps,omitempty"`    // Display only
}

// PortfolioState is the persisted envelope around the ordered position list.
// This struct matches the structure of the stored value.
type PortfolioState struct {
	Version   string     `json:"version"`   // Schema version for future compatibility
	LastSync  string     `json:"last_sync"` // Timestamp of last save
	Positions []Position `json:"positions"` // Insertion order is display and chart order
}

// Shares is a share count as entered by the user. It may be NaN when the input
// could not be read as a number; the value is kept rather than rejected.
type Shares float64

// Float64 returns the raw value.
func (s Shares) Float64() float64 { return float64(s) }

// IsNumeric reports whether the count is a finite number usable in income math.
func (s Shares) IsNumeric() bool {
	f := float64(s)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (s Shares) String() string {
	return formatShares(float64(s))
}

// MarshalJSON writes finite values as numbers and non-finite ones as the strings
// "NaN", "Infinity" and "-Infinity", which encoding/json cannot represent natively.
func (s Shares) MarshalJSON() ([]byte, error) {
	f := float64(s)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts numbers, the non-finite markers written by MarshalJSON and
// null. null is what a browser writes for NaN, so it decodes back to NaN.
func (s *Shares) UnmarshalJSON(b []byte) error {
	str := string(b)
	if str == "null" {
		*s = Shares(math.NaN())
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		switch raw {
		case "NaN":
			*s = Shares(math.NaN())
		case "Infinity":
			*s = Shares(math.Inf(1))
		case "-Infinity":
			*s = Shares(math.Inf(-1))
		default:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("invalid shares value %q", raw)
			}
			*s = Shares(f)
		}
		return nil
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return fmt.Errorf("invalid shares value %s", str)
	}
	*s = Shares(f)
	return nil
}

func formatShares(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Float returns a pointer to f. Handy for building optional fields.
func Float(f float64) *float64 { return &f }

// ParseOptionalNumber reads a raw JSON value as an optional number. Numbers and
// numeric strings yield a value; null, placeholders such as "N/A" and non-finite
// values yield nil.
func ParseOptionalNumber(b []byte) *float64 {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
