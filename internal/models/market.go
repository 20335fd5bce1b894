package models

import "github.com/shopspring/decimal"

// DividendInfo is the per-symbol metadata returned by a quote source.
// Nil fields mean the source had no value.
type DividendInfo struct {
	Symbol        string   `json:"symbol"`
	DividendYield *float64 `json:"dividendYield,omitempty"`
	DividendRate  *float64 `json:"dividendRate,omitempty"`
	ForwardEps    *float64 `json:"forwardEps,omitempty"`
}

// IncomeRow is one bar of the income chart. It is recomputed on every read and never stored.
type IncomeRow struct {
	Symbol                string          `json:"symbol"`
	EstimatedAnnualIncome decimal.Decimal `json:"estimatedAnnualIncome"`
}

// Summary aggregates the income rows and yields of the whole portfolio.
type Summary struct {
	Positions   int             `json:"positions"`
	TotalIncome decimal.Decimal `json:"totalIncome"`
	MeanYield   float64         `json:"meanYield"`   // Over positions reporting a yield
	MedianYield float64         `json:"medianYield"` // Over positions reporting a yield
}
