package tracker

import (
	"math"

	"dividend_tracker/internal/models"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// Income returns one row per position, in portfolio order. Recomputed on every call.
func (t *Tracker) Income() []models.IncomeRow {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return IncomeRows(t.positions)
}

// TotalIncome is the sum of all estimated annual incomes.
func (t *Tracker) TotalIncome() decimal.Decimal {
	total := decimal.Zero
	for _, row := range t.Income() {
		total = total.Add(row.EstimatedAnnualIncome)
	}
	return total
}

// Summary aggregates income and yield over the current portfolio.
func (t *Tracker) Summary() models.Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	sum := models.Summary{Positions: len(t.positions), TotalIncome: decimal.Zero}
	var yields stats.Float64Data
	for _, p := range t.positions {
		sum.TotalIncome = sum.TotalIncome.Add(EstimatedAnnualIncome(p))
		if p.DividendYield != nil {
			yields = append(yields, *p.DividendYield)
		}
	}
	if len(yields) > 0 {
		sum.MeanYield, _ = stats.Mean(yields)
		sum.MedianYield, _ = stats.Median(yields)
	}
	return sum
}

// IncomeRows derives the chart rows for positions.
func IncomeRows(positions []models.Position) []models.IncomeRow {
	rows := make([]models.IncomeRow, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, models.IncomeRow{
			Symbol:                p.Symbol,
			EstimatedAnnualIncome: EstimatedAnnualIncome(p),
		})
	}
	return rows
}

// EstimatedAnnualIncome is dividendRate × shares rounded to cents, half away from
// zero. It is exactly 0 when the rate is absent or shares is not a finite number.
func EstimatedAnnualIncome(p models.Position) decimal.Decimal {
	if p.DividendRate == nil || !p.Shares.IsNumeric() {
		return decimal.Zero
	}
	rate := *p.DividendRate
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(rate).Mul(decimal.NewFromFloat(p.Shares.Float64())).Round(2)
}
