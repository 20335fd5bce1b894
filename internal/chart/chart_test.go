package chart

import (
	"bytes"
	"testing"

	"dividend_tracker/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRender_PNG(t *testing.T) {
	rows := []models.IncomeRow{
		{Symbol: "KO", EstimatedAnnualIncome: decimal.RequireFromString("9.20")},
		{Symbol: "AMZN", EstimatedAnnualIncome: decimal.Zero},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, rows, DefaultOptions()))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")), "expected PNG header")
}

func TestRender_NoRows(t *testing.T) {
	var buf bytes.Buffer
	require.ErrorIs(t, Render(&buf, nil, DefaultOptions()), ErrNoRows)
}

func TestNewIncomePlot_LabelsInOrder(t *testing.T) {
	p, err := NewIncomePlot([]models.IncomeRow{
		{Symbol: "T", EstimatedAnnualIncome: decimal.RequireFromString("11.10")},
		{Symbol: "KO", EstimatedAnnualIncome: decimal.RequireFromString("9.20")},
	}, "Income")
	require.NoError(t, err)
	require.Equal(t, "Income", p.Title.Text)

	ticks := p.X.Tick.Marker.Ticks(p.X.Min, p.X.Max)
	var labels []string
	for _, tk := range ticks {
		if tk.Label != "" {
			labels = append(labels, tk.Label)
		}
	}
	require.Equal(t, []string{"T", "KO"}, labels)
}

func TestRender_AmountBeyondFloatRange(t *testing.T) {
	rows := []models.IncomeRow{
		{Symbol: "KO", EstimatedAnnualIncome: decimal.RequireFromString("1.84e308")},
		{Symbol: "T", EstimatedAnnualIncome: decimal.RequireFromString("11.10")},
	}

	p, err := NewIncomePlot(rows, "Income")
	require.NoError(t, err)
	var labels []string
	for _, tk := range p.X.Tick.Marker.Ticks(p.X.Min, p.X.Max) {
		if tk.Label != "" {
			labels = append(labels, tk.Label)
		}
	}
	require.Equal(t, []string{"KO (off scale)", "T"}, labels)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, rows, DefaultOptions()))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}
