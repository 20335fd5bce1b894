package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"dividend_tracker/internal/models"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoRows is returned when there is nothing to draw.
var ErrNoRows = errors.New("chart: no income rows")

// offScaleMark is appended to labels of bars too large to draw.
const offScaleMark = " (off scale)"

// barColor matches the blue of the web version.
var barColor = color.RGBA{R: 0x3B, G: 0x82, B: 0xF6, A: 0xFF}

// Options controls the rendered image.
type Options struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	Format string // png, svg, pdf...
}

// DefaultOptions renders a 6x4 inch PNG.
func DefaultOptions() Options {
	return Options{
		Title:  "Estimated Annual Income",
		Width:  6 * vg.Inch,
		Height: 4 * vg.Inch,
		Format: "png",
	}
}

// NewIncomePlot builds a bar chart with one bar per row, in row order.
func NewIncomePlot(rows []models.IncomeRow, title string) (*plot.Plot, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	values := make(plotter.Values, len(rows))
	labels := make([]string, len(rows))
	for i, r := range rows {
		v := r.EstimatedAnnualIncome.InexactFloat64()
		labels[i] = r.Symbol
		// gonum rejects infinite points; amounts past float64 get an empty bar
		if math.IsInf(v, 0) || math.IsNaN(v) {
			v = 0
			labels[i] += offScaleMark
		}
		values[i] = v
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Income"
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)
	return p, nil
}

// Render writes the income chart for rows to w.
func Render(w io.Writer, rows []models.IncomeRow, opts Options) error {
	p, err := NewIncomePlot(rows, opts.Title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(opts.Width, opts.Height, opts.Format)
	if err != nil {
		return fmt.Errorf("chart writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
