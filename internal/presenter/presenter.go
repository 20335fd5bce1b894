package presenter

import (
	"fmt"
	"io"
	"math"
	"strings"

	"dividend_tracker/internal/models"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

const na = "N/A"

// Presenter formats portfolio data for humans in a single currency.
type Presenter struct {
	Currency string
}

func New(currency string) *Presenter {
	if currency == "" {
		currency = money.USD
	}
	return &Presenter{Currency: strings.ToUpper(currency)}
}

// Money formats d with the currency symbol and its minor-unit precision.
func (p *Presenter) Money(d decimal.Decimal) string {
	// to get a never nil currency the Money constructor has to be called
	cur := money.New(0, p.Currency).Currency()
	minor := d.Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return formatLarge(d, cur)
	}
	return money.New(minor.IntPart(), p.Currency).Display()
}

// go-money negates negative amounts, so MinInt64 is out of range too.
var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(-math.MaxInt64)
)

// formatLarge lays out amounts beyond int64 minor units the way go-money's
// formatter does, working on the decimal string instead.
func formatLarge(d decimal.Decimal, cur *money.Currency) string {
	digits := d.Abs().StringFixed(int32(cur.Fraction))
	intPart, frac, _ := strings.Cut(digits, ".")

	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteString(cur.Thousand)
		}
		sb.WriteRune(r)
	}
	amount := sb.String()
	if frac != "" {
		amount += cur.Decimal + frac
	}

	out := strings.Replace(cur.Template, "1", amount, 1)
	out = strings.Replace(out, "$", cur.Grapheme, 1)
	if d.IsNegative() {
		out = "-" + out
	}
	return out
}

func (p *Presenter) optionalMoney(f *float64) string {
	if f == nil {
		return na
	}
	return p.Money(decimal.NewFromFloat(*f))
}

// Percent renders a yield fraction as a percentage, N/A when absent or zero.
func Percent(f *float64) string {
	if f == nil || *f == 0 {
		return na
	}
	return fmt.Sprintf("%.2f%%", *f*100)
}

func optionalNumber(f *float64) string {
	if f == nil {
		return na
	}
	return decimal.NewFromFloat(*f).String()
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// EscapeMarkdown makes s safe to embed in a Telegram Markdown message.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Bold wraps s in a bold entity. Entities cannot carry escapes, so text with
// markup characters is escaped and left plain.
func Bold(s string) string {
	if strings.ContainsAny(s, "_*`[") {
		return EscapeMarkdown(s)
	}
	return "*" + s + "*"
}

// PositionList renders one markdown block per position, numbered from 1.
func (p *Presenter) PositionList(positions []models.Position, income []models.IncomeRow) string {
	if len(positions) == 0 {
		return "📭 No stocks tracked yet. Add one with /add <symbol>."
	}

	var sb strings.Builder
	sb.WriteString("💰 *DIVIDEND TRACKER*\n")
	for i, pos := range positions {
		est := na
		if i < len(income) && pos.DividendRate != nil && pos.Shares.IsNumeric() && pos.Shares != 0 {
			est = p.Money(income[i].EstimatedAnnualIncome)
		}
		sb.WriteString(fmt.Sprintf("\n%d. %s (%s shares)\n", i+1, Bold(pos.Symbol), pos.Shares))
		sb.WriteString(fmt.Sprintf("   Dividend Yield: %s\n", Percent(pos.DividendYield)))
		sb.WriteString(fmt.Sprintf("   Dividend Rate: %s\n", p.optionalMoney(pos.DividendRate)))
		sb.WriteString(fmt.Sprintf("   EPS: %s\n", optionalNumber(pos.ForwardEps)))
		sb.WriteString(fmt.Sprintf("   📈 Est. Income: %s\n", est))
	}
	return sb.String()
}

// IncomeTable renders the income rows as a markdown table with a total line.
func (p *Presenter) IncomeTable(rows []models.IncomeRow) string {
	if len(rows) == 0 {
		return "📭 No income to show."
	}

	var sb strings.Builder
	sb.WriteString("| Symbol | Est. Annual Income |\n")
	sb.WriteString("|:-------|-------------------:|\n")
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.EstimatedAnnualIncome)
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", EscapeMarkdown(r.Symbol), p.Money(r.EstimatedAnnualIncome)))
	}
	sb.WriteString(fmt.Sprintf("| **Total** | **%s** |\n", p.Money(total)))
	return sb.String()
}

// Summary renders the aggregate view.
func (p *Presenter) Summary(s models.Summary) string {
	return fmt.Sprintf("📊 *SUMMARY*\nPositions: %d\nEst. Annual Income: %s\nMean Yield: %s\nMedian Yield: %s",
		s.Positions, p.Money(s.TotalIncome), Percent(&s.MeanYield), Percent(&s.MedianYield))
}

// RenderMarkdown renders md for a terminal. style is a glamour style name
// ("dark", "light", "notty"...) or "auto".
func RenderMarkdown(md, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

type incomeCSVRow struct {
	Symbol string `csv:"symbol"`
	Income string `csv:"estimated_annual_income"`
}

// WriteIncomeCSV writes rows as CSV with a header line.
func WriteIncomeCSV(w io.Writer, rows []models.IncomeRow) error {
	out := make([]incomeCSVRow, len(rows))
	for i, r := range rows {
		out[i] = incomeCSVRow{Symbol: r.Symbol, Income: r.EstimatedAnnualIncome.StringFixed(2)}
	}
	return gocsv.Marshal(out, w)
}
