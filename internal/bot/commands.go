package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"dividend_tracker/internal/chart"
	"dividend_tracker/internal/models"
	"dividend_tracker/internal/presenter"
	"dividend_tracker/internal/telegram"
	"dividend_tracker/internal/tracker"

	"go.uber.org/zap"
)

// Portfolio is the part of the tracker the chat front end drives.
type Portfolio interface {
	AddPosition(ctx context.Context, symbol string) (models.Position, error)
	TakePosition(ctx context.Context, index int) (models.Position, error)
	SetShares(ctx context.Context, index int, raw string) error
	Positions() []models.Position
	Income() []models.IncomeRow
	Summary() models.Summary
}

type CommandDoc struct {
	Name        string
	Description string
	Example     string
}

// Bot turns chat commands into portfolio intents and renders the resulting state.
// It keeps no copy of the portfolio; every reply is rendered from the tracker.
type Bot struct {
	portfolio Portfolio
	presenter *presenter.Presenter
	chartOpts chart.Options
	commands  []CommandDoc
}

func New(p Portfolio, pr *presenter.Presenter) *Bot {
	return &Bot{
		portfolio: p,
		presenter: pr,
		chartOpts: chart.DefaultOptions(),
		commands: []CommandDoc{
			{"/add", "Track a stock (fetches dividend data)", "/add KO"},
			{"/remove", "Stop tracking the stock at row N", "/remove 2"},
			{"/shares", "Set the share count of row N", "/shares 1 25"},
			{"/list", "Tracked stocks with dividend details", "/list"},
			{"/income", "Estimated annual income per stock", "/income"},
			{"/summary", "Portfolio totals", "/summary"},
			{"/chart", "Income bar chart", "/chart"},
			{"/ping", "Connectivity check", "/ping"},
		},
	}
}

// HandleCommand processes inbound chat commands safely.
func (b *Bot) HandleCommand(ctx context.Context, cmd string) telegram.Reply {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return telegram.Reply{}
	}

	switch strings.ToLower(parts[0]) {
	case "/ping":
		return text("Pong 🏓")
	case "/help", "/start":
		return text(b.getHelp())
	case "/add":
		return text(b.handleAddCommand(ctx, parts))
	case "/remove":
		return text(b.handleRemoveCommand(ctx, parts))
	case "/shares":
		return text(b.handleSharesCommand(ctx, parts))
	case "/list":
		positions := b.portfolio.Positions()
		return text(b.presenter.PositionList(positions, tracker.IncomeRows(positions)))
	case "/income":
		return text(b.presenter.IncomeTable(b.portfolio.Income()))
	case "/summary":
		return text(b.presenter.Summary(b.portfolio.Summary()))
	case "/chart":
		return b.handleChartCommand()
	default:
		return text("Unknown command. Try /add, /remove, /shares, /list, /income or /chart.")
	}
}

func text(s string) telegram.Reply { return telegram.Reply{Text: s} }

func (b *Bot) handleAddCommand(ctx context.Context, parts []string) string {
	if len(parts) < 2 {
		return "Usage: /add <symbol>"
	}

	var replies []string
	for _, sym := range parts[1:] {
		pos, err := b.portfolio.AddPosition(ctx, sym)
		if err != nil {
			replies = append(replies, Describe(err, tracker.NormalizeSymbol(sym)))
			continue
		}
		replies = append(replies, fmt.Sprintf("✅ Added %s (1 share). Dividend Rate: %s | Yield: %s",
			presenter.Bold(pos.Symbol), b.rate(pos), presenter.Percent(pos.DividendYield)))
	}
	return strings.Join(replies, "\n")
}

func (b *Bot) rate(p models.Position) string {
	if p.DividendRate == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *p.DividendRate)
}

func (b *Bot) handleRemoveCommand(ctx context.Context, parts []string) string {
	if len(parts) != 2 {
		return "Usage: /remove <row>"
	}
	idx, ok := b.parseRow(parts[1])
	if !ok {
		return "⚠️ Row must be a number from /list."
	}

	removed, err := b.portfolio.TakePosition(ctx, idx)
	if err != nil {
		return Describe(err, "")
	}
	return fmt.Sprintf("🗑️ Removed %s.", presenter.Bold(removed.Symbol))
}

func (b *Bot) handleSharesCommand(ctx context.Context, parts []string) string {
	if len(parts) < 3 {
		return "Usage: /shares <row> <count>"
	}
	idx, ok := b.parseRow(parts[1])
	if !ok {
		return "⚠️ Row must be a number from /list."
	}

	raw := strings.Join(parts[2:], " ")
	if err := b.portfolio.SetShares(ctx, idx, raw); err != nil {
		return Describe(err, "")
	}

	positions := b.portfolio.Positions()
	if idx >= len(positions) {
		return "✏️ Shares updated."
	}
	pos := positions[idx]
	msg := fmt.Sprintf("✏️ %s now has %s shares.", presenter.Bold(pos.Symbol), pos.Shares)
	if !pos.Shares.IsNumeric() {
		msg += "\n⚠️ That is not a number; income for this stock will show as 0."
	}
	return msg
}

func (b *Bot) handleChartCommand() telegram.Reply {
	rows := b.portfolio.Income()
	var buf bytes.Buffer
	if err := chart.Render(&buf, rows, b.chartOpts); err != nil {
		if errors.Is(err, chart.ErrNoRows) {
			return text("📭 Nothing to chart yet. Add a stock with /add <symbol>.")
		}
		zap.S().Errorf("chart render failed: %v", err)
		return text("⚠️ Error: Could not draw the chart.")
	}
	return telegram.Reply{Text: "📊 Estimated Annual Income", Photo: buf.Bytes()}
}

// parseRow converts the 1-based row shown by /list to a position index.
func (b *Bot) parseRow(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n - 1, true
}

func (b *Bot) getHelp() string {
	var sb strings.Builder
	sb.WriteString("💰 *Dividend Tracker commands*\n")
	for _, c := range b.commands {
		sb.WriteString(fmt.Sprintf("%s: %s\n   e.g. `%s`\n", c.Name, c.Description, c.Example))
	}
	return sb.String()
}

// Describe turns a tracker error into the notification shown to the user.
func Describe(err error, symbol string) string {
	switch {
	case errors.Is(err, tracker.ErrEmptySymbol):
		return "⚠️ Enter a stock symbol (e.g. AAPL)."
	case errors.Is(err, tracker.ErrDuplicateSymbol):
		return fmt.Sprintf("⚠️ %s already added!", presenter.EscapeMarkdown(symbol))
	case errors.Is(err, tracker.ErrQuoteUnavailable):
		return fmt.Sprintf("⚠️ Could not fetch dividend data for %s.", presenter.EscapeMarkdown(symbol))
	case errors.Is(err, tracker.ErrIndexOutOfRange):
		return "⚠️ No stock at that row. Check /list."
	default:
		return "⚠️ Error: " + presenter.EscapeMarkdown(err.Error())
	}
}
