package quotes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dividend_tracker/internal/models"

	"cloud.google.com/go/civil"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// alpacaMarketData is the subset of the Alpaca market data client we use.
type alpacaMarketData interface {
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
	GetCorporateActions(req marketdata.GetCorporateActionsRequest) (marketdata.CorporateActions, error)
}

// AlpacaFetcher derives dividend metadata from Alpaca corporate actions.
// The rate is the sum of regular cash dividends with an ex-date in the trailing
// year; the yield divides it by the latest trade price.
type AlpacaFetcher struct {
	mdClient alpacaMarketData
	now      func() time.Time
}

var _ Fetcher = (*AlpacaFetcher)(nil)

// NewAlpacaFetcher builds the client from the APCA_* environment variables.
func NewAlpacaFetcher() *AlpacaFetcher {
	return &AlpacaFetcher{
		mdClient: marketdata.NewClient(marketdata.ClientOpts{}),
		now:      time.Now,
	}
}

func (a *AlpacaFetcher) FetchDividendInfo(ctx context.Context, symbol string) (*models.DividendInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(symbol)

	trade, err := a.mdClient.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return nil, fmt.Errorf("alpaca latest trade %s: %w", symbol, err)
	}
	if trade == nil || trade.Price <= 0 {
		return nil, fmt.Errorf("alpaca latest trade %s: %w", symbol, ErrNoData)
	}

	end := civil.DateOf(a.now())
	actions, err := a.mdClient.GetCorporateActions(marketdata.GetCorporateActionsRequest{
		Symbols: []string{symbol},
		Types:   []string{"cash_dividend"},
		Start:   end.AddDays(-365),
		End:     end,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca corporate actions %s: %w", symbol, err)
	}

	var rate float64
	for _, d := range actions.CashDividends {
		if d.Symbol != symbol || d.Special {
			continue
		}
		rate += d.Rate
	}

	info := &models.DividendInfo{Symbol: symbol}
	yield := rate / trade.Price
	info.DividendYield = &yield
	info.DividendRate = positive(rate)
	return info, nil
}
