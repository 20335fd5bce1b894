package quotes

import (
	"context"
	"fmt"
	"strings"

	"dividend_tracker/internal/models"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"
)

// getEquity is swapped out in tests.
var getEquity = equity.Get

// YahooFetcher reads dividend metadata from the Yahoo Finance quote endpoint.
type YahooFetcher struct{}

var _ Fetcher = (*YahooFetcher)(nil)

func NewYahooFetcher() *YahooFetcher {
	return &YahooFetcher{}
}

// FetchDividendInfo looks up the equity quote for symbol.
// A missing yield is reported as 0, a missing rate or EPS as absent.
func (y *YahooFetcher) FetchDividendInfo(ctx context.Context, symbol string) (*models.DividendInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q, err := getEquity(strings.ToUpper(symbol))
	if err != nil {
		return nil, fmt.Errorf("yahoo quote %s: %w", symbol, err)
	}
	if q == nil {
		return nil, fmt.Errorf("yahoo quote %s: %w", symbol, ErrNoData)
	}
	return fromEquity(q), nil
}

func fromEquity(q *finance.Equity) *models.DividendInfo {
	yield := q.TrailingAnnualDividendYield
	return &models.DividendInfo{
		Symbol:        q.Symbol,
		DividendYield: &yield,
		DividendRate:  positive(q.TrailingAnnualDividendRate),
		ForwardEps:    nonZero(q.EpsForward),
	}
}

// nonZero keeps negative estimates; EPS can legitimately be below zero.
func nonZero(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}
