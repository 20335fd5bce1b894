package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dividend_tracker/internal/models"
)

// ErrNoData is returned when the source answered but knows nothing about the symbol.
var ErrNoData = errors.New("quotes: no data for symbol")

// Fetcher is an Interface.
// Any struct that implements FetchDividendInfo can feed the tracker: Yahoo, Alpaca,
// a remote dividend service, or a fake in tests.
type Fetcher interface {
	FetchDividendInfo(ctx context.Context, symbol string) (*models.DividendInfo, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, symbol string) (*models.DividendInfo, error)

func (f FetcherFunc) FetchDividendInfo(ctx context.Context, symbol string) (*models.DividendInfo, error) {
	return f(ctx, symbol)
}

// Source names accepted by New.
const (
	SourceYahoo  = "yahoo"
	SourceAlpaca = "alpaca"
	SourceHTTP   = "http"
)

// Options carries the settings the individual sources need.
type Options struct {
	ServiceURL string // Base URL for SourceHTTP
}

// New returns the Fetcher for the named source.
func New(source string, opts Options) (Fetcher, error) {
	switch strings.ToLower(source) {
	case "", SourceYahoo:
		return NewYahooFetcher(), nil
	case SourceAlpaca:
		return NewAlpacaFetcher(), nil
	case SourceHTTP:
		if opts.ServiceURL == "" {
			return nil, fmt.Errorf("quote source %q needs a service URL", source)
		}
		return NewHTTPFetcher(opts.ServiceURL), nil
	default:
		return nil, fmt.Errorf("unknown quote source %q", source)
	}
}

// positive returns a pointer to f, or nil when the source reported nothing (zero).
func positive(f float64) *float64 {
	if f <= 0 {
		return nil
	}
	return &f
}
