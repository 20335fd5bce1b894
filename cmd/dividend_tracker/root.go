package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"dividend_tracker/internal/config"
	"dividend_tracker/internal/logger"
	"dividend_tracker/internal/metrics"
	"dividend_tracker/internal/presenter"
	"dividend_tracker/internal/quotes"
	"dividend_tracker/internal/storage"
	"dividend_tracker/internal/tracker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ephemeral   bool
	quoteSource string
	style       string

	cfg      *config.Config
	tr       *tracker.Tracker
	pres     *presenter.Presenter
	fetcher  quotes.Fetcher
	closeAll []func()

	rootCmd = &cobra.Command{
		Use:           "dividend_tracker",
		Short:         "Track dividend income of a stock portfolio",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// 1. Configuration and logging
			cfg = config.Load()
			cfg.Version = readVersion()
			if quoteSource != "" {
				cfg.QuoteSource = quoteSource
			}
			logger.Setup(cfg.LogFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups, cfg.LogLevel)

			// 2. Dependencies
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
			}

			fetcher, err = quotes.New(cfg.QuoteSource, quotes.Options{ServiceURL: cfg.QuoteServiceURL})
			if err != nil {
				return err
			}

			rec, err := metrics.New(prometheus.DefaultRegisterer)
			if err != nil {
				return fmt.Errorf("metrics: %w", err)
			}

			tr = tracker.New(fetcher, store,
				tracker.WithStoreKey(cfg.StoreKey),
				tracker.WithFetchTimeout(time.Duration(cfg.QuoteTimeoutSec)*time.Second),
				tracker.WithMetrics(rec),
			)
			pres = presenter.New(cfg.Currency)

			// 3. Restore the persisted portfolio
			if err := tr.Initialize(ctx); err != nil {
				return fmt.Errorf("load portfolio: %w", err)
			}
			zap.S().Debugf("Dividend Tracker %s ready: store=%s quotes=%s positions=%d",
				cfg.Version, cfg.StoreBackend, cfg.QuoteSource, tr.Len())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			for i := len(closeAll) - 1; i >= 0; i-- {
				closeAll[i]()
			}
			_ = zap.L().Sync()
		},
	}
)

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep the portfolio in memory only")
	rootCmd.PersistentFlags().StringVar(&quoteSource, "quotes", "", "quote source override (yahoo, alpaca, http)")
	rootCmd.PersistentFlags().StringVar(&style, "style", "auto", "glamour style for terminal output")

	rootCmd.AddCommand(addCmd, removeCmd, sharesCmd, listCmd, incomeCmd, chartCmd, serveCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// version needs no store or quote source
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(readVersion())
		},
	})
}

// openStore builds the persistence backend selected by STORE_BACKEND.
func openStore(ctx context.Context) (storage.Store, error) {
	backend := cfg.StoreBackend
	if ephemeral {
		backend = "memory"
	}

	switch backend {
	case "", "file":
		return storage.NewFileStore(cfg.StateDir), nil
	case "memory":
		return storage.NewMemoryStore(), nil
	case "redis":
		s, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPoolSize)
		if err != nil {
			return nil, err
		}
		closeAll = append(closeAll, s.Close)
		return s, nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
		s, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		closeAll = append(closeAll, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
