package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"dividend_tracker/internal/api"
	"dividend_tracker/internal/bot"
	"dividend_tracker/internal/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Create a context for graceful shutdown
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.TelegramEnabled() {
			tg := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID)
			b := bot.New(tr, pres)
			go tg.StartListener(ctx, b.HandleCommand)
			tg.Notify(ctx, "🟢 Dividend Tracker "+cfg.Version+" online")
			defer tg.Notify(context.WithoutCancel(ctx), "⚠️ Dividend Tracker shutting down")
		} else {
			zap.S().Info("Telegram credentials not set, bot disabled")
		}

		h := api.ApiHandler{
			Portfolio: tr,
			Fetcher:   fetcher,
			Gatherer:  prometheus.DefaultGatherer,
		}
		zap.S().Infof("Dividend Tracker %s listening on :%d", cfg.Version, cfg.HTTPPort)
		return h.StartApi(ctx, cfg.HTTPPort)
	},
}
