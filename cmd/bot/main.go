// cmd/bot/main.go
package main

import (
	"boost-wallet/internal/analytics"
	"boost-wallet/internal/auth"
	"boost-wallet/internal/bot"
	"boost-wallet/internal/cache"
	"boost-wallet/internal/catalog"
	"boost-wallet/internal/config"
	"boost-wallet/internal/logger"
	"boost-wallet/internal/recommend"
	"boost-wallet/internal/storage/postgres"
	"boost-wallet/internal/wallet"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.MustLoad()

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if cfg.TelegramBotToken == "" {
		slog.Error("TELEGRAM_BOT_TOKEN not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pgxpool.New(ctx, cfg.DBConn)
	if err != nil {
		slog.Error("Failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := postgres.NewStorage(db)

	catalogService := catalog.NewService(store, cache.NewMemory(), catalog.Options{
		CacheTTL:       cfg.CatalogCacheTTL,
		MaxAttempts:    cfg.RetryMaxAttempts,
		InitialBackoff: cfg.RetryInitialBackoff,
	}, log)
	tracker := analytics.NewTracker(store, log)
	registry := wallet.NewRegistry(store, catalogService, tracker, log)
	authService := auth.NewService(store, auth.NewTokenService(cfg))

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		slog.Error("Failed to init Telegram bot", "error", err)
		os.Exit(1)
	}

	// long-poll не работает при установленном webhook
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		slog.Warn("Failed to delete webhook", "error", err)
	}

	telegram := bot.New(bot.Deps{
		Users:       authService,
		Wallets:     registry,
		Catalog:     catalogService,
		Recommender: recommend.NewRecommender(log),
		Tracker:     tracker,
		Sender:      api,
		Logger:      log,
	})

	slog.Info("Bot started", "username", api.Self.UserName)
	if err := telegram.Run(ctx, api); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Bot stopped with error", "error", err)
	}

	tracker.Wait()
	slog.Info("Bot stopped")
}
