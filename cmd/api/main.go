// cmd/api/main.go
package main

import (
	"boost-wallet/internal/analytics"
	"boost-wallet/internal/auth"
	"boost-wallet/internal/bot"
	"boost-wallet/internal/cache"
	"boost-wallet/internal/catalog"
	"boost-wallet/internal/config"
	"boost-wallet/internal/handler"
	"boost-wallet/internal/logger"
	"boost-wallet/internal/middleware"
	"boost-wallet/internal/places"
	"boost-wallet/internal/recommend"
	"boost-wallet/internal/storage/postgres"
	"boost-wallet/internal/wallet"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg := config.MustLoad()

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBConn)
	if err != nil {
		slog.Error("Не удалось подключиться к БД", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := postgres.NewStorage(pool)

	// кэш каталога: redis, если задан REDIS_URL, иначе в памяти процесса
	var catalogCache catalog.Cache = cache.NewMemory()
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("Не удалось подключиться к Redis", "error", err)
			os.Exit(1)
		}
		redisCache := cache.NewRedis(client, "boost:", cfg.CatalogCacheTTL)
		defer redisCache.Close()
		catalogCache = redisCache
		slog.Info("Кэш каталога в Redis")
	}

	catalogService := catalog.NewService(store, catalogCache, catalog.Options{
		CacheTTL:       cfg.CatalogCacheTTL,
		MaxAttempts:    cfg.RetryMaxAttempts,
		InitialBackoff: cfg.RetryInitialBackoff,
	}, log)

	tracker := analytics.NewTracker(store, log)
	registry := wallet.NewRegistry(store, catalogService, tracker, log)
	recommender := recommend.NewRecommender(log)

	var provider places.Provider
	if cfg.PlacesAPIKey != "" {
		provider = places.NewGoogleClient(cfg.PlacesEndpoint, cfg.PlacesAPIKey, cfg.PlacesRadius, cfg.PlacesTimeout)
	} else {
		slog.Warn("PLACES_API_KEY не задан, поиск мест рядом отключён")
	}

	tokenService := auth.NewTokenService(cfg)
	authService := auth.NewService(store, tokenService)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.Handlers{
		Auth:      handler.NewAuthHandler(authService, registry),
		Wallet:    handler.NewWalletHandler(registry, catalogService),
		Recommend: handler.NewRecommendHandler(registry, recommender, provider),
		Analytics: handler.NewAnalyticsHandler(registry, tracker),
	}, middleware.NewAuthMiddleware(tokenService))

	// Telegram webhook
	if cfg.TelegramBotToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			slog.Error("Не удалось инициализировать Telegram бота", "error", err)
			os.Exit(1)
		}

		webhookURL, err := bot.SetWebhook(api, cfg.WebhookBaseURL)
		if err != nil {
			slog.Error("Не удалось установить webhook", "error", err)
			os.Exit(1)
		}
		slog.Info("Telegram webhook установлен", "url", webhookURL, "bot", api.Self.UserName)

		telegram := bot.New(bot.Deps{
			Users:       authService,
			Wallets:     registry,
			Catalog:     catalogService,
			Recommender: recommender,
			Tracker:     tracker,
			Sender:      api,
			Logger:      log,
		})
		router.POST(bot.WebhookPath, telegram.Webhook())
	}

	// total_cards в аналитике догоняет кошельки активных пользователей
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.MetricsSyncSpec, func() {
		registry.Each(func(m *wallet.Manager) {
			tracker.SyncTotalCards(m.UserID(), m.Count())
		})
	})
	if err != nil {
		slog.Error("Неверное расписание METRICS_SYNC_SPEC", "spec", cfg.MetricsSyncSpec, "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	server := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("🚀 Сервер запущен", "addr", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Сервер завершил работу с ошибкой", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Останавливаем сервер")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Ошибка при остановке сервера", "error", err)
	}
	<-scheduler.Stop().Done()
	tracker.Wait()

	slog.Info("Сервер остановлен")
}
