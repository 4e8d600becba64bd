package main

import (
	"ChipTrack/internal/auth"
	"ChipTrack/internal/cache"
	"ChipTrack/internal/config"
	"ChipTrack/internal/handlers"
	"ChipTrack/internal/middleware"
	"ChipTrack/internal/service"
	"ChipTrack/internal/storage"
	"ChipTrack/internal/telemetry"
	"ChipTrack/internal/vision"
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.NewConfig()

	// в разработке - читаемый логгер, иначе JSON
	newLogger := zap.NewProduction
	if cfg.IsDevelopment() {
		newLogger = zap.NewDevelopment
	}
	logger, err := newLogger()
	if err != nil {
		panic(err)
	}

	sugar := logger.Sugar()
	middleware.SetLogger(sugar)
	if err := cfg.Validate(); err != nil {
		sugar.Fatalw("Invalid configuration", "env", cfg.AppEnv, "error", err)
	}
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Debugw("Failed to sync logger", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup("chiptrack", sugar)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			sugar.Warnw("Failed to shutdown tracing", "error", err)
		}
	}()

	store, err := storage.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize storage", "error", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			sugar.Warnw("Failed to close storage", "error", err)
		}
	}()

	statsCache := newStatsCache(ctx, cfg, sugar)

	userService := service.NewUserService(store.Users, auth.NewTokenManager(cfg.AuthSecret), sugar)
	itemService := service.NewItemService(store.Items, statsCache, sugar)

	seeds, err := service.ParseSeedUsers(cfg.SeedUsers)
	if err != nil {
		sugar.Fatalw("invalid SEED_USERS", "error", err)
	}
	if n, err := userService.SeedUsers(ctx, seeds); err != nil {
		sugar.Fatalw("failed to seed users", "error", err)
	} else if n > 0 {
		sugar.Infow("Seeded default users", "count", n)
	}

	var extractor vision.Extractor
	if cfg.GeminiAPIKey != "" {
		gemini, err := vision.NewGeminiExtractor(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			sugar.Fatalw("failed to initialize OCR client", "error", err)
		}
		extractor = gemini
	} else {
		sugar.Warnw("GEMINI_API_KEY is not set, OCR extraction disabled")
	}

	h := handlers.NewHandler(userService, itemService, extractor, sugar, cfg)

	srv := &http.Server{
		Addr:              cfg.BaseURL,
		Handler:           otelhttp.NewHandler(h.Router, "chiptrack"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"AppEnv", cfg.AppEnv,
		"Storage", store.Backend,
		"CORSOrigins", cfg.CORSOrigins,
		"Redis", cfg.RedisURL != "",
		"OCR", extractor != nil,
	)

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			sugar.Errorw("Server shutdown failed", "error", err)
		}
	}()

	sugar.Infow("Starting server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Errorw("Server failed", "error", err)
		return
	}
	sugar.Infow("Server stopped")
}

// newStatsCache выбирает Redis, если он задан и доступен, иначе кэш в памяти процесса.
func newStatsCache(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) cache.StatsCache {
	if cfg.RedisURL == "" {
		return cache.NewMemoryStats(cfg.StatsCacheTTL)
	}
	client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		sugar.Warnw("Redis unavailable, using in-memory stats cache", "error", err)
		return cache.NewMemoryStats(cfg.StatsCacheTTL)
	}
	return cache.NewRedisStats(client, cfg.StatsCacheTTL)
}
