package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/nitesh/news_near_me/internal/api"
	"github.com/nitesh/news_near_me/internal/config"
	"github.com/nitesh/news_near_me/internal/geo"
	"github.com/nitesh/news_near_me/internal/llm"
	"github.com/nitesh/news_near_me/internal/logger"
	"github.com/nitesh/news_near_me/internal/service"
	"github.com/nitesh/news_near_me/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}
	log := logger.New("news-near-me", cfg.LogLevel, cfg.Debug)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	generator, closeGen, err := newGenerator(ctx, cfg, log)
	if err != nil {
		log.Error("create generator", slog.Any("err", err))
		os.Exit(1)
	}
	defer closeGen()

	var resolver geo.Resolver = geo.NewClient(cfg.GeolocationURL, cfg.GeolocationTimeout, nil)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis ping failed, lookups fall through to the provider", slog.Any("err", err))
		}
		cancel()
		resolver = geo.NewCachedResolver(resolver, rdb, cfg.GeoCacheTTL, log)
		log.Info("geolocation cache enabled", slog.String("addr", cfg.RedisAddr), slog.Duration("ttl", cfg.GeoCacheTTL))
	}

	var history service.GenerationStore
	if cfg.DatabaseURL != "" {
		db, err := openDB(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Error("open database", slog.Any("err", err))
			os.Exit(1)
		}
		defer db.Close()
		if err := store.RunMigrations(ctx, db); err != nil {
			log.Error("migrations", slog.Any("err", err))
			os.Exit(1)
		}
		history = store.NewPgStore(db)
		log.Info("generation history enabled")
	}

	svc := service.NewService(resolver, generator, history, log)
	handler := api.NewHandler(svc, api.AppInfo{Name: cfg.AppName, Version: cfg.AppVersion}, log)

	var limiter *api.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = api.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	router, err := api.NewRouter(cfg.TrustedProxies)
	if err != nil {
		log.Error("create router", slog.Any("err", err))
		os.Exit(1)
	}
	api.RegisterRoutes(router, handler, cfg.CORSOrigins, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.LLMTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("listening", slog.String("addr", srv.Addr), slog.String("provider", cfg.LLMProvider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", slog.Any("err", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", slog.Any("err", err))
	}
}

func newGenerator(ctx context.Context, cfg *config.Config, log *slog.Logger) (llm.Generator, func(), error) {
	switch cfg.LLMProvider {
	case config.ProviderOllama:
		return llm.NewOllamaClient(cfg.LLMURL, cfg.LLMModel, cfg.LLMTimeout, nil, log), func() {}, nil
	default:
		g, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	}
}

// openDB waits for the database; it may still be starting under docker compose.
func openDB(ctx context.Context, dsn string, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			return db, nil
		}
		log.Info("waiting for db", slog.Int("attempt", i+1), slog.Any("err", err))
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	db.Close()
	return nil, err
}
