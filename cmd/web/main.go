package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/source"
)

const (
	redisDialTimeout = 5 * time.Second
	visitorIdle      = 3 * time.Minute
)

// newPayloadCache picks the payload cache: Redis when REDIS_URL is set, the
// in-process cache otherwise. It returns nil when caching is disabled.
func newPayloadCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (cache.Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(ctx, redisDialTimeout)
		defer cancel()

		rc, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, err
		}
		logger.Info("payload cache ready", "backend", "redis", "ttl", cfg.TTL)
		return rc, nil
	}

	mc := cache.NewMemory(cfg.TTL)
	go purgeLoop(ctx, mc, cfg.TTL, logger)
	logger.Info("payload cache ready", "backend", "memory", "ttl", cfg.TTL)
	return mc, nil
}

// purgeLoop drops expired entries from mc once per ttl until ctx is done.
func purgeLoop(ctx context.Context, mc *cache.Memory, ttl time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := mc.Purge(); n > 0 {
				logger.Debug("purged expired payloads", "count", n, "remaining", mc.Len())
			}
		}
	}
}

// sweepLoop forgets rate limiter buckets of idle clients until ctx is done.
func sweepLoop(ctx context.Context, rl *middleware.RateLimiter, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.Sweep(visitorIdle); n > 0 {
				logger.Debug("dropped idle rate limit buckets", "count", n)
			}
		}
	}
}

func newHandler(cfg *config.Config, dashboard *services.Dashboard, rateLimiter *middleware.RateLimiter, logger *slog.Logger) (http.Handler, error) {
	srv := server.NewServer(dashboard, logger)

	compress, err := middleware.Compress()
	if err != nil {
		return nil, err
	}

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
		compress,
	)

	return middlewareChain(srv), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"source", cfg.Source.URL,
		"cache_enabled", cfg.Cache.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloadCache, err := newPayloadCache(ctx, cfg.Cache, logger)
	if err != nil {
		logger.Error("failed to set up payload cache", "error", err)
		os.Exit(1)
	}

	client := source.NewClient(cfg.Source, payloadCache, logger)
	dashboard := services.NewDashboard(client, cfg.Dashboard, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	go sweepLoop(ctx, rateLimiter, logger)

	handler, err := newHandler(cfg, dashboard, rateLimiter, logger)
	if err != nil {
		logger.Error("failed to build middleware", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook("payload cache", func(ctx context.Context) error {
		cancel()
		if payloadCache == nil {
			return nil
		}
		logger.Info("closing payload cache")
		return payloadCache.Close()
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
