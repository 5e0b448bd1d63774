package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-pnl/internal/app"
	"github.com/meridian-erp/meridian-pnl/internal/collect"
	"github.com/meridian-erp/meridian-pnl/internal/platform/cache"
	"github.com/meridian-erp/meridian-pnl/internal/pnl"
	pnlhttp "github.com/meridian-erp/meridian-pnl/internal/pnl/http"
	"github.com/meridian-erp/meridian-pnl/internal/realtime"
	"github.com/meridian-erp/meridian-pnl/internal/store"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	var pool *pgxpool.Pool
	if cfg.PGDSN != "" {
		pool, err = pgxpool.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
	} else {
		logger.Warn("postgres DSN not set, snapshot persistence disabled")
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, caching and pubsub disabled", slog.Any("error", err))
		redisClient = nil
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	source := collect.NewRESTSource(cfg.DataAPIURL, cfg.DataAPITimeout)
	collectors := collect.NewService(source, logger)
	statements := pnl.NewService(collectors, logger)

	var statementCache *pnl.Cache
	if redisClient != nil {
		statementCache = pnl.NewCache(redisClient, cfg.CacheTTL)
	}

	sinks := realtime.MultiSink{store.New(pool)}
	if redisClient != nil {
		sinks = append(sinks, realtime.NewRedisSink(redisClient))
	}

	hub := realtime.NewHub()
	if redisClient != nil {
		hub.PublishTo(realtime.UpdatePublisher(redisClient, logger))
	}
	if statementCache != nil {
		// Any data push invalidates every cached statement.
		hub.Subscribe("statement-cache", func(realtime.Update) {
			if err := statementCache.Bump(context.Background()); err != nil {
				logger.Warn("statement cache bump", slog.Any("error", err))
			}
		})
	}
	scheduler := realtime.NewScheduler(sinks, hub, logger, realtime.Options{
		SyncDebounce:   cfg.SyncDebounce,
		NotifyDebounce: cfg.NotifyDebounce,
		Excluded:       cfg.SyncExcluded,
	})
	defer scheduler.Stop()

	handler := pnlhttp.NewHandler(logger, statements, statementCache, scheduler)

	router := app.NewRouter(app.RouterParams{
		Logger:     logger,
		Config:     cfg,
		PnLHandler: handler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
}
