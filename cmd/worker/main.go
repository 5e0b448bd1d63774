package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-pnl/internal/app"
	"github.com/meridian-erp/meridian-pnl/internal/collect"
	"github.com/meridian-erp/meridian-pnl/internal/platform/cache"
	"github.com/meridian-erp/meridian-pnl/internal/realtime"
	"github.com/meridian-erp/meridian-pnl/internal/store"
	"github.com/meridian-erp/meridian-pnl/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	snapshots := store.New(pool)
	sinks := realtime.MultiSink{snapshots, realtime.NewRedisSink(redisClient)}
	hub := realtime.NewHub()
	hub.PublishTo(realtime.UpdatePublisher(redisClient, logger))

	source := collect.NewRESTSource(cfg.DataAPIURL, cfg.DataAPITimeout)
	refreshJob := jobs.NewSnapshotRefreshJob(source, sinks, hub, logger)

	refreshTask, err := jobs.NewSnapshotRefreshTask(jobs.SnapshotRefreshPayload{Period: "monthly"})
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSnapshotRefresh, Handler: refreshJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: refreshTask, Options: []asynq.Option{asynq.Queue(jobs.QueuePnL)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(groupCtx)
	})
	if cfg.PollEnabled {
		poller := jobs.NewPoller(cfg.PollInterval, snapshots, hub, logger)
		group.Go(func() error {
			return poller.Run(groupCtx)
		})
	}

	logger.Info("worker started")
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
