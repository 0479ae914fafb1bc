package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sims-api/api/swagger"
	"github.com/noah-isme/sims-api/internal/repository"
	"github.com/noah-isme/sims-api/internal/service"
	"github.com/noah-isme/sims-api/pkg/cache"
	"github.com/noah-isme/sims-api/pkg/config"
	"github.com/noah-isme/sims-api/pkg/jobs"
	"github.com/noah-isme/sims-api/pkg/logger"
)

// @title SIMS API
// @version 1.0.0
// @description Student information management: students, class schedules and enrollment
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer func() {
		if err := store.close(); err != nil {
			logr.Warn("store close failed", zap.Error(err))
		}
	}()
	logr.Info("document store ready", zap.String("driver", store.driver), zap.Bool("transactions", cfg.Store.Transactions))

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(client, logr)
			defer redisRepo.Close() //nolint:errcheck
			cacheRepo = redisRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, cfg.Cache.Prefix, logr, cfg.Cache.Enabled)

	app := wire(logr, store, metricsSvc, cacheSvc)

	if cfg.Reconcile.Interval > 0 {
		queue := jobs.NewQueue("reconcile", app.reconcile.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Reconcile.Workers,
			MaxRetries: cfg.Reconcile.Retries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		queue.EnqueueEvery(cfg.Reconcile.Interval, app.reconcile.Job(cfg.Reconcile.Repair))
		logr.Info("periodic reconciliation scheduled", zap.Duration("interval", cfg.Reconcile.Interval), zap.Bool("repair", cfg.Reconcile.Repair))
	}

	router := newRouter(cfg, logr, metricsSvc, app.handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
