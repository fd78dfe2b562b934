package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/defense-scheduler-api/api/swagger"
	"github.com/noah-isme/defense-scheduler-api/internal/handler"
	"github.com/noah-isme/defense-scheduler-api/internal/repository"
	"github.com/noah-isme/defense-scheduler-api/internal/service"
	"github.com/noah-isme/defense-scheduler-api/pkg/cache"
	"github.com/noah-isme/defense-scheduler-api/pkg/config"
	"github.com/noah-isme/defense-scheduler-api/pkg/database"
	"github.com/noah-isme/defense-scheduler-api/pkg/logger"
)

// @title Thesis Defense Scheduler API
// @version 1.0.0
// @description Assigns thesis defenses to rooms and committee members and serves the persisted calendar.
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		logr.Fatal("failed to ensure schema", zap.Error(err))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, saved events will not be cached", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, "defense", logr)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduler.CacheTTL, logr, redisClient != nil)

	schedulerSvc := service.NewDefenseSchedulerService(
		repository.NewAvailabilityRepository(db),
		repository.NewDefenseAssignmentRepository(db),
		db,
		cacheSvc,
		metrics,
		validator.New(),
		logr,
		service.DefenseSchedulerConfig{
			Strategy:     cfg.Scheduler.Strategy,
			SlotDuration: cfg.Scheduler.SlotDuration,
			CacheTTL:     cfg.Scheduler.CacheTTL,
		},
	)

	router := newRouter(routerDeps{
		cfg:     cfg,
		logger:  logr,
		metrics: metrics,
		tokens:  service.NewTokenValidator(cfg.Auth.Secret),
		defense: handler.NewDefenseHandler(schedulerSvc),
		probes:  handler.NewMetricsHandler(metrics, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("strategy", cfg.Scheduler.Strategy),
			zap.Duration("slot", cfg.Scheduler.SlotDuration),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
