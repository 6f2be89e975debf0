package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prohmpiriya/greenloop-event-service/internal/metrics"
	"github.com/prohmpiriya/greenloop-event-service/internal/repository"
	"github.com/prohmpiriya/greenloop-event-service/internal/worker"
	"github.com/prohmpiriya/greenloop-event-service/pkg/config"
	"github.com/prohmpiriya/greenloop-event-service/pkg/database"
	"github.com/prohmpiriya/greenloop-event-service/pkg/logger"
	pkgredis "github.com/prohmpiriya/greenloop-event-service/pkg/redis"
	"go.uber.org/zap"
)

// Runs the status scheduler on its own, for deployments where the API
// replicas have SCHEDULER_ENABLED=false.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: "scheduler-worker",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Status Scheduler Worker...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := metrics.Init(); err != nil {
		appLog.Warn("Failed to register metrics", zap.Error(err))
	}

	if err := cfg.ValidateDatabase(); err != nil {
		appLog.Fatal("Invalid database configuration", zap.Error(err))
	}
	dbCfg := &database.PostgresConfig{
		Host:          cfg.Database.Host,
		Port:          cfg.Database.Port,
		User:          cfg.Database.User,
		Password:      cfg.Database.Password,
		Database:      cfg.Database.DBName,
		SSLMode:       cfg.Database.SSLMode,
		MaxConns:      5,
		MinConns:      1,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	var eventRepo repository.EventRepository = repository.NewPostgresEventRepository(db.Pool())

	// Status writes invalidate the API's cached aggregates
	if cfg.Redis.Enabled {
		redisCfg := &pkgredis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      10,
			MinIdleConns:  2,
			MaxRetries:    3,
			RetryInterval: 2 * time.Second,
		}
		redis, err := pkgredis.NewClient(ctx, redisCfg)
		if err != nil {
			appLog.Warn("Redis connection failed, cached aggregates may lag status changes", zap.Error(err))
		} else {
			defer redis.Close()
			eventRepo = repository.NewCachedEventRepository(eventRepo, redis, cfg.Redis.CacheTTL)
			appLog.Info("Redis connected")
		}
	}

	scheduler := worker.NewStatusScheduler(eventRepo, &worker.StatusSchedulerConfig{
		Interval:  cfg.Scheduler.Interval,
		BatchSize: cfg.Scheduler.BatchSize,
	})
	if err := scheduler.Start(ctx); err != nil {
		appLog.Fatal("Failed to start status scheduler", zap.Error(err))
	}

	appLog.Info("Status Scheduler Worker started successfully",
		zap.Duration("interval", cfg.Scheduler.Interval),
	)

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down worker...")
	scheduler.Stop()
	cancel()

	stats := scheduler.GetStats()
	appLog.Info("Worker exited gracefully",
		zap.Int64("sweeps", stats.Sweeps),
		zap.Int64("started", stats.TotalStarted),
		zap.Int64("closed", stats.TotalClosed),
	)
}
