package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/greenloop-event-service/internal/di"
	"github.com/prohmpiriya/greenloop-event-service/internal/metrics"
	"github.com/prohmpiriya/greenloop-event-service/internal/service"
	"github.com/prohmpiriya/greenloop-event-service/internal/worker"
	"github.com/prohmpiriya/greenloop-event-service/pkg/config"
	"github.com/prohmpiriya/greenloop-event-service/pkg/database"
	"github.com/prohmpiriya/greenloop-event-service/pkg/logger"
	"github.com/prohmpiriya/greenloop-event-service/pkg/middleware"
	"github.com/prohmpiriya/greenloop-event-service/pkg/redis"
	"github.com/prohmpiriya/greenloop-event-service/pkg/retry"
	"github.com/prohmpiriya/greenloop-event-service/pkg/telemetry"
	"go.uber.org/zap"
)

const serviceName = "event-service"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Event Service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
		MetricInterval: cfg.OTel.MetricInterval,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn("Failed to initialize telemetry", zap.Error(err))
	} else if telemetryCfg.Enabled {
		appLog.Info("Telemetry initialized", zap.String("collector", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(context.Background())

	if err := metrics.Init(); err != nil {
		appLog.Warn("Failed to register metrics", zap.Error(err))
	}

	// Initialize database connection
	if err := cfg.ValidateDatabase(); err != nil {
		appLog.Fatal("Invalid database configuration", zap.Error(err))
	}
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()
	appLog.Info("Database connected", zap.Int32("max_conns", dbCfg.MaxConns))

	if err := db.Migrate(ctx); err != nil {
		appLog.Fatal("Database migration failed", zap.Error(err))
	}

	// Initialize Redis connection (optional - cache will be disabled if connection fails)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisCfg := &redis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			MinIdleConns:  cfg.Redis.MinIdleConns,
			DialTimeout:   cfg.Redis.DialTimeout,
			ReadTimeout:   cfg.Redis.ReadTimeout,
			WriteTimeout:  cfg.Redis.WriteTimeout,
			MaxRetries:    3,
			RetryInterval: time.Second,
			EnableTracing: cfg.OTel.Enabled,
		}
		redisClient, err = redis.NewClient(ctx, redisCfg)
		if err != nil {
			appLog.Warn("Redis connection failed (caching and idempotency disabled)", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			appLog.Info("Redis connected", zap.String("addr", redisCfg.Addr()))
		}
	}

	// Initialize Kafka event publisher
	var eventPublisher service.EventPublisher
	if cfg.Kafka.Enabled {
		eventPublisher, err = service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:            cfg.Kafka.Brokers,
			ParticipationTopic: cfg.Kafka.ParticipationTopic,
			NotificationTopic:  cfg.Kafka.NotificationTopic,
			ServiceName:        serviceName,
			ClientID:           cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn("Kafka connection failed, using no-op publisher", zap.Error(err))
			eventPublisher = nil
		} else {
			appLog.Info("Kafka event publisher connected")
		}
	}

	retryCfg := retry.PublishBackoff()
	retryCfg.Attempts = cfg.Publisher.MaxRetries + 1

	containerCfg := &di.ContainerConfig{
		DB:             db,
		Redis:          redisClient,
		CacheTTL:       cfg.Redis.CacheTTL,
		EventPublisher: eventPublisher,
		Publisher: &service.AsyncPublisherConfig{
			QueueSize:      cfg.Publisher.QueueSize,
			Workers:        cfg.Publisher.Workers,
			PublishTimeout: cfg.Publisher.PublishTimeout,
			Retry:          retryCfg,
		},
	}
	if cfg.Scheduler.Enabled {
		containerCfg.Scheduler = &worker.StatusSchedulerConfig{
			Interval:  cfg.Scheduler.Interval,
			BatchSize: cfg.Scheduler.BatchSize,
		}
	}

	// Build dependency injection container
	container := di.NewContainer(containerCfg)

	if container.Scheduler != nil {
		if err := container.Scheduler.Start(ctx); err != nil {
			appLog.Fatal("Failed to start status scheduler", zap.Error(err))
		}
	}

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(appLog))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	// Add OpenTelemetry tracing middleware if enabled
	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(serviceName))
	}

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	// JWT middleware configuration
	auth := middleware.JWTMiddleware(&middleware.JWTConfig{
		Secret:              cfg.JWT.Secret,
		Issuer:              cfg.JWT.Issuer,
		TrustGatewayHeaders: cfg.JWT.TrustGatewayHeaders,
	})
	admin := middleware.RequireRole("admin")

	// Idempotency applies to the write paths clients retry
	idempotent := func(c *gin.Context) { c.Next() }
	if redisClient != nil {
		idempotent = middleware.IdempotencyMiddleware(middleware.DefaultIdempotencyConfig(redisClient))
	}

	registerRoutes(router, container, auth, admin, idempotent)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLog.Info("Event Service listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := container.Close(); err != nil {
		appLog.Error("Failed to close publisher", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}

func registerRoutes(router *gin.Engine, c *di.Container, auth, admin, idempotent gin.HandlerFunc) {
	v1 := router.Group("/api/v1")

	// Public endpoints (no auth required)
	events := v1.Group("/events")
	{
		events.GET("", c.EventHandler.List)
		events.GET("/types", c.QueryHandler.Types)
		events.GET("/stats/open/total", c.QueryHandler.CountOpen)
		events.GET("/stats/upcoming/30days", c.QueryHandler.CountUpcoming)
		events.GET("/stats/open/participants", c.QueryHandler.CountParticipants)
		events.GET("/:id", c.EventHandler.Get)
		events.GET("/:id/tags", c.TagHandler.ListByEvent)
	}
	v1.GET("/tags", c.TagHandler.List)

	// Authenticated users
	user := v1.Group("", auth)
	{
		user.GET("/me/events/upcoming", c.QueryHandler.MyUpcoming)
		user.GET("/me/events/past", c.QueryHandler.MyPast)
		user.GET("/me/events/discover", c.QueryHandler.Discover)

		user.POST("/events/:id/register", idempotent, c.RegistrationHandler.Register)
		user.DELETE("/events/:id/register", c.RegistrationHandler.Deregister)
		user.GET("/events/:id/is-registered", c.RegistrationHandler.IsRegistered)
		user.POST("/events/scan", idempotent, c.AttendanceHandler.Scan)
	}

	// Admin only
	protected := v1.Group("", auth, admin)
	{
		protected.POST("/events", c.EventHandler.Create)
		protected.PUT("/events/:id", c.EventHandler.Update)
		protected.DELETE("/events/:id", c.EventHandler.Delete)
		protected.POST("/events/:id/qr/regenerate", c.EventHandler.RegenerateQRToken)
		protected.GET("/events/:id/participants", c.RegistrationHandler.ListParticipants)
		protected.DELETE("/events/:id/participants/:userId", c.RegistrationHandler.RemoveParticipant)
		protected.POST("/events/:id/scan", c.AttendanceHandler.AdminScan)
		protected.POST("/events/:id/tags", c.TagHandler.Add)
		protected.DELETE("/events/:id/tags/:name", c.TagHandler.Remove)
		protected.GET("/admin/scheduler/stats", c.HealthHandler.SchedulerStats)
	}
}
