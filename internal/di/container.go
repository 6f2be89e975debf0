package di

import (
	"time"

	"github.com/prohmpiriya/greenloop-event-service/internal/handler"
	"github.com/prohmpiriya/greenloop-event-service/internal/repository"
	"github.com/prohmpiriya/greenloop-event-service/internal/service"
	"github.com/prohmpiriya/greenloop-event-service/internal/worker"
	"github.com/prohmpiriya/greenloop-event-service/pkg/database"
	"github.com/prohmpiriya/greenloop-event-service/pkg/redis"
)

// Container holds all dependencies for the event service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	EventRepo    repository.EventRepository
	AttendeeRepo repository.AttendeeRepository
	TagRepo      repository.TagRepository

	// Services
	EventPublisher      service.EventPublisher
	EventService        service.EventService
	RegistrationService service.RegistrationService
	AttendanceService   service.AttendanceService
	QueryService        service.QueryService
	TagService          service.TagService

	// Workers
	Scheduler *worker.StatusScheduler

	// Handlers
	HealthHandler       *handler.HealthHandler
	EventHandler        *handler.EventHandler
	RegistrationHandler *handler.RegistrationHandler
	AttendanceHandler   *handler.AttendanceHandler
	QueryHandler        *handler.QueryHandler
	TagHandler          *handler.TagHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB       *database.PostgresDB
	Redis    *redis.Client
	CacheTTL time.Duration
	// Store replaces PostgreSQL when DB is nil, for local runs
	Store *repository.MemoryStore
	// EventPublisher receives downstream messages. It is wrapped in an
	// AsyncPublisher; nil means no-op.
	EventPublisher service.EventPublisher
	Publisher      *service.AsyncPublisherConfig
	// Scheduler enables the status scheduler when non-nil
	Scheduler *worker.StatusSchedulerConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:    cfg.DB,
		Redis: cfg.Redis,
	}

	// Initialize repositories
	if c.DB != nil {
		pgEventRepo := repository.NewPostgresEventRepository(c.DB.Pool())

		// Wrap with cache if Redis is available
		if c.Redis != nil {
			c.EventRepo = repository.NewCachedEventRepository(pgEventRepo, c.Redis, cfg.CacheTTL)
		} else {
			c.EventRepo = pgEventRepo
		}
		c.AttendeeRepo = repository.NewPostgresAttendeeRepository(c.DB.Pool())
		c.TagRepo = repository.NewPostgresTagRepository(c.DB.Pool())
	} else {
		store := cfg.Store
		if store == nil {
			store = repository.NewMemoryStore()
		}
		c.EventRepo = store.Events()
		c.AttendeeRepo = store.Attendees()
		c.TagRepo = store.Tags()
	}

	// Initialize publisher
	next := cfg.EventPublisher
	if next == nil {
		next = service.NewNoOpEventPublisher()
	}
	c.EventPublisher = service.NewAsyncPublisher(next, cfg.Publisher)

	// Initialize services
	c.EventService = service.NewEventService(c.EventRepo)
	c.RegistrationService = service.NewRegistrationService(c.EventRepo, c.AttendeeRepo, c.EventPublisher)
	c.AttendanceService = service.NewAttendanceService(c.EventRepo, c.AttendeeRepo, c.EventPublisher)
	c.QueryService = service.NewQueryService(c.EventRepo)
	c.TagService = service.NewTagService(c.EventRepo, c.TagRepo)

	// Initialize workers
	if cfg.Scheduler != nil {
		c.Scheduler = worker.NewStatusScheduler(c.EventRepo, cfg.Scheduler)
	}

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler().WithScheduler(c.Scheduler)
	if c.DB != nil {
		c.HealthHandler.WithComponent("database", c.DB)
	}
	if c.Redis != nil {
		c.HealthHandler.WithComponent("redis", c.Redis)
	}
	c.EventHandler = handler.NewEventHandler(c.EventService, c.QueryService)
	c.RegistrationHandler = handler.NewRegistrationHandler(c.RegistrationService)
	c.AttendanceHandler = handler.NewAttendanceHandler(c.AttendanceService)
	c.QueryHandler = handler.NewQueryHandler(c.QueryService)
	c.TagHandler = handler.NewTagHandler(c.TagService)

	return c
}

// Close stops the scheduler and flushes pending messages
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	return c.EventPublisher.Close()
}
