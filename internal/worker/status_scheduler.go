package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/internal/metrics"
	"github.com/prohmpiriya/greenloop-event-service/internal/repository"
	"github.com/prohmpiriya/greenloop-event-service/pkg/logger"
	"github.com/prohmpiriya/greenloop-event-service/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// StatusSchedulerConfig contains configuration for the status scheduler
type StatusSchedulerConfig struct {
	// Interval is the time between sweeps
	Interval time.Duration
	// BatchSize caps the events read per phase of one sweep
	BatchSize int
	// SweepTimeout bounds the store calls of one sweep
	SweepTimeout time.Duration
}

// DefaultStatusSchedulerConfig returns default configuration
func DefaultStatusSchedulerConfig() *StatusSchedulerConfig {
	return &StatusSchedulerConfig{
		Interval:     60 * time.Second,
		BatchSize:    500,
		SweepTimeout: 30 * time.Second,
	}
}

// SweepResult summarizes one sweep
type SweepResult struct {
	Started int
	Closed  int
	Failed  int
}

// StatusScheduler advances events whose time window has been reached:
// REGISTRATION or FULL to ONGOING at start time, ONGOING to CLOSED at end
// time. Every write is conditional on the current status, so sweeps are
// idempotent and safe to run from several replicas.
type StatusScheduler struct {
	eventRepo repository.EventRepository
	config    *StatusSchedulerConfig
	log       *logger.Logger
	now       func() time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool

	// Stats
	sweeps        int64
	totalStarted  int64
	totalClosed   int64
	totalFailed   int64
	lastSweepTime time.Time
	lastResult    SweepResult
}

// NewStatusScheduler creates a new status scheduler
func NewStatusScheduler(eventRepo repository.EventRepository, config *StatusSchedulerConfig) *StatusScheduler {
	def := DefaultStatusSchedulerConfig()
	if config == nil {
		config = def
	}
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.SweepTimeout <= 0 {
		config.SweepTimeout = def.SweepTimeout
	}

	return &StatusScheduler{
		eventRepo: eventRepo,
		config:    config,
		log:       logger.Get().With(zap.String("component", "status_scheduler")),
		now:       time.Now,
	}
}

// Start starts the sweep loop
func (s *StatusScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("status scheduler already running")
	}
	s.running = true
	// a fresh channel per run, so Start after Stop works
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.wg.Add(1)
	s.mu.Unlock()

	s.log.Info("Starting status scheduler", zap.Duration("interval", s.config.Interval))

	go s.loop(ctx, stopCh)

	return nil
}

// Stop stops the sweep loop and waits for an in-flight sweep
func (s *StatusScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopCh := s.stopCh
	s.mu.Unlock()

	s.log.Info("Stopping status scheduler")
	close(stopCh)
	s.wg.Wait()
	s.log.Info("Status scheduler stopped")
}

func (s *StatusScheduler) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run immediately on start
	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over due events. Per-event failures are logged and
// left for the next sweep.
func (s *StatusScheduler) Sweep(ctx context.Context) SweepResult {
	ctx, span := telemetry.StartSpan(ctx, "scheduler.sweep")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	begin := time.Now()
	now := s.now()
	var result SweepResult

	due, err := s.eventRepo.ListDueForStart(ctx, now, s.config.BatchSize)
	if err != nil {
		s.log.Error("Failed to list events due for start", zap.Error(err))
		telemetry.SetSpanError(span, err)
		result.Failed++
	}
	for _, event := range due {
		s.advance(ctx, event, now, &result)
	}

	due, err = s.eventRepo.ListDueForClose(ctx, now, s.config.BatchSize)
	if err != nil {
		s.log.Error("Failed to list events due for close", zap.Error(err))
		telemetry.SetSpanError(span, err)
		result.Failed++
	}
	for _, event := range due {
		s.advance(ctx, event, now, &result)
	}

	metrics.SweepDuration.Record(ctx, time.Since(begin).Seconds())
	span.SetAttributes(
		attribute.Int("started", result.Started),
		attribute.Int("closed", result.Closed),
		attribute.Int("failed", result.Failed),
	)

	if result.Started > 0 || result.Closed > 0 || result.Failed > 0 {
		s.log.Info("Sweep finished",
			zap.Int("started", result.Started),
			zap.Int("closed", result.Closed),
			zap.Int("failed", result.Failed),
		)
	}

	s.mu.Lock()
	s.sweeps++
	s.totalStarted += int64(result.Started)
	s.totalClosed += int64(result.Closed)
	s.totalFailed += int64(result.Failed)
	s.lastSweepTime = now
	s.lastResult = result
	s.mu.Unlock()

	return result
}

// advance applies each transition the clock requires. An event whose window
// has fully elapsed goes through ONGOING to CLOSED in the same sweep.
func (s *StatusScheduler) advance(ctx context.Context, event *domain.Event, now time.Time, result *SweepResult) {
	for _, step := range domain.TimeAdvance(event, now) {
		changed, err := s.eventRepo.UpdateStatus(ctx, event.ID, step.From, step.To)
		if err != nil {
			result.Failed++
			metrics.SweepFailures.Inc(ctx, attribute.String("to", string(step.To)))
			s.log.Error("Failed to advance event status",
				zap.String("event_id", event.ID),
				zap.String("to", string(step.To)),
				zap.Error(err),
			)
			return
		}
		if !changed {
			// moved by someone else since it was listed
			continue
		}

		metrics.RecordTransition(ctx, string(step.To))
		switch step.To {
		case domain.EventStatusOngoing:
			result.Started++
		case domain.EventStatusClosed:
			result.Closed++
		}
		s.log.Debug("Event status advanced",
			zap.String("event_id", event.ID),
			zap.String("to", string(step.To)),
		)
	}
}

// GetStats returns scheduler statistics
func (s *StatusScheduler) GetStats() *StatusSchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &StatusSchedulerStats{
		IsRunning:     s.running,
		Sweeps:        s.sweeps,
		TotalStarted:  s.totalStarted,
		TotalClosed:   s.totalClosed,
		TotalFailed:   s.totalFailed,
		LastSweepTime: s.lastSweepTime,
		LastStarted:   s.lastResult.Started,
		LastClosed:    s.lastResult.Closed,
	}
}

// StatusSchedulerStats contains scheduler statistics
type StatusSchedulerStats struct {
	IsRunning     bool      `json:"is_running"`
	Sweeps        int64     `json:"sweeps"`
	TotalStarted  int64     `json:"total_started"`
	TotalClosed   int64     `json:"total_closed"`
	TotalFailed   int64     `json:"total_failed"`
	LastSweepTime time.Time `json:"last_sweep_time"`
	LastStarted   int       `json:"last_started"`
	LastClosed    int       `json:"last_closed"`
}
