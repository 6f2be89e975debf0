package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/internal/metrics"
	"github.com/prohmpiriya/greenloop-event-service/pkg/logger"
	"github.com/prohmpiriya/greenloop-event-service/pkg/retry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrPublisherClosed is returned when publishing after Close
var ErrPublisherClosed = errors.New("publisher is closed")

// ErrPublishQueueFull is returned when the bounded queue has no room
var ErrPublishQueueFull = errors.New("publish queue is full")

// AsyncPublisherConfig holds the dispatcher configuration
type AsyncPublisherConfig struct {
	QueueSize      int
	Workers        int
	PublishTimeout time.Duration
	Retry          retry.Backoff
}

// DefaultAsyncPublisherConfig returns default configuration
func DefaultAsyncPublisherConfig() *AsyncPublisherConfig {
	return &AsyncPublisherConfig{
		QueueSize:      1024,
		Workers:        2,
		PublishTimeout: 5 * time.Second,
		Retry:          retry.PublishBackoff(),
	}
}

type publishJob struct {
	kind    string
	eventID string
	userID  string
	ctx     context.Context
	send    func(ctx context.Context) error
}

// AsyncPublisher is an EventPublisher that enqueues messages onto a bounded
// queue drained by worker goroutines. Publish calls never block: a full
// queue drops the message. Delivery is best-effort. Failures after retries
// are logged and counted, never surfaced to the caller.
type AsyncPublisher struct {
	next    EventPublisher
	config  *AsyncPublisherConfig
	queue   chan publishJob
	log     *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncPublisher starts the workers in front of next
func NewAsyncPublisher(next EventPublisher, config *AsyncPublisherConfig) *AsyncPublisher {
	def := DefaultAsyncPublisherConfig()
	if config == nil {
		config = def
	}
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = def.PublishTimeout
	}
	if config.Retry.Attempts <= 0 {
		config.Retry = def.Retry
	}

	p := &AsyncPublisher{
		next:    next,
		config:  config,
		queue:   make(chan publishJob, config.QueueSize),
		log:     logger.Get().With(zap.String("component", "async_publisher")),
	}

	for i := 0; i < config.Workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// PublishParticipation enqueues a participation message
func (p *AsyncPublisher) PublishParticipation(ctx context.Context, msg *domain.ParticipationMessage) error {
	return p.enqueue(ctx, publishJob{
		kind:    "participation",
		eventID: msg.EventID,
		userID:  msg.UserID,
		send: func(ctx context.Context) error {
			return p.next.PublishParticipation(ctx, msg)
		},
	})
}

// PublishNotification enqueues a notification message
func (p *AsyncPublisher) PublishNotification(ctx context.Context, msg *domain.NotificationMessage) error {
	return p.enqueue(ctx, publishJob{
		kind:    string(msg.Type),
		eventID: msg.EventID,
		userID:  msg.UserID,
		send: func(ctx context.Context) error {
			return p.next.PublishNotification(ctx, msg)
		},
	})
}

// Pending returns the number of queued messages
func (p *AsyncPublisher) Pending() int {
	return len(p.queue)
}

// Close stops accepting messages, drains the queue and closes next
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.next.Close()
}

func (p *AsyncPublisher) enqueue(ctx context.Context, job publishJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}

	// Keep trace values but not the request deadline
	job.ctx = context.WithoutCancel(ctx)

	select {
	case p.queue <- job:
		metrics.PublishQueued.Add(ctx, 1)
		return nil
	default:
		metrics.PublishDropped.Inc(ctx, attribute.String("kind", job.kind))
		p.log.Warn("publish queue full, dropping message",
			zap.String("kind", job.kind),
			zap.String("event_id", job.eventID),
			zap.String("user_id", job.userID),
		)
		return ErrPublishQueueFull
	}
}

func (p *AsyncPublisher) run() {
	defer p.wg.Done()

	for job := range p.queue {
		metrics.PublishQueued.Add(job.ctx, -1)
		p.deliver(job)
	}
}

func (p *AsyncPublisher) deliver(job publishJob) {
	attempts, err := retry.Do(job.ctx, p.config.Retry, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
		defer cancel()
		return job.send(ctx)
	}, func(attempt int, err error, wait time.Duration) {
		p.log.Debug("retrying publish",
			zap.String("kind", job.kind),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	})

	if err != nil {
		metrics.PublishFailures.Inc(job.ctx, attribute.String("kind", job.kind))
		p.log.Error("failed to publish message",
			zap.String("kind", job.kind),
			zap.String("event_id", job.eventID),
			zap.String("user_id", job.userID),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
	}
}
