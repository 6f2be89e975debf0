package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/internal/metrics"
	"github.com/prohmpiriya/greenloop-event-service/internal/repository"
	"github.com/prohmpiriya/greenloop-event-service/pkg/logger"
	"github.com/prohmpiriya/greenloop-event-service/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// statsInvalidator is implemented by repositories that cache aggregates
type statsInvalidator interface {
	InvalidateStats(ctx context.Context)
}

// registrationService implements RegistrationService
type registrationService struct {
	eventRepo    repository.EventRepository
	attendeeRepo repository.AttendeeRepository
	publisher    EventPublisher
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(
	eventRepo repository.EventRepository,
	attendeeRepo repository.AttendeeRepository,
	publisher EventPublisher,
) RegistrationService {
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &registrationService{
		eventRepo:    eventRepo,
		attendeeRepo: attendeeRepo,
		publisher:    publisher,
	}
}

// Register registers the caller. Existence, duplicate, status and capacity
// checks all run inside the repository transaction.
func (s *registrationService) Register(ctx context.Context, caller domain.Caller, eventID string) (*domain.Attendee, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.register")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", eventID), attribute.String("user_id", caller.UserID))

	if caller.UserID == "" {
		return nil, domain.ErrInvalidUserID
	}

	attendee := &domain.Attendee{
		ID:           uuid.New().String(),
		EventID:      eventID,
		UserID:       caller.UserID,
		UserEmail:    caller.Email,
		Username:     caller.Username,
		RegisteredAt: time.Now(),
	}

	event, err := s.attendeeRepo.Register(ctx, attendee)
	if err != nil {
		_, code, known := domain.Classify(err)
		if known != nil {
			metrics.RecordRejection(ctx, metrics.RegistrationsRejected, code)
		} else {
			telemetry.SetSpanError(span, err)
		}
		return nil, err
	}

	metrics.RegistrationsTotal.Inc(ctx)
	s.invalidateStats(ctx)

	log := logger.Get().With(zap.String("event_id", eventID), zap.String("user_id", caller.UserID))
	log.Info("user registered for event", zap.Int("attendee_count", event.AttendeeCount))
	if event.Status == domain.EventStatusFull {
		log.Info("event reached capacity", zap.Int("capacity", event.Capacity))
	}

	if attendee.UserEmail != "" {
		if err := s.publisher.PublishNotification(ctx, domain.NewConfirmationNotification(event, attendee, time.Now())); err != nil {
			log.Warn("confirmation notification not queued", zap.Error(err))
		}
	}

	return attendee, nil
}

// Deregister removes the caller's registration
func (s *registrationService) Deregister(ctx context.Context, caller domain.Caller, eventID string) error {
	return s.remove(ctx, eventID, caller.UserID)
}

// RemoveAttendee removes another user's registration
func (s *registrationService) RemoveAttendee(ctx context.Context, caller domain.Caller, eventID, userID string) error {
	if err := caller.RequireAdmin(); err != nil {
		return err
	}
	return s.remove(ctx, eventID, userID)
}

// remove deletes a registration. Status never moves back from FULL.
func (s *registrationService) remove(ctx context.Context, eventID, userID string) error {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event == nil {
		return domain.ErrEventNotFound
	}
	if event.Status == domain.EventStatusClosed {
		return domain.ErrEventClosed
	}

	deleted, err := s.attendeeRepo.Delete(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrAttendeeNotFound
	}

	metrics.Deregistrations.Inc(ctx)
	s.invalidateStats(ctx)
	logger.Get().Info("user deregistered from event", zap.String("event_id", eventID), zap.String("user_id", userID))
	return nil
}

// IsRegistered reports whether the caller is registered
func (s *registrationService) IsRegistered(ctx context.Context, caller domain.Caller, eventID string) (bool, error) {
	return s.attendeeRepo.Exists(ctx, eventID, caller.UserID)
}

// ListAttendees lists the registrations of an event
func (s *registrationService) ListAttendees(ctx context.Context, caller domain.Caller, eventID string) ([]*domain.Attendee, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	return s.attendeeRepo.ListByEvent(ctx, eventID)
}

func (s *registrationService) invalidateStats(ctx context.Context) {
	if inv, ok := s.eventRepo.(statsInvalidator); ok {
		inv.InvalidateStats(ctx)
	}
}
