package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/internal/dto"
	"github.com/prohmpiriya/greenloop-event-service/internal/repository"
	"github.com/prohmpiriya/greenloop-event-service/pkg/logger"
	"go.uber.org/zap"
)

// eventService implements EventService
type eventService struct {
	eventRepo repository.EventRepository
}

// NewEventService creates a new EventService
func NewEventService(eventRepo repository.EventRepository) EventService {
	return &eventService{
		eventRepo: eventRepo,
	}
}

// CreateEvent creates a new event
func (s *eventService) CreateEvent(ctx context.Context, caller domain.Caller, req *dto.CreateEventRequest) (*domain.Event, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}

	event := req.ToEvent()
	if err := event.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	event.ID = uuid.New().String()
	event.Status = domain.EventStatusRegistration
	event.QRToken = domain.NewQRToken()
	event.QRGeneratedAt = now
	event.CreatedAt = now
	event.UpdatedAt = now

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	logger.Get().Info("event created",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.Int("capacity", event.Capacity),
		zap.String("admin_id", caller.UserID),
	)
	return event, nil
}

// GetEvent retrieves an event by ID
func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}

// UpdateEvent updates event attributes. Status is never changed here, except
// that a capacity change may fill a REGISTRATION event.
func (s *eventService) UpdateEvent(ctx context.Context, caller domain.Caller, id string, req *dto.UpdateEventRequest) (*domain.Event, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}

	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Apply(event)
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if !event.IsUnlimited() && event.Capacity < event.AttendeeCount {
		return nil, domain.ErrCapacityBelowCount
	}

	// the repository repeats the check under the event lock
	event.UpdatedAt = time.Now()
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, err
	}

	return s.GetEvent(ctx, id)
}

// DeleteEvent deletes an event
func (s *eventService) DeleteEvent(ctx context.Context, caller domain.Caller, id string) error {
	if err := caller.RequireAdmin(); err != nil {
		return err
	}

	if _, err := s.GetEvent(ctx, id); err != nil {
		return err
	}

	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return err
	}

	logger.Get().Info("event deleted", zap.String("event_id", id), zap.String("admin_id", caller.UserID))
	return nil
}

// RegenerateQRToken issues a fresh QR token
func (s *eventService) RegenerateQRToken(ctx context.Context, caller domain.Caller, id string) (*domain.Event, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}

	if err := s.eventRepo.UpdateQRToken(ctx, id, domain.NewQRToken(), time.Now()); err != nil {
		return nil, err
	}
	return s.GetEvent(ctx, id)
}
