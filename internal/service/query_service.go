package service

import (
	"context"
	"time"

	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/internal/dto"
	"github.com/prohmpiriya/greenloop-event-service/internal/repository"
)

const upcomingWindow = 30 * 24 * time.Hour

// queryService implements QueryService
type queryService struct {
	eventRepo repository.EventRepository
	now       func() time.Time
}

// NewQueryService creates a new QueryService
func NewQueryService(eventRepo repository.EventRepository) QueryService {
	return &queryService{
		eventRepo: eventRepo,
		now:       time.Now,
	}
}

// ListEvents lists events with filters and pagination
func (s *queryService) ListEvents(ctx context.Context, filter *dto.EventListFilter) ([]*domain.Event, int, error) {
	filter.SetDefaults()

	if filter.Status != "" && !domain.EventStatus(filter.Status).IsValid() {
		return nil, 0, domain.ErrInvalidStatus
	}
	if filter.Type != "" {
		if _, ok := domain.ParseEventType(filter.Type); !ok {
			return nil, 0, domain.ErrInvalidEventType
		}
	}

	repoFilter := &repository.EventFilter{
		Status: filter.Status,
		Type:   filter.Type,
		Search: filter.Search,
	}

	return s.eventRepo.List(ctx, repoFilter, filter.Limit, filter.Offset)
}

// UpcomingJoined lists the user's events that have not started
func (s *queryService) UpcomingJoined(ctx context.Context, userID string) ([]*domain.Event, error) {
	return s.eventRepo.ListJoinedByUser(ctx, userID, repository.JoinedUpcoming, s.now())
}

// PastJoined lists the user's events that have ended
func (s *queryService) PastJoined(ctx context.Context, userID string) ([]*domain.Event, error) {
	return s.eventRepo.ListJoinedByUser(ctx, userID, repository.JoinedPast, s.now())
}

// UpcomingNotJoined lists events the user can still join
func (s *queryService) UpcomingNotJoined(ctx context.Context, userID string) ([]*domain.Event, error) {
	return s.eventRepo.ListDiscoverable(ctx, userID, s.now())
}

// EventTypes lists the event types
func (s *queryService) EventTypes() []domain.EventType {
	return domain.EventTypes()
}

// CountOpenEvents counts events accepting registrations
func (s *queryService) CountOpenEvents(ctx context.Context) (int, error) {
	return s.eventRepo.CountByStatus(ctx, domain.EventStatusRegistration)
}

// CountUpcoming30Days counts events starting within the next 30 days
func (s *queryService) CountUpcoming30Days(ctx context.Context) (int, error) {
	now := s.now()
	return s.eventRepo.CountStartingBetween(ctx, now, now.Add(upcomingWindow))
}

// TotalParticipantsInOpenEvents counts registrations across open events
func (s *queryService) TotalParticipantsInOpenEvents(ctx context.Context) (int, error) {
	return s.eventRepo.CountAttendeesByStatus(ctx, domain.EventStatusRegistration)
}
