package service

import (
	"context"

	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/internal/dto"
	"github.com/prohmpiriya/greenloop-event-service/internal/repository"
)

// tagService implements TagService
type tagService struct {
	eventRepo repository.EventRepository
	tagRepo   repository.TagRepository
}

// NewTagService creates a new TagService
func NewTagService(eventRepo repository.EventRepository, tagRepo repository.TagRepository) TagService {
	return &tagService{
		eventRepo: eventRepo,
		tagRepo:   tagRepo,
	}
}

// ListTags lists every tag
func (s *tagService) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	return s.tagRepo.List(ctx)
}

// ListEventTags lists the tags of an event
func (s *tagService) ListEventTags(ctx context.Context, eventID string) ([]*domain.Tag, error) {
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.tagRepo.ListByEvent(ctx, eventID)
}

// AddTag links a normalized tag to an event
func (s *tagService) AddTag(ctx context.Context, caller domain.Caller, eventID, name string) (*domain.Tag, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}

	name = dto.NormalizeTagName(name)
	if name == "" {
		return nil, domain.ErrInvalidTagName
	}
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.tagRepo.Attach(ctx, eventID, name)
}

// RemoveTag unlinks a tag from an event
func (s *tagService) RemoveTag(ctx context.Context, caller domain.Caller, eventID, name string) error {
	if err := caller.RequireAdmin(); err != nil {
		return err
	}

	if err := s.requireEvent(ctx, eventID); err != nil {
		return err
	}
	removed, err := s.tagRepo.Detach(ctx, eventID, dto.NormalizeTagName(name))
	if err != nil {
		return err
	}
	if !removed {
		return domain.ErrTagNotFound
	}
	return nil
}

func (s *tagService) requireEvent(ctx context.Context, eventID string) error {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event == nil {
		return domain.ErrEventNotFound
	}
	return nil
}
