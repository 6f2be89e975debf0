package service

import (
	"context"

	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/internal/dto"
)

// EventService defines event administration
type EventService interface {
	// CreateEvent creates a new event in REGISTRATION with a fresh QR token
	CreateEvent(ctx context.Context, caller domain.Caller, req *dto.CreateEventRequest) (*domain.Event, error)
	// GetEvent retrieves an event with its attendee count
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	// UpdateEvent applies a partial attribute update
	UpdateEvent(ctx context.Context, caller domain.Caller, id string, req *dto.UpdateEventRequest) (*domain.Event, error)
	// DeleteEvent deletes an event with its attendees and tag links
	DeleteEvent(ctx context.Context, caller domain.Caller, id string) error
	// RegenerateQRToken replaces the QR token, invalidating the old one
	RegenerateQRToken(ctx context.Context, caller domain.Caller, id string) (*domain.Event, error)
}

// RegistrationService defines attendee registration
type RegistrationService interface {
	// Register registers the caller for an event
	Register(ctx context.Context, caller domain.Caller, eventID string) (*domain.Attendee, error)
	// Deregister removes the caller's registration
	Deregister(ctx context.Context, caller domain.Caller, eventID string) error
	// RemoveAttendee removes another user's registration (admin)
	RemoveAttendee(ctx context.Context, caller domain.Caller, eventID, userID string) error
	// IsRegistered reports whether the caller is registered
	IsRegistered(ctx context.Context, caller domain.Caller, eventID string) (bool, error)
	// ListAttendees lists the registrations of an event (admin)
	ListAttendees(ctx context.Context, caller domain.Caller, eventID string) ([]*domain.Attendee, error)
}

// AttendanceService defines QR attendance verification
type AttendanceService interface {
	// MarkAttendance resolves the token to an event and marks the caller
	MarkAttendance(ctx context.Context, caller domain.Caller, qrToken string) (*domain.Attendee, *domain.Event, error)
	// MarkAttendanceByEvent marks a user on a given event after checking the
	// token belongs to it (admin)
	MarkAttendanceByEvent(ctx context.Context, caller domain.Caller, eventID string, req *dto.AdminScanRequest) (*domain.Attendee, *domain.Event, error)
}

// QueryService defines listings and aggregates
type QueryService interface {
	// ListEvents lists events with filters and pagination
	ListEvents(ctx context.Context, filter *dto.EventListFilter) ([]*domain.Event, int, error)
	// UpcomingJoined lists the user's registered events that have not started
	UpcomingJoined(ctx context.Context, userID string) ([]*domain.Event, error)
	// PastJoined lists the user's registered events that have ended
	PastJoined(ctx context.Context, userID string) ([]*domain.Event, error)
	// UpcomingNotJoined lists events the user can still join
	UpcomingNotJoined(ctx context.Context, userID string) ([]*domain.Event, error)
	// EventTypes lists the event types
	EventTypes() []domain.EventType
	// CountOpenEvents counts events accepting registrations
	CountOpenEvents(ctx context.Context) (int, error)
	// CountUpcoming30Days counts events starting within 30 days
	CountUpcoming30Days(ctx context.Context) (int, error)
	// TotalParticipantsInOpenEvents counts registrations across open events
	TotalParticipantsInOpenEvents(ctx context.Context) (int, error)
}

// TagService defines event tagging
type TagService interface {
	// ListTags lists every tag
	ListTags(ctx context.Context) ([]*domain.Tag, error)
	// ListEventTags lists the tags of an event
	ListEventTags(ctx context.Context, eventID string) ([]*domain.Tag, error)
	// AddTag links a tag to an event, creating the tag when missing
	AddTag(ctx context.Context, caller domain.Caller, eventID, name string) (*domain.Tag, error)
	// RemoveTag unlinks a tag from an event
	RemoveTag(ctx context.Context, caller domain.Caller, eventID, name string) error
}
