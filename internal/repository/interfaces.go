package repository

import (
	"context"
	"time"

	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
)

// EventRepository defines the interface for event data access.
// Lookups return (nil, nil) when the event does not exist.
type EventRepository interface {
	// Create creates a new event
	Create(ctx context.Context, event *domain.Event) error
	// GetByID retrieves an event by ID with its attendee count
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// GetByQRToken retrieves the event owning a QR token
	GetByQRToken(ctx context.Context, token string) (*domain.Event, error)
	// Update writes the attributes of an event. The capacity is checked
	// against the attendee count atomically with the write
	// (ErrCapacityBelowCount); the only status change is the fill of a
	// REGISTRATION event whose capacity now equals its count.
	Update(ctx context.Context, event *domain.Event) error
	// UpdateQRToken replaces the QR token of an event
	UpdateQRToken(ctx context.Context, id, token string, generatedAt time.Time) error
	// Delete deletes an event with its attendees and tag links
	Delete(ctx context.Context, id string) error
	// List lists events with filters and pagination
	List(ctx context.Context, filter *EventFilter, limit, offset int) ([]*domain.Event, int, error)

	// UpdateStatus moves the event to `to` only if its current status is one
	// of `from`. It reports whether a row changed.
	UpdateStatus(ctx context.Context, id string, from []domain.EventStatus, to domain.EventStatus) (bool, error)
	// ListDueForStart lists REGISTRATION and FULL events with start_time <= now
	ListDueForStart(ctx context.Context, now time.Time, limit int) ([]*domain.Event, error)
	// ListDueForClose lists ONGOING events with end_time <= now
	ListDueForClose(ctx context.Context, now time.Time, limit int) ([]*domain.Event, error)

	// ListJoinedByUser lists events the user registered for
	ListJoinedByUser(ctx context.Context, userID string, window JoinedWindow, now time.Time) ([]*domain.Event, error)
	// ListDiscoverable lists events still open to the user: not ended, not
	// CLOSED, not full and not already joined
	ListDiscoverable(ctx context.Context, userID string, now time.Time) ([]*domain.Event, error)

	// CountByStatus counts events in a status
	CountByStatus(ctx context.Context, status domain.EventStatus) (int, error)
	// CountStartingBetween counts events with start_time in [from, to]
	CountStartingBetween(ctx context.Context, from, to time.Time) (int, error)
	// CountAttendeesByStatus counts registrations across events in a status
	CountAttendeesByStatus(ctx context.Context, status domain.EventStatus) (int, error)
}

// EventFilter contains filter options for listing events
type EventFilter struct {
	Status string
	Type   string
	Search string
}

// JoinedWindow selects which of a user's joined events to list
type JoinedWindow int

const (
	// JoinedUpcoming selects events with start_time after now
	JoinedUpcoming JoinedWindow = iota
	// JoinedPast selects events with end_time before now
	JoinedPast
)

// AttendeeRepository defines the interface for attendance data access
type AttendeeRepository interface {
	// Register inserts the attendee while holding the event row lock. It
	// checks existence, duplicates, the status gate and capacity, then
	// applies the fill transition. It returns the event as it is after the
	// insert.
	Register(ctx context.Context, attendee *domain.Attendee) (*domain.Event, error)
	// Exists reports whether the user is registered for the event
	Exists(ctx context.Context, eventID, userID string) (bool, error)
	// Get retrieves one registration, (nil, nil) when absent
	Get(ctx context.Context, eventID, userID string) (*domain.Attendee, error)
	// MarkAttended sets attended only if it is still false. It reports
	// whether a row changed.
	MarkAttended(ctx context.Context, eventID, userID string, at time.Time) (bool, error)
	// Delete removes a registration and reports whether one existed
	Delete(ctx context.Context, eventID, userID string) (bool, error)
	// ListByEvent lists registrations of an event ordered by registration time
	ListByEvent(ctx context.Context, eventID string) ([]*domain.Attendee, error)
	// CountByEvent counts registrations of an event
	CountByEvent(ctx context.Context, eventID string) (int, error)
}

// TagRepository defines the interface for tag data access
type TagRepository interface {
	// List lists every tag by name
	List(ctx context.Context) ([]*domain.Tag, error)
	// ListByEvent lists the tags linked to an event
	ListByEvent(ctx context.Context, eventID string) ([]*domain.Tag, error)
	// Attach links a tag to an event, creating the tag when missing
	Attach(ctx context.Context, eventID, name string) (*domain.Tag, error)
	// Detach unlinks a tag and reports whether a link existed
	Detach(ctx context.Context, eventID, name string) (bool, error)
}

var (
	_ EventRepository    = (*PostgresEventRepository)(nil)
	_ EventRepository    = (*CachedEventRepository)(nil)
	_ EventRepository    = (*MemoryEventRepository)(nil)
	_ AttendeeRepository = (*PostgresAttendeeRepository)(nil)
	_ AttendeeRepository = (*MemoryAttendeeRepository)(nil)
	_ TagRepository      = (*PostgresTagRepository)(nil)
	_ TagRepository      = (*MemoryTagRepository)(nil)
)
