package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventStatus is the lifecycle phase of an event
type EventStatus string

const (
	EventStatusRegistration EventStatus = "REGISTRATION"
	EventStatusFull         EventStatus = "FULL"
	EventStatusOngoing      EventStatus = "ONGOING"
	EventStatusClosed       EventStatus = "CLOSED"
)

// IsValid reports whether s is a known status
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusRegistration, EventStatusFull, EventStatusOngoing, EventStatusClosed:
		return true
	}
	return false
}

// EventType classifies an event
type EventType string

const (
	EventTypeWorkshop     EventType = "WORKSHOP"
	EventTypeTreePlanting EventType = "TREE_PLANTING"
	EventTypeCleanup      EventType = "CLEANUP"
	EventTypeRecycling    EventType = "RECYCLING"
	EventTypeTalk         EventType = "TALK"
	EventTypeVolunteering EventType = "VOLUNTEERING"
	EventTypeOther        EventType = "OTHER"
)

// EventTypes lists every event type in display order
func EventTypes() []EventType {
	return []EventType{
		EventTypeWorkshop,
		EventTypeTreePlanting,
		EventTypeCleanup,
		EventTypeRecycling,
		EventTypeTalk,
		EventTypeVolunteering,
		EventTypeOther,
	}
}

// ParseEventType parses s case-insensitively
func ParseEventType(s string) (EventType, bool) {
	t := EventType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range EventTypes() {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// UnlimitedCapacity marks an event without an attendee limit
const UnlimitedCapacity = -1

// Event represents a community event
type Event struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Type          EventType   `json:"type"`
	Status        EventStatus `json:"status"`
	Location      string      `json:"location"`
	ImageURL      string      `json:"image_url"`
	Organizer     string      `json:"organizer"`
	Capacity      int         `json:"capacity"`
	Coins         int         `json:"coins"`
	StartTime     time.Time   `json:"start_time"`
	EndTime       time.Time   `json:"end_time"`
	QRToken       string      `json:"qr_token"`
	QRGeneratedAt time.Time   `json:"qr_generated_at"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	// AttendeeCount is populated by read queries, it is not a stored column
	AttendeeCount int `json:"attendee_count"`
}

// IsUnlimited reports whether the event has no attendee limit
func (e *Event) IsUnlimited() bool {
	return e.Capacity == UnlimitedCapacity
}

// HasRoomFor reports whether one more attendee fits given the current count
func (e *Event) HasRoomFor(count int) bool {
	return e.IsUnlimited() || count < e.Capacity
}

// NewQRToken returns a fresh opaque attendance token
func NewQRToken() string {
	return uuid.NewString()
}

// Validate checks the attribute invariants of an event
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrInvalidEventName
	}
	if _, ok := ParseEventType(string(e.Type)); !ok {
		return ErrInvalidEventType
	}
	if !e.EndTime.After(e.StartTime) {
		return ErrInvalidEventWindow
	}
	if e.Capacity < UnlimitedCapacity {
		return ErrInvalidCapacity
	}
	if e.Coins < 0 {
		return ErrInvalidCoins
	}
	return nil
}
