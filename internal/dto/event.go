package dto

import (
	"strings"
	"time"

	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
)

// CreateEventRequest represents the request to create a new event
type CreateEventRequest struct {
	Name        string    `json:"name" binding:"required,min=1,max=255"`
	Description string    `json:"description"`
	Type        string    `json:"type" binding:"required"`
	Location    string    `json:"location" binding:"max=255"`
	ImageURL    string    `json:"image_url"`
	Organizer   string    `json:"organizer" binding:"max=255"`
	Capacity    *int      `json:"capacity"` // nil or -1 means unlimited
	Coins       int       `json:"coins"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
}

// Validate validates the CreateEventRequest
func (r *CreateEventRequest) Validate() error {
	return r.ToEvent().Validate()
}

// ToEvent maps the request onto a new event without identity or status
func (r *CreateEventRequest) ToEvent() *domain.Event {
	capacity := domain.UnlimitedCapacity
	if r.Capacity != nil {
		capacity = *r.Capacity
	}
	eventType, _ := domain.ParseEventType(r.Type)
	if eventType == "" {
		eventType = domain.EventType(r.Type)
	}

	return &domain.Event{
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		Type:        eventType,
		Location:    r.Location,
		ImageURL:    r.ImageURL,
		Organizer:   r.Organizer,
		Capacity:    capacity,
		Coins:       r.Coins,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
	}
}

// UpdateEventRequest represents a partial update. Nil fields are left as is.
type UpdateEventRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string    `json:"description"`
	Type        *string    `json:"type"`
	Location    *string    `json:"location" binding:"omitempty,max=255"`
	ImageURL    *string    `json:"image_url"`
	Organizer   *string    `json:"organizer" binding:"omitempty,max=255"`
	Capacity    *int       `json:"capacity"`
	Coins       *int       `json:"coins"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

// Apply copies the set fields onto e. The result still needs Validate.
func (r *UpdateEventRequest) Apply(e *domain.Event) {
	if r.Name != nil {
		e.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		e.Description = *r.Description
	}
	if r.Type != nil {
		if t, ok := domain.ParseEventType(*r.Type); ok {
			e.Type = t
		} else {
			e.Type = domain.EventType(*r.Type)
		}
	}
	if r.Location != nil {
		e.Location = *r.Location
	}
	if r.ImageURL != nil {
		e.ImageURL = *r.ImageURL
	}
	if r.Organizer != nil {
		e.Organizer = *r.Organizer
	}
	if r.Capacity != nil {
		e.Capacity = *r.Capacity
	}
	if r.Coins != nil {
		e.Coins = *r.Coins
	}
	if r.StartTime != nil {
		e.StartTime = *r.StartTime
	}
	if r.EndTime != nil {
		e.EndTime = *r.EndTime
	}
}

// EventResponse represents the response for an event
type EventResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Location      string `json:"location"`
	ImageURL      string `json:"image_url"`
	Organizer     string `json:"organizer"`
	Capacity      int    `json:"capacity"`
	Unlimited     bool   `json:"unlimited"`
	Coins         int    `json:"coins"`
	AttendeeCount int    `json:"attendee_count"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	QRToken       string `json:"qr_token,omitempty"` // admins only
	QRGeneratedAt string `json:"qr_generated_at,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// EventListResponse represents a list of events
type EventListResponse struct {
	Events []*EventResponse `json:"events"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// EventListFilter represents filters for listing events
type EventListFilter struct {
	Status string `form:"status"`
	Type   string `form:"type"`
	Search string `form:"search"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// SetDefaults sets default values for pagination
func (f *EventListFilter) SetDefaults() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
	f.Type = strings.ToUpper(strings.TrimSpace(f.Type))
}

// EventTypesResponse lists the selectable event types
type EventTypesResponse struct {
	Types []string `json:"types"`
}

// CountResponse carries a single aggregate
type CountResponse struct {
	Count int `json:"count"`
}
