package handler

import (
	"time"

	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/internal/dto"
)

// toEventResponse converts a domain event to response DTO. The QR token is
// only exposed to admins.
func toEventResponse(event *domain.Event, withToken bool) *dto.EventResponse {
	resp := &dto.EventResponse{
		ID:            event.ID,
		Name:          event.Name,
		Description:   event.Description,
		Type:          string(event.Type),
		Status:        string(event.Status),
		Location:      event.Location,
		ImageURL:      event.ImageURL,
		Organizer:     event.Organizer,
		Capacity:      event.Capacity,
		Unlimited:     event.IsUnlimited(),
		Coins:         event.Coins,
		AttendeeCount: event.AttendeeCount,
		StartTime:     event.StartTime.Format(time.RFC3339),
		EndTime:       event.EndTime.Format(time.RFC3339),
		CreatedAt:     event.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     event.UpdatedAt.Format(time.RFC3339),
	}
	if withToken {
		resp.QRToken = event.QRToken
		resp.QRGeneratedAt = event.QRGeneratedAt.Format(time.RFC3339)
	}
	return resp
}

func toEventResponses(events []*domain.Event, withToken bool) []*dto.EventResponse {
	out := make([]*dto.EventResponse, len(events))
	for i, e := range events {
		out[i] = toEventResponse(e, withToken)
	}
	return out
}

func toAttendeeResponse(a *domain.Attendee) *dto.AttendeeResponse {
	resp := &dto.AttendeeResponse{
		ID:           a.ID,
		EventID:      a.EventID,
		UserID:       a.UserID,
		UserEmail:    a.UserEmail,
		Username:     a.Username,
		Attended:     a.Attended,
		RegisteredAt: a.RegisteredAt.Format(time.RFC3339),
	}
	if a.AttendedAt != nil {
		at := a.AttendedAt.Format(time.RFC3339)
		resp.AttendedAt = &at
	}
	return resp
}

func toTagResponses(tags []*domain.Tag) []*dto.TagResponse {
	out := make([]*dto.TagResponse, len(tags))
	for i, t := range tags {
		out[i] = &dto.TagResponse{ID: t.ID, Name: t.Name}
	}
	return out
}
