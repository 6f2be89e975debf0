package dto

import (
	"testing"
	"time"

	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestCreateEventRequest_Validate(t *testing.T) {
	start := time.Now().Add(24 * time.Hour)
	end := start.Add(2 * time.Hour)

	tests := []struct {
		name    string
		req     CreateEventRequest
		wantErr error
	}{
		{
			name: "valid request",
			req:  CreateEventRequest{Name: "Beach Cleanup", Type: "cleanup", StartTime: start, EndTime: end},
		},
		{
			name: "valid with capacity",
			req:  CreateEventRequest{Name: "Workshop", Type: "WORKSHOP", Capacity: intPtr(30), StartTime: start, EndTime: end},
		},
		{
			name:    "blank name",
			req:     CreateEventRequest{Name: "   ", Type: "TALK", StartTime: start, EndTime: end},
			wantErr: domain.ErrInvalidEventName,
		},
		{
			name:    "unknown type",
			req:     CreateEventRequest{Name: "Picnic", Type: "PICNIC", StartTime: start, EndTime: end},
			wantErr: domain.ErrInvalidEventType,
		},
		{
			name:    "end before start",
			req:     CreateEventRequest{Name: "Talk", Type: "TALK", StartTime: end, EndTime: start},
			wantErr: domain.ErrInvalidEventWindow,
		},
		{
			name:    "capacity below sentinel",
			req:     CreateEventRequest{Name: "Talk", Type: "TALK", Capacity: intPtr(-5), StartTime: start, EndTime: end},
			wantErr: domain.ErrInvalidCapacity,
		},
		{
			name:    "negative coins",
			req:     CreateEventRequest{Name: "Talk", Type: "TALK", Coins: -1, StartTime: start, EndTime: end},
			wantErr: domain.ErrInvalidCoins,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateEventRequest_ToEvent_DefaultsToUnlimited(t *testing.T) {
	req := CreateEventRequest{Name: " Cleanup ", Type: "cleanup"}
	e := req.ToEvent()

	assert.Equal(t, "Cleanup", e.Name)
	assert.Equal(t, domain.EventTypeCleanup, e.Type)
	assert.True(t, e.IsUnlimited())
}

func TestUpdateEventRequest_Apply(t *testing.T) {
	start := time.Now()
	e := &domain.Event{Name: "Old", Type: domain.EventTypeTalk, Capacity: 10, StartTime: start, EndTime: start.Add(time.Hour)}

	req := UpdateEventRequest{Name: strPtr("New"), Type: strPtr("workshop"), Capacity: intPtr(20)}
	req.Apply(e)

	assert.Equal(t, "New", e.Name)
	assert.Equal(t, domain.EventTypeWorkshop, e.Type)
	assert.Equal(t, 20, e.Capacity)
	assert.Equal(t, start, e.StartTime)
}

func TestEventListFilter_SetDefaults(t *testing.T) {
	tests := []struct {
		name       string
		filter     EventListFilter
		wantLimit  int
		wantOffset int
	}{
		{"zero values", EventListFilter{}, 20, 0},
		{"limit too large", EventListFilter{Limit: 500}, 20, 0},
		{"negative offset", EventListFilter{Limit: 10, Offset: -3}, 10, 0},
		{"kept as is", EventListFilter{Limit: 50, Offset: 100}, 50, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.SetDefaults()
			assert.Equal(t, tt.wantLimit, tt.filter.Limit)
			assert.Equal(t, tt.wantOffset, tt.filter.Offset)
		})
	}
}

func TestNormalizeTagName(t *testing.T) {
	assert.Equal(t, "zero-waste", NormalizeTagName("  Zero-Waste "))
}
