package domain

import "time"

// ParticipationType values carried on participation messages
const ParticipationTypeAttended = "attended"

// ParticipationMessage is published once per confirmed attendance so the
// gamification service can award coins. Consumers dedupe on
// (EventID, UserID).
type ParticipationMessage struct {
	EventID           string    `json:"eventId"`
	UserID            string    `json:"userId"`
	EventType         EventType `json:"eventType"`
	ParticipationType string    `json:"participationType"`
	CoinsEarned       int       `json:"coinsEarned"`
	Timestamp         time.Time `json:"timestamp"`
}

// NotificationType identifies a user-facing notification template
type NotificationType string

const (
	NotificationEventConfirmation NotificationType = "event_confirmation"
	NotificationEventAttendance   NotificationType = "event_attendance"
)

// NotificationMessage is consumed by the notification service
type NotificationMessage struct {
	Type        NotificationType `json:"type"`
	Email       string           `json:"email"`
	UserID      string           `json:"userId"`
	EventID     string           `json:"eventId"`
	EventName   string           `json:"eventName"`
	CoinsEarned int              `json:"coinsEarned"`
	Details     string           `json:"details"`
	Timestamp   time.Time        `json:"timestamp"`
}

// NewConfirmationNotification builds the registration confirmation
func NewConfirmationNotification(e *Event, a *Attendee, now time.Time) *NotificationMessage {
	return &NotificationMessage{
		Type:      NotificationEventConfirmation,
		Email:     a.UserEmail,
		UserID:    a.UserID,
		EventID:   e.ID,
		EventName: e.Name,
		Details:   "You have successfully registered for this event.",
		Timestamp: now,
	}
}

// NewAttendanceNotification builds the attendance confirmation
func NewAttendanceNotification(e *Event, a *Attendee, now time.Time) *NotificationMessage {
	return &NotificationMessage{
		Type:        NotificationEventAttendance,
		Email:       a.UserEmail,
		UserID:      a.UserID,
		EventID:     e.ID,
		EventName:   e.Name,
		CoinsEarned: e.Coins,
		Details:     "Thank you for attending!",
		Timestamp:   now,
	}
}

// NewParticipationMessage builds the reward signal for a confirmed attendance
func NewParticipationMessage(e *Event, a *Attendee, now time.Time) *ParticipationMessage {
	return &ParticipationMessage{
		EventID:           e.ID,
		UserID:            a.UserID,
		EventType:         e.Type,
		ParticipationType: ParticipationTypeAttended,
		CoinsEarned:       e.Coins,
		Timestamp:         now,
	}
}
