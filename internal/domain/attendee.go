package domain

import "time"

// Attendee is one user's registration for one event
type Attendee struct {
	ID           string     `json:"id"`
	EventID      string     `json:"event_id"`
	UserID       string     `json:"user_id"`
	UserEmail    string     `json:"user_email"`
	Username     string     `json:"username"`
	Attended     bool       `json:"attended"`
	RegisteredAt time.Time  `json:"registered_at"`
	AttendedAt   *time.Time `json:"attended_at,omitempty"`
}

// Tag labels events for discovery
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Caller is the authenticated identity on whose behalf a core operation
// runs. It is produced by the transport layer after verification.
type Caller struct {
	UserID   string
	Email    string
	Username string
	Role     Role
}

// Role is the caller's authorization role
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsAdmin reports whether the caller may use administrative operations
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// RequireAdmin returns ErrForbidden unless the caller is an admin
func (c Caller) RequireAdmin() error {
	if !c.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
