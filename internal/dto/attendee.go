package dto

// ScanRequest is sent by a user scanning an event QR code
type ScanRequest struct {
	QRToken string `json:"qr_token" binding:"required"`
}

// AdminScanRequest marks attendance for a user on a specific event
type AdminScanRequest struct {
	QRToken string `json:"qr_token" binding:"required"`
	UserID  string `json:"user_id" binding:"required"`
	Email   string `json:"email"`
}

// AttendeeResponse represents one registration
type AttendeeResponse struct {
	ID           string  `json:"id"`
	EventID      string  `json:"event_id"`
	UserID       string  `json:"user_id"`
	UserEmail    string  `json:"user_email"`
	Username     string  `json:"username"`
	Attended     bool    `json:"attended"`
	RegisteredAt string  `json:"registered_at"`
	AttendedAt   *string `json:"attended_at,omitempty"`
}

// AttendanceResponse is returned after a successful scan
type AttendanceResponse struct {
	Attendee    *AttendeeResponse `json:"attendee"`
	EventName   string            `json:"event_name"`
	CoinsEarned int               `json:"coins_earned"`
}

// IsRegisteredResponse answers the registration lookup
type IsRegisteredResponse struct {
	EventID    string `json:"event_id"`
	Registered bool   `json:"registered"`
}
