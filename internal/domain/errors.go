package domain

import "errors"

// Domain errors
var (
	// Not found
	ErrEventNotFound    = errors.New("event not found")
	ErrAttendeeNotFound = errors.New("attendee not found")
	ErrTagNotFound      = errors.New("tag not found")

	// Conflict
	ErrAlreadyRegistered       = errors.New("user is already registered for this event")
	ErrEventFull               = errors.New("event is full")
	ErrAttendanceAlreadyMarked = errors.New("attendance already marked")

	// Invalid state
	ErrInvalidEventState  = errors.New("attendance can only be marked for ongoing events")
	ErrRegistrationClosed = errors.New("registration is closed for this event")
	ErrEventClosed        = errors.New("event is closed")

	// Forbidden
	ErrForbidden             = errors.New("operation not permitted for this role")
	ErrAttendeeNotRegistered = errors.New("user is not registered for this event")
	ErrInvalidQRToken        = errors.New("qr token does not belong to this event")

	// Validation
	ErrInvalidEventName   = errors.New("event name is required")
	ErrInvalidEventType   = errors.New("invalid event type")
	ErrInvalidStatus      = errors.New("invalid event status")
	ErrInvalidEventWindow = errors.New("end time must be after start time")
	ErrInvalidCapacity    = errors.New("capacity must be -1 (unlimited) or non-negative")
	ErrCapacityBelowCount = errors.New("capacity cannot be lower than the current attendee count")
	ErrInvalidCoins       = errors.New("coins cannot be negative")
	ErrInvalidUserID      = errors.New("invalid user id")
	ErrInvalidTagName     = errors.New("tag name is required")
	ErrMissingQRToken     = errors.New("qr token is required")
)

// ErrorKind groups domain errors by how callers should react
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindConflict
	KindInvalidState
	KindForbidden
	KindValidation
)

type errorInfo struct {
	kind ErrorKind
	code string
}

var errorTable = map[error]errorInfo{
	ErrEventNotFound:           {KindNotFound, "EVENT_NOT_FOUND"},
	ErrAttendeeNotFound:        {KindNotFound, "ATTENDEE_NOT_FOUND"},
	ErrTagNotFound:             {KindNotFound, "TAG_NOT_FOUND"},
	ErrAlreadyRegistered:       {KindConflict, "ALREADY_REGISTERED"},
	ErrEventFull:               {KindConflict, "EVENT_FULL"},
	ErrAttendanceAlreadyMarked: {KindConflict, "ATTENDANCE_ALREADY_MARKED"},
	ErrInvalidEventState:       {KindInvalidState, "INVALID_EVENT_STATE"},
	ErrRegistrationClosed:      {KindInvalidState, "REGISTRATION_CLOSED"},
	ErrEventClosed:             {KindInvalidState, "EVENT_CLOSED"},
	ErrForbidden:               {KindForbidden, "FORBIDDEN"},
	ErrAttendeeNotRegistered:   {KindForbidden, "ATTENDEE_NOT_REGISTERED"},
	ErrInvalidQRToken:          {KindForbidden, "INVALID_QR_TOKEN"},
	ErrInvalidEventName:        {KindValidation, "VALIDATION_ERROR"},
	ErrInvalidEventType:        {KindValidation, "VALIDATION_ERROR"},
	ErrInvalidStatus:           {KindValidation, "VALIDATION_ERROR"},
	ErrInvalidEventWindow:      {KindValidation, "VALIDATION_ERROR"},
	ErrInvalidCapacity:         {KindValidation, "VALIDATION_ERROR"},
	ErrCapacityBelowCount:      {KindValidation, "CAPACITY_BELOW_ATTENDEE_COUNT"},
	ErrInvalidCoins:            {KindValidation, "VALIDATION_ERROR"},
	ErrInvalidUserID:           {KindValidation, "VALIDATION_ERROR"},
	ErrInvalidTagName:          {KindValidation, "VALIDATION_ERROR"},
	ErrMissingQRToken:          {KindValidation, "VALIDATION_ERROR"},
}

// Classify returns the kind, stable code and the matched domain error for
// err. Unknown errors are KindInternal with code INTERNAL_ERROR and a nil
// domain error.
func Classify(err error) (ErrorKind, string, error) {
	for target, info := range errorTable {
		if errors.Is(err, target) {
			return info.kind, info.code, target
		}
	}
	return KindInternal, "INTERNAL_ERROR", nil
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	kind, _, _ := Classify(err)
	return kind == KindNotFound
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	kind, _, _ := Classify(err)
	return kind == KindConflict
}

// IsInvalidStateError checks if the error is a lifecycle gating error
func IsInvalidStateError(err error) bool {
	kind, _, _ := Classify(err)
	return kind == KindInvalidState
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	kind, _, _ := Classify(err)
	return kind == KindValidation
}
