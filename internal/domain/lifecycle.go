package domain

import "time"

// Transition is a single status change computed by the lifecycle rules.
// From lists every status the persisted row may be in for the change to
// apply; stores use it as the precondition of a conditional update.
type Transition struct {
	From []EventStatus
	To   EventStatus
}

var (
	// TransitionFill closes registration once capacity is reached
	TransitionFill = Transition{
		From: []EventStatus{EventStatusRegistration},
		To:   EventStatusFull,
	}
	// TransitionStart opens the attendance window
	TransitionStart = Transition{
		From: []EventStatus{EventStatusRegistration, EventStatusFull},
		To:   EventStatusOngoing,
	}
	// TransitionClose ends the event
	TransitionClose = Transition{
		From: []EventStatus{EventStatusOngoing},
		To:   EventStatusClosed,
	}
)

// Allows reports whether the transition applies to status
func (t Transition) Allows(status EventStatus) bool {
	for _, s := range t.From {
		if s == status {
			return true
		}
	}
	return false
}

// RegistrationFilled returns the status an event should have after its
// attendee count became count. Only REGISTRATION moves, and only for finite
// capacity. changed is false when nothing applies.
func RegistrationFilled(e *Event, count int) (next EventStatus, changed bool) {
	if !TransitionFill.Allows(e.Status) || e.IsUnlimited() || count < e.Capacity {
		return e.Status, false
	}
	return EventStatusFull, true
}

// TimeAdvance returns the transitions the clock requires for e at now, in
// order. An event whose whole window has passed gets both start and close.
// The result is empty for CLOSED events and for events not yet due.
func TimeAdvance(e *Event, now time.Time) []Transition {
	var steps []Transition
	status := e.Status

	if TransitionStart.Allows(status) && !now.Before(e.StartTime) {
		steps = append(steps, TransitionStart)
		status = TransitionStart.To
	}
	if TransitionClose.Allows(status) && !now.Before(e.EndTime) {
		steps = append(steps, TransitionClose)
	}
	return steps
}

// AcceptsRegistration maps the event status to the registration gate error,
// nil when registration is open. ONGOING events keep accepting late
// arrivals while capacity allows; CLOSED events are rejected as a policy.
func AcceptsRegistration(status EventStatus) error {
	switch status {
	case EventStatusRegistration, EventStatusOngoing:
		return nil
	case EventStatusFull:
		return ErrEventFull
	default:
		return ErrRegistrationClosed
	}
}

// AcceptsAttendance returns ErrInvalidEventState unless status is ONGOING
func AcceptsAttendance(status EventStatus) error {
	if status != EventStatusOngoing {
		return ErrInvalidEventState
	}
	return nil
}

// CheckRegistration applies the status gate and the capacity limit for a new
// attendee given the current attendee count
func CheckRegistration(e *Event, count int) error {
	if err := AcceptsRegistration(e.Status); err != nil {
		return err
	}
	if !e.HasRoomFor(count) {
		return ErrEventFull
	}
	return nil
}
