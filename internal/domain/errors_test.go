package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		kind ErrorKind
		code string
	}{
		{ErrEventNotFound, KindNotFound, "EVENT_NOT_FOUND"},
		{ErrAlreadyRegistered, KindConflict, "ALREADY_REGISTERED"},
		{ErrEventFull, KindConflict, "EVENT_FULL"},
		{ErrAttendanceAlreadyMarked, KindConflict, "ATTENDANCE_ALREADY_MARKED"},
		{ErrInvalidEventState, KindInvalidState, "INVALID_EVENT_STATE"},
		{ErrAttendeeNotRegistered, KindForbidden, "ATTENDEE_NOT_REGISTERED"},
		{ErrCapacityBelowCount, KindValidation, "CAPACITY_BELOW_ATTENDEE_COUNT"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			wrapped := fmt.Errorf("register: %w", tt.err)
			kind, code, matched := Classify(wrapped)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.err, matched)
		})
	}
}

func TestClassify_Unknown(t *testing.T) {
	kind, code, matched := Classify(errors.New("connection reset by peer"))
	assert.Equal(t, KindInternal, kind)
	assert.Equal(t, "INTERNAL_ERROR", code)
	assert.Nil(t, matched)
}

func TestKindHelpers(t *testing.T) {
	assert.True(t, IsNotFoundError(ErrTagNotFound))
	assert.True(t, IsConflictError(fmt.Errorf("x: %w", ErrEventFull)))
	assert.True(t, IsInvalidStateError(ErrRegistrationClosed))
	assert.True(t, IsValidationError(ErrInvalidCoins))
	assert.False(t, IsNotFoundError(ErrEventFull))
}

func TestCaller_RequireAdmin(t *testing.T) {
	assert.NoError(t, Caller{Role: RoleAdmin}.RequireAdmin())
	assert.ErrorIs(t, Caller{Role: RoleUser}.RequireAdmin(), ErrForbidden)
	assert.ErrorIs(t, Caller{}.RequireAdmin(), ErrForbidden)
}
