package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Success(t *testing.T) {
	f := newFixture()
	e := f.seedUpcoming(t, 10)

	a, err := f.registration.Register(context.Background(), alice, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, a.EventID)
	assert.Equal(t, alice.UserID, a.UserID)
	assert.Equal(t, alice.Email, a.UserEmail)
	assert.False(t, a.Attended)
	assert.Nil(t, a.AttendedAt)
	assert.False(t, a.RegisteredAt.IsZero())

	_, notifications := f.publisher.counts()
	require.Equal(t, 1, notifications)
	assert.Equal(t, domain.NotificationEventConfirmation, f.publisher.Notifications[0].Type)
	assert.Equal(t, e.Name, f.publisher.Notifications[0].EventName)
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture) string
		wantErr error
	}{
		{
			name:    "event not found",
			setup:   func(t *testing.T, f *fixture) string { return "missing" },
			wantErr: domain.ErrEventNotFound,
		},
		{
			name: "already registered",
			setup: func(t *testing.T, f *fixture) string {
				e := f.seedUpcoming(t, 10)
				_, err := f.registration.Register(context.Background(), alice, e.ID)
				require.NoError(t, err)
				return e.ID
			},
			wantErr: domain.ErrAlreadyRegistered,
		},
		{
			name: "full",
			setup: func(t *testing.T, f *fixture) string {
				e := f.seedUpcoming(t, 1)
				_, err := f.registration.Register(context.Background(), bob, e.ID)
				require.NoError(t, err)
				return e.ID
			},
			wantErr: domain.ErrEventFull,
		},
		{
			name: "ongoing at capacity",
			setup: func(t *testing.T, f *fixture) string {
				e := f.seedUpcoming(t, 1)
				f.setStatus(t, e.ID, domain.EventStatusOngoing)
				_, err := f.registration.Register(context.Background(), bob, e.ID)
				require.NoError(t, err)
				return e.ID
			},
			wantErr: domain.ErrEventFull,
		},
		{
			name: "closed",
			setup: func(t *testing.T, f *fixture) string {
				e := f.seedUpcoming(t, 10)
				f.setStatus(t, e.ID, domain.EventStatusClosed)
				return e.ID
			},
			wantErr: domain.ErrRegistrationClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			id := tt.setup(t, f)

			_, err := f.registration.Register(context.Background(), alice, id)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegister_FillsEventAtCapacity(t *testing.T) {
	f := newFixture()
	e := f.seedUpcoming(t, 2)

	_, err := f.registration.Register(context.Background(), alice, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventStatusRegistration, f.status(t, e.ID))

	_, err = f.registration.Register(context.Background(), bob, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventStatusFull, f.status(t, e.ID))
}

func TestRegister_PastStartStillFillsAndRejects(t *testing.T) {
	f := newFixture()
	now := time.Now()
	e := f.seed(t, domain.EventStatusRegistration, 2, now.Add(-time.Minute), now.Add(2*time.Hour))

	_, err := f.registration.Register(context.Background(), alice, e.ID)
	require.NoError(t, err)
	_, err = f.registration.Register(context.Background(), bob, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventStatusFull, f.status(t, e.ID))

	carol := domain.Caller{UserID: "user-carol", Role: domain.RoleUser}
	_, err = f.registration.Register(context.Background(), carol, e.ID)
	assert.ErrorIs(t, err, domain.ErrEventFull)

	count, err := f.store.Attendees().CountByEvent(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRegister_OngoingAcceptsLateArrival(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := time.Now()
	e := f.seed(t, domain.EventStatusOngoing, 2, now.Add(-time.Hour), now.Add(time.Hour))

	a, err := f.registration.Register(ctx, alice, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, a.EventID)
	_, err = f.registration.Register(ctx, bob, e.ID)
	require.NoError(t, err)
	// ONGOING never moves to FULL; capacity alone rejects the next one
	assert.Equal(t, domain.EventStatusOngoing, f.status(t, e.ID))

	carol := domain.Caller{UserID: "user-carol", Role: domain.RoleUser}
	_, err = f.registration.Register(ctx, carol, e.ID)
	assert.ErrorIs(t, err, domain.ErrEventFull)

	marked, _, err := f.attendance.MarkAttendance(ctx, alice, e.QRToken)
	require.NoError(t, err)
	assert.True(t, marked.Attended)
}

func TestRegister_UnlimitedNeverFills(t *testing.T) {
	f := newFixture()
	e := f.seedUpcoming(t, domain.UnlimitedCapacity)

	for i := 0; i < 100; i++ {
		caller := domain.Caller{UserID: fmt.Sprintf("user-%d", i), Role: domain.RoleUser}
		_, err := f.registration.Register(context.Background(), caller, e.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, domain.EventStatusRegistration, f.status(t, e.ID))
}

func TestRegister_ConcurrentNeverExceedsCapacity(t *testing.T) {
	f := newFixture()
	e := f.seedUpcoming(t, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller := domain.Caller{UserID: fmt.Sprintf("user-%d", i), Role: domain.RoleUser}
			if _, err := f.registration.Register(context.Background(), caller, e.ID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	count, err := f.store.Attendees().CountByEvent(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
	assert.Equal(t, domain.EventStatusFull, f.status(t, e.ID))
}

func TestRegister_ConcurrentSameUserOnce(t *testing.T) {
	f := newFixture()
	e := f.seedUpcoming(t, domain.UnlimitedCapacity)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.registration.Register(context.Background(), alice, e.ID)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

func TestRegister_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture()
	f.publisher.PublishErr = fmt.Errorf("broker down")
	e := f.seedUpcoming(t, 10)

	_, err := f.registration.Register(context.Background(), alice, e.ID)
	assert.NoError(t, err)
}

func TestDeregister(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := f.seedUpcoming(t, 1)

	_, err := f.registration.Register(ctx, alice, e.ID)
	require.NoError(t, err)
	require.Equal(t, domain.EventStatusFull, f.status(t, e.ID))

	require.NoError(t, f.registration.Deregister(ctx, alice, e.ID))

	registered, err := f.registration.IsRegistered(ctx, alice, e.ID)
	require.NoError(t, err)
	assert.False(t, registered)
	// FULL never moves back to REGISTRATION
	assert.Equal(t, domain.EventStatusFull, f.status(t, e.ID))

	assert.ErrorIs(t, f.registration.Deregister(ctx, alice, e.ID), domain.ErrAttendeeNotFound)
	assert.ErrorIs(t, f.registration.Deregister(ctx, alice, "missing"), domain.ErrEventNotFound)
}

func TestDeregister_ClosedEvent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := f.seedUpcoming(t, 10)
	_, err := f.registration.Register(ctx, alice, e.ID)
	require.NoError(t, err)
	f.setStatus(t, e.ID, domain.EventStatusClosed)

	assert.ErrorIs(t, f.registration.Deregister(ctx, alice, e.ID), domain.ErrEventClosed)

	registered, err := f.registration.IsRegistered(ctx, alice, e.ID)
	require.NoError(t, err)
	assert.True(t, registered)
}

func TestRemoveAttendee_AdminOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := f.seedUpcoming(t, 10)
	_, err := f.registration.Register(ctx, alice, e.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.registration.RemoveAttendee(ctx, bob, e.ID, alice.UserID), domain.ErrForbidden)
	assert.NoError(t, f.registration.RemoveAttendee(ctx, admin, e.ID, alice.UserID))
}

func TestListAttendees(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := f.seedUpcoming(t, 10)
	_, err := f.registration.Register(ctx, alice, e.ID)
	require.NoError(t, err)
	_, err = f.registration.Register(ctx, bob, e.ID)
	require.NoError(t, err)

	_, err = f.registration.ListAttendees(ctx, alice, e.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	attendees, err := f.registration.ListAttendees(ctx, admin, e.ID)
	require.NoError(t, err)
	assert.Len(t, attendees, 2)

	_, err = f.registration.ListAttendees(ctx, admin, "missing")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}
