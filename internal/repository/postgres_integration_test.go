package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgres(t *testing.T) *database.PostgresDB {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	cfg := database.DefaultPostgresConfig()
	if host := os.Getenv("DATABASE_HOST"); host != "" {
		cfg.Host = host
	}
	cfg.Password = os.Getenv("DATABASE_PASSWORD")
	if name := os.Getenv("DATABASE_NAME"); name != "" {
		cfg.Database = name
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(db.Close)
	return db
}

func createPostgresEvent(t *testing.T, repo *PostgresEventRepository, capacity int, start, end time.Time) *domain.Event {
	t.Helper()
	now := time.Now()
	e := &domain.Event{
		ID:            uuid.New().String(),
		Name:          "Integration Cleanup",
		Type:          domain.EventTypeCleanup,
		Status:        domain.EventStatusRegistration,
		Capacity:      capacity,
		Coins:         25,
		StartTime:     start,
		EndTime:       end,
		QRToken:       domain.NewQRToken(),
		QRGeneratedAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, repo.Create(context.Background(), e))
	t.Cleanup(func() { _ = repo.Delete(context.Background(), e.ID) })
	return e
}

func TestPostgresRegister_CapacityUnderConcurrency(t *testing.T) {
	db := setupPostgres(t)
	events := NewPostgresEventRepository(db.Pool())
	attendees := NewPostgresAttendeeRepository(db.Pool())
	now := time.Now()
	e := createPostgresEvent(t, events, 3, now.Add(time.Hour), now.Add(2*time.Hour))

	var wg sync.WaitGroup
	var ok int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := &domain.Attendee{
				ID:           uuid.New().String(),
				EventID:      e.ID,
				UserID:       fmt.Sprintf("pg-user-%d", i),
				RegisteredAt: time.Now(),
			}
			if _, err := attendees.Register(context.Background(), a); err == nil {
				atomic.AddInt32(&ok, 1)
			} else {
				assert.ErrorIs(t, err, domain.ErrEventFull)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(3), ok)
	got, err := events.GetByID(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AttendeeCount)
	assert.Equal(t, domain.EventStatusFull, got.Status)
}

func TestPostgresUpdate_CapacityUnderConcurrency(t *testing.T) {
	db := setupPostgres(t)
	events := NewPostgresEventRepository(db.Pool())
	attendees := NewPostgresAttendeeRepository(db.Pool())
	ctx := context.Background()
	now := time.Now()
	e := createPostgresEvent(t, events, domain.UnlimitedCapacity, now.Add(time.Hour), now.Add(2*time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = attendees.Register(ctx, &domain.Attendee{
				ID:           uuid.New().String(),
				EventID:      e.ID,
				UserID:       fmt.Sprintf("pg-update-%d", i),
				RegisteredAt: time.Now(),
			})
		}(i)
		go func() {
			defer wg.Done()
			update := *e
			update.Capacity = 5
			update.UpdatedAt = time.Now()
			if err := events.Update(ctx, &update); err != nil {
				assert.ErrorIs(t, err, domain.ErrCapacityBelowCount)
			}
		}()
	}
	wg.Wait()

	got, err := events.GetByID(ctx, e.ID)
	require.NoError(t, err)
	if got.Capacity != domain.UnlimitedCapacity {
		assert.LessOrEqual(t, got.AttendeeCount, got.Capacity)
	}
}

func TestPostgres_MalformedIDReadsAsMissing(t *testing.T) {
	db := setupPostgres(t)
	events := NewPostgresEventRepository(db.Pool())
	attendees := NewPostgresAttendeeRepository(db.Pool())
	ctx := context.Background()

	got, err := events.GetByID(ctx, "abc")
	assert.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, events.Delete(ctx, "abc"), domain.ErrEventNotFound)

	_, err = attendees.Register(ctx, &domain.Attendee{ID: uuid.New().String(), EventID: "abc", UserID: "pg-u1", RegisteredAt: time.Now()})
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	exists, err := attendees.Exists(ctx, "abc", "pg-u1")
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestPostgresMarkAttended_Conditional(t *testing.T) {
	db := setupPostgres(t)
	events := NewPostgresEventRepository(db.Pool())
	attendees := NewPostgresAttendeeRepository(db.Pool())
	ctx := context.Background()
	now := time.Now()
	e := createPostgresEvent(t, events, domain.UnlimitedCapacity, now.Add(time.Hour), now.Add(2*time.Hour))

	_, err := attendees.Register(ctx, &domain.Attendee{ID: uuid.New().String(), EventID: e.ID, UserID: "pg-u1", RegisteredAt: now})
	require.NoError(t, err)

	first, err := attendees.MarkAttended(ctx, e.ID, "pg-u1", now)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := attendees.MarkAttended(ctx, e.ID, "pg-u1", now)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestPostgresUpdateStatus_Conditional(t *testing.T) {
	db := setupPostgres(t)
	events := NewPostgresEventRepository(db.Pool())
	ctx := context.Background()
	now := time.Now()
	e := createPostgresEvent(t, events, 10, now.Add(-time.Hour), now.Add(-time.Minute))

	due, err := events.ListDueForStart(ctx, now, 100)
	require.NoError(t, err)
	assert.NotEmpty(t, due)

	changed, err := events.UpdateStatus(ctx, e.ID, domain.TransitionStart.From, domain.EventStatusOngoing)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = events.UpdateStatus(ctx, e.ID, domain.TransitionStart.From, domain.EventStatusOngoing)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestPostgresTags(t *testing.T) {
	db := setupPostgres(t)
	events := NewPostgresEventRepository(db.Pool())
	tags := NewPostgresTagRepository(db.Pool())
	ctx := context.Background()
	now := time.Now()
	e := createPostgresEvent(t, events, 10, now.Add(time.Hour), now.Add(2*time.Hour))

	first, err := tags.Attach(ctx, e.ID, "integration")
	require.NoError(t, err)
	again, err := tags.Attach(ctx, e.ID, "integration")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	linked, err := tags.ListByEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, linked, 1)

	removed, err := tags.Detach(ctx, e.ID, "integration")
	require.NoError(t, err)
	assert.True(t, removed)
}
