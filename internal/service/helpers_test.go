package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/internal/repository"
	"github.com/stretchr/testify/require"
)

var (
	admin = domain.Caller{UserID: "admin-1", Email: "admin@greenloop.test", Username: "admin", Role: domain.RoleAdmin}
	alice = domain.Caller{UserID: "user-alice", Email: "alice@greenloop.test", Username: "alice", Role: domain.RoleUser}
	bob   = domain.Caller{UserID: "user-bob", Email: "bob@greenloop.test", Username: "bob", Role: domain.RoleUser}
)

// MockEventPublisher records published messages
type MockEventPublisher struct {
	mu             sync.Mutex
	Participations []*domain.ParticipationMessage
	Notifications  []*domain.NotificationMessage
	PublishErr     error
	Closed         bool
}

func (m *MockEventPublisher) PublishParticipation(ctx context.Context, msg *domain.ParticipationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Participations = append(m.Participations, msg)
	return nil
}

func (m *MockEventPublisher) PublishNotification(ctx context.Context, msg *domain.NotificationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Notifications = append(m.Notifications, msg)
	return nil
}

func (m *MockEventPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

func (m *MockEventPublisher) counts() (participations, notifications int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Participations), len(m.Notifications)
}

// fixture wires every service on one in-memory store
type fixture struct {
	store        *repository.MemoryStore
	publisher    *MockEventPublisher
	events       EventService
	registration RegistrationService
	attendance   AttendanceService
	queries      QueryService
	tags         TagService
}

func newFixture() *fixture {
	store := repository.NewMemoryStore()
	pub := &MockEventPublisher{}
	return &fixture{
		store:        store,
		publisher:    pub,
		events:       NewEventService(store.Events()),
		registration: NewRegistrationService(store.Events(), store.Attendees(), pub),
		attendance:   NewAttendanceService(store.Events(), store.Attendees(), pub),
		queries:      NewQueryService(store.Events()),
		tags:         NewTagService(store.Events(), store.Tags()),
	}
}

// seed inserts an event directly, bypassing validation of the window
func (f *fixture) seed(t *testing.T, status domain.EventStatus, capacity int, start, end time.Time) *domain.Event {
	t.Helper()
	now := time.Now()
	e := &domain.Event{
		ID:            uuid.New().String(),
		Name:          "Mangrove Planting",
		Type:          domain.EventTypeTreePlanting,
		Status:        status,
		Capacity:      capacity,
		Coins:         40,
		StartTime:     start,
		EndTime:       end,
		QRToken:       domain.NewQRToken(),
		QRGeneratedAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.store.Events().Create(context.Background(), e))
	return e
}

// seedUpcoming inserts a REGISTRATION event starting in an hour
func (f *fixture) seedUpcoming(t *testing.T, capacity int) *domain.Event {
	now := time.Now()
	return f.seed(t, domain.EventStatusRegistration, capacity, now.Add(time.Hour), now.Add(3*time.Hour))
}

func (f *fixture) setStatus(t *testing.T, id string, status domain.EventStatus) {
	t.Helper()
	all := []domain.EventStatus{
		domain.EventStatusRegistration,
		domain.EventStatusFull,
		domain.EventStatusOngoing,
		domain.EventStatusClosed,
	}
	_, err := f.store.Events().UpdateStatus(context.Background(), id, all, status)
	require.NoError(t, err)
}

func (f *fixture) status(t *testing.T, id string) domain.EventStatus {
	t.Helper()
	e, err := f.store.Events().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, e)
	return e.Status
}
