package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
)

// MemoryStore is an in-process store backing all three repositories. A
// single mutex gives Register and MarkAttended the same atomicity the
// PostgreSQL row lock and conditional update provide. Used by tests and by
// local runs without a database.
type MemoryStore struct {
	mu        sync.Mutex
	events    map[string]*domain.Event
	attendees map[string]*domain.Attendee // key: eventID|userID
	tags      map[string]*domain.Tag      // key: name
	eventTags map[string]map[string]bool  // eventID -> tag names
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:    make(map[string]*domain.Event),
		attendees: make(map[string]*domain.Attendee),
		tags:      make(map[string]*domain.Tag),
		eventTags: make(map[string]map[string]bool),
	}
}

// Events returns the EventRepository view of the store
func (s *MemoryStore) Events() *MemoryEventRepository {
	return &MemoryEventRepository{s: s}
}

// Attendees returns the AttendeeRepository view of the store
func (s *MemoryStore) Attendees() *MemoryAttendeeRepository {
	return &MemoryAttendeeRepository{s: s}
}

// Tags returns the TagRepository view of the store
func (s *MemoryStore) Tags() *MemoryTagRepository {
	return &MemoryTagRepository{s: s}
}

func attendeeKey(eventID, userID string) string {
	return eventID + "|" + userID
}

// countLocked counts registrations of an event. Caller holds s.mu.
func (s *MemoryStore) countLocked(eventID string) int {
	n := 0
	for _, a := range s.attendees {
		if a.EventID == eventID {
			n++
		}
	}
	return n
}

// snapshotLocked copies an event with its attendee count. Caller holds s.mu.
func (s *MemoryStore) snapshotLocked(e *domain.Event) *domain.Event {
	cp := *e
	cp.AttendeeCount = s.countLocked(e.ID)
	return &cp
}

func (s *MemoryStore) selectLocked(match func(e *domain.Event) bool, less func(a, b *domain.Event) bool) []*domain.Event {
	out := make([]*domain.Event, 0)
	for _, e := range s.events {
		if match(e) {
			out = append(out, s.snapshotLocked(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byStart(a, b *domain.Event) bool { return a.StartTime.Before(b.StartTime) }

// MemoryEventRepository implements EventRepository in memory
type MemoryEventRepository struct {
	s *MemoryStore
}

// Create creates a new event
func (r *MemoryEventRepository) Create(ctx context.Context, event *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *event
	r.s.events[event.ID] = &cp
	return nil
}

// GetByID retrieves an event by ID
func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return nil, nil
	}
	return r.s.snapshotLocked(e), nil
}

// GetByQRToken retrieves an event by QR token
func (r *MemoryEventRepository) GetByQRToken(ctx context.Context, token string) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.events {
		if e.QRToken == token {
			return r.s.snapshotLocked(e), nil
		}
	}
	return nil, nil
}

// Update writes attributes, leaving status untouched
func (r *MemoryEventRepository) Update(ctx context.Context, event *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[event.ID]
	if !ok {
		return domain.ErrEventNotFound
	}
	count := r.s.countLocked(e.ID)
	if event.Capacity != domain.UnlimitedCapacity && event.Capacity < count {
		return domain.ErrCapacityBelowCount
	}

	status, token, generated, created := e.Status, e.QRToken, e.QRGeneratedAt, e.CreatedAt
	*e = *event
	e.Status, e.QRToken, e.QRGeneratedAt, e.CreatedAt = status, token, generated, created
	e.AttendeeCount = 0
	if next, changed := domain.RegistrationFilled(e, count); changed {
		e.Status = next
	}
	event.Status, event.AttendeeCount = e.Status, count
	return nil
}

// UpdateQRToken replaces the QR token
func (r *MemoryEventRepository) UpdateQRToken(ctx context.Context, id, token string, generatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	e.QRToken = token
	e.QRGeneratedAt = generatedAt
	e.UpdatedAt = generatedAt
	return nil
}

// Delete deletes an event with its attendees and tag links
func (r *MemoryEventRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[id]; !ok {
		return domain.ErrEventNotFound
	}
	delete(r.s.events, id)
	delete(r.s.eventTags, id)
	for k, a := range r.s.attendees {
		if a.EventID == id {
			delete(r.s.attendees, k)
		}
	}
	return nil
}

// List lists events with filters and pagination
func (r *MemoryEventRepository) List(ctx context.Context, filter *EventFilter, limit, offset int) ([]*domain.Event, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	all := r.s.selectLocked(func(e *domain.Event) bool {
		if filter == nil {
			return true
		}
		if filter.Status != "" && string(e.Status) != filter.Status {
			return false
		}
		if filter.Type != "" && string(e.Type) != filter.Type {
			return false
		}
		if filter.Search != "" {
			q := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(e.Name), q) && !strings.Contains(strings.ToLower(e.Description), q) {
				return false
			}
		}
		return true
	}, byStart)

	total := len(all)
	if offset >= total {
		return []*domain.Event{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// UpdateStatus performs a conditional status update
func (r *MemoryEventRepository) UpdateStatus(ctx context.Context, id string, from []domain.EventStatus, to domain.EventStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return false, nil
	}
	if !(domain.Transition{From: from, To: to}).Allows(e.Status) {
		return false, nil
	}
	e.Status = to
	e.UpdatedAt = time.Now()
	return true, nil
}

// ListDueForStart lists events whose start time has been reached
func (r *MemoryEventRepository) ListDueForStart(ctx context.Context, now time.Time, limit int) ([]*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	due := r.s.selectLocked(func(e *domain.Event) bool {
		return domain.TransitionStart.Allows(e.Status) && !e.StartTime.After(now)
	}, byStart)
	return truncate(due, limit), nil
}

// ListDueForClose lists ongoing events whose end time has been reached
func (r *MemoryEventRepository) ListDueForClose(ctx context.Context, now time.Time, limit int) ([]*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	due := r.s.selectLocked(func(e *domain.Event) bool {
		return domain.TransitionClose.Allows(e.Status) && !e.EndTime.After(now)
	}, func(a, b *domain.Event) bool { return a.EndTime.Before(b.EndTime) })
	return truncate(due, limit), nil
}

func truncate(events []*domain.Event, limit int) []*domain.Event {
	if limit > 0 && len(events) > limit {
		return events[:limit]
	}
	return events
}

// ListJoinedByUser lists the user's events in the given window
func (r *MemoryEventRepository) ListJoinedByUser(ctx context.Context, userID string, window JoinedWindow, now time.Time) ([]*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	joined := func(e *domain.Event) bool {
		_, ok := r.s.attendees[attendeeKey(e.ID, userID)]
		return ok
	}
	if window == JoinedPast {
		return r.s.selectLocked(func(e *domain.Event) bool {
			return joined(e) && e.EndTime.Before(now)
		}, func(a, b *domain.Event) bool { return a.EndTime.After(b.EndTime) }), nil
	}
	return r.s.selectLocked(func(e *domain.Event) bool {
		return joined(e) && e.StartTime.After(now)
	}, byStart), nil
}

// ListDiscoverable lists events the user can still join
func (r *MemoryEventRepository) ListDiscoverable(ctx context.Context, userID string, now time.Time) ([]*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.selectLocked(func(e *domain.Event) bool {
		if !e.EndTime.After(now) || e.Status == domain.EventStatusClosed {
			return false
		}
		if !e.HasRoomFor(r.s.countLocked(e.ID)) {
			return false
		}
		_, joined := r.s.attendees[attendeeKey(e.ID, userID)]
		return !joined
	}, byStart), nil
}

// CountByStatus counts events in a status
func (r *MemoryEventRepository) CountByStatus(ctx context.Context, status domain.EventStatus) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, e := range r.s.events {
		if e.Status == status {
			n++
		}
	}
	return n, nil
}

// CountStartingBetween counts events starting within [from, to]
func (r *MemoryEventRepository) CountStartingBetween(ctx context.Context, from, to time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, e := range r.s.events {
		if !e.StartTime.Before(from) && !e.StartTime.After(to) {
			n++
		}
	}
	return n, nil
}

// CountAttendeesByStatus counts registrations across events in a status
func (r *MemoryEventRepository) CountAttendeesByStatus(ctx context.Context, status domain.EventStatus) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, a := range r.s.attendees {
		if e, ok := r.s.events[a.EventID]; ok && e.Status == status {
			n++
		}
	}
	return n, nil
}

// MemoryAttendeeRepository implements AttendeeRepository in memory
type MemoryAttendeeRepository struct {
	s *MemoryStore
}

// Register inserts the attendee atomically with the capacity check
func (r *MemoryAttendeeRepository) Register(ctx context.Context, attendee *domain.Attendee) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[attendee.EventID]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	key := attendeeKey(attendee.EventID, attendee.UserID)
	if _, exists := r.s.attendees[key]; exists {
		return nil, domain.ErrAlreadyRegistered
	}
	count := r.s.countLocked(e.ID)
	if err := domain.CheckRegistration(e, count); err != nil {
		return nil, err
	}

	cp := *attendee
	r.s.attendees[key] = &cp
	count++

	if next, changed := domain.RegistrationFilled(e, count); changed {
		e.Status = next
		e.UpdatedAt = time.Now()
	}
	return r.s.snapshotLocked(e), nil
}

// Exists reports whether the user is registered for the event
func (r *MemoryAttendeeRepository) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, ok := r.s.attendees[attendeeKey(eventID, userID)]
	return ok, nil
}

// Get retrieves one registration
func (r *MemoryAttendeeRepository) Get(ctx context.Context, eventID, userID string) (*domain.Attendee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.attendees[attendeeKey(eventID, userID)]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// MarkAttended sets attended only if it is still false
func (r *MemoryAttendeeRepository) MarkAttended(ctx context.Context, eventID, userID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.attendees[attendeeKey(eventID, userID)]
	if !ok || a.Attended {
		return false, nil
	}
	a.Attended = true
	a.AttendedAt = &at
	return true, nil
}

// Delete removes a registration
func (r *MemoryAttendeeRepository) Delete(ctx context.Context, eventID, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := attendeeKey(eventID, userID)
	if _, ok := r.s.attendees[key]; !ok {
		return false, nil
	}
	delete(r.s.attendees, key)
	return true, nil
}

// ListByEvent lists registrations of an event by registration time
func (r *MemoryAttendeeRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Attendee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.Attendee, 0)
	for _, a := range r.s.attendees {
		if a.EventID == eventID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

// CountByEvent counts registrations of an event
func (r *MemoryAttendeeRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.countLocked(eventID), nil
}

// MemoryTagRepository implements TagRepository in memory
type MemoryTagRepository struct {
	s *MemoryStore
}

// List lists every tag by name
func (r *MemoryTagRepository) List(ctx context.Context) ([]*domain.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.Tag, 0, len(r.s.tags))
	for _, t := range r.s.tags {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListByEvent lists the tags of an event
func (r *MemoryTagRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.Tag, 0)
	for name := range r.s.eventTags[eventID] {
		cp := *r.s.tags[name]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Attach links a tag to an event, creating it when missing
func (r *MemoryTagRepository) Attach(ctx context.Context, eventID, name string) (*domain.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[eventID]; !ok {
		return nil, domain.ErrEventNotFound
	}
	tag, ok := r.s.tags[name]
	if !ok {
		tag = &domain.Tag{ID: uuid.New().String(), Name: name, CreatedAt: time.Now()}
		r.s.tags[name] = tag
	}
	if r.s.eventTags[eventID] == nil {
		r.s.eventTags[eventID] = make(map[string]bool)
	}
	r.s.eventTags[eventID][name] = true

	cp := *tag
	return &cp, nil
}

// Detach unlinks a tag from an event
func (r *MemoryTagRepository) Detach(ctx context.Context, eventID, name string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.eventTags[eventID][name] {
		return false, nil
	}
	delete(r.s.eventTags[eventID], name)
	return true, nil
}
