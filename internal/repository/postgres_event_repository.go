package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/pkg/database"
)

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// eventColumns selects an event aliased as e together with its attendee count.
// Nullable text columns are coalesced to avoid scan errors.
const eventColumns = `e.id, e.name,
	COALESCE(e.description, '') AS description,
	e.type, e.status,
	COALESCE(e.location, '') AS location,
	COALESCE(e.image_url, '') AS image_url,
	COALESCE(e.organizer, '') AS organizer,
	e.capacity, e.coins, e.start_time, e.end_time,
	e.qr_token, e.qr_generated_at, e.created_at, e.updated_at,
	(SELECT COUNT(*) FROM event_attendees a WHERE a.event_id = e.id) AS attendee_count`

// scanEvent scans a row selected with eventColumns
func scanEvent(row pgx.Row) (*domain.Event, error) {
	event := &domain.Event{}
	var eventType, status string

	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.Description,
		&eventType,
		&status,
		&event.Location,
		&event.ImageURL,
		&event.Organizer,
		&event.Capacity,
		&event.Coins,
		&event.StartTime,
		&event.EndTime,
		&event.QRToken,
		&event.QRGeneratedAt,
		&event.CreatedAt,
		&event.UpdatedAt,
		&event.AttendeeCount,
	)
	if err != nil {
		return nil, err
	}

	event.Type = domain.EventType(eventType)
	event.Status = domain.EventStatus(status)
	return event, nil
}

// scanEvents scans multiple rows into Event structs
func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	events := make([]*domain.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func statusStrings(statuses []domain.EventStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Create creates a new event
func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (
			id, name, description, type, status, location, image_url, organizer,
			capacity, coins, start_time, end_time, qr_token, qr_generated_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Name,
		event.Description,
		string(event.Type),
		string(event.Status),
		event.Location,
		event.ImageURL,
		event.Organizer,
		event.Capacity,
		event.Coins,
		event.StartTime,
		event.EndTime,
		event.QRToken,
		event.QRGeneratedAt,
		event.CreatedAt,
		event.UpdatedAt,
	)
	return err
}

// GetByID retrieves an event by ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if !validID(id) {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM events e WHERE e.id = $1`, eventColumns)

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return event, nil
}

// GetByQRToken retrieves an event by its QR token
func (r *PostgresEventRepository) GetByQRToken(ctx context.Context, token string) (*domain.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events e WHERE e.qr_token = $1`, eventColumns)

	event, err := scanEvent(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return event, nil
}

// Update writes the attributes of an event under the event row lock that
// Register takes. The new capacity is checked against the attendee count
// read after the lock, and a REGISTRATION event whose capacity now equals the
// count is filled in the same transaction.
func (r *PostgresEventRepository) Update(ctx context.Context, event *domain.Event) error {
	if !validID(event.ID) {
		return domain.ErrEventNotFound
	}

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := lockEvent(ctx, tx, event.ID)
		if err != nil {
			return err
		}
		if event.Capacity != domain.UnlimitedCapacity && event.Capacity < current.AttendeeCount {
			return domain.ErrCapacityBelowCount
		}

		_, err = tx.Exec(ctx, `
			UPDATE events SET
				name = $2, description = $3, type = $4, location = $5, image_url = $6,
				organizer = $7, capacity = $8, coins = $9, start_time = $10, end_time = $11,
				updated_at = $12
			WHERE id = $1
		`,
			event.ID,
			event.Name,
			event.Description,
			string(event.Type),
			event.Location,
			event.ImageURL,
			event.Organizer,
			event.Capacity,
			event.Coins,
			event.StartTime,
			event.EndTime,
			event.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}

		event.Status, event.AttendeeCount = current.Status, current.AttendeeCount
		if next, changed := domain.RegistrationFilled(event, event.AttendeeCount); changed {
			if _, err := updateStatus(ctx, tx, event.ID, domain.TransitionFill.From, next); err != nil {
				return fmt.Errorf("mark event full: %w", err)
			}
			event.Status = next
		}
		return nil
	})
}

// lockEvent selects the event FOR UPDATE, then counts its attendees in a
// separate statement so the count sees every registration committed before
// the lock was granted.
func lockEvent(ctx context.Context, tx pgx.Tx, id string) (*domain.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events e WHERE e.id = $1 FOR UPDATE`, eventColumns)
	event, err := scanEvent(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("lock event: %w", err)
	}

	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM event_attendees WHERE event_id = $1`, id).Scan(&event.AttendeeCount)
	if err != nil {
		return nil, fmt.Errorf("count attendees: %w", err)
	}
	return event, nil
}

// validID reports whether id is a canonical UUID. Malformed ids never reach
// the uuid columns and read as missing rows.
func validID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}

// UpdateQRToken replaces the QR token of an event
func (r *PostgresEventRepository) UpdateQRToken(ctx context.Context, id, token string, generatedAt time.Time) error {
	if !validID(id) {
		return domain.ErrEventNotFound
	}
	query := `UPDATE events SET qr_token = $2, qr_generated_at = $3, updated_at = $3 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, token, generatedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

// Delete deletes an event. Attendees and tag links cascade.
func (r *PostgresEventRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrEventNotFound
	}
	result, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

// List lists events with filters and pagination
func (r *PostgresEventRepository) List(ctx context.Context, filter *EventFilter, limit, offset int) ([]*domain.Event, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argIndex := 1

	if filter != nil {
		if filter.Status != "" {
			conditions = append(conditions, fmt.Sprintf("e.status = $%d", argIndex))
			args = append(args, filter.Status)
			argIndex++
		}
		if filter.Type != "" {
			conditions = append(conditions, fmt.Sprintf("e.type = $%d", argIndex))
			args = append(args, filter.Type)
			argIndex++
		}
		if filter.Search != "" {
			conditions = append(conditions, fmt.Sprintf("(e.name ILIKE $%d OR e.description ILIKE $%d)", argIndex, argIndex))
			args = append(args, "%"+filter.Search+"%")
			argIndex++
		}
	}

	whereClause := strings.Join(conditions, " AND ")

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM events e WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM events e
		WHERE %s
		ORDER BY e.start_time ASC
		LIMIT $%d OFFSET $%d
	`, eventColumns, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// UpdateStatus performs a conditional status update
func (r *PostgresEventRepository) UpdateStatus(ctx context.Context, id string, from []domain.EventStatus, to domain.EventStatus) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	return updateStatus(ctx, r.pool, id, from, to)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func updateStatus(ctx context.Context, db execer, id string, from []domain.EventStatus, to domain.EventStatus) (bool, error) {
	result, err := db.Exec(ctx,
		`UPDATE events SET status = $2, updated_at = NOW() WHERE id = $1 AND status = ANY($3)`,
		id, string(to), statusStrings(from),
	)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// ListDueForStart lists events whose start time has been reached
func (r *PostgresEventRepository) ListDueForStart(ctx context.Context, now time.Time, limit int) ([]*domain.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM events e
		WHERE e.status = ANY($1) AND e.start_time <= $2
		ORDER BY e.start_time ASC
		LIMIT $3
	`, eventColumns)

	rows, err := r.pool.Query(ctx, query, statusStrings(domain.TransitionStart.From), now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListDueForClose lists ongoing events whose end time has been reached
func (r *PostgresEventRepository) ListDueForClose(ctx context.Context, now time.Time, limit int) ([]*domain.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM events e
		WHERE e.status = ANY($1) AND e.end_time <= $2
		ORDER BY e.end_time ASC
		LIMIT $3
	`, eventColumns)

	rows, err := r.pool.Query(ctx, query, statusStrings(domain.TransitionClose.From), now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListJoinedByUser lists the user's events in the given window
func (r *PostgresEventRepository) ListJoinedByUser(ctx context.Context, userID string, window JoinedWindow, now time.Time) ([]*domain.Event, error) {
	condition, order := "e.start_time > $2", "e.start_time ASC"
	if window == JoinedPast {
		condition, order = "e.end_time < $2", "e.end_time DESC"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM events e
		JOIN event_attendees ea ON ea.event_id = e.id
		WHERE ea.user_id = $1 AND %s
		ORDER BY %s
	`, eventColumns, condition, order)

	rows, err := r.pool.Query(ctx, query, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListDiscoverable lists events the user can still join
func (r *PostgresEventRepository) ListDiscoverable(ctx context.Context, userID string, now time.Time) ([]*domain.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM events e
		WHERE e.end_time > $2
		  AND e.status <> $3
		  AND (e.capacity = $4 OR
		       (SELECT COUNT(*) FROM event_attendees c WHERE c.event_id = e.id) < e.capacity)
		  AND NOT EXISTS (
		      SELECT 1 FROM event_attendees ea WHERE ea.event_id = e.id AND ea.user_id = $1
		  )
		ORDER BY e.start_time ASC
	`, eventColumns)

	rows, err := r.pool.Query(ctx, query, userID, now, string(domain.EventStatusClosed), domain.UnlimitedCapacity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// CountByStatus counts events in a status
func (r *PostgresEventRepository) CountByStatus(ctx context.Context, status domain.EventStatus) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE status = $1`, string(status)).Scan(&count)
	return count, err
}

// CountStartingBetween counts events starting within [from, to]
func (r *PostgresEventRepository) CountStartingBetween(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM events WHERE start_time >= $1 AND start_time <= $2`,
		from, to,
	).Scan(&count)
	return count, err
}

// CountAttendeesByStatus counts registrations across events in a status
func (r *PostgresEventRepository) CountAttendeesByStatus(ctx context.Context, status domain.EventStatus) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM event_attendees ea
		JOIN events e ON e.id = ea.event_id
		WHERE e.status = $1
	`, string(status)).Scan(&count)
	return count, err
}
