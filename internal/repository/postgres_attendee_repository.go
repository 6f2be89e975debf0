package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/pkg/database"
)

const pgUniqueViolation = "23505"

// PostgresAttendeeRepository implements AttendeeRepository using PostgreSQL
type PostgresAttendeeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAttendeeRepository creates a new PostgresAttendeeRepository
func NewPostgresAttendeeRepository(pool *pgxpool.Pool) *PostgresAttendeeRepository {
	return &PostgresAttendeeRepository{pool: pool}
}

const attendeeColumns = `id, event_id, user_id, user_email, username, attended, registered_at, attended_at`

func scanAttendee(row pgx.Row) (*domain.Attendee, error) {
	a := &domain.Attendee{}
	err := row.Scan(
		&a.ID,
		&a.EventID,
		&a.UserID,
		&a.UserEmail,
		&a.Username,
		&a.Attended,
		&a.RegisteredAt,
		&a.AttendedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Register inserts the attendee inside a transaction that locks the event
// row, so concurrent registrations for one event are serialized on it.
func (r *PostgresAttendeeRepository) Register(ctx context.Context, attendee *domain.Attendee) (*domain.Event, error) {
	if !validID(attendee.EventID) {
		return nil, domain.ErrEventNotFound
	}

	var event *domain.Event
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		event, err = lockEvent(ctx, tx, attendee.EventID)
		if err != nil {
			return err
		}

		var exists bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM event_attendees WHERE event_id = $1 AND user_id = $2)`,
			attendee.EventID, attendee.UserID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check registration: %w", err)
		}
		if exists {
			return domain.ErrAlreadyRegistered
		}

		if err := domain.CheckRegistration(event, event.AttendeeCount); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO event_attendees (id, event_id, user_id, user_email, username, attended, registered_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		`, attendee.ID, attendee.EventID, attendee.UserID, attendee.UserEmail, attendee.Username, attendee.RegisteredAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return domain.ErrAlreadyRegistered
			}
			return fmt.Errorf("insert attendee: %w", err)
		}
		event.AttendeeCount++

		if next, changed := domain.RegistrationFilled(event, event.AttendeeCount); changed {
			if _, err := updateStatus(ctx, tx, event.ID, domain.TransitionFill.From, next); err != nil {
				return fmt.Errorf("mark event full: %w", err)
			}
			event.Status = next
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// Exists reports whether the user is registered for the event
func (r *PostgresAttendeeRepository) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	if !validID(eventID) {
		return false, nil
	}
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM event_attendees WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&exists)
	return exists, err
}

// Get retrieves one registration
func (r *PostgresAttendeeRepository) Get(ctx context.Context, eventID, userID string) (*domain.Attendee, error) {
	if !validID(eventID) {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM event_attendees WHERE event_id = $1 AND user_id = $2`, attendeeColumns)

	a, err := scanAttendee(r.pool.QueryRow(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// MarkAttended flips attended once. A concurrent second scan affects no rows.
func (r *PostgresAttendeeRepository) MarkAttended(ctx context.Context, eventID, userID string, at time.Time) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE event_attendees SET attended = TRUE, attended_at = $3
		WHERE event_id = $1 AND user_id = $2 AND attended = FALSE
	`, eventID, userID, at)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// Delete removes a registration
func (r *PostgresAttendeeRepository) Delete(ctx context.Context, eventID, userID string) (bool, error) {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// ListByEvent lists registrations of an event
func (r *PostgresAttendeeRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Attendee, error) {
	query := fmt.Sprintf(`SELECT %s FROM event_attendees WHERE event_id = $1 ORDER BY registered_at ASC`, attendeeColumns)

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attendees := make([]*domain.Attendee, 0)
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		attendees = append(attendees, a)
	}
	return attendees, rows.Err()
}

// CountByEvent counts registrations of an event
func (r *PostgresAttendeeRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM event_attendees WHERE event_id = $1`, eventID).Scan(&count)
	return count, err
}
