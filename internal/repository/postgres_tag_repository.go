package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/pkg/database"
)

// PostgresTagRepository implements TagRepository using PostgreSQL
type PostgresTagRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTagRepository creates a new PostgresTagRepository
func NewPostgresTagRepository(pool *pgxpool.Pool) *PostgresTagRepository {
	return &PostgresTagRepository{pool: pool}
}

func scanTags(rows pgx.Rows) ([]*domain.Tag, error) {
	tags := make([]*domain.Tag, 0)
	for rows.Next() {
		tag := &domain.Tag{}
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// List lists every tag
func (r *PostgresTagRepository) List(ctx context.Context) ([]*domain.Tag, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTags(rows)
}

// ListByEvent lists the tags of an event
func (r *PostgresTagRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Tag, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.name, t.created_at FROM tags t
		JOIN event_tags et ON et.tag_id = t.id
		WHERE et.event_id = $1
		ORDER BY t.name
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTags(rows)
}

// Attach upserts the tag and links it to the event
func (r *PostgresTagRepository) Attach(ctx context.Context, eventID, name string) (*domain.Tag, error) {
	tag := &domain.Tag{}

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		// DO UPDATE so RETURNING yields the existing row too
		err := tx.QueryRow(ctx, `
			INSERT INTO tags (id, name, created_at) VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id, name, created_at
		`, uuid.New().String(), name, time.Now()).Scan(&tag.ID, &tag.Name, &tag.CreatedAt)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO event_tags (event_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			eventID, tag.ID,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// Detach removes the link between an event and a tag
func (r *PostgresTagRepository) Detach(ctx context.Context, eventID, name string) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM event_tags et
		USING tags t
		WHERE et.tag_id = t.id AND et.event_id = $1 AND t.name = $2
	`, eventID, name)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
