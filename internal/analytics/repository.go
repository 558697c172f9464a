package analytics

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Counts are the raw aggregates of one seminar.
type Counts struct {
	Registrations int
	Present       int
	Certificates  int
	Ratings       int
	ScoreSum      int
	EmailsSent    int
	EmailsFailed  int
}

// Repository aggregates seminar activity.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SeminarCounts returns the aggregates of a seminar, or nil when it does not exist.
func (r *Repository) SeminarCounts(ctx context.Context, seminarID uuid.UUID) (*Counts, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM registrations WHERE seminar_id = s.id),
		(SELECT COUNT(*) FROM registrations WHERE seminar_id = s.id AND present),
		(SELECT COUNT(*) FROM registrations WHERE seminar_id = s.id AND certificate_code IS NOT NULL),
		(SELECT COUNT(*) FROM ratings WHERE seminar_id = s.id),
		(SELECT COALESCE(SUM(score), 0) FROM ratings WHERE seminar_id = s.id),
		(SELECT COUNT(*) FROM email_logs WHERE seminar_id = s.id AND status = 'sent'),
		(SELECT COUNT(*) FROM email_logs WHERE seminar_id = s.id AND status = 'failed')
		FROM seminars s WHERE s.id = $1`
	var c Counts
	err := r.pool.QueryRow(ctx, q, seminarID).Scan(&c.Registrations, &c.Present, &c.Certificates,
		&c.Ratings, &c.ScoreSum, &c.EmailsSent, &c.EmailsFailed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
