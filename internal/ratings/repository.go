package ratings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/pkg/response"
)

// ErrAlreadyRated is returned when the user already rated the seminar.
var ErrAlreadyRated = errors.New("already rated")

// Repository handles rating persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a ratings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create stores a rating. Returns ErrAlreadyRated on a duplicate.
func (r *Repository) Create(ctx context.Context, rt *models.Rating) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO ratings (seminar_id, user_id, score, comment) VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`, rt.SeminarID, rt.UserID, rt.Score, rt.Comment).Scan(&rt.ID, &rt.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyRated
	}
	return err
}

// Get returns the user's rating of a seminar, or nil.
func (r *Repository) Get(ctx context.Context, seminarID, userID uuid.UUID) (*models.Rating, error) {
	var rt models.Rating
	err := r.pool.QueryRow(ctx, `SELECT id, seminar_id, user_id, score, comment, created_at FROM ratings
		WHERE seminar_id = $1 AND user_id = $2`, seminarID, userID).
		Scan(&rt.ID, &rt.SeminarID, &rt.UserID, &rt.Score, &rt.Comment, &rt.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// Evaluations returns a page of the seminars the user attended that already happened,
// each with the user's rating when there is one. Unrated seminars come first.
func (r *Repository) Evaluations(ctx context.Context, userID uuid.UUID, now time.Time, page response.Page) ([]models.PendingEvaluation, int, error) {
	const from = ` FROM registrations r JOIN seminars s ON s.id = r.seminar_id
		LEFT JOIN ratings rt ON rt.seminar_id = r.seminar_id AND rt.user_id = r.user_id
		WHERE r.user_id = $1 AND r.present AND s.scheduled_at < $2`
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from, userID, now).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT s.id, s.name, s.slug, s.scheduled_at, s.location,
		rt.id, rt.score, rt.comment, rt.created_at`+from+`
		ORDER BY (rt.id IS NOT NULL), s.scheduled_at DESC
		LIMIT $3 OFFSET $4`, userID, now, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := []models.PendingEvaluation{}
	for rows.Next() {
		var (
			e         models.PendingEvaluation
			id        *int64
			score     *int
			comment   *string
			createdAt *time.Time
		)
		if err := rows.Scan(&e.Seminar.ID, &e.Seminar.Name, &e.Seminar.Slug, &e.Seminar.ScheduledAt, &e.Seminar.Location,
			&id, &score, &comment, &createdAt); err != nil {
			return nil, 0, err
		}
		if id != nil {
			e.Rating = &models.Rating{ID: *id, SeminarID: e.Seminar.ID, UserID: userID, Score: *score, Comment: comment, CreatedAt: *createdAt}
		}
		list = append(list, e)
	}
	return list, total, rows.Err()
}

// Summary is the aggregate of a seminar's ratings.
type Summary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// SummaryBySeminar aggregates a seminar's ratings.
func (r *Repository) SummaryBySeminar(ctx context.Context, seminarID uuid.UUID) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(AVG(score), 0)::float8 FROM ratings WHERE seminar_id = $1`, seminarID).
		Scan(&s.Count, &s.Average)
	return s, err
}
