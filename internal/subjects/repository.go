package subjects

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-seminarios/backend/internal/models"
)

const searchLimit = 20

// Repository handles subject persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a subjects repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns subjects with their active seminar counts. A search term narrows by name
// and caps the result for autocomplete.
func (r *Repository) List(ctx context.Context, search string) ([]models.Subject, error) {
	q := `SELECT sb.id, sb.name, sb.slug,
		(SELECT COUNT(*) FROM seminar_subjects ss JOIN seminars s ON s.id = ss.seminar_id
			WHERE ss.subject_id = sb.id AND s.active)
		FROM subjects sb`
	var args []interface{}
	if s := strings.TrimSpace(search); s != "" {
		args = append(args, "%"+s+"%", searchLimit)
		q += ` WHERE sb.name ILIKE $1 ORDER BY sb.name LIMIT $2`
	} else {
		q += ` ORDER BY sb.name`
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Subject{}
	for rows.Next() {
		var s models.Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.SeminarCount); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// GetBySlug returns a subject, or nil.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Subject, error) {
	var s models.Subject
	err := r.pool.QueryRow(ctx, `SELECT id, name, slug FROM subjects WHERE slug = $1`, slug).Scan(&s.ID, &s.Name, &s.Slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
