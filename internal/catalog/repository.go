// Package catalog serves the small lookup tables used by forms: seminar types and courses.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-seminarios/backend/internal/models"
)

// ErrDuplicate is returned when a name is already in use.
var ErrDuplicate = errors.New("catalog: duplicate name")

// Repository reads and writes lookup tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a catalog repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SeminarTypes returns all seminar types by name.
func (r *Repository) SeminarTypes(ctx context.Context) ([]models.SeminarType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM seminar_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.SeminarType{}
	for rows.Next() {
		var t models.SeminarType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Courses returns all courses by name.
func (r *Repository) Courses(ctx context.Context) ([]models.Course, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM courses ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Course{}
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// CreateSeminarType inserts a seminar type.
func (r *Repository) CreateSeminarType(ctx context.Context, name string) (*models.SeminarType, error) {
	t := models.SeminarType{Name: strings.TrimSpace(name)}
	err := r.pool.QueryRow(ctx, `INSERT INTO seminar_types (name) VALUES ($1) RETURNING id`, t.Name).Scan(&t.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &t, nil
}

// CreateCourse inserts a course.
func (r *Repository) CreateCourse(ctx context.Context, name string) (*models.Course, error) {
	c := models.Course{Name: strings.TrimSpace(name)}
	err := r.pool.QueryRow(ctx, `INSERT INTO courses (name) VALUES ($1) RETURNING id`, c.Name).Scan(&c.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &c, nil
}
