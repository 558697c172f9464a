package workshops

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/pkg/response"
	"github.com/campus-seminarios/backend/pkg/utils"
)

const selectWorkshop = `SELECT w.id, w.name, w.slug, w.description, w.created_at, w.updated_at,
	(SELECT COUNT(*) FROM seminars s WHERE s.workshop_id = w.id AND s.active)
	FROM workshops w`

// Input is a validated workshop create/update.
type Input struct {
	Name        string
	Description string
	SeminarIDs  []uuid.UUID
}

// Repository handles workshop persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a workshops repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanWorkshop(row pgx.Row) (*models.Workshop, error) {
	var w models.Workshop
	err := row.Scan(&w.ID, &w.Name, &w.Slug, &w.Description, &w.CreatedAt, &w.UpdatedAt, &w.SeminarCount)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// List returns a page of workshops ordered by name, optionally filtered by name.
func (r *Repository) List(ctx context.Context, search string, page response.Page) ([]*models.Workshop, int, error) {
	where, args := "", []interface{}{}
	if s := strings.TrimSpace(search); s != "" {
		args = append(args, "%"+s+"%")
		where = " WHERE w.name ILIKE $1"
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM workshops w`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	args = append(args, page.PerPage, page.Offset())
	rows, err := r.pool.Query(ctx, selectWorkshop+where+fmt.Sprintf(" ORDER BY w.name LIMIT $%d OFFSET $%d", n+1, n+2), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := []*models.Workshop{}
	for rows.Next() {
		w, err := scanWorkshop(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, w)
	}
	return list, total, rows.Err()
}

func (r *Repository) getOne(ctx context.Context, cond string, arg interface{}, activeOnly bool) (*models.Workshop, error) {
	w, err := scanWorkshop(r.pool.QueryRow(ctx, selectWorkshop+" WHERE "+cond, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	q := `SELECT id, name, slug, scheduled_at, location FROM seminars WHERE workshop_id = $1`
	if activeOnly {
		q += ` AND active`
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY scheduled_at ASC NULLS LAST, name`, w.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	w.Seminars = []models.SeminarSummary{}
	for rows.Next() {
		var s models.SeminarSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.ScheduledAt, &s.Location); err != nil {
			return nil, err
		}
		w.Seminars = append(w.Seminars, s)
	}
	return w, rows.Err()
}

// GetBySlug returns a workshop with its active seminars, or nil.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Workshop, error) {
	return r.getOne(ctx, "w.slug = $1", slug, true)
}

// GetByID returns a workshop with all its seminars, or nil.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Workshop, error) {
	return r.getOne(ctx, "w.id = $1", id, false)
}

// Create inserts a workshop and attaches the given seminars to it.
func (r *Repository) Create(ctx context.Context, in Input) (*models.Workshop, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	slug, err := utils.UniqueSlug(ctx, in.Name, slugTaken(tx, uuid.Nil))
	if err != nil {
		return nil, err
	}
	var id uuid.UUID
	err = tx.QueryRow(ctx, `INSERT INTO workshops (name, slug, description) VALUES ($1, $2, $3) RETURNING id`,
		in.Name, slug, in.Description).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert workshop: %w", err)
	}
	if err := attachSeminars(ctx, tx, id, in.SeminarIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Update saves a workshop and replaces its seminar set. Returns nil when missing.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, in Input) (*models.Workshop, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var currentName, slug string
	err = tx.QueryRow(ctx, `SELECT name, slug FROM workshops WHERE id = $1 FOR UPDATE`, id).Scan(&currentName, &slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if currentName != in.Name {
		if slug, err = utils.UniqueSlug(ctx, in.Name, slugTaken(tx, id)); err != nil {
			return nil, err
		}
	}
	_, err = tx.Exec(ctx, `UPDATE workshops SET name = $2, slug = $3, description = $4, updated_at = NOW() WHERE id = $1`,
		id, in.Name, slug, in.Description)
	if err != nil {
		return nil, fmt.Errorf("update workshop: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE seminars SET workshop_id = NULL WHERE workshop_id = $1`, id); err != nil {
		return nil, err
	}
	if err := attachSeminars(ctx, tx, id, in.SeminarIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a workshop; its seminars are kept and detached.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workshops WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func attachSeminars(ctx context.Context, tx pgx.Tx, workshopID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	_, err := tx.Exec(ctx, `UPDATE seminars SET workshop_id = $1, updated_at = NOW() WHERE id = ANY($2::uuid[])`, workshopID, strs)
	if err != nil {
		return fmt.Errorf("attach seminars: %w", err)
	}
	return nil
}

func slugTaken(tx pgx.Tx, except uuid.UUID) utils.SlugExistsFunc {
	return func(ctx context.Context, slug string) (bool, error) {
		var taken bool
		err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM workshops WHERE slug = $1 AND id <> $2)`, slug, except).Scan(&taken)
		return taken, err
	}
}
