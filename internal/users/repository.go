package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/pkg/response"
)

const userColumns = `id, name, email, password_hash, role, COALESCE(institution,''), COALESCE(description,''),
	course_id, google_id, created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &role, &u.Institution, &u.Description,
		&u.CourseID, &u.GoogleID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// GetByID returns a user by ID, or nil if missing.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email (case-insensitive), or nil if missing.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email)))
}

// GetByGoogleID returns the user linked to a Google account, or nil.
func (r *Repository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID))
}

// Create inserts u and fills its generated fields. u.Password must already be hashed.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (name, email, password_hash, role, institution, description, course_id, google_id)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7, $8)
		RETURNING id, created_at, updated_at`
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	err := r.pool.QueryRow(ctx, q, u.Name, strings.TrimSpace(u.Email), u.Password, string(u.Role),
		u.Institution, u.Description, u.CourseID, u.GoogleID).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return models.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// SetGoogleID links a Google account to an existing user.
func (r *Repository) SetGoogleID(ctx context.Context, id uuid.UUID, googleID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET google_id = $2, updated_at = NOW() WHERE id = $1`, id, googleID)
	return err
}

// UpdatePassword stores a new password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	return err
}

// ProfileUpdate holds the user-editable profile fields.
type ProfileUpdate struct {
	Name        string
	Institution string
	Description string
	CourseID    *int64
}

// UpdateProfile saves profile fields and returns the updated user, or nil if missing.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, p ProfileUpdate) (*models.User, error) {
	const q = `UPDATE users SET name = $2, institution = NULLIF($3,''), description = NULLIF($4,''), course_id = $5, updated_at = NOW()
		WHERE id = $1 RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, id, p.Name, p.Institution, p.Description, p.CourseID))
}

// ListFilter narrows a user listing.
type ListFilter struct {
	Search string
	Role   models.Role
}

func (f ListFilter) where() (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.Role != "" {
		args = append(args, string(f.Role))
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of users ordered by name, plus the total count.
func (r *Repository) List(ctx context.Context, f ListFilter, page response.Page) ([]models.UserPublic, int, error) {
	where, args := f.where()
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	args = append(args, page.PerPage, page.Offset())
	q := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY name, email LIMIT $%d OFFSET $%d`, userColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	list := make([]models.UserPublic, 0, page.PerPage)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, u.ToPublic())
	}
	return list, total, rows.Err()
}

// ListSpeakers returns one page of speakers matching search.
func (r *Repository) ListSpeakers(ctx context.Context, search string, page response.Page) ([]models.Speaker, int, error) {
	users, total, err := r.List(ctx, ListFilter{Search: search, Role: models.RoleSpeaker}, page)
	if err != nil {
		return nil, 0, err
	}
	out := make([]models.Speaker, len(users))
	for i, u := range users {
		out[i] = SpeakerOf(u)
	}
	return out, total, nil
}

// SpeakerOf converts a user to its speaker view.
func SpeakerOf(u models.UserPublic) models.Speaker {
	return models.Speaker{ID: u.ID, Name: u.Name, Email: u.Email, Institution: u.Institution, Description: u.Description}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
