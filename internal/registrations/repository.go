package registrations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/pkg/response"
)

// ErrAlreadyRegistered is returned when the user already holds a registration.
var ErrAlreadyRegistered = errors.New("already registered")

const registrationColumns = `r.id, r.seminar_id, r.user_id, r.present, r.certificate_code, r.certificate_issued_at, r.created_at, r.updated_at`

// Target is one user and the seminars a reminder should list.
type Target struct {
	UserID     uuid.UUID
	SeminarIDs []uuid.UUID
}

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRegistration(row pgx.Row, extra ...interface{}) (*models.Registration, error) {
	var reg models.Registration
	dest := append([]interface{}{&reg.ID, &reg.SeminarID, &reg.UserID, &reg.Present, &reg.CertificateCode,
		&reg.CertificateIssuedAt, &reg.CreatedAt, &reg.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Create registers userID for seminarID. Returns ErrAlreadyRegistered on a duplicate.
func (r *Repository) Create(ctx context.Context, seminarID, userID uuid.UUID) (*models.Registration, error) {
	reg, err := scanRegistration(r.pool.QueryRow(ctx, `INSERT INTO registrations AS r (seminar_id, user_id) VALUES ($1, $2)
		ON CONFLICT (seminar_id, user_id) DO NOTHING
		RETURNING `+registrationColumns, seminarID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlreadyRegistered
	}
	return reg, err
}

// Get returns the registration of userID for seminarID, or nil.
func (r *Repository) Get(ctx context.Context, seminarID, userID uuid.UUID) (*models.Registration, error) {
	reg, err := scanRegistration(r.pool.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations r
		WHERE r.seminar_id = $1 AND r.user_id = $2`, seminarID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return reg, err
}

// GetByID returns a registration, or nil.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	reg, err := scanRegistration(r.pool.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations r WHERE r.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return reg, err
}

// Delete removes a registration that is not yet marked present. Reports whether a row was removed.
func (r *Repository) Delete(ctx context.Context, seminarID, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM registrations WHERE seminar_id = $1 AND user_id = $2 AND NOT present`, seminarID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListByUser returns a page of the user's registrations, most recent seminar first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, page response.Page) ([]models.RegistrationWithSeminar, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+registrationColumns+`, s.id, s.name, s.slug, s.scheduled_at, s.location
		FROM registrations r JOIN seminars s ON s.id = r.seminar_id
		WHERE r.user_id = $1
		ORDER BY s.scheduled_at DESC NULLS LAST, r.created_at DESC
		LIMIT $2 OFFSET $3`, userID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := []models.RegistrationWithSeminar{}
	for rows.Next() {
		var s models.SeminarSummary
		reg, err := scanRegistration(rows, &s.ID, &s.Name, &s.Slug, &s.ScheduledAt, &s.Location)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, models.RegistrationWithSeminar{Registration: *reg, Seminar: s})
	}
	return list, total, rows.Err()
}

// ListBySeminar returns every registrant of a seminar ordered by name.
func (r *Repository) ListBySeminar(ctx context.Context, seminarID uuid.UUID) ([]models.Registrant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+registrationColumns+`, u.name, u.email
		FROM registrations r JOIN users u ON u.id = r.user_id
		WHERE r.seminar_id = $1
		ORDER BY u.name`, seminarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Registrant{}
	for rows.Next() {
		var name, email string
		reg, err := scanRegistration(rows, &name, &email)
		if err != nil {
			return nil, err
		}
		list = append(list, models.Registrant{Registration: *reg, UserName: name, UserEmail: email})
	}
	return list, rows.Err()
}

// CountPresent returns how many registrants of a seminar are marked present.
func (r *Repository) CountPresent(ctx context.Context, seminarID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE seminar_id = $1 AND present`, seminarID).Scan(&n)
	return n, err
}

// ScheduledBetween groups, per user, the active seminars they registered for whose date
// falls in [from, to).
func (r *Repository) ScheduledBetween(ctx context.Context, from, to time.Time) ([]Target, error) {
	return r.targets(ctx, `SELECT r.user_id, r.seminar_id
		FROM registrations r JOIN seminars s ON s.id = r.seminar_id
		WHERE s.active AND s.scheduled_at >= $1 AND s.scheduled_at < $2
		ORDER BY r.user_id, s.scheduled_at`, from, to)
}

// UnratedBetween groups, per user, the seminars in [from, to) where the user was present and
// has not left a rating.
func (r *Repository) UnratedBetween(ctx context.Context, from, to time.Time) ([]Target, error) {
	return r.targets(ctx, `SELECT r.user_id, r.seminar_id
		FROM registrations r JOIN seminars s ON s.id = r.seminar_id
		WHERE r.present AND s.scheduled_at >= $1 AND s.scheduled_at < $2
		AND NOT EXISTS (SELECT 1 FROM ratings rt WHERE rt.seminar_id = r.seminar_id AND rt.user_id = r.user_id)
		ORDER BY r.user_id, s.scheduled_at`, from, to)
}

func (r *Repository) targets(ctx context.Context, q string, args ...interface{}) ([]Target, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pairs [][2]uuid.UUID
	for rows.Next() {
		var p [2]uuid.UUID
		if err := rows.Scan(&p[0], &p[1]); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return GroupByUser(pairs), nil
}

// GroupByUser folds ordered (user, seminar) pairs into one Target per user, keeping order.
func GroupByUser(pairs [][2]uuid.UUID) []Target {
	var out []Target
	index := make(map[uuid.UUID]int)
	for _, p := range pairs {
		i, ok := index[p[0]]
		if !ok {
			i = len(out)
			index[p[0]] = i
			out = append(out, Target{UserID: p[0]})
		}
		out[i].SeminarIDs = append(out[i].SeminarIDs, p[1])
	}
	return out
}
