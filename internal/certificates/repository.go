package certificates

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-seminarios/backend/internal/models"
)

const selectRecord = `SELECT r.id, r.user_id, r.present, r.certificate_code, r.certificate_issued_at,
	u.name, u.email, s.id, s.name, s.slug, s.scheduled_at, s.location
	FROM registrations r
	JOIN users u ON u.id = r.user_id
	JOIN seminars s ON s.id = r.seminar_id`

// Record is a registration with what a certificate needs to be rendered.
type Record struct {
	RegistrationID uuid.UUID
	UserID         uuid.UUID
	Present        bool
	Code           *string
	IssuedAt       *time.Time
	UserName       string
	UserEmail      string
	Seminar        models.SeminarSummary
}

// Issued reports whether a certificate code has been assigned.
func (r *Record) Issued() bool { return r.Code != nil && r.IssuedAt != nil }

// Repository reads and assigns certificate codes on registrations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a certificates repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.RegistrationID, &rec.UserID, &rec.Present, &rec.Code, &rec.IssuedAt,
		&rec.UserName, &rec.UserEmail, &rec.Seminar.ID, &rec.Seminar.Name, &rec.Seminar.Slug,
		&rec.Seminar.ScheduledAt, &rec.Seminar.Location)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) one(ctx context.Context, cond string, arg interface{}) (*Record, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx, selectRecord+" WHERE "+cond, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// ByRegistration returns the record of a registration, or nil.
func (r *Repository) ByRegistration(ctx context.Context, registrationID uuid.UUID) (*Record, error) {
	return r.one(ctx, "r.id = $1", registrationID)
}

// ByCode returns the record holding a certificate code, or nil.
func (r *Repository) ByCode(ctx context.Context, code string) (*Record, error) {
	return r.one(ctx, "r.certificate_code = $1", code)
}

// Assign sets code and issuedAt on a present registration unless a code is already set, and
// returns the code in effect. The second result reports whether this call assigned it.
func (r *Repository) Assign(ctx context.Context, registrationID uuid.UUID, code string, issuedAt time.Time) (string, bool, error) {
	var current string
	err := r.pool.QueryRow(ctx, `UPDATE registrations SET certificate_code = $2, certificate_issued_at = $3, updated_at = NOW()
		WHERE id = $1 AND present AND certificate_code IS NULL
		RETURNING certificate_code`, registrationID, code, issuedAt).Scan(&current)
	if err == nil {
		return current, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, err
	}
	var existing *string
	err = r.pool.QueryRow(ctx, `SELECT certificate_code FROM registrations WHERE id = $1`, registrationID).Scan(&existing)
	if err != nil {
		return "", false, err
	}
	if existing == nil {
		return "", false, ErrNotPresent
	}
	return *existing, false, nil
}

// ListByUser returns the user's issued certificates, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Record, error) {
	rows, err := r.pool.Query(ctx, selectRecord+` WHERE r.user_id = $1 AND r.certificate_code IS NOT NULL
		ORDER BY r.certificate_issued_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// PendingBySeminar returns the ids of present registrations of a seminar without a certificate.
func (r *Repository) PendingBySeminar(ctx context.Context, seminarID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM registrations WHERE seminar_id = $1 AND present AND certificate_code IS NULL`, seminarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
