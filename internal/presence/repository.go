package presence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-seminarios/backend/internal/models"
)

const linkColumns = `id, seminar_id, active, expires_at, created_by, created_at, updated_at`

// Repository handles presence links and presence marking.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a presence repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanLink(row pgx.Row) (*models.PresenceLink, error) {
	var l models.PresenceLink
	err := row.Scan(&l.ID, &l.SeminarID, &l.Active, &l.ExpiresAt, &l.CreatedBy, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetLink returns a link by its public uuid, or nil.
func (r *Repository) GetLink(ctx context.Context, id uuid.UUID) (*models.PresenceLink, error) {
	return scanLink(r.pool.QueryRow(ctx, `SELECT `+linkColumns+` FROM presence_links WHERE id = $1`, id))
}

// GetLinkBySeminar returns the link of a seminar, or nil.
func (r *Repository) GetLinkBySeminar(ctx context.Context, seminarID uuid.UUID) (*models.PresenceLink, error) {
	return scanLink(r.pool.QueryRow(ctx, `SELECT `+linkColumns+` FROM presence_links WHERE seminar_id = $1`, seminarID))
}

// SaveLink creates the seminar's link, or moves the expiry of the existing one and
// reactivates it. The uuid of an existing link never changes.
func (r *Repository) SaveLink(ctx context.Context, seminarID uuid.UUID, expiresAt time.Time, createdBy uuid.UUID) (*models.PresenceLink, error) {
	return scanLink(r.pool.QueryRow(ctx, `INSERT INTO presence_links (seminar_id, active, expires_at, created_by)
		VALUES ($1, TRUE, $2, $3)
		ON CONFLICT (seminar_id) DO UPDATE SET active = TRUE, expires_at = EXCLUDED.expires_at, updated_at = NOW()
		RETURNING `+linkColumns, seminarID, expiresAt, createdBy))
}

// ToggleLink flips the active flag. Returns nil when the link does not exist.
func (r *Repository) ToggleLink(ctx context.Context, id uuid.UUID) (*models.PresenceLink, error) {
	return scanLink(r.pool.QueryRow(ctx, `UPDATE presence_links SET active = NOT active, updated_at = NOW()
		WHERE id = $1 RETURNING `+linkColumns, id))
}

// MarkPresent upserts the user's registration as present in one statement. A missing
// registration is created already present. Returns ErrAlreadyPresent when the existing
// registration was already present.
func (r *Repository) MarkPresent(ctx context.Context, seminarID, userID uuid.UUID) (*models.Registration, error) {
	var reg models.Registration
	err := r.pool.QueryRow(ctx, `INSERT INTO registrations (seminar_id, user_id, present) VALUES ($1, $2, TRUE)
		ON CONFLICT (seminar_id, user_id) DO UPDATE SET present = TRUE, updated_at = NOW()
		WHERE registrations.present = FALSE
		RETURNING id, seminar_id, user_id, present, certificate_code, certificate_issued_at, created_at, updated_at`,
		seminarID, userID).Scan(&reg.ID, &reg.SeminarID, &reg.UserID, &reg.Present, &reg.CertificateCode,
		&reg.CertificateIssuedAt, &reg.CreatedAt, &reg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlreadyPresent
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}
