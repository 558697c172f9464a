package emaillogs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-seminarios/backend/internal/models"
)

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create records one delivery attempt.
func (r *Repository) Create(ctx context.Context, el *models.EmailLog) error {
	const q = `INSERT INTO email_logs (seminar_id, user_id, email_type, recipient_email, subject, status, job_id, sent_at, error_message)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8, NULLIF($9, ''))
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, el.SeminarID, el.UserID, el.EmailType, el.RecipientEmail, el.Subject,
		el.Status, el.JobID, el.SentAt, el.ErrorMessage).Scan(&el.ID, &el.CreatedAt)
}

// ListBySeminar returns email logs for a seminar, newest first.
func (r *Repository) ListBySeminar(ctx context.Context, seminarID uuid.UUID) ([]*models.EmailLog, error) {
	const q = `SELECT id, seminar_id, user_id, email_type, recipient_email, subject, status, job_id, sent_at, error_message, created_at
		FROM email_logs
		WHERE seminar_id = $1
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, seminarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.EmailLog{}
	for rows.Next() {
		var el models.EmailLog
		var subject, jobID, errMsg *string
		if err := rows.Scan(&el.ID, &el.SeminarID, &el.UserID, &el.EmailType, &el.RecipientEmail, &subject, &el.Status,
			&jobID, &el.SentAt, &errMsg, &el.CreatedAt); err != nil {
			return nil, err
		}
		if subject != nil {
			el.Subject = *subject
		}
		if jobID != nil {
			el.JobID = *jobID
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}

// SentForJob reports whether a job already produced a sent email.
func (r *Repository) SentForJob(ctx context.Context, jobID string) (bool, error) {
	var sent bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM email_logs WHERE job_id = $1 AND status = $2)`,
		jobID, models.EmailLogStatusSent).Scan(&sent)
	return sent, err
}
