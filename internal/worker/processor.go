// Package worker delivers queued email and schedules the daily reminder jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/auth"
	"github.com/campus-seminarios/backend/internal/certificates"
	"github.com/campus-seminarios/backend/internal/mail"
	"github.com/campus-seminarios/backend/internal/metrics"
	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/notifications"
	"github.com/campus-seminarios/backend/pkg/queue"
)

// errDrop marks a job that can never succeed, such as one whose user was deleted.
var errDrop = errors.New("job dropped")

// JobQueue is the part of the queue the processor consumes.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration, queues ...string) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// UserFinder loads recipients.
type UserFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SeminarFinder loads the seminars listed in a job.
type SeminarFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Seminar, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*models.Seminar, error)
}

// CertificateRenderer draws the PDF of a registration's certificate.
type CertificateRenderer interface {
	RenderRegistration(ctx context.Context, registrationID uuid.UUID) (*certificates.Record, []byte, error)
}

// LogStore persists delivery attempts.
type LogStore interface {
	Create(ctx context.Context, el *models.EmailLog) error
	SentForJob(ctx context.Context, jobID string) (bool, error)
}

// EmailProcessor turns email jobs into delivered messages.
type EmailProcessor struct {
	queue        JobQueue
	users        UserFinder
	seminars     SeminarFinder
	certificates CertificateRenderer
	builder      *notifications.Builder
	sender       mail.Sender
	logs         LogStore
	logger       *zap.Logger
	poll         time.Duration
	backoff      time.Duration
	now          func() time.Time
}

// NewEmailProcessor creates an email processor.
func NewEmailProcessor(q JobQueue, users UserFinder, seminars SeminarFinder, certs CertificateRenderer,
	builder *notifications.Builder, sender mail.Sender, logs LogStore, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{
		queue:        q,
		users:        users,
		seminars:     seminars,
		certificates: certs,
		builder:      builder,
		sender:       sender,
		logs:         logs,
		logger:       logger,
		poll:         queue.PollTimeout,
		backoff:      queue.RetryBackoff,
		now:          time.Now,
	}
}

// delivery is a built message plus the ids its log rows refer to.
type delivery struct {
	msg      *mail.Message
	userID   *uuid.UUID
	seminars []uuid.UUID
}

// Process executes one email job. A job that already produced a sent email is skipped.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	sent, err := p.logs.SentForJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("check job %s: %w", job.ID, err)
	}
	if sent {
		p.logger.Info("job already delivered", zap.String("job_id", job.ID))
		return nil
	}

	d, err := p.build(ctx, job)
	if errors.Is(err, errDrop) {
		p.logger.Warn("job dropped", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}

	sendErr := p.sender.Send(ctx, d.msg)
	status := models.EmailLogStatusSent
	if sendErr != nil {
		status = models.EmailLogStatusFailed
	}
	metrics.EmailsSent.WithLabelValues(d.msg.Type, status).Inc()
	p.record(ctx, job, d, sendErr)
	if sendErr != nil {
		return fmt.Errorf("send %s: %w", d.msg.Type, sendErr)
	}
	p.logger.Info("email sent", zap.String("job_id", job.ID), zap.String("type", d.msg.Type), zap.String("to", d.msg.Recipient()))
	return nil
}

// record writes one log row per seminar in the message, or one without a seminar.
func (p *EmailProcessor) record(ctx context.Context, job *queue.Job, d *delivery, sendErr error) {
	el := models.EmailLog{
		UserID:         d.userID,
		EmailType:      d.msg.Type,
		RecipientEmail: d.msg.Recipient(),
		Subject:        d.msg.Subject,
		Status:         models.EmailLogStatusSent,
		JobID:          job.ID,
	}
	if sendErr != nil {
		el.Status = models.EmailLogStatusFailed
		el.ErrorMessage = sendErr.Error()
	} else {
		at := p.now()
		el.SentAt = &at
	}
	seminarIDs := d.seminars
	if len(seminarIDs) == 0 {
		seminarIDs = []uuid.UUID{uuid.Nil}
	}
	for _, id := range seminarIDs {
		row := el
		if id != uuid.Nil {
			row.SeminarID = &id
		}
		if err := p.logs.Create(ctx, &row); err != nil {
			p.logger.Error("write email log", zap.Error(err), zap.String("job_id", job.ID))
		}
	}
}

func (p *EmailProcessor) build(ctx context.Context, job *queue.Job) (*delivery, error) {
	switch job.Type {
	case queue.JobTypeSeminarReminder:
		var payload queue.SeminarReminderPayload
		if err := job.Decode(&payload); err != nil {
			return nil, fmt.Errorf("%w: %v", errDrop, err)
		}
		u, list, err := p.recipientAndSeminars(ctx, payload.UserID, payload.SeminarIDs)
		if err != nil {
			return nil, err
		}
		msg, err := p.builder.SeminarReminder(u, list, payload.Now)
		if err != nil {
			return nil, err
		}
		return &delivery{msg: msg, userID: &u.ID, seminars: ids(list)}, nil

	case queue.JobTypeEvaluationReminder:
		var payload queue.EvaluationReminderPayload
		if err := job.Decode(&payload); err != nil {
			return nil, fmt.Errorf("%w: %v", errDrop, err)
		}
		u, list, err := p.recipientAndSeminars(ctx, payload.UserID, payload.SeminarIDs)
		if err != nil {
			return nil, err
		}
		msg, err := p.builder.EvaluationReminder(u, list)
		if err != nil {
			return nil, err
		}
		return &delivery{msg: msg, userID: &u.ID, seminars: ids(list)}, nil

	case queue.JobTypeCertificateIssued:
		var payload queue.CertificateIssuedPayload
		if err := job.Decode(&payload); err != nil {
			return nil, fmt.Errorf("%w: %v", errDrop, err)
		}
		rec, pdf, err := p.certificates.RenderRegistration(ctx, payload.RegistrationID)
		if errors.Is(err, certificates.ErrNotFound) {
			return nil, fmt.Errorf("%w: certificate of registration %s", errDrop, payload.RegistrationID)
		}
		if err != nil {
			return nil, fmt.Errorf("render certificate: %w", err)
		}
		u, err := p.user(ctx, rec.UserID)
		if err != nil {
			return nil, err
		}
		s, err := p.seminars.GetByID(ctx, rec.Seminar.ID)
		if err != nil {
			return nil, fmt.Errorf("load seminar: %w", err)
		}
		if s == nil {
			return nil, fmt.Errorf("%w: seminar %s", errDrop, rec.Seminar.ID)
		}
		msg, err := p.builder.CertificateGenerated(u, s, *rec.Code, pdf)
		if err != nil {
			return nil, err
		}
		return &delivery{msg: msg, userID: &u.ID, seminars: []uuid.UUID{s.ID}}, nil

	case queue.JobTypePasswordReset:
		var payload queue.PasswordResetPayload
		if err := job.Decode(&payload); err != nil {
			return nil, fmt.Errorf("%w: %v", errDrop, err)
		}
		u, err := p.user(ctx, payload.UserID)
		if err != nil {
			return nil, err
		}
		msg, err := p.builder.PasswordReset(u, payload.Token, auth.ResetTokenTTL)
		if err != nil {
			return nil, err
		}
		return &delivery{msg: msg, userID: &u.ID}, nil
	}
	return nil, fmt.Errorf("%w: unknown job type %q", errDrop, job.Type)
}

func (p *EmailProcessor) user(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := p.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user %s", errDrop, id)
	}
	return u, nil
}

// recipientAndSeminars loads the user and the still active seminars of a reminder.
func (p *EmailProcessor) recipientAndSeminars(ctx context.Context, userID uuid.UUID, seminarIDs []uuid.UUID) (*models.User, []*models.Seminar, error) {
	u, err := p.user(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	all, err := p.seminars.GetMany(ctx, seminarIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load seminars: %w", err)
	}
	list := make([]*models.Seminar, 0, len(all))
	for _, s := range all {
		if s.Active {
			list = append(list, s)
		}
	}
	if len(list) == 0 {
		return nil, nil, fmt.Errorf("%w: no active seminars for user %s", errDrop, userID)
	}
	return u, list, nil
}

func ids(list []*models.Seminar) []uuid.UUID {
	out := make([]uuid.UUID, len(list))
	for i, s := range list {
		out[i] = s.ID
	}
	return out
}

// Run dequeues and processes jobs until ctx is cancelled. Failed jobs go back through Retry.
func (p *EmailProcessor) Run(ctx context.Context) {
	p.logger.Info("email worker started")
	for {
		if ctx.Err() != nil {
			p.logger.Info("email worker stopping")
			return
		}
		job, err := p.queue.Dequeue(ctx, p.poll, queue.QueueEmails)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			wait(ctx, p.backoff)
			continue
		}
		if job == nil {
			continue
		}
		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Int("attempt", job.Attempt))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			wait(ctx, p.backoff)
		}
	}
}

func wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
