package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueEmails is the Redis list key for email jobs.
	QueueEmails = "worker:emails"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
	// PollTimeout bounds one BLPOP so the worker loop can observe cancellation.
	PollTimeout = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeSeminarReminder    JobType = "seminar_reminder"
	JobTypeEvaluationReminder JobType = "evaluation_reminder"
	JobTypeCertificateIssued  JobType = "certificate_issued"
	JobTypePasswordReset      JobType = "password_reset"
)

// SeminarReminderPayload asks for one reminder mail listing the user's seminars.
// Now is captured at enqueue time so retries rebuild identical attachments.
type SeminarReminderPayload struct {
	UserID     uuid.UUID   `json:"user_id"`
	SeminarIDs []uuid.UUID `json:"seminar_ids"`
	Now        time.Time   `json:"now"`
}

// EvaluationReminderPayload asks for one evaluation reminder listing unrated seminars.
type EvaluationReminderPayload struct {
	UserID     uuid.UUID   `json:"user_id"`
	SeminarIDs []uuid.UUID `json:"seminar_ids"`
	Now        time.Time   `json:"now"`
}

// CertificateIssuedPayload asks for the certificate mail of one registration.
type CertificateIssuedPayload struct {
	RegistrationID uuid.UUID `json:"registration_id"`
	Now            time.Time `json:"now"`
}

// PasswordResetPayload carries the plain reset token; only its hash is stored.
type PasswordResetPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Token  string    `json:"token"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Queue     string          `json:"queue"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v interface{}) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", j.Type, err)
	}
	return nil
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// Enqueue pushes a job of the given type onto a queue and returns its id.
func (q *Queue) Enqueue(ctx context.Context, queueName string, jobType JobType, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Queue:     queueName,
		Payload:   body,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, queueName, raw).Err(); err != nil {
		return "", fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued job", zap.String("job_id", job.ID), zap.String("type", string(jobType)), zap.String("queue", queueName))
	return job.ID, nil
}

// EnqueueEmail enqueues an email job on QueueEmails.
func (q *Queue) EnqueueEmail(ctx context.Context, jobType JobType, payload interface{}) (string, error) {
	return q.Enqueue(ctx, QueueEmails, jobType, payload)
}

// Dequeue blocks up to timeout for a job on any of the queues. Returns (nil, nil) on timeout
// or on an undecodable entry.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration, queues ...string) (*Job, error) {
	if len(queues) == 0 {
		queues = []string{QueueEmails}
	}
	result, err := q.client.BLPop(ctx, timeout, queues...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	if job.Queue == "" {
		job.Queue = result[0]
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	target := job.Queue
	if target == "" {
		target = QueueEmails
	}
	if err := q.client.RPush(ctx, target, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

// Len returns the number of pending jobs on a queue.
func (q *Queue) Len(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, queueName).Result()
}
