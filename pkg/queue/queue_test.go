package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewQueue(client, nil), mr
}

func TestEnqueueDequeue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 14, 12, 0, 0, 0, time.UTC)
	payload := SeminarReminderPayload{UserID: uuid.New(), SeminarIDs: []uuid.UUID{uuid.New()}, Now: now}

	id, err := q.EnqueueEmail(ctx, JobTypeSeminarReminder, payload)
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, JobTypeSeminarReminder, job.Type)
	assert.Equal(t, QueueEmails, job.Queue)

	var got SeminarReminderPayload
	require.NoError(t, job.Decode(&got))
	assert.Equal(t, payload.UserID, got.UserID)
	assert.True(t, payload.Now.Equal(got.Now))
}

func TestDequeueSkipsGarbage(t *testing.T) {
	q, mr := newTestQueue(t)
	_, err := mr.Lpush(QueueEmails, "not json")
	require.NoError(t, err)

	job, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestRetryMovesToDLQAfterMaxRetries(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()
	_, err := q.EnqueueEmail(ctx, JobTypePasswordReset, PasswordResetPayload{UserID: uuid.New(), Token: "t"})
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)

	for i := 1; i < MaxRetries; i++ {
		require.NoError(t, q.Retry(ctx, job))
		n, err := q.Len(ctx, QueueEmails)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
		job, err = q.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, i, job.Attempt)
	}

	require.NoError(t, q.Retry(ctx, job))
	assert.Empty(t, mustList(t, mr, QueueEmails))
	assert.Len(t, mustList(t, mr, QueueDLQ), 1)
}

func mustList(t *testing.T, mr *miniredis.Miniredis, key string) []string {
	t.Helper()
	if !mr.Exists(key) {
		return nil
	}
	l, err := mr.List(key)
	require.NoError(t, err)
	return l
}
