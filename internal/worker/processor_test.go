package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-seminarios/backend/internal/certificates"
	"github.com/campus-seminarios/backend/internal/mail"
	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/notifications"
	"github.com/campus-seminarios/backend/pkg/queue"
)

var fixedNow = time.Date(2026, 6, 14, 12, 0, 0, 0, time.UTC)

type fakeUsers map[uuid.UUID]*models.User

func (f fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) { return f[id], nil }

type fakeSeminars map[uuid.UUID]*models.Seminar

func (f fakeSeminars) GetByID(_ context.Context, id uuid.UUID) (*models.Seminar, error) {
	return f[id], nil
}

func (f fakeSeminars) GetMany(_ context.Context, ids []uuid.UUID) ([]*models.Seminar, error) {
	var out []*models.Seminar
	for _, id := range ids {
		if s := f[id]; s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeCertificates map[uuid.UUID]*certificates.Record

func (f fakeCertificates) RenderRegistration(_ context.Context, id uuid.UUID) (*certificates.Record, []byte, error) {
	rec := f[id]
	if rec == nil {
		return nil, nil, certificates.ErrNotFound
	}
	return rec, []byte("%PDF-1.3"), nil
}

type fakeLogs struct {
	mu   sync.Mutex
	rows []models.EmailLog
}

func (f *fakeLogs) Create(_ context.Context, el *models.EmailLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *el)
	return nil
}

func (f *fakeLogs) SentForJob(_ context.Context, jobID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.JobID == jobID && r.Status == models.EmailLogStatusSent {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLogs) all() []models.EmailLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.EmailLog(nil), f.rows...)
}

type failingSender struct{}

func (failingSender) Send(context.Context, *mail.Message) error { return errors.New("smtp down") }

type fixture struct {
	user     *models.User
	seminars fakeSeminars
	certs    fakeCertificates
	logs     *fakeLogs
	outbox   *mail.Log
	queue    *queue.Queue
	proc     *EmailProcessor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b, err := notifications.NewBuilder(notifications.Config{
		AppName:     "Seminários",
		FrontendURL: "https://seminarios.example.edu",
		Host:        "seminarios.example.edu",
		BugReportTo: "suporte@example.edu",
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		user:     &models.User{ID: uuid.New(), Name: "Ana", Email: "ana@example.com"},
		seminars: fakeSeminars{},
		certs:    fakeCertificates{},
		logs:     &fakeLogs{},
		outbox:   mail.NewLog(nil),
		queue:    queue.NewQueue(client, nil),
	}
	f.proc = NewEmailProcessor(f.queue, fakeUsers{f.user.ID: f.user}, f.seminars, f.certs, b, f.outbox, f.logs, nil)
	f.proc.now = func() time.Time { return fixedNow }
	f.proc.backoff = 10 * time.Millisecond
	f.proc.poll = time.Second
	return f
}

func (f *fixture) seminar(active bool) *models.Seminar {
	at := fixedNow.Add(26 * time.Hour)
	s := &models.Seminar{ID: uuid.New(), Name: "IA na Saúde", Slug: "ia-na-saude", Active: active, ScheduledAt: &at}
	f.seminars[s.ID] = s
	return s
}

func job(t *testing.T, jobType queue.JobType, payload interface{}) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &queue.Job{ID: uuid.NewString(), Type: jobType, Queue: queue.QueueEmails, Payload: raw}
}

func TestSeminarReminderSkipsInactiveSeminars(t *testing.T) {
	f := newFixture(t)
	active := f.seminar(true)
	inactive := f.seminar(false)
	j := job(t, queue.JobTypeSeminarReminder, queue.SeminarReminderPayload{
		UserID: f.user.ID, SeminarIDs: []uuid.UUID{active.ID, inactive.ID}, Now: fixedNow,
	})

	require.NoError(t, f.proc.Process(context.Background(), j))
	sent := f.outbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, models.EmailTypeSeminarReminder, sent[0].Type)
	assert.Equal(t, "ana@example.com", sent[0].Recipient())
	assert.Len(t, sent[0].Attachments, 1)

	rows := f.logs.all()
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].SeminarID)
	assert.Equal(t, active.ID, *rows[0].SeminarID)
	assert.Equal(t, models.EmailLogStatusSent, rows[0].Status)
	assert.Equal(t, j.ID, rows[0].JobID)
	require.NotNil(t, rows[0].SentAt)
	assert.Equal(t, fixedNow, *rows[0].SentAt)
}

func TestDuplicateDeliveryIsSkipped(t *testing.T) {
	f := newFixture(t)
	s := f.seminar(true)
	j := job(t, queue.JobTypeEvaluationReminder, queue.EvaluationReminderPayload{UserID: f.user.ID, SeminarIDs: []uuid.UUID{s.ID}, Now: fixedNow})

	require.NoError(t, f.proc.Process(context.Background(), j))
	require.NoError(t, f.proc.Process(context.Background(), j))
	assert.Len(t, f.outbox.Sent(), 1)
	assert.Len(t, f.logs.all(), 1)
}

func TestCertificateJobAttachesPDF(t *testing.T) {
	f := newFixture(t)
	s := f.seminar(true)
	code := "ABCDEF0123456789"
	issued := fixedNow
	regID := uuid.New()
	f.certs[regID] = &certificates.Record{RegistrationID: regID, UserID: f.user.ID, Present: true, Code: &code, IssuedAt: &issued, Seminar: s.Summary()}

	require.NoError(t, f.proc.Process(context.Background(), job(t, queue.JobTypeCertificateIssued, queue.CertificateIssuedPayload{RegistrationID: regID, Now: fixedNow})))
	sent := f.outbox.Sent()
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, "certificado-ia-na-saude.pdf", sent[0].Attachments[0].Filename)
	assert.Equal(t, []byte("%PDF-1.3"), sent[0].Attachments[0].Data)
}

func TestPasswordResetJobHasNoSeminar(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.proc.Process(context.Background(), job(t, queue.JobTypePasswordReset, queue.PasswordResetPayload{UserID: f.user.ID, Token: "tok"})))
	sent := f.outbox.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "token=tok")
	rows := f.logs.all()
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].SeminarID)
	require.NotNil(t, rows[0].UserID)
	assert.Equal(t, f.user.ID, *rows[0].UserID)
}

func TestUnrecoverableJobsAreDropped(t *testing.T) {
	f := newFixture(t)
	s := f.seminar(true)
	cases := []*queue.Job{
		job(t, queue.JobTypeSeminarReminder, queue.SeminarReminderPayload{UserID: uuid.New(), SeminarIDs: []uuid.UUID{s.ID}}),
		job(t, queue.JobTypeSeminarReminder, queue.SeminarReminderPayload{UserID: f.user.ID, SeminarIDs: []uuid.UUID{uuid.New()}}),
		job(t, queue.JobTypeCertificateIssued, queue.CertificateIssuedPayload{RegistrationID: uuid.New()}),
		{ID: uuid.NewString(), Type: "unknown", Payload: []byte(`{}`)},
		{ID: uuid.NewString(), Type: queue.JobTypePasswordReset, Payload: []byte(`not json`)},
	}
	for _, j := range cases {
		assert.NoError(t, f.proc.Process(context.Background(), j), string(j.Type))
	}
	assert.Empty(t, f.outbox.Sent())
	assert.Empty(t, f.logs.all())
}

func TestSendFailureIsLoggedAndReturned(t *testing.T) {
	f := newFixture(t)
	f.proc.sender = failingSender{}
	s := f.seminar(true)
	err := f.proc.Process(context.Background(), job(t, queue.JobTypeSeminarReminder, queue.SeminarReminderPayload{UserID: f.user.ID, SeminarIDs: []uuid.UUID{s.ID}, Now: fixedNow}))
	require.Error(t, err)

	rows := f.logs.all()
	require.Len(t, rows, 1)
	assert.Equal(t, models.EmailLogStatusFailed, rows[0].Status)
	assert.Equal(t, "smtp down", rows[0].ErrorMessage)
	assert.Nil(t, rows[0].SentAt)
}

func TestRunDeliversQueuedJobsAndRetriesFailures(t *testing.T) {
	f := newFixture(t)
	s := f.seminar(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := f.queue.EnqueueEmail(ctx, queue.JobTypeSeminarReminder, queue.SeminarReminderPayload{UserID: f.user.ID, SeminarIDs: []uuid.UUID{s.ID}, Now: fixedNow})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		f.proc.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(f.outbox.Sent()) == 1 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRunRetriesFailedJob(t *testing.T) {
	f := newFixture(t)
	f.proc.sender = failingSender{}
	s := f.seminar(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := f.queue.EnqueueEmail(ctx, queue.JobTypeSeminarReminder, queue.SeminarReminderPayload{UserID: f.user.ID, SeminarIDs: []uuid.UUID{s.ID}, Now: fixedNow})
	require.NoError(t, err)

	go f.proc.Run(ctx)
	require.Eventually(t, func() bool {
		n, err := f.queue.Len(context.Background(), queue.QueueDLQ)
		return err == nil && n == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Len(t, f.logs.all(), queue.MaxRetries)
}
