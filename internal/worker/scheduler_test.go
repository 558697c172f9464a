package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-seminarios/backend/config"
	"github.com/campus-seminarios/backend/internal/registrations"
	"github.com/campus-seminarios/backend/pkg/queue"
	"github.com/campus-seminarios/backend/pkg/utils"
)

type fakeTargets struct {
	scheduled, unrated []registrations.Target
	from, to           time.Time
}

func (f *fakeTargets) ScheduledBetween(_ context.Context, from, to time.Time) ([]registrations.Target, error) {
	f.from, f.to = from, to
	return f.scheduled, nil
}

func (f *fakeTargets) UnratedBetween(_ context.Context, from, to time.Time) ([]registrations.Target, error) {
	f.from, f.to = from, to
	return f.unrated, nil
}

type enqueued struct {
	Type    queue.JobType
	Payload interface{}
}

type fakeJobs struct {
	jobs []enqueued
	err  error
}

func (f *fakeJobs) EnqueueEmail(_ context.Context, jobType queue.JobType, payload interface{}) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, enqueued{jobType, payload})
	return uuid.NewString(), nil
}

var defaultSchedule = config.SchedulerConfig{Enabled: true, SeminarReminderCron: "0 9 * * *", EvaluationReminderCron: "0 10 * * *"}

func newScheduler(t *testing.T, targets TargetFinder, jobs Enqueuer) *Scheduler {
	t.Helper()
	s, err := NewScheduler(defaultSchedule, targets, jobs, nil)
	require.NoError(t, err)
	// 01:30 UTC is still the 13th in São Paulo.
	s.now = func() time.Time { return time.Date(2026, 6, 14, 1, 30, 0, 0, time.UTC) }
	return s
}

func TestSeminarRemindersUseTomorrowInLocalTime(t *testing.T) {
	user := uuid.New()
	seminars := []uuid.UUID{uuid.New(), uuid.New()}
	targets := &fakeTargets{scheduled: []registrations.Target{{UserID: user, SeminarIDs: seminars}}}
	jobs := &fakeJobs{}
	s := newScheduler(t, targets, jobs)

	n, err := s.SeminarReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, time.Date(2026, 6, 14, 0, 0, 0, 0, utils.Location), targets.from)
	assert.Equal(t, time.Date(2026, 6, 15, 0, 0, 0, 0, utils.Location), targets.to)

	require.Len(t, jobs.jobs, 1)
	assert.Equal(t, queue.JobTypeSeminarReminder, jobs.jobs[0].Type)
	assert.Equal(t, queue.SeminarReminderPayload{UserID: user, SeminarIDs: seminars, Now: s.now()}, jobs.jobs[0].Payload)
}

func TestEvaluationRemindersUseYesterday(t *testing.T) {
	targets := &fakeTargets{unrated: []registrations.Target{
		{UserID: uuid.New(), SeminarIDs: []uuid.UUID{uuid.New()}},
		{UserID: uuid.New(), SeminarIDs: []uuid.UUID{uuid.New()}},
	}}
	jobs := &fakeJobs{}
	s := newScheduler(t, targets, jobs)

	n, err := s.EvaluationReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, time.Date(2026, 6, 12, 0, 0, 0, 0, utils.Location), targets.from)
	for _, j := range jobs.jobs {
		assert.Equal(t, queue.JobTypeEvaluationReminder, j.Type)
	}
}

func TestEnqueueErrorIsReported(t *testing.T) {
	targets := &fakeTargets{scheduled: []registrations.Target{{UserID: uuid.New()}}}
	s := newScheduler(t, targets, &fakeJobs{err: errors.New("redis down")})
	n, err := s.SeminarReminders(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	cfg := defaultSchedule
	cfg.EvaluationReminderCron = "every day"
	_, err := NewScheduler(cfg, &fakeTargets{}, &fakeJobs{}, nil)
	assert.Error(t, err)
}

func TestSchedulerRegistersBothJobs(t *testing.T) {
	s := newScheduler(t, &fakeTargets{}, &fakeJobs{})
	entries := s.cron.Entries()
	require.Len(t, entries, 2)
	s.Start()
	<-s.Stop().Done()
}
