package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/config"
	"github.com/campus-seminarios/backend/internal/registrations"
	"github.com/campus-seminarios/backend/pkg/queue"
	"github.com/campus-seminarios/backend/pkg/utils"
)

// runTimeout bounds one scheduled run.
const runTimeout = 5 * time.Minute

// TargetFinder groups the users due for a reminder.
type TargetFinder interface {
	ScheduledBetween(ctx context.Context, from, to time.Time) ([]registrations.Target, error)
	UnratedBetween(ctx context.Context, from, to time.Time) ([]registrations.Target, error)
}

// Enqueuer schedules email jobs.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, jobType queue.JobType, payload interface{}) (string, error)
}

// Scheduler runs the daily reminder jobs in the São Paulo zone.
type Scheduler struct {
	cron    *cron.Cron
	targets TargetFinder
	jobs    Enqueuer
	logger  *zap.Logger
	now     func() time.Time
}

// NewScheduler registers the reminder jobs of cfg. It does not start them.
func NewScheduler(cfg config.SchedulerConfig, targets TargetFinder, jobs Enqueuer, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(utils.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		targets: targets,
		jobs:    jobs,
		logger:  logger,
		now:     time.Now,
	}
	if _, err := s.cron.AddFunc(cfg.SeminarReminderCron, s.job("seminar reminders", s.SeminarReminders)); err != nil {
		return nil, fmt.Errorf("seminar reminder schedule %q: %w", cfg.SeminarReminderCron, err)
	}
	if _, err := s.cron.AddFunc(cfg.EvaluationReminderCron, s.job("evaluation reminders", s.EvaluationReminders)); err != nil {
		return nil, fmt.Errorf("evaluation reminder schedule %q: %w", cfg.EvaluationReminderCron, err)
	}
	return s, nil
}

func (s *Scheduler) job(name string, run func(context.Context) (int, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		n, err := run(ctx)
		if err != nil {
			s.logger.Error("scheduled run failed", zap.String("job", name), zap.Int("queued", n), zap.Error(err))
			return
		}
		s.logger.Info("scheduled run done", zap.String("job", name), zap.Int("queued", n))
	}
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }

// SeminarReminders enqueues one reminder per user registered for a seminar held tomorrow.
func (s *Scheduler) SeminarReminders(ctx context.Context) (int, error) {
	now := s.now()
	from, to := utils.LocalDay(now, 1)
	targets, err := s.targets.ScheduledBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("find registrations: %w", err)
	}
	return s.enqueue(ctx, targets, queue.JobTypeSeminarReminder, func(t registrations.Target) interface{} {
		return queue.SeminarReminderPayload{UserID: t.UserID, SeminarIDs: t.SeminarIDs, Now: now}
	})
}

// EvaluationReminders enqueues one reminder per user present yesterday who has not rated.
func (s *Scheduler) EvaluationReminders(ctx context.Context) (int, error) {
	now := s.now()
	from, to := utils.LocalDay(now, -1)
	targets, err := s.targets.UnratedBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("find unrated registrations: %w", err)
	}
	return s.enqueue(ctx, targets, queue.JobTypeEvaluationReminder, func(t registrations.Target) interface{} {
		return queue.EvaluationReminderPayload{UserID: t.UserID, SeminarIDs: t.SeminarIDs, Now: now}
	})
}

func (s *Scheduler) enqueue(ctx context.Context, targets []registrations.Target, jobType queue.JobType, payload func(registrations.Target) interface{}) (int, error) {
	queued := 0
	var firstErr error
	for _, t := range targets {
		if _, err := s.jobs.EnqueueEmail(ctx, jobType, payload(t)); err != nil {
			s.logger.Error("enqueue reminder", zap.Error(err), zap.String("type", string(jobType)), zap.String("user_id", t.UserID.String()))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		queued++
	}
	return queued, firstErr
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
