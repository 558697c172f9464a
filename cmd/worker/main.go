// Package main runs the background worker: email delivery and the daily reminder scheduler.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/campus-seminarios/backend/config"
	"github.com/campus-seminarios/backend/internal/certificates"
	"github.com/campus-seminarios/backend/internal/emaillogs"
	"github.com/campus-seminarios/backend/internal/mail"
	"github.com/campus-seminarios/backend/internal/metrics"
	"github.com/campus-seminarios/backend/internal/notifications"
	"github.com/campus-seminarios/backend/internal/registrations"
	"github.com/campus-seminarios/backend/internal/seminars"
	"github.com/campus-seminarios/backend/internal/users"
	"github.com/campus-seminarios/backend/internal/worker"
	"github.com/campus-seminarios/backend/pkg/database"
	"github.com/campus-seminarios/backend/pkg/queue"
	"github.com/campus-seminarios/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	sender, err := mail.New(cfg.Email, logger)
	if err != nil {
		logger.Fatal("mail", zap.Error(err))
	}
	builder, err := notifications.NewBuilder(notifications.Config{
		AppName:     cfg.App.Name,
		FrontendURL: cfg.App.FrontendURL,
		Host:        cfg.App.Host(),
		BugReportTo: cfg.App.BugReportTo,
	})
	if err != nil {
		logger.Fatal("notifications", zap.Error(err))
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	// Only RenderRegistration is used here.
	certs := certificates.NewService(certificates.NewRepository(pool), nil, nil, cfg.App.Name, cfg.App.FrontendURL, logger)
	processor := worker.NewEmailProcessor(jobQueue, users.NewRepository(pool), seminars.NewRepository(pool), certs,
		builder, sender, emaillogs.NewRepository(pool), logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		processor.Run(workerCtx)
	}()

	var scheduler *worker.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler, err = worker.NewScheduler(cfg.Scheduler, registrations.NewRepository(pool),
			metrics.CountingEnqueuer{EmailEnqueuer: jobQueue}, logger)
		if err != nil {
			logger.Fatal("scheduler", zap.Error(err))
		}
		scheduler.Start()
		logger.Info("scheduler started",
			zap.String("seminar_reminders", cfg.Scheduler.SeminarReminderCron),
			zap.String("evaluation_reminders", cfg.Scheduler.EvaluationReminderCron))
	}

	var metricsSrv *http.Server
	if cfg.Server.MetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: ":" + cfg.Server.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
	}
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	cancel()
	wg.Wait()
	if metricsSrv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
