// Package main runs the seminar platform HTTP server with the presence monitor WebSocket.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/campus-seminarios/backend/config"
	"github.com/campus-seminarios/backend/internal/analytics"
	"github.com/campus-seminarios/backend/internal/auth"
	"github.com/campus-seminarios/backend/internal/bugreports"
	"github.com/campus-seminarios/backend/internal/catalog"
	"github.com/campus-seminarios/backend/internal/certificates"
	"github.com/campus-seminarios/backend/internal/emaillogs"
	"github.com/campus-seminarios/backend/internal/mail"
	"github.com/campus-seminarios/backend/internal/metrics"
	"github.com/campus-seminarios/backend/internal/middleware"
	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/notifications"
	"github.com/campus-seminarios/backend/internal/presence"
	"github.com/campus-seminarios/backend/internal/ratings"
	"github.com/campus-seminarios/backend/internal/realtime"
	"github.com/campus-seminarios/backend/internal/registrations"
	"github.com/campus-seminarios/backend/internal/seminars"
	"github.com/campus-seminarios/backend/internal/subjects"
	"github.com/campus-seminarios/backend/internal/users"
	"github.com/campus-seminarios/backend/internal/validation"
	"github.com/campus-seminarios/backend/internal/workshops"
	"github.com/campus-seminarios/backend/pkg/database"
	"github.com/campus-seminarios/backend/pkg/queue"
	"github.com/campus-seminarios/backend/pkg/redis"
	"github.com/campus-seminarios/backend/pkg/response"
	"github.com/campus-seminarios/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := validation.Setup(); err != nil {
		logger.Fatal("validation", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Certificates fall back to streaming the PDF when no bucket is configured.
	var files certificates.FileStore
	if cfg.AWS.Region != "" && cfg.AWS.CertificatesBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			CertificatesBucket:   cfg.AWS.CertificatesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			files = s3Client
		}
	}

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

	jobs := metrics.CountingEnqueuer{EmailEnqueuer: queue.NewQueue(rdb.Client, logger)}
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, pubsub, pubsub)

	userRepo := users.NewRepository(pool)
	seminarRepo := seminars.NewRepository(pool)
	registrationRepo := registrations.NewRepository(pool)

	authHandler := auth.NewHandler(auth.NewService(userRepo, auth.NewRepository(pool), jobs, jwtService,
		auth.NewGoogleVerifier(cfg.Google.ClientID), logger), logger)
	userHandler := users.NewHandler(userRepo, logger)
	seminarHandler := seminars.NewHandler(seminarRepo, logger)
	subjectHandler := subjects.NewHandler(subjects.NewRepository(pool), seminarHandler, logger)
	workshopHandler := workshops.NewHandler(workshops.NewRepository(pool), logger)
	catalogHandler := catalog.NewHandler(catalog.NewRepository(pool), logger)
	registrationHandler := registrations.NewHandler(registrationRepo, seminarRepo, logger)
	ratingHandler := ratings.NewHandler(ratings.NewRepository(pool), registrationRepo, seminarRepo, logger)
	certificateHandler := certificates.NewHandler(certificates.NewService(certificates.NewRepository(pool), jobs, files,
		cfg.App.Name, cfg.App.FrontendURL, logger), logger)
	presenceHandler := presence.NewHandler(presence.NewService(presence.NewRepository(pool), seminarRepo, userRepo,
		registrationRepo, hub, cfg.App.FrontendURL, logger), logger)
	analyticsHandler := analytics.NewHandler(analytics.NewRepository(pool), logger)
	emailLogHandler := emaillogs.NewHandler(emaillogs.NewRepository(pool), registrationRepo, seminarRepo, jobs, logger)
	bugReportHandler := bugreports.NewHandler(builder, sender, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket (admin token in query; browsers cannot set headers on upgrade)
	router.GET("/ws", realtime.ServeWs(hub, jwtService, registrationRepo, logger))

	app := router.Group("")
	if cfg.CSRF.Enabled {
		app.Use(middleware.CSRF(middleware.CSRFOptions{
			AuthKey:        []byte(cfg.CSRF.AuthKey),
			Secure:         cfg.CSRF.Secure,
			TrustedOrigins: cfg.CSRF.TrustedOrigins,
		}))
	}
	app.GET("/csrf-cookie", middleware.CSRFCookie)

	// Public browsing
	app.GET("/seminars", seminarHandler.List)
	app.GET("/seminars/upcoming", seminarHandler.Upcoming)
	app.GET("/seminars/:id", seminarHandler.Show)
	app.GET("/subjects", subjectHandler.List)
	app.GET("/subjects/:slug/seminars", subjectHandler.Seminars)
	app.GET("/workshops", workshopHandler.List)
	app.GET("/workshops/:slug", workshopHandler.Show)
	app.GET("/seminar-types", catalogHandler.SeminarTypes)
	app.GET("/courses", catalogHandler.Courses)
	app.GET("/certificates/:code", certificateHandler.Validate)
	app.GET("/certificates/:code/pdf", certificateHandler.Download)
	app.GET("/presence/:uuid", presenceHandler.Show)
	app.POST("/bug-report", bugReportHandler.Submit)

	authGroup := app.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/google", authHandler.Google)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
	}

	// Account (JWT required)
	api := app.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/me", userHandler.Me)
		api.PUT("/me", userHandler.UpdateMe)
		api.GET("/me/registrations", registrationHandler.Mine)
		api.POST("/me/registrations/:id/certificate", certificateHandler.Issue)
		api.GET("/me/evaluations", ratingHandler.Evaluations)
		api.GET("/me/certificates", certificateHandler.Mine)
		api.POST("/seminars/:id/registrations", registrationHandler.Register)
		api.DELETE("/seminars/:id/registrations", registrationHandler.Unregister)
		api.POST("/seminars/:id/ratings", ratingHandler.Rate)
		api.POST("/presence/:uuid/register", presenceHandler.Register)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/users", userHandler.List)
		admin.GET("/speakers", userHandler.Speakers)
		admin.POST("/speakers", userHandler.CreateSpeaker)

		admin.GET("/seminars", seminarHandler.AdminList)
		admin.POST("/seminars", seminarHandler.Create)
		admin.GET("/seminars/:id", seminarHandler.AdminShow)
		admin.PUT("/seminars/:id", seminarHandler.Update)
		admin.DELETE("/seminars/:id", seminarHandler.Delete)
		admin.GET("/seminars/:id/registrations", registrationHandler.BySeminar)
		admin.GET("/seminars/:id/ratings", ratingHandler.Summary)
		admin.GET("/seminars/:id/analytics", analyticsHandler.GetBySeminar)
		admin.POST("/seminars/:id/certificates", certificateHandler.IssueBatch)
		admin.GET("/seminars/:id/presence-link", presenceHandler.AdminShow)
		admin.POST("/seminars/:id/presence-link", presenceHandler.AdminSave)
		admin.GET("/seminars/:id/emails", emailLogHandler.ListBySeminar)
		admin.POST("/seminars/:id/emails/resend", emailLogHandler.Resend)
		admin.POST("/seminars/:id/reminders", emailLogHandler.Reminders)

		admin.PATCH("/presence-links/:uuid/toggle", presenceHandler.Toggle)
		admin.GET("/presence-links/:uuid/qrcode", presenceHandler.QRCode)

		admin.POST("/workshops", workshopHandler.Create)
		admin.GET("/workshops/:id", workshopHandler.AdminShow)
		admin.PUT("/workshops/:id", workshopHandler.Update)
		admin.DELETE("/workshops/:id", workshopHandler.Delete)

		admin.POST("/seminar-types", catalogHandler.CreateSeminarType)
		admin.POST("/courses", catalogHandler.CreateCourse)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
