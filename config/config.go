package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	AWS       AWSConfig
	Email     EmailConfig
	CSRF      CSRFConfig
	Google    GoogleConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	MetricsPort        string // worker side port for /metrics; empty disables it
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// AppConfig holds values used when building links, mails and calendar invites.
type AppConfig struct {
	Name        string
	FrontendURL string // public SPA base URL, e.g. https://seminarios.example.edu
	BugReportTo string // inbox receiving bug reports
}

// Host returns the host part of the frontend URL, used as the ICS UID domain.
func (c AppConfig) Host() string {
	u, err := url.Parse(c.FrontendURL)
	if err != nil || u.Host == "" {
		return "localhost"
	}
	return u.Hostname()
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the certificates bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	CertificatesBucket   string
	PresignExpireMinutes int
}

// EmailConfig selects and configures the mail driver.
type EmailConfig struct {
	Driver      string // smtp, sendgrid or log
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	APIKey      string // SendGrid
}

// CSRFConfig configures the anti-forgery cookie/header pair.
type CSRFConfig struct {
	Enabled        bool
	AuthKey        string // 32 bytes
	Secure         bool
	TrustedOrigins []string
}

// GoogleConfig holds the OAuth client used to verify Google ID tokens.
type GoogleConfig struct {
	ClientID string
}

// SchedulerConfig holds cron expressions for the reminder jobs (São Paulo time).
type SchedulerConfig struct {
	Enabled                bool
	SeminarReminderCron    string
	EvaluationReminderCron string
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			MetricsPort:        getEnv("WORKER_METRICS_PORT", "9091"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Seminários"),
			FrontendURL: strings.TrimRight(getEnv("APP_FRONTEND_URL", "http://localhost:5173"), "/"),
			BugReportTo: getEnv("BUG_REPORT_TO", "suporte@example.com"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "seminarios"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			CertificatesBucket:   getEnv("AWS_S3_CERTIFICATES_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Email: EmailConfig{
			Driver:      getEnv("MAIL_DRIVER", "log"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Seminários"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
			APIKey:      getEnv("SENDGRID_API_KEY", ""),
		},
		CSRF: CSRFConfig{
			Enabled:        getEnvBool("CSRF_ENABLED", true),
			AuthKey:        getEnv("CSRF_AUTH_KEY", "0123456789abcdef0123456789abcdef"),
			Secure:         getEnvBool("CSRF_SECURE", false),
			TrustedOrigins: splitTrim(getEnv("CSRF_TRUSTED_ORIGINS", ""), ","),
		},
		Google: GoogleConfig{
			ClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:                getEnvBool("SCHEDULER_ENABLED", true),
			SeminarReminderCron:    getEnv("SEMINAR_REMINDER_CRON", "0 9 * * *"),
			EvaluationReminderCron: getEnv("EVALUATION_REMINDER_CRON", "0 10 * * *"),
		},
	}
	if len(cfg.CSRF.AuthKey) != 32 {
		return nil, fmt.Errorf("CSRF_AUTH_KEY must be 32 bytes, got %d", len(cfg.CSRF.AuthKey))
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
