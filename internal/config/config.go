package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Log
		Database
		Tasks
		Auth
		Signup
		Invitations
		Mail
		Lookup
		OCR
		Cache
		Covers
		Maintenance
		Audit
		Metrics
		CORS
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
		// PublicURL is used to build links in outgoing emails.
		PublicURL string
	}
	Log struct {
		Level  string
		Format string // text | json
	}
	Database struct {
		Path string
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// JWTSecret signs short-lived tokens for the UI layer. Falls back to SessionSecret.
		JWTSecret string
		JWTExpiry time.Duration

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Signup struct {
		// RequireApproval is the initial value of the signup_approval_required setting.
		RequireApproval bool
	}
	Invitations struct {
		TTL       time.Duration
		Retention time.Duration // How long used/expired invitations are kept before purge
	}
	Mail struct {
		Provider      string // log | resend | postmark
		From          string
		ResendAPIKey  string
		PostmarkToken string
	}
	Lookup struct {
		GoogleBooksAPIKey  string
		GoogleBooksBaseURL string
		OpenLibraryBaseURL string
		Timeout            time.Duration
		RequestsPerSecond  float64 // Per-user limit on /api/lookup routes
		Burst              int
	}
	OCR struct {
		VisionAPIKey  string
		VisionBaseURL string
		MaxImageBytes int64
	}
	Cache struct {
		RedisURL string // Empty means in-memory cache
		TTL      time.Duration
	}
	Covers struct {
		Dir string
	}
	Maintenance struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 90)
	}
	Metrics struct {
		Enabled bool
	}
	CORS struct {
		AllowedOrigins []string
	}
)

// NewConfig reads configuration from the environment, loading a .env file first when present.
func NewConfig() *Config {
	if err := godotenv.Load(); err == nil {
		logrus.Debug("loaded configuration from .env")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("public_url", "http://localhost:3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("database_path", DefaultDatabasePath)

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_token_expiry", "720h")     // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_jwt_secret", "")           // Falls back to session secret
	v.SetDefault("auth_jwt_expiry", "15m")        // UI token lifetime
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	v.SetDefault("signup_require_approval", true)
	v.SetDefault("invitation_ttl", "168h")
	v.SetDefault("invitation_retention", "720h")

	v.SetDefault("mail_provider", MailProviderLog)
	v.SetDefault("mail_from", "Shelfshare <noreply@localhost>")

	v.SetDefault("google_books_base_url", "https://www.googleapis.com/books/v1")
	v.SetDefault("open_library_base_url", "https://openlibrary.org")
	v.SetDefault("lookup_timeout", "10s")
	v.SetDefault("lookup_rate_per_second", 2.0)
	v.SetDefault("lookup_burst", 5)

	v.SetDefault("vision_base_url", "https://vision.googleapis.com/v1")
	v.SetDefault("ocr_max_image_bytes", 8<<20)

	v.SetDefault("cache_ttl", "24h")
	v.SetDefault("covers_dir", DefaultCoversDir)

	v.SetDefault("maintenance_enabled", true)
	v.SetDefault("maintenance_schedule", "0 3 * * *")
	v.SetDefault("audit_retention_days", 90)
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("cors_allowed_origins", "http://localhost:3000")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	cfg := &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
			PublicURL:                v.GetString("PUBLIC_URL"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			JWTSecret:        v.GetString("AUTH_JWT_SECRET"),
			JWTExpiry:        v.GetDuration("AUTH_JWT_EXPIRY"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Signup: Signup{
			RequireApproval: v.GetBool("SIGNUP_REQUIRE_APPROVAL"),
		},
		Invitations: Invitations{
			TTL:       v.GetDuration("INVITATION_TTL"),
			Retention: v.GetDuration("INVITATION_RETENTION"),
		},
		Mail: Mail{
			Provider:      v.GetString("MAIL_PROVIDER"),
			From:          v.GetString("MAIL_FROM"),
			ResendAPIKey:  v.GetString("RESEND_API_KEY"),
			PostmarkToken: v.GetString("POSTMARK_SERVER_TOKEN"),
		},
		Lookup: Lookup{
			GoogleBooksAPIKey:  v.GetString("GOOGLE_BOOKS_API_KEY"),
			GoogleBooksBaseURL: v.GetString("GOOGLE_BOOKS_BASE_URL"),
			OpenLibraryBaseURL: v.GetString("OPEN_LIBRARY_BASE_URL"),
			Timeout:            v.GetDuration("LOOKUP_TIMEOUT"),
			RequestsPerSecond:  v.GetFloat64("LOOKUP_RATE_PER_SECOND"),
			Burst:              v.GetInt("LOOKUP_BURST"),
		},
		OCR: OCR{
			VisionAPIKey:  v.GetString("GOOGLE_VISION_API_KEY"),
			VisionBaseURL: v.GetString("VISION_BASE_URL"),
			MaxImageBytes: v.GetInt64("OCR_MAX_IMAGE_BYTES"),
		},
		Cache: Cache{
			RedisURL: v.GetString("REDIS_URL"),
			TTL:      v.GetDuration("CACHE_TTL"),
		},
		Covers: Covers{
			Dir: v.GetString("COVERS_DIR"),
		},
		Maintenance: Maintenance{
			Enabled:  v.GetBool("MAINTENANCE_ENABLED"),
			Schedule: v.GetString("MAINTENANCE_SCHEDULE"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		CORS: CORS{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	cfg.normalize()
	return cfg
}

// normalize replaces unusable values with defaults, logging what was changed.
func (c *Config) normalize() {
	if c.Tasks.Workers <= 0 {
		logrus.WithField("value", c.Tasks.Workers).Warn("TASK_WORKERS must be positive, using 1")
		c.Tasks.Workers = 1
	}
	switch c.Mail.Provider {
	case MailProviderLog, MailProviderResend, MailProviderPostmark:
	default:
		logrus.WithField("value", c.Mail.Provider).Warn("unknown MAIL_PROVIDER, falling back to log")
		c.Mail.Provider = MailProviderLog
	}
	if c.Invitations.TTL <= 0 {
		c.Invitations.TTL = 7 * 24 * time.Hour
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = c.Auth.SessionSecret
	}
	if c.Lookup.RequestsPerSecond <= 0 {
		c.Lookup.RequestsPerSecond = 2
	}
	if c.Lookup.Burst <= 0 {
		c.Lookup.Burst = 1
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
