package config

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DatabaseDriver string

const (
	DriverSQLite   DatabaseDriver = "sqlite"
	DriverPostgres DatabaseDriver = "postgres"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Loans
		Maintenance
		Tasks
		Throttle
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Driver DatabaseDriver
		Path   string // SQLite file, ignored for postgres
		URL    string // postgres connection string
		Debug  bool   // log every SQL statement
	}

	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS
		CSRFEnabled     bool

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)

		// Seeded on first start when no such user exists
		AdminUsername string
		AdminPassword string
	}

	Loans struct {
		DefaultDays int // used when a borrow request omits the length
		MaxDays     int // 0 disables the upper bound
	}

	Maintenance struct {
		Enabled          bool
		Schedule         string // Cron format: "0 3 * * *" = daily at 03:00
		LogRetentionDays int
		ArchiveDir       string
	}

	Tasks struct {
		Enabled         bool
		DatabasePath    string // defaults to "<database path>-tasks.db"
		Workers         int
		MaxRetries      int
		RetryDelay      time.Duration
		TaskTimeout     time.Duration
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}

	Throttle struct {
		RequestsPerSecond float64 // 0 disables throttling
		Burst             int
	}
)

// loadDotEnv populates the environment from a local .env file if one exists.
// Variables already set in the environment win.
func loadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: could not load .env file: %v", err)
	}
}

func NewConfig() *Config {
	loadDotEnv()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)

	v.SetDefault("database_driver", string(DriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_url", "")
	v.SetDefault("database_debug", false)

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_csrf_enabled", true)       // CSRF tokens on form posts
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration
	v.SetDefault("admin_username", DefaultAdminUsername)
	v.SetDefault("admin_password", DefaultAdminPassword)

	v.SetDefault("loan_default_days", 14)
	v.SetDefault("loan_max_days", 90)

	v.SetDefault("maintenance_enabled", true)
	v.SetDefault("maintenance_schedule", "0 3 * * *")
	v.SetDefault("log_retention_days", 90)
	v.SetDefault("log_archive_dir", "./archive")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_database_path", "")
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("throttle_rps", 5)
	v.SetDefault("throttle_burst", 10)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver: DatabaseDriver(v.GetString("DATABASE_DRIVER")),
			Path:   v.GetString("DATABASE_PATH"),
			URL:    v.GetString("DATABASE_URL"),
			Debug:  v.GetBool("DATABASE_DEBUG"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			CSRFEnabled:      v.GetBool("AUTH_CSRF_ENABLED"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
			AdminUsername:    v.GetString("ADMIN_USERNAME"),
			AdminPassword:    v.GetString("ADMIN_PASSWORD"),
		},
		Loans: Loans{
			DefaultDays: v.GetInt("LOAN_DEFAULT_DAYS"),
			MaxDays:     v.GetInt("LOAN_MAX_DAYS"),
		},
		Maintenance: Maintenance{
			Enabled:          v.GetBool("MAINTENANCE_ENABLED"),
			Schedule:         v.GetString("MAINTENANCE_SCHEDULE"),
			LogRetentionDays: v.GetInt("LOG_RETENTION_DAYS"),
			ArchiveDir:       v.GetString("LOG_ARCHIVE_DIR"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			DatabasePath:    v.GetString("TASKS_DATABASE_PATH"),
			Workers:         v.GetInt("TASK_WORKERS"),
			MaxRetries:      v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:      v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:     v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Throttle: Throttle{
			RequestsPerSecond: v.GetFloat64("THROTTLE_RPS"),
			Burst:             v.GetInt("THROTTLE_BURST"),
		},
	}
}

// TasksDatabasePath returns where the task queue keeps its own SQLite file.
func (c *Config) TasksDatabasePath() string {
	if c.Tasks.DatabasePath != "" {
		return c.Tasks.DatabasePath
	}
	if c.Database.Driver == DriverPostgres || c.Database.Path == "" {
		return DefaultTasksDatabasePath
	}
	return c.Database.Path + "-tasks.db"
}
