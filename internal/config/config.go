package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port               string
	CORSAllowedOrigins []string
	RateLimitPerMinute int

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	SeedFile     string

	// AMQP
	AMQPURL         string
	AMQPExchange    string
	AMQPQueue       string
	AMQPEventsQueue string

	// FX rates
	FXBaseURL            string
	FXTimeout            time.Duration
	FXMinRefreshInterval time.Duration
	FXManualCooldown     time.Duration
	FXCache              string
	RedisURL             string

	// Worker schedules (cron expressions)
	ReminderLeadDays     int
	ReminderSchedule     string
	FXRefreshSchedule    string
	SheetsExportSchedule string

	// Google Sheets export
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	validBackends  = []string{"memory", "sqlite"}
	validFXCaches  = []string{"sqlite", "redis"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/subtrack.db"),
		SeedFile:     getEnv("SEED_FILE", ""),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "subtrack"),
		AMQPQueue:       getEnv("AMQP_QUEUE", "payment_due"),
		AMQPEventsQueue: getEnv("AMQP_EVENTS_QUEUE", "subscription_events"),

		FXBaseURL:            getEnv("FX_BASE_URL", "https://api.frankfurter.app"),
		FXTimeout:            getEnvDuration("FX_TIMEOUT", 10*time.Second),
		FXMinRefreshInterval: getEnvDuration("FX_MIN_REFRESH_INTERVAL", 12*time.Hour),
		FXManualCooldown:     getEnvDuration("FX_MANUAL_COOLDOWN", 30*time.Second),
		FXCache:              getEnv("FX_CACHE", "sqlite"),
		RedisURL:             getEnv("REDIS_URL", ""),

		ReminderLeadDays:     getEnvInt("REMINDER_LEAD_DAYS", 3),
		ReminderSchedule:     getEnv("REMINDER_SCHEDULE", "0 8 * * *"),
		FXRefreshSchedule:    getEnv("FX_REFRESH_SCHEDULE", "0 */12 * * *"),
		SheetsExportSchedule: getEnv("SHEETS_EXPORT_SCHEDULE", "0 2 * * *"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Subscriptions"),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// SheetsExportEnabled reports whether a spreadsheet is configured.
func (c *Config) SheetsExportEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" || c.FXCache == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); err != nil {
			errors = append(errors, fmt.Sprintf("seed file '%s' is not readable: %v", c.SeedFile, err))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if parsed, err := url.Parse(c.FXBaseURL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		errors = append(errors, fmt.Sprintf("invalid FX base URL '%s': must be an http(s) URL", c.FXBaseURL))
	}
	if c.FXTimeout < 100*time.Millisecond || c.FXTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid FX timeout %v: must be between 100ms and 1m", c.FXTimeout))
	}
	if c.FXMinRefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid FX refresh interval %v: must be at least 1 minute", c.FXMinRefreshInterval))
	}
	if c.FXManualCooldown < time.Second {
		errors = append(errors, fmt.Sprintf("invalid FX manual cooldown %v: must be at least 1 second", c.FXManualCooldown))
	}
	if !slices.Contains(validFXCaches, c.FXCache) {
		errors = append(errors, fmt.Sprintf("invalid FX cache '%s': must be one of %v", c.FXCache, validFXCaches))
	}
	if c.FXCache == "redis" {
		if c.RedisURL == "" {
			errors = append(errors, "REDIS_URL is required when FX_CACHE is redis")
		} else if u, err := url.Parse(c.RedisURL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			errors = append(errors, fmt.Sprintf("invalid Redis URL '%s': must use redis:// or rediss://", c.RedisURL))
		}
	}

	if c.ReminderLeadDays < 0 || c.ReminderLeadDays > 60 {
		errors = append(errors, fmt.Sprintf("invalid reminder lead days %d: must be between 0 and 60", c.ReminderLeadDays))
	}
	for name, spec := range map[string]string{
		"REMINDER_SCHEDULE":      c.ReminderSchedule,
		"FX_REFRESH_SCHEDULE":    c.FXRefreshSchedule,
		"SHEETS_EXPORT_SCHEDULE": c.SheetsExportSchedule,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': %v", name, spec, err))
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
	}

	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		slices.Sort(errors)
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
