package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	IdentityMemory = "memory"
	IdentityClerk  = "clerk"
)

type Config struct {
	// HTTP server
	Port               string
	AuthHeader         string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration
	// Extra reverse proxy networks (CIDR) whose forwarded headers are trusted
	TrustedProxies []string

	// Storage
	DataBackend       string
	SQLiteDBPath      string
	DatabaseURL       string
	DBMaxConns        int
	DBMaxConnIdleTime time.Duration

	// Identity provider
	IdentityBackend string
	ClerkAPIURL     string
	ClerkSecretKey  string

	// Dashboard
	DashboardCacheTTL  time.Duration
	DashboardCacheSize int

	// AMQP; an empty URL disables event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets ledger export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	GoogleOAuthClientFile    string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenFile     string
	GoogleOAuthTokenJSON     string

	// Reminder worker
	ReminderSchedule   string
	ReminderWindowDays int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		AuthHeader:         getEnv("AUTH_HEADER", "X-User-ID"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		DataBackend:       getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", "./data/ezfin.db"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 1),
		DBMaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 20*time.Second),

		IdentityBackend: getEnv("IDENTITY_BACKEND", IdentityMemory),
		ClerkAPIURL:     getEnv("CLERK_API_URL", "https://api.clerk.com"),
		ClerkSecretKey:  getEnv("CLERK_SECRET_KEY", ""),

		DashboardCacheTTL:  getEnvDuration("DASHBOARD_CACHE_TTL", 30*time.Second),
		DashboardCacheSize: getEnvInt("DASHBOARD_CACHE_SIZE", 256),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ezfin"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ezfin_ledger_export"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		ReminderSchedule:   getEnv("REMINDER_SCHEDULE", "0 8 * * *"),
		ReminderWindowDays: getEnvInt("REMINDER_WINDOW_DAYS", 3),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate checks the settings used by the HTTP server and returns every
// problem found at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.AuthHeader) == "" {
		problems = append(problems, "auth header name cannot be empty")
	}

	problems = append(problems, c.storageProblems()...)

	switch c.IdentityBackend {
	case IdentityMemory:
	case IdentityClerk:
		if c.ClerkSecretKey == "" {
			problems = append(problems, "CLERK_SECRET_KEY is required when using the clerk identity backend")
		}
		if u, err := url.Parse(c.ClerkAPIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			problems = append(problems, fmt.Sprintf("invalid Clerk API URL '%s'", c.ClerkAPIURL))
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid identity backend '%s': must be one of [%s %s]",
			c.IdentityBackend, IdentityMemory, IdentityClerk))
	}

	problems = append(problems, c.amqpProblems()...)

	if c.DashboardCacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid dashboard cache TTL %v: must not be negative", c.DashboardCacheTTL))
	}
	if c.DashboardCacheSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid dashboard cache size %d: must be at least 1", c.DashboardCacheSize))
	}

	return combine(problems)
}

// ValidateStorage checks only the storage settings, for tools that never
// serve HTTP.
func (c *Config) ValidateStorage() error {
	return combine(c.storageProblems())
}

// ValidateExport checks the settings the ledger export worker needs.
func (c *Config) ValidateExport() error {
	problems := c.storageProblems()
	if c.AMQPURL == "" {
		problems = append(problems, "AMQP_URL is required for the export worker")
	}
	problems = append(problems, c.amqpProblems()...)
	if c.AMQPQueue == "" {
		problems = append(problems, "AMQP queue name cannot be empty")
	}

	if c.GoogleSpreadsheetID == "" {
		problems = append(problems, "Google Spreadsheet ID is required for the export worker")
	}
	if c.GoogleSheetName == "" {
		problems = append(problems, "Google Sheet name is required for the export worker")
	}
	hasServiceAccount := c.GoogleServiceAccountFile != "" || c.GoogleServiceAccountJSON != ""
	hasClient := c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != ""
	hasToken := c.GoogleOAuthTokenFile != "" || c.GoogleOAuthTokenJSON != ""
	if !hasServiceAccount && !(hasClient && hasToken) {
		problems = append(problems, "either a Google service account or an OAuth client and token must be provided")
	}
	for _, f := range []string{c.GoogleServiceAccountFile, c.GoogleOAuthClientFile, c.GoogleOAuthTokenFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("Google credentials file does not exist: %s", f))
		}
	}
	return combine(problems)
}

// ValidateReminder checks the settings the reminder worker needs.
func (c *Config) ValidateReminder() error {
	problems := c.storageProblems()
	if c.AMQPURL == "" {
		problems = append(problems, "AMQP_URL is required for the reminder worker")
	}
	problems = append(problems, c.amqpProblems()...)
	if _, err := cron.ParseStandard(c.ReminderSchedule); err != nil {
		problems = append(problems, fmt.Sprintf("invalid reminder schedule '%s': %v", c.ReminderSchedule, err))
	}
	if c.ReminderWindowDays < 0 || c.ReminderWindowDays > 31 {
		problems = append(problems, fmt.Sprintf("invalid reminder window %d: must be between 0 and 31 days", c.ReminderWindowDays))
	}
	return combine(problems)
}

func (c *Config) storageProblems() []string {
	var problems []string
	backends := []string{BackendSQLite, BackendPostgres}
	if !slices.Contains(backends, c.DataBackend) {
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, backends))
	}
	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			problems = append(problems, "invalid DATABASE_URL: scheme must be 'postgres' or 'postgresql'")
		}
		if c.DBMaxConns < 1 {
			problems = append(problems, fmt.Sprintf("invalid max connections %d: must be at least 1", c.DBMaxConns))
		}
	}
	return problems
}

func (c *Config) amqpProblems() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var problems []string
	if u, err := url.Parse(c.AMQPURL); err != nil {
		problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
		problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
	}
	if c.AMQPExchange == "" {
		problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	return problems
}

func combine(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
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

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
