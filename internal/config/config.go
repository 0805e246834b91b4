package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Email drivers
const (
	EmailDriverSMTP = "smtp"
	EmailDriverAPI  = "api"
	EmailDriverLog  = "log"
)

const minSessionSecretLen = 32

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int
	LogLevel   slog.Level

	// Store
	StoreDriver string

	// Postgres
	DBHost        string
	DBPort        int
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBAutoMigrate bool

	// MongoDB
	MongoURI      string
	MongoDatabase string

	// Session
	SessionSecret string
	SessionIssuer string
	SessionTTL    time.Duration
	CookieSecure  bool

	// Verification
	VerifyCodeTTL time.Duration

	// Email
	EmailDriver   string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	EmailFrom     string
	EmailFromName string
	EmailAPIURL   string
	EmailAPIKey   string

	// Application
	AppName       string
	AppBaseURL    string
	DashboardPath string

	MaxRequestBodyBytes int64
	SecurityHeaders     SecurityHeadersConfig
}

// SecurityHeadersConfig holds response security header settings.
type SecurityHeadersConfig struct {
	Enabled            bool
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	ReferrerPolicy     string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		LogLevel:   getEnvLevel("LOG_LEVEL", slog.LevelInfo),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),

		// Database defaults
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnvInt("DB_PORT", 5432),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "anon_inbox"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		DBAutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "anon_inbox"),

		// Session defaults
		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionIssuer: getEnv("SESSION_ISSUER", "anon-inbox"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		CookieSecure:  getEnvBool("COOKIE_SECURE", false),

		VerifyCodeTTL: getEnvDuration("VERIFY_CODE_TTL", time.Hour),

		// Email (defaults to logging codes)
		EmailDriver:   strings.ToLower(getEnv("EMAIL_DRIVER", EmailDriverLog)),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		EmailFrom:     getEnv("EMAIL_FROM", "no-reply@localhost"),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "Anon Inbox"),
		EmailAPIURL:   getEnv("EMAIL_API_URL", "https://api.resend.com/emails"),
		EmailAPIKey:   getEnv("EMAIL_API_KEY", ""),

		AppName:       getEnv("APP_NAME", "Anon Inbox"),
		AppBaseURL:    getEnv("APP_BASE_URL", "http://localhost:8080"),
		DashboardPath: getEnv("DASHBOARD_PATH", "/dashboard"),

		MaxRequestBodyBytes: int64(getEnvInt("MAX_REQUEST_BODY_BYTES", 1<<20)),

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 0),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_CONTENT_TYPE_OPTIONS", "nosniff"),
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "strict-origin-when-cross-origin"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if len(c.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLen)
	}

	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	case StoreDriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.EmailDriver {
	case EmailDriverLog:
	case EmailDriverSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when EMAIL_DRIVER=smtp")
		}
	case EmailDriverAPI:
		if c.EmailAPIKey == "" {
			return fmt.Errorf("EMAIL_API_KEY is required when EMAIL_DRIVER=api")
		}
	default:
		return fmt.Errorf("unknown EMAIL_DRIVER %q", c.EmailDriver)
	}

	return nil
}

// PostgresDSN returns the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func getEnvLevel(key string, defaultValue slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err == nil {
			return level
		}
	}
	return defaultValue
}
