package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Env      string
	HTTPAddr string
	BaseURL  string

	DBDSN     string
	JWTSecret string

	LogLevel string

	SessionDays        int
	LoginRateLimit     int
	AuditRetentionDays int
	BcryptCost         int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Env = strings.TrimSpace(os.Getenv("TB_ENV"))
	if cfg.Env == "" {
		return nil, fmt.Errorf("TB_ENV is required")
	}
	if cfg.Env != "dev" && cfg.Env != "prod" {
		return nil, fmt.Errorf("TB_ENV must be one of: dev, prod (got: %s)", cfg.Env)
	}

	cfg.HTTPAddr = getEnvOrDefault("TB_HTTP_ADDR", ":8080")

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("TB_BASE_URL")), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("TB_BASE_URL is required")
	}

	cfg.DBDSN = strings.TrimSpace(os.Getenv("TB_DB_DSN"))
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("TB_DB_DSN is required")
	}

	cfg.JWTSecret = os.Getenv("TB_JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("TB_JWT_SECRET is required")
	}
	if cfg.Env == "prod" && len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("TB_JWT_SECRET must be at least 32 characters (currently %d)", len(cfg.JWTSecret))
	}

	cfg.LogLevel = getEnvOrDefault("TB_LOG_LEVEL", "info")
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("TB_LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", cfg.LogLevel)
	}

	var err error
	cfg.SessionDays, err = getEnvIntOrDefault("TB_SESSION_DAYS", 7)
	if err != nil {
		return nil, err
	}
	if cfg.SessionDays <= 0 {
		return nil, fmt.Errorf("TB_SESSION_DAYS must be positive (got: %d)", cfg.SessionDays)
	}

	cfg.LoginRateLimit, err = getEnvIntOrDefault("TB_LOGIN_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	cfg.AuditRetentionDays, err = getEnvIntOrDefault("TB_AUDIT_RETENTION_DAYS", 180)
	if err != nil {
		return nil, err
	}

	cfg.BcryptCost, err = getEnvIntOrDefault("TB_BCRYPT_COST", 12)
	if err != nil {
		return nil, err
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("TB_BCRYPT_COST must be between 4 and 31 (got: %d)", cfg.BcryptCost)
	}

	return cfg, nil
}

// IsDev returns true if running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// RedactedValues returns a map of config values with secrets redacted.
func (c *Config) RedactedValues() map[string]string {
	return map[string]string{
		"TB_ENV":                  c.Env,
		"TB_HTTP_ADDR":            c.HTTPAddr,
		"TB_BASE_URL":             c.BaseURL,
		"TB_DB_DSN":               redactDSN(c.DBDSN),
		"TB_JWT_SECRET":           "[REDACTED]",
		"TB_LOG_LEVEL":            c.LogLevel,
		"TB_SESSION_DAYS":         strconv.Itoa(c.SessionDays),
		"TB_LOGIN_RATE_LIMIT":     strconv.Itoa(c.LoginRateLimit),
		"TB_AUDIT_RETENTION_DAYS": strconv.Itoa(c.AuditRetentionDays),
		"TB_BCRYPT_COST":          strconv.Itoa(c.BcryptCost),
	}
}

func redactDSN(dsn string) string {
	if start := strings.Index(dsn, "://"); start != -1 {
		if end := strings.Index(dsn[start+3:], "@"); end != -1 {
			return dsn[:start+3] + "[REDACTED]" + dsn[start+3+end:]
		}
	}
	return dsn
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %q)", key, value)
	}
	return parsed, nil
}
