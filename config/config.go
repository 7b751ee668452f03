package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	// HTTP server
	Port          string
	AllowedOrigin string
	// TrustProxy honours X-Forwarded-For / X-Real-IP; only enable behind a
	// proxy that overwrites them.
	TrustProxy bool

	// Database
	DBDriver string
	DSN      string

	// Tokens
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Redis backs token revocation; empty address keeps it in memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Journal behaviour
	TimeZone             string
	GroupingPolicy       string
	AutoCreateCategories bool
	PasswordPolicy       bool

	LoginRatePerMinute int

	LogLevel  string
	LogPretty bool
}

// LoadDotEnv loads the given env files (".env" when none are given). A missing
// file is reported but not fatal.
func LoadDotEnv(files ...string) error {
	return godotenv.Load(files...)
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "3002"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),
		TrustProxy:    getEnvBool("TRUST_PROXY", false),

		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DSN:      getEnv("DSN", "./data/notes.db"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		TimeZone:             getEnv("TIME_ZONE", "UTC"),
		GroupingPolicy:       getEnv("GROUPING_POLICY", "dynamic"),
		AutoCreateCategories: getEnvBool("AUTO_CREATE_CATEGORIES", true),
		PasswordPolicy:       getEnvBool("PASSWORD_POLICY", true),

		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 10),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvBool("LOG_PRETTY", false),
	}
}

// Location resolves TimeZone. Call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DBDriver {
	case "mysql", "sqlite":
	default:
		errors = append(errors, fmt.Sprintf("invalid database driver '%s': must be one of [mysql sqlite]", c.DBDriver))
	}
	if c.DSN == "" {
		errors = append(errors, "DSN cannot be empty")
	}

	if len(c.JWTSecret) < 16 {
		errors = append(errors, "JWT_SECRET must be at least 16 bytes")
	}
	if c.AccessTokenTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid access token ttl %v: must be at least 1 minute", c.AccessTokenTTL))
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		errors = append(errors, fmt.Sprintf("invalid refresh token ttl %v: must not be shorter than the access token ttl", c.RefreshTokenTTL))
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid time zone '%s': %v", c.TimeZone, err))
	}

	switch c.GroupingPolicy {
	case "dynamic", "fixed":
	default:
		errors = append(errors, fmt.Sprintf("invalid grouping policy '%s': must be one of [dynamic fixed]", c.GroupingPolicy))
	}

	if c.LoginRatePerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid login rate %d: must be at least 1", c.LoginRatePerMinute))
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}

	if len(errors) > 0 {
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
