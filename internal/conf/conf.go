package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config represents application configuration
type Config struct {
	// Feishu configuration
	Feishu FeishuConfig

	// Store configuration
	Store StoreConfig

	// Timezone in which user-entered clock times are interpreted
	Timezone string

	// Delivery configuration
	Delivery DeliveryConfig

	// Session configuration
	Session SessionConfig

	// Debug mode
	Debug bool
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// StoreConfig contains reminder store configuration
type StoreConfig struct {
	DBPath string
}

// DeliveryConfig contains delivery engine configuration
type DeliveryConfig struct {
	SweepInterval time.Duration // durability backstop poll
	MaxAttempts   int           // send attempts per firing before terminal log
	RetryBackoff  time.Duration // first retry delay, doubled per attempt
}

// SessionConfig contains conversation session configuration
type SessionConfig struct {
	IdleMinutes int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Reminder DB path
	dbPath := os.Getenv("REMINDER_DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".nagadaibot", "reminders.db")
	}

	timezone := os.Getenv("TIMEZONE")
	if timezone == "" {
		timezone = "Europe/Kyiv"
	}

	sweepSeconds := 30
	if val := os.Getenv("SWEEP_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			sweepSeconds = parsed
		}
	}

	maxAttempts := 3
	if val := os.Getenv("DELIVERY_MAX_ATTEMPTS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			maxAttempts = parsed
		}
	}

	idleMinutes := 30
	if val := os.Getenv("SESSION_IDLE_MINUTES"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			idleMinutes = parsed
		}
	}

	return &Config{
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		Store: StoreConfig{
			DBPath: dbPath,
		},
		Timezone: timezone,
		Delivery: DeliveryConfig{
			SweepInterval: time.Duration(sweepSeconds) * time.Second,
			MaxAttempts:   maxAttempts,
			RetryBackoff:  2 * time.Second,
		},
		Session: SessionConfig{
			IdleMinutes: idleMinutes,
		},
		Debug: os.Getenv("DEBUG") == "true",
	}
}

// Location resolves the configured timezone, falling back to UTC if the
// name is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IdleTimeout converts the session idle setting to a duration.
func (c *SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleMinutes) * time.Minute
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
