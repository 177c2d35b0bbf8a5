// Package models contains domain models and configuration types.
package models

import (
	"strings"

	"screentime-bar/src/lib"
)

const (
	defaultDailyLimitMinutes    = 60
	defaultMaxAnnoyancePopups   = 3
	defaultTickIntervalSeconds  = 1
	defaultNotifyTimeoutSeconds = 30
	defaultTitleFormat          = "{{.Emoji}} {{.Remaining}}"
	maxAnnoyancePopupsCeiling   = 100
	maxNotifyTimeoutSeconds     = 120
)

// MaxTickIntervalSeconds must stay below the engine's 10s tick-gap guard,
// otherwise every tick is discarded as a clock jump.
const MaxTickIntervalSeconds = 5

// MaxMinutesPerDay bounds every minute-valued setting.
const MaxMinutesPerDay = 1440

const secondsPerMinute = 60

// Ledger store backends.
const (
	StoreBackendFile = "file"
	StoreBackendBolt = "bolt"
)

// AdminPIN gates administrative commands. It is a deterrent, not a security
// boundary, and is replaced at build time:
//
//	go build -ldflags "-X screentime-bar/src/models.AdminPIN=1234" ./src
var AdminPIN = "4739"

// Config represents the application configuration structure.
type Config struct {
	DailyLimitMinutes  int    `yaml:"daily_limit_minutes"`
	MaxAnnoyancePopups int    `yaml:"max_annoyance_popups"`
	TickInterval       int    `yaml:"tick_interval"` // Tick interval in seconds
	DebugLevel         string `yaml:"debug_level"`
	StoreBackend       string `yaml:"store_backend"`
	TitleFormat        string `yaml:"title_format"`
	NotifyTimeout      int    `yaml:"notify_timeout"`      // Alert command timeout in seconds
	StateDir           string `yaml:"state_dir,omitempty"` // Overrides the XDG state directory
}

// ConfigDefaults returns a Config struct with default values.
func ConfigDefaults() *Config {
	return &Config{
		DailyLimitMinutes:  defaultDailyLimitMinutes,
		MaxAnnoyancePopups: defaultMaxAnnoyancePopups,
		TickInterval:       defaultTickIntervalSeconds,
		DebugLevel:         "INFO",
		StoreBackend:       StoreBackendFile,
		TitleFormat:        defaultTitleFormat,
		NotifyTimeout:      defaultNotifyTimeoutSeconds,
	}
}

// DailyLimitSeconds returns the configured default limit in seconds.
func (c *Config) DailyLimitSeconds() float64 {
	return float64(c.DailyLimitMinutes * secondsPerMinute)
}

// Validate checks configuration values for correctness
// Returns error describing first validation failure found.
func (c *Config) Validate() error {
	if c.DailyLimitMinutes < 1 || c.DailyLimitMinutes > MaxMinutesPerDay {
		return lib.ValidationError("daily_limit_minutes must be between 1 and 1440")
	}

	if c.MaxAnnoyancePopups < 0 || c.MaxAnnoyancePopups > maxAnnoyancePopupsCeiling {
		return lib.ValidationError("max_annoyance_popups must be between 0 and 100")
	}

	if c.TickInterval < 1 || c.TickInterval > MaxTickIntervalSeconds {
		return lib.ValidationError("tick_interval must be between 1 and 5 seconds")
	}

	if _, ok := lib.ParseLogLevel(strings.ToUpper(c.DebugLevel)); !ok {
		return lib.ValidationError("debug_level must be one of: DEBUG, INFO, WARN, ERROR, FATAL")
	}

	switch c.StoreBackend {
	case StoreBackendFile, StoreBackendBolt:
	default:
		return lib.ValidationError("store_backend must be one of: file, bolt")
	}

	if err := lib.ValidateTemplate(c.TitleFormat); err != nil {
		return lib.WrapError(err, lib.ErrCodeValidation, "title_format is not a valid template")
	}

	if c.NotifyTimeout < 1 || c.NotifyTimeout > maxNotifyTimeoutSeconds {
		return lib.ValidationError("notify_timeout must be between 1 and 120 seconds")
	}

	return nil
}

// GetLogLevel converts the debug level string to a LogLevel.
// Returns INFO level if the string is invalid.
func (c *Config) GetLogLevel() lib.LogLevel {
	level, _ := lib.ParseLogLevel(strings.ToUpper(c.DebugLevel))
	return level
}
