package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"screentime-bar/src/lib"
)

func TestConfigDefaults(t *testing.T) {
	config := ConfigDefaults()

	assert.Equal(t, 60, config.DailyLimitMinutes)
	assert.Equal(t, 3, config.MaxAnnoyancePopups)
	assert.Equal(t, 1, config.TickInterval)
	assert.Equal(t, "INFO", config.DebugLevel)
	assert.Equal(t, StoreBackendFile, config.StoreBackend)
	assert.Equal(t, "{{.Emoji}} {{.Remaining}}", config.TitleFormat)
	assert.Equal(t, 30, config.NotifyTimeout)
	assert.Empty(t, config.StateDir)
	assert.NoError(t, config.Validate())
}

func TestConfig_DailyLimitSeconds(t *testing.T) {
	config := ConfigDefaults()
	assert.Equal(t, 3600.0, config.DailyLimitSeconds())

	config.DailyLimitMinutes = 90
	assert.Equal(t, 5400.0, config.DailyLimitSeconds())
}

func TestConfig_Validate_Ranges(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		expected string
	}{
		{"limit zero", func(c *Config) { c.DailyLimitMinutes = 0 }, "daily_limit_minutes must be between 1 and 1440"},
		{"limit over a day", func(c *Config) { c.DailyLimitMinutes = 1441 }, "daily_limit_minutes must be between 1 and 1440"},
		{"negative popups", func(c *Config) { c.MaxAnnoyancePopups = -1 }, "max_annoyance_popups must be between 0 and 100"},
		{"too many popups", func(c *Config) { c.MaxAnnoyancePopups = 101 }, "max_annoyance_popups must be between 0 and 100"},
		{"tick zero", func(c *Config) { c.TickInterval = 0 }, "tick_interval must be between 1 and 5 seconds"},
		{"tick too slow", func(c *Config) { c.TickInterval = 6 }, "tick_interval must be between 1 and 5 seconds"},
		{"tick at gap guard", func(c *Config) { c.TickInterval = 10 }, "tick_interval must be between 1 and 5 seconds"},
		{"unknown backend", func(c *Config) { c.StoreBackend = "sqlite" }, "store_backend must be one of: file, bolt"},
		{"broken title", func(c *Config) { c.TitleFormat = "{{.Remaining" }, "title_format is not a valid template"},
		{"empty title", func(c *Config) { c.TitleFormat = "" }, "title_format is not a valid template"},
		{"notify timeout zero", func(c *Config) { c.NotifyTimeout = 0 }, "notify_timeout must be between 1 and 120 seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := ConfigDefaults()
			tt.mutate(config)

			err := config.Validate()
			assert.Error(t, err)
			assert.True(t, lib.IsErrorCode(err, lib.ErrCodeValidation))
			assert.Contains(t, err.Error(), tt.expected)
		})
	}
}

func TestConfig_Validate_Boundaries(t *testing.T) {
	config := ConfigDefaults()
	config.DailyLimitMinutes = 1
	config.MaxAnnoyancePopups = 0
	config.TickInterval = 5
	config.StoreBackend = StoreBackendBolt
	assert.NoError(t, config.Validate())

	config.DailyLimitMinutes = 1440
	config.MaxAnnoyancePopups = 100
	config.NotifyTimeout = 120
	assert.NoError(t, config.Validate())
}

func TestConfig_Validate_DebugLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		valid bool
	}{
		{"DEBUG", "DEBUG", true},
		{"INFO", "INFO", true},
		{"WARN", "WARN", true},
		{"ERROR", "ERROR", true},
		{"FATAL", "FATAL", true},
		{"lowercase debug", "debug", true},
		{"mixed case", "Info", true},
		{"invalid level", "INVALID", false},
		{"empty level", "", false},
		{"numeric level", "1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := ConfigDefaults()
			config.DebugLevel = tt.level

			err := config.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "debug_level must be one of")
			}
		})
	}
}

func TestConfig_GetLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected lib.LogLevel
	}{
		{"DEBUG", lib.DEBUG},
		{"info", lib.INFO},
		{"Warn", lib.WARN},
		{"ERROR", lib.ERROR},
		{"FATAL", lib.FATAL},
		{"bogus", lib.INFO},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			config := ConfigDefaults()
			config.DebugLevel = tt.level
			assert.Equal(t, tt.expected, config.GetLogLevel())
		})
	}
}
