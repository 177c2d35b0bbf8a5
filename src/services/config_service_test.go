package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screentime-bar/src/lib"
	"screentime-bar/src/models"
)

func newTestConfigService(t *testing.T, reader func(string) ([]byte, error)) *ConfigService {
	t.Helper()
	svc := NewConfigService()
	svc.SetConfigPath(filepath.Join(t.TempDir(), "config.yaml"))
	svc.SetReadFile(reader)
	return svc
}

func TestConfigService_GetConfigPath(t *testing.T) {
	svc := NewConfigService()
	path := svc.GetConfigPath()

	assert.NotEmpty(t, path)
	assert.Contains(t, path, "screentime-bar")
	assert.Contains(t, path, "config.yaml")
	assert.True(t, filepath.IsAbs(path))
}

func TestConfigService_LoadDefaultsWhenFileMissing(t *testing.T) {
	svc := newTestConfigService(t, func(string) ([]byte, error) {
		return nil, os.ErrNotExist
	})

	cfg, err := svc.Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, models.ConfigDefaults(), cfg)

	// Defaults are written out so the user has a file to edit.
	_, statErr := os.Stat(svc.GetConfigPath())
	assert.NoError(t, statErr)
}

func TestConfigService_LoadPropagatesReadError(t *testing.T) {
	expectedErr := errors.New("permission denied")
	svc := newTestConfigService(t, func(string) ([]byte, error) {
		return nil, expectedErr
	})

	cfg, err := svc.Load()

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Equal(t, expectedErr, err)
}

func TestConfigService_LoadInvalidYAML(t *testing.T) {
	svc := newTestConfigService(t, func(string) ([]byte, error) {
		return []byte("not: [valid"), nil
	})

	cfg, err := svc.Load()

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "yaml")
	assert.True(t, lib.IsErrorCode(err, lib.ErrCodeConfig))
}

func TestConfigService_LoadInvalidConfig(t *testing.T) {
	svc := newTestConfigService(t, func(string) ([]byte, error) {
		return []byte(`daily_limit_minutes: 60
tick_interval: -1
debug_level: "INFO"`), nil
	})

	cfg, err := svc.Load()

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "tick_interval")
}

func TestConfigService_LoadValidConfig(t *testing.T) {
	svc := newTestConfigService(t, func(string) ([]byte, error) {
		return []byte(`daily_limit_minutes: 90
max_annoyance_popups: 5
tick_interval: 2
debug_level: "DEBUG"
store_backend: "bolt"
title_format: "{{.Remaining}}"
notify_timeout: 10
state_dir: "/tmp/screentime"`), nil
	})

	cfg, err := svc.Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 90, cfg.DailyLimitMinutes)
	assert.Equal(t, 5, cfg.MaxAnnoyancePopups)
	assert.Equal(t, 2, cfg.TickInterval)
	assert.Equal(t, "DEBUG", cfg.DebugLevel)
	assert.Equal(t, models.StoreBackendBolt, cfg.StoreBackend)
	assert.Equal(t, "{{.Remaining}}", cfg.TitleFormat)
	assert.Equal(t, 10, cfg.NotifyTimeout)
	assert.Equal(t, "/tmp/screentime", cfg.StateDir)
}

func TestConfigService_LoadPartialConfigKeepsDefaults(t *testing.T) {
	svc := newTestConfigService(t, func(string) ([]byte, error) {
		return []byte("daily_limit_minutes: 45\n"), nil
	})

	cfg, err := svc.Load()

	require.NoError(t, err)
	defaults := models.ConfigDefaults()
	assert.Equal(t, 45, cfg.DailyLimitMinutes)
	assert.Equal(t, defaults.MaxAnnoyancePopups, cfg.MaxAnnoyancePopups)
	assert.Equal(t, defaults.TitleFormat, cfg.TitleFormat)
	assert.Equal(t, defaults.StoreBackend, cfg.StoreBackend)
}

func TestConfigService_SaveAndReload(t *testing.T) {
	svc := newTestConfigService(t, nil)

	cfg := models.ConfigDefaults()
	cfg.DailyLimitMinutes = 120
	cfg.MaxAnnoyancePopups = 0
	require.NoError(t, svc.Save(cfg))

	loaded, err := svc.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	info, err := os.Stat(svc.GetConfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestConfigService_SaveRejectsInvalidConfig(t *testing.T) {
	svc := newTestConfigService(t, nil)

	cfg := models.ConfigDefaults()
	cfg.DailyLimitMinutes = 0

	err := svc.Save(cfg)
	require.Error(t, err)
	assert.True(t, lib.IsErrorCode(err, lib.ErrCodeValidation))

	_, statErr := os.Stat(svc.GetConfigPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestConfigService_Validate(t *testing.T) {
	svc := NewConfigService()
	base := models.ConfigDefaults()

	testCases := []struct {
		name     string
		mutate   func(*models.Config)
		wantErr  bool
		errToken string
	}{
		{
			name:   "valid defaults",
			mutate: func(*models.Config) {},
		},
		{
			name:     "daily limit out of range",
			mutate:   func(c *models.Config) { c.DailyLimitMinutes = 1441 },
			wantErr:  true,
			errToken: "daily_limit_minutes",
		},
		{
			name:     "negative popup cap",
			mutate:   func(c *models.Config) { c.MaxAnnoyancePopups = -1 },
			wantErr:  true,
			errToken: "max_annoyance_popups",
		},
		{
			name:     "invalid debug level",
			mutate:   func(c *models.Config) { c.DebugLevel = "TRACE" },
			wantErr:  true,
			errToken: "debug_level",
		},
		{
			name:     "unknown store backend",
			mutate:   func(c *models.Config) { c.StoreBackend = "sqlite" },
			wantErr:  true,
			errToken: "store_backend",
		},
		{
			name:     "broken title format",
			mutate:   func(c *models.Config) { c.TitleFormat = "{{.Remaining" },
			wantErr:  true,
			errToken: "title_format",
		},
		{
			name:     "notify timeout out of range",
			mutate:   func(c *models.Config) { c.NotifyTimeout = 0 },
			wantErr:  true,
			errToken: "notify_timeout",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := *base
			tc.mutate(&cfg)

			err := svc.Validate(&cfg)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errToken)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfigService_SetReadFileResetToDefault(t *testing.T) {
	svc := NewConfigService()
	svc.SetConfigPath(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	svc.SetReadFile(nil)

	cfg, err := svc.Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, models.ConfigDefaults(), cfg)
}

func TestConfigService_ResolvePaths(t *testing.T) {
	svc := NewConfigService()
	configDir := t.TempDir()
	svc.SetConfigPath(filepath.Join(configDir, "config.yaml"))

	cfg := models.ConfigDefaults()
	cfg.StateDir = "/var/tmp/screentime"
	paths := svc.ResolvePaths(cfg)

	assert.Equal(t, "/var/tmp/screentime/ledger.json", paths.Ledger)
	assert.Equal(t, "/var/tmp/screentime/ledger.db", paths.Bolt)
	assert.Equal(t, "/var/tmp/screentime/audit.log", paths.Audit)
	assert.Equal(t, "/var/tmp/screentime/screentime-bar.lock", paths.Lock)
	assert.Equal(t, filepath.Join(configDir, "alerts.yaml"), paths.Policy)

	cfg.StateDir = ""
	paths = svc.ResolvePaths(cfg)
	assert.Contains(t, paths.Ledger, AppName)
	assert.True(t, filepath.IsAbs(paths.Ledger))
}
