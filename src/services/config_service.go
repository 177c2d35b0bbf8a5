package services

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"screentime-bar/src/lib"
	"screentime-bar/src/models"
)

// AppName names the XDG subdirectories the app owns.
const AppName = "screentime-bar"

const (
	ledgerFileName = "ledger.json"
	boltFileName   = "ledger.db"
	auditFileName  = "audit.log"
	lockFileName   = "screentime-bar.lock"
	policyFileName = "alerts.yaml"
	configFileName = "config.yaml"
)

// ConfigService implements configuration management with XDG compliance
type ConfigService struct {
	logger     *lib.Logger
	configPath string // Override for testing
	readFile   func(string) ([]byte, error)
}

// NewConfigService creates a new ConfigService instance
func NewConfigService() *ConfigService {
	return &ConfigService{
		logger:   lib.NewLogger("config-service"),
		readFile: os.ReadFile,
	}
}

// Load reads configuration from XDG-compliant storage
// Returns default config if file doesn't exist
// Returns error for permission/system issues, corrupted files, or invalid configurations
func (cs *ConfigService) Load() (*models.Config, error) {
	configPath := cs.GetConfigPath()

	data, err := cs.readFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		defaults := models.ConfigDefaults()
		if saveErr := cs.Save(defaults); saveErr != nil {
			cs.logger.Warn("Failed to create default config file", map[string]interface{}{
				"error": saveErr.Error(),
				"path":  configPath,
			})
		}
		return defaults, nil
	}
	if err != nil {
		return nil, err
	}

	// Unset keys keep their defaults so older config files stay valid.
	config := models.ConfigDefaults()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, lib.ConfigError(err, "failed to parse yaml config").
			WithContext("path", configPath)
	}

	if err := cs.Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Save persists configuration to XDG-compliant storage
// Creates directories if they don't exist
// Returns error for validation failures or write issues
func (cs *ConfigService) Save(config *models.Config) error {
	if err := cs.Validate(config); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return lib.ConfigError(err, "failed to encode config")
	}

	return writeFileAtomic(cs.GetConfigPath(), data, 0o600)
}

// Validate checks configuration values for correctness
// Returns error describing first validation failure found
func (cs *ConfigService) Validate(config *models.Config) error {
	return config.Validate()
}

// GetConfigPath returns the full path to the config file
func (cs *ConfigService) GetConfigPath() string {
	if cs.configPath != "" {
		return cs.configPath
	}
	return filepath.Join(xdg.ConfigHome, AppName, configFileName)
}

// SetConfigPath sets a custom config path for testing
func (cs *ConfigService) SetConfigPath(path string) {
	cs.configPath = path
}

// SetReadFile swaps the file reader; nil restores os.ReadFile
func (cs *ConfigService) SetReadFile(reader func(string) ([]byte, error)) {
	if reader == nil {
		reader = os.ReadFile
	}
	cs.readFile = reader
}

// Paths locates every file the app keeps outside the config file.
type Paths struct {
	Ledger string
	Bolt   string
	Audit  string
	Lock   string
	Policy string
}

// ResolvePaths places state under config.StateDir when set, otherwise under
// the XDG state directory. The alert policy lives next to config.yaml.
func (cs *ConfigService) ResolvePaths(config *models.Config) Paths {
	stateDir := config.StateDir
	if stateDir == "" {
		stateDir = filepath.Join(xdg.StateHome, AppName)
	}
	return Paths{
		Ledger: filepath.Join(stateDir, ledgerFileName),
		Bolt:   filepath.Join(stateDir, boltFileName),
		Audit:  filepath.Join(stateDir, auditFileName),
		Lock:   filepath.Join(stateDir, lockFileName),
		Policy: filepath.Join(filepath.Dir(cs.GetConfigPath()), policyFileName),
	}
}
