package services

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"

	"screentime-bar/src/lib"
	"screentime-bar/src/models"
)

// PolicyStore persists the alert policy as YAML, separately from the ledger.
type PolicyStore struct {
	path   string
	logger *lib.Logger
}

// NewPolicyStore creates a store for the policy file at path.
func NewPolicyStore(path string) *PolicyStore {
	return &PolicyStore{
		path:   path,
		logger: lib.NewLogger("policy-store"),
	}
}

// Path returns the policy file location.
func (ps *PolicyStore) Path() string {
	return ps.path
}

// policyRecord distinguishes an absent section (nil) from an explicitly
// empty one so missing sections fall back to defaults.
type policyRecord struct {
	PreLimit     *[]models.PreLimitRule   `yaml:"pre_limit"`
	PostLimit    *[]models.PostLimitRule  `yaml:"post_limit"`
	LimitReached *models.LimitReachedRule `yaml:"limit_reached"`
}

// Load reads the policy file. A missing file yields the defaults with
// lib.ErrNotFound; an unreadable or malformed file yields the defaults with a
// PERSISTENCE_ERROR. The returned policy is always normalized and usable.
func (ps *PolicyStore) Load() (*models.AlertPolicy, error) {
	defaults := models.DefaultAlertPolicy()

	data, err := os.ReadFile(ps.path)
	if errors.Is(err, os.ErrNotExist) {
		return defaults, lib.PersistenceError(lib.ErrNotFound, "policy file does not exist")
	}
	if err != nil {
		return defaults, lib.PersistenceError(err, "failed to read policy file").
			WithContext("path", ps.path)
	}

	var record policyRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return defaults, lib.PersistenceError(err, "failed to parse policy file").
			WithContext("path", ps.path)
	}

	policy := defaults
	if record.PreLimit != nil {
		policy.PreLimit = *record.PreLimit
	}
	if record.PostLimit != nil {
		policy.PostLimit = *record.PostLimit
	}
	if record.LimitReached != nil {
		policy.LimitReached = record.LimitReached
	}

	if policy.Normalize() {
		ps.logger.Warn("Alert policy repaired on load", map[string]interface{}{
			"path":    ps.path,
			"summary": policy.Summary(),
		})
	}

	return policy, nil
}

// LoadOrDefault loads the policy and logs why defaults were used, if they were.
func (ps *PolicyStore) LoadOrDefault() *models.AlertPolicy {
	policy, err := ps.Load()
	switch {
	case err == nil:
	case errors.Is(err, lib.ErrNotFound):
		ps.logger.Info("No saved alert policy, using defaults", map[string]interface{}{
			"path": ps.path,
		})
	default:
		ps.logger.Warn("Failed to load alert policy, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return policy
}

// Save writes the policy atomically.
func (ps *PolicyStore) Save(policy *models.AlertPolicy) error {
	data, err := yaml.Marshal(policy)
	if err != nil {
		return lib.PolicyError(err, "failed to encode alert policy")
	}
	return writeFileAtomic(ps.path, data, 0o600)
}

// DecodePolicy parses a policy document supplied by an administrator. Unlike
// Load it does not repair anything; the engine validates the result.
func DecodePolicy(data []byte) (*models.AlertPolicy, error) {
	var policy models.AlertPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, lib.WrapError(err, lib.ErrCodeValidation, "alert policy is not valid yaml")
	}
	if policy.LimitReached == nil {
		policy.LimitReached = models.DefaultLimitReachedRule()
	}
	return &policy, nil
}
