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

func TestPolicyStore_LoadMissingReturnsDefaults(t *testing.T) {
	store := NewPolicyStore(filepath.Join(t.TempDir(), "alerts.yaml"))

	policy, err := store.Load()

	require.Error(t, err)
	assert.True(t, errors.Is(err, lib.ErrNotFound))
	assert.Equal(t, models.DefaultAlertPolicy(), policy)
	assert.Equal(t, models.DefaultAlertPolicy(), store.LoadOrDefault())
}

func TestPolicyStore_SaveAndLoad(t *testing.T) {
	store := NewPolicyStore(filepath.Join(t.TempDir(), "nested", "alerts.yaml"))

	policy := &models.AlertPolicy{
		PreLimit: []models.PreLimitRule{
			{MinutesBeforeLimit: 10, Enabled: true, Message: "{minutes} left"},
			{MinutesBeforeLimit: 2, Enabled: false, Message: "almost"},
		},
		PostLimit: []models.PostLimitRule{
			{MinutesAfterLimit: 3, Enabled: true, Message: "over", Sound: "/tmp/beep.aiff"},
		},
		LimitReached: &models.LimitReachedRule{Enabled: false, Message: "done"},
	}
	require.NoError(t, store.Save(policy))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, policy, loaded)
}

func TestPolicyStore_LoadRepairsAndFillsSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.yaml")
	content := `pre_limit:
  - minutes_before_limit: 1
    enabled: true
    message: one
  - minutes_before_limit: 10
    enabled: true
    message: ten
  - minutes_before_limit: 10
    enabled: true
    message: duplicate
  - minutes_before_limit: 0
    enabled: true
    message: out of range
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	policy, err := NewPolicyStore(path).Load()
	require.NoError(t, err)

	require.Len(t, policy.PreLimit, 2)
	assert.Equal(t, 10, policy.PreLimit[0].MinutesBeforeLimit)
	assert.Equal(t, "ten", policy.PreLimit[0].Message)
	assert.Equal(t, 1, policy.PreLimit[1].MinutesBeforeLimit)

	// Absent sections fall back to defaults.
	assert.Equal(t, models.DefaultAlertPolicy().PostLimit, policy.PostLimit)
	assert.Equal(t, models.DefaultLimitReachedRule(), policy.LimitReached)
	assert.NoError(t, policy.Validate())
}

func TestPolicyStore_ExplicitEmptySectionStaysEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("post_limit: []\n"), 0o600))

	policy, err := NewPolicyStore(path).Load()
	require.NoError(t, err)
	assert.Empty(t, policy.PostLimit)
	assert.Len(t, policy.PreLimit, 3)
}

func TestPolicyStore_CorruptFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pre_limit: [oops"), 0o600))

	policy, err := NewPolicyStore(path).Load()

	require.Error(t, err)
	assert.True(t, lib.IsErrorCode(err, lib.ErrCodePersistence))
	assert.Equal(t, models.DefaultAlertPolicy(), policy)
}

func TestDecodePolicy(t *testing.T) {
	policy, err := DecodePolicy([]byte(`pre_limit:
  - minutes_before_limit: 5
    enabled: true
    message: five
  - minutes_before_limit: 15
    enabled: true
    message: fifteen
`))
	require.NoError(t, err)

	// Not repaired: the engine rejects the ordering.
	require.Len(t, policy.PreLimit, 2)
	assert.Equal(t, 5, policy.PreLimit[0].MinutesBeforeLimit)
	assert.NotNil(t, policy.LimitReached)
	assert.Error(t, policy.Validate())

	_, err = DecodePolicy([]byte("pre_limit: [oops"))
	require.Error(t, err)
	assert.True(t, lib.IsErrorCode(err, lib.ErrCodeValidation))
}
