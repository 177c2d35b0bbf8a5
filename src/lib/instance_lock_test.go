//go:build unix

package lib

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireInstanceLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "screentime-bar.lock")

	first, err := AcquireInstanceLock(path)
	require.NoError(t, err)
	assert.Equal(t, path, first.Path())

	// flock locks belong to the open file description, so a second open in
	// the same process is refused just like another process would be.
	second, err := AcquireInstanceLock(path)
	require.Error(t, err)
	assert.Nil(t, second)
	assert.True(t, IsErrorCode(err, ErrCodeSystem))

	require.NoError(t, first.Release())
	require.NoError(t, first.Release())

	third, err := AcquireInstanceLock(path)
	require.NoError(t, err)
	require.NoError(t, third.Release())
}
