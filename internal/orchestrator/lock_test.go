package orchestrator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectLock_TryLock_SecondAttemptFails(t *testing.T) {
	dir := t.TempDir()

	first := NewProjectLock(dir)
	acquired, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)
	defer first.Unlock()

	second := NewProjectLock(dir)
	acquired, err = second.TryLock()
	require.NoError(t, err)
	assert.False(t, acquired)
}

func TestProjectLock_UnlockAllowsReacquisition(t *testing.T) {
	dir := t.TempDir()

	first := NewProjectLock(dir)
	acquired, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)
	require.NoError(t, first.Unlock())

	second := NewProjectLock(dir)
	acquired, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, acquired)
	defer second.Unlock()
}

func TestProjectLock_UnlockWithoutLockIsNoop(t *testing.T) {
	l := NewProjectLock(t.TempDir())
	assert.NoError(t, l.Unlock())
}

func TestProjectLock_CreatesLockFileUnderDataDir(t *testing.T) {
	dir := t.TempDir()
	l := NewProjectLock(dir)
	_, err := l.TryLock()
	require.NoError(t, err)
	defer l.Unlock()

	assert.Equal(t, filepath.Join(dir, ".orchestrator.lock"), l.path)
}
