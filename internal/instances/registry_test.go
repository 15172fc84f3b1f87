package instances

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(filepath.Join(t.TempDir(), "registry.json"))
}

func TestRegisterAndFind(t *testing.T) {
	r := newTestRegistry(t)

	id, err := r.Register("/projects/game", "8765")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	inst, ok, err := r.FindByTarget("/projects/game")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, inst.ID)
	assert.Equal(t, "8765", inst.Port)
	assert.Equal(t, os.Getpid(), inst.PID)

	_, ok, err = r.FindByTarget("/projects/other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterReplacesSameTarget(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Register("/projects/game", "8765")
	require.NoError(t, err)
	second, err := r.Register("/projects/game", "9000")
	require.NoError(t, err)

	list, err := r.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, "9000", list[0].Port)
}

func TestDeregister(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Register("/projects/game", "8765")
	require.NoError(t, err)
	require.NoError(t, r.Deregister("/projects/game"))

	_, ok, err := r.FindByTarget("/projects/game")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deregistering an absent target is a no-op.
	require.NoError(t, r.Deregister("/projects/game"))
}

func TestReadTornFileStartsOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte("{torn"), 0o644))

	r := NewRegistry(path)
	list, err := r.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = r.Register("/p", "1")
	require.NoError(t, err)
}

func TestPruneDropsDeadProcesses(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Register("/projects/game", "8765")
	require.NoError(t, err)

	// Forge an entry with an impossible PID.
	require.NoError(t, r.update(func(entries map[string]Instance) {
		inst := entries["/projects/game"]
		inst.PID = 1 << 30
		entries["/dead"] = inst
	}))

	require.NoError(t, r.Prune())
	list, err := r.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "/projects/game", list[0].Target)
}

func TestLockIsReleased(t *testing.T) {
	r := newTestRegistry(t)

	// Sequential updates must not deadlock on the lock file.
	for i := 0; i < 3; i++ {
		_, err := r.Register("/p", "1")
		require.NoError(t, err)
	}
	_, statErr := os.Stat(r.Path() + ".lock")
	assert.True(t, os.IsNotExist(statErr), "lock file must not linger")
}

func TestStaleLockBroken(t *testing.T) {
	r := newTestRegistry(t)

	lockPath := r.Path() + ".lock"
	require.NoError(t, os.MkdirAll(filepath.Dir(lockPath), 0o755))
	require.NoError(t, os.WriteFile(lockPath, []byte("999999\n"), 0o644))
	old := time.Now().Add(-2 * lockStaleAge)
	require.NoError(t, os.Chtimes(lockPath, old, old))

	_, err := r.Register("/p", "1")
	require.NoError(t, err)
}
