package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadDelete(t *testing.T) {
	s := openTestStorage(t)
	now := time.Now()

	require.NoError(t, s.SaveRoom("r1", []byte(`{"id":"r1"}`), now))
	require.NoError(t, s.SaveRoom("r2", []byte(`{"id":"r2"}`), now))

	t.Run("load one", func(t *testing.T) {
		env, found, err := s.LoadRoom("r1")
		require.NoError(t, err)
		require.True(t, found)
		assert.JSONEq(t, `{"id":"r1"}`, string(env.Data))
		assert.Equal(t, now.UnixMilli(), env.UpdatedAt)
	})

	t.Run("load missing", func(t *testing.T) {
		_, found, err := s.LoadRoom("nope")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("load all", func(t *testing.T) {
		rooms, err := s.LoadRooms()
		require.NoError(t, err)
		assert.Len(t, rooms, 2)
		assert.Contains(t, rooms, "r1")
		assert.Contains(t, rooms, "r2")
	})

	t.Run("overwrite", func(t *testing.T) {
		later := now.Add(time.Minute)
		require.NoError(t, s.SaveRoom("r1", []byte(`{"id":"r1","gameCount":2}`), later))
		env, found, err := s.LoadRoom("r1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, later.UnixMilli(), env.UpdatedAt)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteRoom("r1"))
		_, found, err := s.LoadRoom("r1")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestStaleRooms(t *testing.T) {
	s := openTestStorage(t)
	now := time.Now()

	require.NoError(t, s.SaveRoom("old", []byte(`{}`), now.Add(-25*time.Hour)))
	require.NoError(t, s.SaveRoom("fresh", []byte(`{}`), now.Add(-time.Hour)))

	stale, err := s.StaleRooms(24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, stale)
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	log := zap.NewNop()

	s, err := Open(dir, log)
	require.NoError(t, err)
	require.NoError(t, s.SaveRoom("r1", []byte(`{"id":"r1"}`), time.Now()))
	require.NoError(t, s.Close())

	s2, err := Open(dir, log)
	require.NoError(t, err)
	defer s2.Close()

	rooms, err := s2.LoadRooms()
	require.NoError(t, err)
	assert.Contains(t, rooms, "r1", "snapshots survive a restart")
}
