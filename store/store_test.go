package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func backends(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := NewFileStore(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)

	db, err := OpenDatabase("sqlite", ":memory:", 1, LogLevelSilent)
	require.NoError(t, err)
	t.Cleanup(func() { CloseDatabase(db) })
	gs, err := NewGormStore(db)
	require.NoError(t, err)

	return map[string]Store{
		"memory": NewMemStore(),
		"file":   fs,
		"gorm":   gs,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var got sample
			ok, err := s.Get(ctx, KeyOfflineStudents, &got)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Put(ctx, KeyOfflineStudents, sample{Name: "a", Count: 1}))
			require.NoError(t, s.Put(ctx, KeyOfflineStudents, sample{Name: "b", Count: 2}))

			ok, err = s.Get(ctx, KeyOfflineStudents, &got)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, sample{Name: "b", Count: 2}, got)

			require.NoError(t, s.Delete(ctx, KeyOfflineStudents))
			require.NoError(t, s.Delete(ctx, KeyOfflineStudents))
			ok, err = s.Get(ctx, KeyOfflineStudents, &got)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestLoadAndMustExist(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	list, err := Load[[]sample](ctx, s, KeyOfflineGroups)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = MustExist[sample](ctx, s, KeyCurrentUser)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, KeyOfflineGroups, []sample{{Name: "1A"}}))
	list, err = Load[[]sample](ctx, s, KeyOfflineGroups)
	require.NoError(t, err)
	assert.Equal(t, []sample{{Name: "1A"}}, list)
}

func TestFileStoreConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Put(ctx, KeyOfflineActions, sample{Count: i}))
		}(i)
	}
	wg.Wait()

	var got sample
	ok, err := s.Get(ctx, KeyOfflineActions, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, got.Count, 0)
}

func TestOpenDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := OpenDatabase("oracle", "", 1, LogLevelSilent)
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelSilent, ParseLogLevel(""))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("WARN"))
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("debug"))
}
