package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rec.json")

	in := record{Name: "alpha", Count: 3}
	require.NoError(t, WriteJSON(path, in))

	var out record
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, in, out)
}

func TestReadJSON_NotFound(t *testing.T) {
	var out record
	err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteJSON_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.json")
	require.NoError(t, WriteJSON(path, record{Name: "a"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not survive a successful write")
}

func TestWriteJSONExcl(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")

	require.NoError(t, WriteJSONExcl(path, record{Name: "first"}))

	err := WriteJSONExcl(path, record{Name: "second"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	// Original content is untouched.
	var out record
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, "first", out.Name)
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.json")
	require.NoError(t, WriteJSON(path, record{}))
	require.NoError(t, Remove(path))
	assert.ErrorIs(t, Remove(path), ErrNotFound)
}

func TestAcquireLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	l1, err := AcquireLock(path, time.Second)
	require.NoError(t, err)

	_, err = AcquireLock(path, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)

	require.NoError(t, l1.Release())

	l2, err := AcquireLock(path, time.Second)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestAcquireLock_BreaksStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")
	require.NoError(t, os.WriteFile(path, []byte("999999\n"), 0600))

	stale := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(path, stale, stale))

	l, err := AcquireLock(path, time.Second)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

func TestAcquireLock_Contention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	var wg sync.WaitGroup
	held := 0
	var mu sync.Mutex

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := AcquireLock(path, 5*time.Second)
			if err != nil {
				return
			}
			mu.Lock()
			held++
			mu.Unlock()
			l.Release()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 8, held, "every goroutine should eventually hold the lock")
}

func TestErrorsAreDistinguishable(t *testing.T) {
	assert.False(t, errors.Is(ErrNotFound, ErrAlreadyExists))
	assert.False(t, errors.Is(ErrLockTimeout, ErrNotFound))
}
