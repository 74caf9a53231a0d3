package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherCallsBackOnMatchingChange(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32

	w, err := New(dir, func(path string) bool {
		return strings.HasSuffix(path, ".csv")
	}, func() error {
		calls.Add(1)
		return nil
	}, 20*time.Millisecond)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "people.csv"), []byte("id\n1\n"), 0o644))
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestStopTwice(t *testing.T) {
	w, err := New(t.TempDir(), nil, func() error { return nil }, 0)
	require.NoError(t, err)
	w.Start()
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

func TestNewMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), nil, func() error { return nil }, 0)
	assert.Error(t, err)
}
