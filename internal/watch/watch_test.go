package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cutagent/internal/watch"
)

func TestRunDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "cut.json")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o644))

	w, err := watch.New([]string{target}, watch.Options{Debounce: 100 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, changed []string) { calls <- changed })
	}()

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(target, []byte(`{"v":1}`), 0o644))
	}

	select {
	case changed := <-calls:
		assert.Equal(t, []string{target}, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case extra := <-calls:
		t.Fatalf("burst should produce a single callback, got extra %v", extra)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunSeesAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "cut.json")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o644))

	w, err := watch.New([]string{target}, watch.Options{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := make(chan []string, 4)
	go func() { _ = w.Run(ctx, func(_ context.Context, changed []string) { calls <- changed }) }()

	tmp := filepath.Join(dir, ".cut.json.swp")
	require.NoError(t, os.WriteFile(tmp, []byte(`{"v":2}`), 0o644))
	require.NoError(t, os.Rename(tmp, target))

	select {
	case changed := <-calls:
		assert.Equal(t, []string{target}, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("rename over target not reported")
	}
}

func TestNewRequiresPaths(t *testing.T) {
	_, err := watch.New(nil, watch.Options{})
	assert.Error(t, err)
}

func TestNewFailsForMissingDirectory(t *testing.T) {
	_, err := watch.New([]string{filepath.Join(t.TempDir(), "missing", "cut.json")}, watch.Options{})
	assert.Error(t, err)
}
