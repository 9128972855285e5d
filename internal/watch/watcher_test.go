package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, debounce time.Duration) (*Watcher, <-chan string) {
	t.Helper()
	reloads := make(chan string, 16)
	w, err := New(ReloaderFunc(func(_ context.Context, path string) { reloads <- path }), debounce)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w, reloads
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "system.xml")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o600))

	w, reloads := startWatcher(t, 100*time.Millisecond)
	require.NoError(t, w.Follow(path))

	for _, content := range []string{"b", "c", "d"} {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.xml"), []byte("x"), 0o600))

	select {
	case got := <-reloads:
		want, err := filepath.Abs(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}
	select {
	case got := <-reloads:
		t.Fatalf("unexpected second reload of %s", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_FollowSwitchesFile(t *testing.T) {
	first := filepath.Join(t.TempDir(), "a.xml")
	second := filepath.Join(t.TempDir(), "b.xml")
	require.NoError(t, os.WriteFile(first, []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("b"), 0o600))

	w, reloads := startWatcher(t, 20*time.Millisecond)
	require.NoError(t, w.Follow(first))
	require.NoError(t, w.Follow(second))
	assert.Equal(t, second, w.Following())

	require.NoError(t, os.WriteFile(first, []byte("changed"), 0o600))
	select {
	case got := <-reloads:
		t.Fatalf("reloaded %s after switching away", got)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(second, []byte("changed"), 0o600))
	select {
	case got := <-reloads:
		assert.Equal(t, second, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}
}

func TestWatcher_IgnoresEventsBeforeFollow(t *testing.T) {
	w, err := New(ReloaderFunc(func(context.Context, string) {}), 0)
	require.NoError(t, err)
	defer w.watcher.Close()
	assert.Equal(t, DefaultDebounce, w.debounce)
	assert.Empty(t, w.Following())
}
