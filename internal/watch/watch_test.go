package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	w := &Watcher{path: "/data/mantra.db"}
	assert.True(t, w.Matches("/data/mantra.db"))
	assert.True(t, w.Matches("/data/mantra.db-wal"))
	assert.True(t, w.Matches("/data/mantra.db-journal"))
	assert.False(t, w.Matches("/data/mantra.db-shm"))
	assert.False(t, w.Matches("/data/other.db"))
	assert.False(t, w.Matches("/data/mantra.db.bak"))
}

func TestWatcherCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mantra.db")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	w, err := New(path, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()
	changes, cancel := w.Subscribe()
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
	}

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change notification")
	}

	select {
	case <-changes:
		t.Fatal("writes should be coalesced")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mantra.db")

	w, err := New(path, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()
	changes, cancel := w.Subscribe()
	defer cancel()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case <-changes:
		t.Fatal("unrelated file must not trigger a change")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestEverySubscriberSeesEachChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mantra.db")

	w, err := New(path, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	counter, cancelCounter := w.Subscribe()
	statsScreen, cancelStats := w.Subscribe()
	defer cancelStats()

	// The counter screen exits while still waiting for a change.
	pending := make(chan bool, 1)
	go func() {
		_, ok := <-counter
		pending <- ok
	}()
	cancelCounter()
	select {
	case ok := <-pending:
		assert.False(t, ok, "cancelled subscription must be closed, not fed")
	case <-time.After(5 * time.Second):
		t.Fatal("pending receive was not released")
	}

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	select {
	case _, ok := <-statsScreen:
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("remaining subscriber missed the change")
	}
	cancelCounter()
}

func TestCloseReleasesSubscribers(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "mantra.db"), 0)
	require.NoError(t, err)
	changes, cancel := w.Subscribe()
	require.NoError(t, w.Close())

	_, ok := <-changes
	assert.False(t, ok)
	cancel()

	late, cancelLate := w.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
	cancelLate()
}

func TestCloseIsIdempotent(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "mantra.db"), 0)
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
