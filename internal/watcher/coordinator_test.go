package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for WatchCoordinator:
// - File changes trigger Regenerate with the sorted batch
// - The file watcher is paused during regeneration and resumed afterwards
// - Regeneration errors are swallowed and watching continues
// - Empty batches are ignored
// - Start blocks until the context is cancelled and then stops the watcher
// - Start propagates file watcher startup errors

type mockFileWatcher struct {
	mu        sync.Mutex
	callback  func([]string)
	startErr  error
	paused    bool
	pauses    int
	resumes   int
	stopCalls int
	started   chan struct{}
}

func newMockFileWatcher() *mockFileWatcher {
	return &mockFileWatcher{started: make(chan struct{})}
}

func (m *mockFileWatcher) Start(ctx context.Context, callback func([]string)) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.mu.Lock()
	m.callback = callback
	m.mu.Unlock()
	close(m.started)
	return nil
}

func (m *mockFileWatcher) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	return nil
}

func (m *mockFileWatcher) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	m.pauses++
}

func (m *mockFileWatcher) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
	m.resumes++
}

func (m *mockFileWatcher) isPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *mockFileWatcher) trigger(files []string) {
	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()
	cb(files)
}

type mockRegenerator struct {
	mu          sync.Mutex
	calls       [][]string
	pausedInRun []bool
	err         error
	watcher     *mockFileWatcher
}

func (m *mockRegenerator) Regenerate(ctx context.Context, changed []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, changed)
	m.pausedInRun = append(m.pausedInRun, m.watcher.isPaused())
	return m.err
}

func startCoordinator(t *testing.T, regen *mockRegenerator) (*mockFileWatcher, context.CancelFunc, chan error) {
	t.Helper()
	fw := newMockFileWatcher()
	regen.watcher = fw

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewWatchCoordinator(fw, regen).Start(ctx)
	}()

	select {
	case <-fw.started:
	case <-time.After(time.Second):
		t.Fatal("coordinator did not start the file watcher")
	}
	return fw, cancel, done
}

func TestWatchCoordinator_RegeneratesOnChange(t *testing.T) {
	t.Parallel()

	regen := &mockRegenerator{}
	fw, cancel, done := startCoordinator(t, regen)

	fw.trigger([]string{"/src/z.php", "/src/a.php"})

	regen.mu.Lock()
	require.Len(t, regen.calls, 1)
	assert.Equal(t, []string{"/src/a.php", "/src/z.php"}, regen.calls[0])
	assert.True(t, regen.pausedInRun[0], "watcher paused during regeneration")
	regen.mu.Unlock()

	assert.False(t, fw.isPaused(), "watcher resumed after regeneration")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	fw.mu.Lock()
	assert.Equal(t, 1, fw.stopCalls)
	fw.mu.Unlock()
}

func TestWatchCoordinator_ErrorKeepsWatching(t *testing.T) {
	t.Parallel()

	regen := &mockRegenerator{err: errors.New("missing symbol")}
	fw, cancel, done := startCoordinator(t, regen)
	defer func() {
		cancel()
		<-done
	}()

	fw.trigger([]string{"/src/a.php"})
	fw.trigger([]string{"/src/b.php"})

	regen.mu.Lock()
	assert.Len(t, regen.calls, 2)
	regen.mu.Unlock()

	fw.mu.Lock()
	assert.Equal(t, 2, fw.pauses)
	assert.Equal(t, 2, fw.resumes)
	fw.mu.Unlock()
}

func TestWatchCoordinator_IgnoresEmptyBatch(t *testing.T) {
	t.Parallel()

	regen := &mockRegenerator{}
	fw, cancel, done := startCoordinator(t, regen)
	defer func() {
		cancel()
		<-done
	}()

	fw.trigger(nil)

	regen.mu.Lock()
	assert.Empty(t, regen.calls)
	regen.mu.Unlock()
}

func TestWatchCoordinator_StartError(t *testing.T) {
	t.Parallel()

	fw := newMockFileWatcher()
	fw.startErr = errors.New("too many open files")

	err := NewWatchCoordinator(fw, &mockRegenerator{watcher: fw}).Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many open files")
	assert.Equal(t, 1, fw.stopCalls)
}
