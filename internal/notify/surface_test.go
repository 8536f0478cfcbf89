// ABOUTME: Tests for the auto-expiring error surface
// ABOUTME: Uses a manual scheduler to drive expiry deterministically

package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/dheeraj009joshi/WeCare-sub002/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &fakeTimer{d: d, fn: f}
	m.timers = append(m.timers, t)
	return t
}

func (m *manualScheduler) fireAll() {
	m.mu.Lock()
	timers := append([]*fakeTimer(nil), m.timers...)
	m.mu.Unlock()
	for _, t := range timers {
		if !t.stopped {
			t.fn()
		}
	}
}

func newTestSurface() (*Surface, *manualScheduler) {
	sched := &manualScheduler{}
	return New(DefaultTTL, WithAfterFunc(sched.AfterFunc)), sched
}

func TestSurface_AddSchedulesExpiry(t *testing.T) {
	s, sched := newTestSurface()

	id := s.Add(errors.New("save failed"), "message_save")

	require.NotEmpty(t, id)
	entries := s.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "save failed", entries[0].Message)
	assert.Equal(t, "message_save", entries[0].Context)
	assert.Equal(t, SeverityError, entries[0].Severity)
	assert.False(t, entries[0].CreatedAt.IsZero())

	require.Len(t, sched.timers, 1)
	assert.Equal(t, 10*time.Second, sched.timers[0].d)
}

func TestSurface_EntriesExpire(t *testing.T) {
	s, sched := newTestSurface()
	s.Add(errors.New("one"), "a")
	s.Add(errors.New("two"), "b")
	require.Equal(t, 2, s.Len())

	sched.fireAll()

	assert.Equal(t, 0, s.Len())
}

func TestSurface_DismissStopsTimer(t *testing.T) {
	s, sched := newTestSurface()
	id := s.Add(errors.New("one"), "a")
	s.Add(errors.New("two"), "b")

	s.Dismiss(id)

	assert.Equal(t, 1, s.Len())
	assert.True(t, sched.timers[0].stopped)
	assert.Equal(t, "two", s.List()[0].Message)

	// Dismissing twice is harmless.
	s.Dismiss(id)
	assert.Equal(t, 1, s.Len())
}

func TestSurface_UsesUserMessage(t *testing.T) {
	s, _ := newTestSurface()

	s.Add(apperrors.NewNoBackendSessionError("send"), "send")

	assert.Contains(t, s.List()[0].Message, "Start a new chat session.")
}

func TestSurface_NilErrorIgnored(t *testing.T) {
	s, _ := newTestSurface()
	assert.Empty(t, s.Add(nil, "x"))
	assert.Equal(t, 0, s.Len())
}

func TestSurface_Retry(t *testing.T) {
	s, _ := newTestSurface()
	retried := 0

	id := s.AddWithRetry(errors.New("send failed"), "send", func() { retried++ })
	plain := s.Add(errors.New("other"), "x")

	entries := s.List()
	assert.True(t, entries[0].CanRetry())
	assert.False(t, entries[1].CanRetry())

	require.NoError(t, s.Retry(id))
	assert.Equal(t, 1, retried)
	assert.Equal(t, 1, s.Len(), "retried entry is dismissed")

	assert.Error(t, s.Retry(plain))
	assert.Error(t, s.Retry("missing"))
}

func TestSurface_ChangesSignal(t *testing.T) {
	s, _ := newTestSurface()
	ch := s.Changes()

	s.Add(errors.New("x"), "ctx")

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected change signal")
	}
}

func TestSurface_RealTimerExpiry(t *testing.T) {
	s := New(20 * time.Millisecond)
	s.Add(errors.New("short lived"), "x")

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSurface_Clear(t *testing.T) {
	s, sched := newTestSurface()
	s.Add(errors.New("a"), "x")
	s.Add(errors.New("b"), "y")

	s.Clear()

	assert.Equal(t, 0, s.Len())
	for _, tm := range sched.timers {
		assert.True(t, tm.stopped)
	}
}
