// ABOUTME: Error surface collecting operation failures as auto-expiring toasts
// ABOUTME: Entries expire after a TTL unless dismissed and may carry a retry action

package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
	apperrors "github.com/dheeraj009joshi/WeCare-sub002/internal/errors"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/logger"
	"github.com/google/uuid"
)

// DefaultTTL is how long an entry stays visible without user action.
const DefaultTTL = 10 * time.Second

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

// Entry is a single toast.
type Entry struct {
	ID        string
	Message   string
	Context   string
	Severity  Severity
	Err       error
	CreatedAt time.Time
	retry     func()
}

// CanRetry reports whether the entry offers a retry action.
func (e Entry) CanRetry() bool {
	return e.retry != nil
}

// Timer is the subset of *time.Timer the surface needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. It matches time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

type Option func(*Surface)

// WithAfterFunc replaces the expiry scheduler, for tests.
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *Surface) { s.afterFunc = fn }
}

// WithClock replaces the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Surface) { s.now = now }
}

type Surface struct {
	mu        sync.Mutex
	ttl       time.Duration
	entries   []*Entry
	timers    map[string]Timer
	afterFunc AfterFunc
	now       func() time.Time
	changes   chat.Signal
}

func New(ttl time.Duration, opts ...Option) *Surface {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Surface{
		ttl:    ttl,
		timers: make(map[string]Timer),
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add records err under context and returns the entry id.
func (s *Surface) Add(err error, context string) string {
	return s.add(err, context, SeverityError, nil)
}

// AddWithRetry records err with an action the user can trigger to retry.
func (s *Surface) AddWithRetry(err error, context string, retry func()) string {
	return s.add(err, context, SeverityError, retry)
}

// Notify shows a non-error toast.
func (s *Surface) Notify(message string, severity Severity) string {
	return s.add(fmt.Errorf("%s", message), "", severity, nil)
}

func (s *Surface) add(err error, context string, severity Severity, retry func()) string {
	if err == nil {
		return ""
	}

	entry := &Entry{
		ID:        uuid.NewString(),
		Message:   apperrors.UserMessage(err),
		Context:   context,
		Severity:  severity,
		Err:       err,
		CreatedAt: s.now(),
		retry:     retry,
	}

	if severity == SeverityError {
		logger.Warn("notify: [%s] %v", context, err)
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	id := entry.ID
	s.timers[id] = s.afterFunc(s.ttl, func() { s.expire(id) })
	s.mu.Unlock()

	s.changes.Notify()
	return id
}

func (s *Surface) expire(id string) {
	if s.remove(id) {
		logger.Debug("notify: entry %s expired", id)
		s.changes.Notify()
	}
}

// Dismiss removes an entry before it expires.
func (s *Surface) Dismiss(id string) {
	if s.remove(id) {
		s.changes.Notify()
	}
}

func (s *Surface) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID != id {
			continue
		}
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		if t, ok := s.timers[id]; ok {
			t.Stop()
			delete(s.timers, id)
		}
		return true
	}
	return false
}

// Retry runs the entry's retry action and dismisses it.
func (s *Surface) Retry(id string) error {
	s.mu.Lock()
	var action func()
	found := false
	for _, e := range s.entries {
		if e.ID == id {
			action = e.retry
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return fmt.Errorf("notification %s not found", id)
	}
	if action == nil {
		return fmt.Errorf("notification %s has no retry action", id)
	}

	s.Dismiss(id)
	action()
	return nil
}

// List returns current entries, oldest first.
func (s *Surface) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
	}
	return out
}

// Len returns the number of live entries.
func (s *Surface) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Changes signals whenever entries are added or removed.
func (s *Surface) Changes() <-chan struct{} {
	return s.changes.Subscribe()
}

// Clear dismisses everything.
func (s *Surface) Clear() {
	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.entries = nil
	s.mu.Unlock()
	s.changes.Notify()
}
