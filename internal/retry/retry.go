// ABOUTME: Retry controller wrapping backend calls with bounded exponential backoff
// ABOUTME: Tracks per-context attempt records and a connecting flag for UI feedback

package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
	apperrors "github.com/dheeraj009joshi/WeCare-sub002/internal/errors"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/logger"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// ErrExhausted matches every ExhaustedError via errors.Is.
var ErrExhausted = errors.New("retries exhausted")

// ExhaustedError is returned once an operation has failed maxAttempts times.
type ExhaustedError struct {
	Context  string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Context, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// Reporter receives terminal failures. *notify.Surface satisfies it.
type Reporter interface {
	Add(err error, context string) string
}

// ActionReporter is a Reporter that can attach a user-triggered retry action.
type ActionReporter interface {
	AddWithRetry(err error, context string, retry func()) string
}

type actionKey struct{}

// WithAction attaches a retry action to ctx. If the operation exhausts its
// attempts, the action is offered alongside the reported failure.
func WithAction(ctx context.Context, action func()) context.Context {
	return context.WithValue(ctx, actionKey{}, action)
}

func actionFrom(ctx context.Context) func() {
	action, _ := ctx.Value(actionKey{}).(func())
	return action
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type Option func(*Controller)

func WithMaxAttempts(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.baseDelay = d
		}
	}
}

// WithSleeper replaces the backoff wait, for tests.
func WithSleeper(s Sleeper) Option {
	return func(c *Controller) { c.sleep = s }
}

type Controller struct {
	maxAttempts int
	baseDelay   time.Duration
	reporter    Reporter
	sleep       Sleeper

	mu          sync.Mutex
	attempts    map[string]int
	outstanding int
	changes     chat.Signal
}

// New builds a controller. A nil reporter drops terminal failures after logging.
func New(reporter Reporter, opts ...Option) *Controller {
	c := &Controller{
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		reporter:    reporter,
		sleep:       sleepContext,
		attempts:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backoff returns the wait after the attempt with 0-based index n: 2^n * base.
func (c *Controller) Backoff(n int) time.Duration {
	return c.baseDelay * time.Duration(1<<uint(n))
}

func (c *Controller) MaxAttempts() int {
	return c.maxAttempts
}

// Attempts returns the failed-attempt count currently recorded for key.
func (c *Controller) Attempts(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts[key]
}

// Connecting reports whether any attempt is in flight.
func (c *Controller) Connecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outstanding > 0
}

// Changes signals when Connecting flips.
func (c *Controller) Changes() <-chan struct{} {
	return c.changes.Subscribe()
}

func (c *Controller) begin() {
	c.mu.Lock()
	c.outstanding++
	first := c.outstanding == 1
	c.mu.Unlock()
	if first {
		c.changes.Notify()
	}
}

func (c *Controller) end() {
	c.mu.Lock()
	c.outstanding--
	last := c.outstanding == 0
	c.mu.Unlock()
	if last {
		c.changes.Notify()
	}
}

func (c *Controller) record(key string) {
	c.mu.Lock()
	c.attempts[key]++
	c.mu.Unlock()
}

func (c *Controller) reset(key string) {
	c.mu.Lock()
	delete(c.attempts, key)
	c.mu.Unlock()
}

// Do runs op until it succeeds, fails with a non-retryable error, the context
// ends, or maxAttempts attempts have failed. Exhaustion is reported once and
// returned as *ExhaustedError.
func Do[T any](ctx context.Context, c *Controller, key string, op func(context.Context) (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		c.begin()
		v, err := op(ctx)
		c.end()

		if err == nil {
			c.reset(key)
			return v, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			c.reset(key)
			return zero, ctxErr
		}

		if !Retryable(err) {
			c.reset(key)
			return zero, err
		}

		c.record(key)
		failures := attempt + 1
		if failures >= c.maxAttempts {
			c.reset(key)
			exhausted := &ExhaustedError{Context: key, Attempts: failures, Err: err}
			logger.Warn("retry: %v", exhausted)
			c.report(ctx, exhausted, key)
			return zero, exhausted
		}

		delay := c.Backoff(attempt)
		logger.Debug("retry: %s attempt %d/%d failed (%v), retrying in %s", key, failures, c.maxAttempts, err, delay)

		if err := c.sleep(ctx, delay); err != nil {
			c.reset(key)
			return zero, err
		}
	}
}

func (c *Controller) report(ctx context.Context, err error, key string) {
	if c.reporter == nil {
		return
	}
	if action := actionFrom(ctx); action != nil {
		if ar, ok := c.reporter.(ActionReporter); ok {
			ar.AddWithRetry(err, key, action)
			return
		}
	}
	c.reporter.Add(err, key)
}

// Run is Do for operations without a result.
func (c *Controller) Run(ctx context.Context, key string, op func(context.Context) error) error {
	_, err := Do(ctx, c, key, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Retryable reports whether err is worth another attempt. Precondition and
// validation failures are final.
func Retryable(err error) bool {
	var perm interface{ Permanent() bool }
	if errors.As(err, &perm) && perm.Permanent() {
		return false
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindPrecondition, apperrors.KindValidation:
		return false
	default:
		return true
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
