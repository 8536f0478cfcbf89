// ABOUTME: Message pipeline driving a user message from optimistic insert to AI reply
// ABOUTME: Single-flight per session, cancellable per session, with detached side-channel tasks

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/backend"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
	apperrors "github.com/dheeraj009joshi/WeCare-sub002/internal/errors"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/logger"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/retry"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/session"
	"github.com/google/uuid"
)

// Apology is appended as the AI's reply when a send fails.
const Apology = "I'm sorry, I couldn't process your message right now. Please try again in a moment."

const (
	detachedTimeout = 30 * time.Second
	taskBuffer      = 64
)

// Reporter is the user-facing error sink. *notify.Surface satisfies it.
type Reporter interface {
	Add(err error, context string) string
	AddWithRetry(err error, context string, retry func()) string
}

// TaskResult describes the outcome of a detached side-channel task.
type TaskResult struct {
	Name      string
	SessionID chat.LocalID
	Err       error
}

type Options struct {
	// StickyEscalation keeps escalation links across non-escalating replies
	// until they are dismissed or replaced.
	StickyEscalation bool
	Voice            VoiceInput
}

type token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

type Pipeline struct {
	sessions *session.Manager
	api      backend.API
	retry    *retry.Controller
	reporter Reporter
	sticky   bool
	voice    VoiceInput

	mu       sync.Mutex
	inflight map[chat.LocalID]struct{}
	tokens   map[chat.LocalID]*token
	closed   bool

	tasks chan TaskResult
	wg    sync.WaitGroup
}

func New(sessions *session.Manager, api backend.API, rc *retry.Controller, reporter Reporter, opts Options) *Pipeline {
	return &Pipeline{
		sessions: sessions,
		api:      api,
		retry:    rc,
		reporter: reporter,
		sticky:   opts.StickyEscalation,
		voice:    opts.Voice,
		inflight: make(map[chat.LocalID]struct{}),
		tokens:   make(map[chat.LocalID]*token),
		tasks:    make(chan TaskResult, taskBuffer),
	}
}

// Send delivers text in the active session. existingID, when set, re-sends
// that message in place instead of creating a new one.
func (p *Pipeline) Send(ctx context.Context, text, existingID string) error {
	text = strings.TrimSpace(text)
	if text == "" && existingID == "" {
		return apperrors.ErrEmptyMessage
	}

	sessID := p.sessions.ActiveID()
	if sessID == 0 {
		err := &apperrors.Error{
			Kind:             apperrors.KindPrecondition,
			Op:               "send",
			Explanation:      "There is no open chat.",
			SuggestedActions: []string{"Start a new chat session."},
			Recoverable:      true,
			Err:              apperrors.ErrNoActiveSession,
		}
		p.reporter.Add(err, "send")
		return err
	}
	return p.send(ctx, sessID, text, existingID)
}

// Retry re-sends a failed message with its original id, in the session it
// was first sent from.
func (p *Pipeline) Retry(ctx context.Context, messageID string) error {
	sessID, msg, ok := p.sessions.FindMessage(messageID)
	if !ok {
		return fmt.Errorf("retry %s: message not found", messageID)
	}
	if msg.Sender != chat.SenderUser {
		return fmt.Errorf("retry %s: not a user message", messageID)
	}
	if msg.Status != chat.StatusError {
		return apperrors.NewNotRetryableError("retry")
	}
	return p.send(ctx, sessID, msg.Text, msg.ID)
}

func (p *Pipeline) send(ctx context.Context, sessID chat.LocalID, text, messageID string) error {
	backendID, ok := p.sessions.BackendID(sessID)
	if !ok {
		err := apperrors.NewNoBackendSessionError("send")
		p.reporter.Add(err, "send")
		return err
	}

	if !p.acquire(sessID) {
		err := apperrors.NewSendInProgressError("send")
		p.reporter.Add(err, "send")
		return err
	}
	defer p.release(sessID)

	// Checked with the session slot held so two retries cannot both claim it.
	if messageID != "" {
		sess, _ := p.sessions.Get(sessID)
		i := sess.FindMessage(messageID)
		if i < 0 || sess.Messages[i].Status != chat.StatusError {
			return apperrors.NewNotRetryableError("send")
		}
		if text == "" {
			text = sess.Messages[i].Text
		}
	}
	isRetry := messageID != ""
	if !isRetry {
		messageID = uuid.NewString()
	}

	msg := chat.Message{
		ID:     messageID,
		Sender: chat.SenderUser,
		Text:   text,
		Time:   time.Now().Format(chat.TimeLayout),
		Status: chat.StatusSending,
	}
	if err := p.sessions.Put(sessID, msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	if sess, ok := p.sessions.Get(sessID); ok && !isRetry && sess.UserMessageCount() == 1 {
		p.inferTitle(sessID, backendID, text)
	}

	sendCtx, done := p.sessionContext(ctx, sessID)
	defer done()
	sendCtx = retry.WithAction(sendCtx, p.retryAction(messageID))

	reply, err := p.deliver(sendCtx, backendID, text)
	if err != nil {
		return p.fail(sendCtx, sessID, messageID, err)
	}

	p.applyEscalation(reply.Links())

	aiMsg := chat.NewAIMessage(uuid.NewString(), reply.Response)
	if err := p.sessions.Append(sessID, aiMsg); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := p.sessions.SetStatus(sessID, messageID, chat.StatusSent, ""); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	p.detach("ai_message_save", sessID, func(ctx context.Context) error {
		return p.api.SaveMessage(ctx, backendID, chat.SenderAI, reply.Response)
	})
	logger.Debug("pipeline: message %s delivered in session %d", messageID, sessID)
	return nil
}

func (p *Pipeline) deliver(ctx context.Context, backendID, text string) (*backend.AIReply, error) {
	err := p.retry.Run(ctx, "message_save", func(ctx context.Context) error {
		return p.api.SaveMessage(ctx, backendID, chat.SenderUser, text)
	})
	if err != nil {
		return nil, err
	}
	return retry.Do(ctx, p.retry, "ai_response", func(ctx context.Context) (*backend.AIReply, error) {
		return p.api.Reply(ctx, backendID, text)
	})
}

// fail keeps the transcript coherent: the message is marked error, an apology
// follows, and escalation data in the failure still reaches the user.
func (p *Pipeline) fail(ctx context.Context, sessID chat.LocalID, messageID string, cause error) error {
	reason := apperrors.UserMessage(cause)
	if ctx.Err() != nil {
		reason = "Sending was cancelled."
	}
	logger.Warn("pipeline: message %s in session %d failed: %v", messageID, sessID, cause)

	if err := p.sessions.SetStatus(sessID, messageID, chat.StatusError, reason); err != nil {
		logger.Warn("pipeline: mark %s failed: %v", messageID, err)
	}
	if err := p.sessions.Append(sessID, chat.NewAIMessage(uuid.NewString(), Apology)); err != nil {
		logger.Warn("pipeline: append apology: %v", err)
	}
	if links := backend.EscalationFrom(cause); links != nil {
		p.sessions.SetEscalation(links)
	}

	if ctx.Err() == nil && !errors.Is(cause, retry.ErrExhausted) {
		p.reporter.AddWithRetry(cause, "send", p.retryAction(messageID))
	}
	return fmt.Errorf("send message %s: %w", messageID, cause)
}

func (p *Pipeline) retryAction(messageID string) func() {
	return func() {
		if !p.track() {
			logger.Debug("pipeline: shut down, ignoring retry of %s", messageID)
			return
		}
		go func() {
			defer p.wg.Done()
			if err := p.Retry(context.Background(), messageID); err != nil {
				logger.Debug("pipeline: retry of %s: %v", messageID, err)
			}
		}()
	}
}

func (p *Pipeline) applyEscalation(links *chat.EscalationLinks) {
	switch {
	case links != nil:
		p.sessions.SetEscalation(links)
	case !p.sticky && p.sessions.Escalation() != nil:
		p.sessions.SetEscalation(nil)
	}
}

func (p *Pipeline) inferTitle(sessID chat.LocalID, backendID, text string) {
	p.detach("title", sessID, func(ctx context.Context) error {
		title, err := p.api.InferTitle(ctx, text)
		if err != nil {
			return err
		}
		title = strings.TrimSpace(title)
		if title == "" {
			return nil
		}
		if err := p.api.UpdateTitle(ctx, backendID, title); err != nil {
			return err
		}
		return p.sessions.Rename(sessID, title)
	})
}

// detach runs fn off the critical path. Its outcome goes to Tasks and the log,
// never to the user.
func (p *Pipeline) detach(name string, sessID chat.LocalID, fn func(context.Context) error) {
	if !p.track() {
		logger.Debug("pipeline: shut down, dropping %s for session %d", name, sessID)
		return
	}
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), detachedTimeout)
		defer cancel()

		res := TaskResult{Name: name, SessionID: sessID}
		if err := fn(ctx); err != nil {
			res.Err = apperrors.NewSideChannelError(name, err)
			logger.Warn("pipeline: %s for session %d failed: %v", name, sessID, err)
		}

		select {
		case p.tasks <- res:
		default:
			logger.Debug("pipeline: task channel full, dropping %s result", name)
		}
	}()
}

// Tasks delivers the results of detached tasks for diagnostics.
func (p *Pipeline) Tasks() <-chan TaskResult {
	return p.tasks
}

// track registers one background goroutine. It fails once Close has begun.
func (p *Pipeline) track() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.wg.Add(1)
	return true
}

// Wait blocks until every detached task has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Close stops new background work from starting and waits for what is running.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pipeline) acquire(id chat.LocalID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[id]; busy {
		return false
	}
	p.inflight[id] = struct{}{}
	return true
}

func (p *Pipeline) release(id chat.LocalID) {
	p.mu.Lock()
	delete(p.inflight, id)
	p.mu.Unlock()
}

// Sending reports whether a send is in flight for the session.
func (p *Pipeline) Sending(id chat.LocalID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, busy := p.inflight[id]
	return busy
}

// sessionContext derives a send context that ends when either parent or the
// session's cancel token is done.
func (p *Pipeline) sessionContext(parent context.Context, id chat.LocalID) (context.Context, func()) {
	p.mu.Lock()
	tok, ok := p.tokens[id]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		tok = &token{ctx: ctx, cancel: cancel}
		p.tokens[id] = tok
	}
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(tok.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// CancelSession aborts any pending send or backoff for the session. Later
// sends are unaffected.
func (p *Pipeline) CancelSession(id chat.LocalID) {
	p.mu.Lock()
	tok, ok := p.tokens[id]
	delete(p.tokens, id)
	p.mu.Unlock()

	if ok {
		logger.Info("pipeline: cancelling pending work for session %d", id)
		tok.cancel()
	}
}

func (p *Pipeline) SetFeedback(messageID string, f chat.Feedback) error {
	return p.sessions.SetFeedback(messageID, f)
}

func (p *Pipeline) ClearFeedback(messageID string) {
	p.sessions.ClearFeedback(messageID)
}

func (p *Pipeline) Feedback() map[string]chat.Feedback {
	return p.sessions.Feedback()
}

// Escalation returns the links currently shown to the user, or nil.
func (p *Pipeline) Escalation() *chat.EscalationLinks {
	return p.sessions.Escalation()
}

func (p *Pipeline) DismissEscalation() {
	p.sessions.SetEscalation(nil)
}
