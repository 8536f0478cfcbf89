// ABOUTME: Tests for the message pipeline against the mock backend
// ABOUTME: Covers ordering, retry in place, escalation, cancellation, and detached tasks

package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/backend"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
	apperrors "github.com/dheeraj009joshi/WeCare-sub002/internal/errors"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/mockbackend"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/notify"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/retry"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/session"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepLog struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepLog) reset() {
	s.mu.Lock()
	s.delays = nil
	s.mu.Unlock()
}

func (s *sleepLog) get() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// gatedAPI blocks user message saves until the gate opens or ctx ends.
type gatedAPI struct {
	backend.API
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedAPI) SaveMessage(ctx context.Context, sessionID string, sender chat.Sender, text string) error {
	if sender == chat.SenderUser {
		g.entered <- struct{}{}
		select {
		case <-g.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return g.API.SaveMessage(ctx, sessionID, sender, text)
}

type fakeVoice struct {
	text string
	err  error
}

func (f fakeVoice) Transcribe(context.Context) (string, error) { return f.text, f.err }

type harness struct {
	mock     *mockbackend.Server
	api      backend.API
	sleeps   *sleepLog
	surface  *notify.Surface
	sessions *session.Manager
	pipe     *Pipeline
	sess     chat.Session
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	opts Options
	wrap func(backend.API) backend.API
}

func withOptions(o Options) harnessOption {
	return func(c *harnessConfig) { c.opts = o }
}

func withAPI(wrap func(backend.API) backend.API) harnessOption {
	return func(c *harnessConfig) { c.wrap = wrap }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	mock := mockbackend.New()
	hs := httptest.NewServer(mock.Handler())
	t.Cleanup(hs.Close)

	var api backend.API = backend.NewClient(hs.URL + "/api")
	if cfg.wrap != nil {
		api = cfg.wrap(api)
	}

	sleeps := &sleepLog{}
	surface := notify.New(time.Minute)
	t.Cleanup(surface.Clear)
	rc := retry.New(surface, retry.WithSleeper(sleeps.sleep))
	mgr := session.NewManager(api, rc, store.NewMemory(), surface)

	sess, err := mgr.Create(context.Background(), "user-1")
	require.NoError(t, err)

	p := New(mgr, api, rc, surface, cfg.opts)
	t.Cleanup(p.Close)

	return &harness{
		mock:     mock,
		api:      api,
		sleeps:   sleeps,
		surface:  surface,
		sessions: mgr,
		pipe:     p,
		sess:     sess,
	}
}

func (h *harness) active(t *testing.T) chat.Session {
	t.Helper()
	s, ok := h.sessions.Active()
	require.True(t, ok)
	return s
}

func userMessages(s chat.Session) []chat.Message {
	var out []chat.Message
	for _, m := range s.Messages {
		if m.Sender == chat.SenderUser {
			out = append(out, m)
		}
	}
	return out
}

func TestSend_Hello(t *testing.T) {
	h := newHarness(t)
	before := len(h.active(t).Messages)

	require.NoError(t, h.pipe.Send(context.Background(), "Hello", ""))

	s := h.active(t)
	require.Len(t, s.Messages, before+2)
	user := s.Messages[before]
	assert.Equal(t, chat.SenderUser, user.Sender)
	assert.Equal(t, "Hello", user.Text)
	assert.Equal(t, chat.StatusSent, user.Status)
	assert.NotEmpty(t, user.ID)

	ai := s.Messages[before+1]
	assert.Equal(t, chat.SenderAI, ai.Sender)
	assert.True(t, ai.IsFinal())
	assert.Equal(t, 0, h.surface.Len())

	h.pipe.Wait()
	backendID, _ := h.sessions.BackendID(s.ID)
	saved := h.mock.Messages(backendID)
	require.Len(t, saved, 3, "greeting, user message, and AI reply persisted")
	assert.Equal(t, "Hello", saved[1].Text)
	assert.Equal(t, chat.SenderAI, saved[2].Sender)
}

func TestSend_PreservesOrder(t *testing.T) {
	h := newHarness(t)
	texts := []string{"first", "second", "third", "fourth"}

	for _, text := range texts {
		require.NoError(t, h.pipe.Send(context.Background(), text, ""))
	}

	users := userMessages(h.active(t))
	require.Len(t, users, len(texts))
	for i, m := range users {
		assert.Equal(t, texts[i], m.Text)
	}
}

func TestSend_EmptyText(t *testing.T) {
	h := newHarness(t)
	calls := h.mock.TotalCalls()

	err := h.pipe.Send(context.Background(), "   ", "")
	assert.True(t, errors.Is(err, apperrors.ErrEmptyMessage))
	assert.Equal(t, calls, h.mock.TotalCalls())
}

func TestSend_NoBackendMapping(t *testing.T) {
	mock := mockbackend.New()
	hs := httptest.NewServer(mock.Handler())
	defer hs.Close()

	ctx := context.Background()
	repo := store.NewMemory()
	orphan := chat.Session{ID: 5, Title: "Orphan"}
	require.NoError(t, repo.SaveSessions(ctx, []chat.Session{orphan}))

	api := backend.NewClient(hs.URL + "/api")
	surface := notify.New(time.Minute)
	defer surface.Clear()
	rc := retry.New(surface)
	mgr := session.NewManager(api, rc, repo, surface)
	_, err := mgr.Restore(ctx, "u")
	require.NoError(t, err)
	require.NoError(t, mgr.Select(orphan.ID))

	p := New(mgr, api, rc, surface, Options{})
	calls := mock.TotalCalls()
	entries := surface.Len()

	err = p.Send(ctx, "Hello", "")

	assert.True(t, errors.Is(err, apperrors.ErrNoBackendSession))
	assert.True(t, apperrors.IsRecoverable(err))
	assert.Equal(t, calls, mock.TotalCalls(), "no network calls")
	assert.Equal(t, entries+1, surface.Len(), "exactly one error surfaced")

	s, _ := mgr.Get(orphan.ID)
	assert.Empty(t, s.Messages, "nothing inserted")
}

func TestSend_AIFailsThreeTimes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.pipe.Send(ctx, "I have chest pain", ""))
	prior := h.pipe.Escalation()
	require.NotNil(t, prior)

	h.sleeps.reset()
	h.mock.Fail(mockbackend.RouteAI, 3, http.StatusServiceUnavailable, nil)
	aiCalls := h.mock.Calls(mockbackend.RouteAI)
	before := len(h.active(t).Messages)

	err := h.pipe.Send(ctx, "still hurts", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, retry.ErrExhausted))

	assert.Equal(t, 3, h.mock.Calls(mockbackend.RouteAI)-aiCalls, "no more than maxAttempts attempts")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.sleeps.get())

	s := h.active(t)
	require.Len(t, s.Messages, before+2)
	failed := s.Messages[before]
	assert.Equal(t, chat.StatusError, failed.Status)
	assert.NotEmpty(t, failed.Error)
	assert.Equal(t, Apology, s.Messages[before+1].Text)
	assert.Equal(t, prior, h.pipe.Escalation(), "escalation unchanged")

	entries := h.surface.List()
	require.Len(t, entries, 1, "terminal failure surfaced once")
	assert.True(t, entries[0].CanRetry())
}

func TestRetry_UpdatesInPlace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mock.Fail(mockbackend.RouteSaveMessage, 3, http.StatusBadGateway, nil)
	require.Error(t, h.pipe.Send(ctx, "Hello", ""))

	users := userMessages(h.active(t))
	require.Len(t, users, 1)
	id := users[0].ID
	assert.Equal(t, chat.StatusError, users[0].Status)

	require.NoError(t, h.pipe.Retry(ctx, id))

	users = userMessages(h.active(t))
	require.Len(t, users, 1, "retry does not duplicate the bubble")
	assert.Equal(t, id, users[0].ID)
	assert.Equal(t, chat.StatusSent, users[0].Status)
	assert.Empty(t, users[0].Error)
}

func TestRetry_FromSurfaceAction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mock.Fail(mockbackend.RouteAI, 3, http.StatusServiceUnavailable, nil)
	require.Error(t, h.pipe.Send(ctx, "Hello", ""))

	entries := h.surface.List()
	require.Len(t, entries, 1)
	require.NoError(t, h.surface.Retry(entries[0].ID))

	assert.Eventually(t, func() bool {
		users := userMessages(h.active(t))
		return len(users) == 1 && users[0].Status == chat.StatusSent
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRetry_UnknownMessage(t *testing.T) {
	h := newHarness(t)
	assert.Error(t, h.pipe.Retry(context.Background(), "missing"))
	assert.Error(t, h.pipe.Retry(context.Background(), h.sess.Messages[0].ID), "AI messages cannot be retried")
}

func TestRetry_RefusesDeliveredMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.pipe.Send(ctx, "Hello", ""))
	h.pipe.Wait()

	users := userMessages(h.active(t))
	require.Len(t, users, 1)
	require.Equal(t, chat.StatusSent, users[0].Status)
	total := len(h.active(t).Messages)
	aiCalls := h.mock.Calls(mockbackend.RouteAI)

	err := h.pipe.Retry(ctx, users[0].ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotRetryable))
	assert.Equal(t, apperrors.KindPrecondition, apperrors.KindOf(err))

	err = h.pipe.Send(ctx, "", users[0].ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotRetryable), "re-send by id is refused too")

	assert.Len(t, h.active(t).Messages, total, "no apology or reply appended")
	assert.Equal(t, aiCalls, h.mock.Calls(mockbackend.RouteAI))
	assert.Equal(t, chat.StatusSent, userMessages(h.active(t))[0].Status)
}

func TestClose_IgnoresLateRetryAction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mock.Fail(mockbackend.RouteAI, 3, http.StatusServiceUnavailable, nil)
	require.Error(t, h.pipe.Send(ctx, "Hello", ""))

	entries := h.surface.List()
	require.Len(t, entries, 1)
	aiCalls := h.mock.Calls(mockbackend.RouteAI)

	h.pipe.Close()
	require.NoError(t, h.surface.Retry(entries[0].ID))
	h.pipe.Wait()

	assert.Equal(t, aiCalls, h.mock.Calls(mockbackend.RouteAI), "no send after close")
	users := userMessages(h.active(t))
	require.Len(t, users, 1)
	assert.Equal(t, chat.StatusError, users[0].Status)
}

func TestSend_PermanentFailureSurfacedWithRetry(t *testing.T) {
	h := newHarness(t)
	h.mock.Fail(mockbackend.RouteSaveMessage, 1, http.StatusBadRequest, nil)
	saves := h.mock.Calls(mockbackend.RouteSaveMessage)

	err := h.pipe.Send(context.Background(), "Hello", "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, retry.ErrExhausted))
	assert.Equal(t, 1, h.mock.Calls(mockbackend.RouteSaveMessage)-saves, "client errors are not retried")

	entries := h.surface.List()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].CanRetry())
}

func TestEscalation_SetThenCleared(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.pipe.Send(ctx, "I think this is an emergency", ""))
	assert.Equal(t, &chat.EscalationLinks{
		DoctorServices:    mockbackend.DefaultDoctorServices,
		EmergencyServices: mockbackend.DefaultEmergencyServices,
	}, h.pipe.Escalation())

	require.NoError(t, h.pipe.Send(ctx, "thanks", ""))
	assert.Nil(t, h.pipe.Escalation())
}

func TestEscalation_Sticky(t *testing.T) {
	h := newHarness(t, withOptions(Options{StickyEscalation: true}))
	ctx := context.Background()

	require.NoError(t, h.pipe.Send(ctx, "overdose", ""))
	require.NoError(t, h.pipe.Send(ctx, "ok", ""))
	assert.NotNil(t, h.pipe.Escalation())

	h.pipe.DismissEscalation()
	assert.Nil(t, h.pipe.Escalation())
}

func TestEscalation_FromFailureBody(t *testing.T) {
	h := newHarness(t)
	body := map[string]interface{}{
		"error":      "reply generation failed",
		"escalation": true,
		"escalationLinks": map[string]string{
			"doctorServices":    "/d",
			"emergencyServices": "/e",
		},
	}
	h.mock.Fail(mockbackend.RouteAI, 3, http.StatusInternalServerError, body)

	require.Error(t, h.pipe.Send(context.Background(), "help", ""))
	assert.Equal(t, &chat.EscalationLinks{DoctorServices: "/d", EmergencyServices: "/e"}, h.pipe.Escalation())
}

func TestSend_SingleFlightPerSession(t *testing.T) {
	var gated *gatedAPI
	h := newHarness(t, withAPI(func(api backend.API) backend.API {
		gated = &gatedAPI{API: api, gate: make(chan struct{}), entered: make(chan struct{}, 4)}
		return gated
	}))
	ctx := context.Background()
	first := h.sess.ID

	errc := make(chan error, 1)
	go func() { errc <- h.pipe.Send(ctx, "one", "") }()
	<-gated.entered
	assert.True(t, h.pipe.Sending(first))

	err := h.pipe.Send(ctx, "two", "")
	assert.True(t, errors.Is(err, apperrors.ErrSendInProgress))

	second, err := h.sessions.Create(ctx, "user-1")
	require.NoError(t, err)
	otherc := make(chan error, 1)
	go func() { otherc <- h.pipe.Send(ctx, "other session", "") }()
	<-gated.entered
	assert.True(t, h.pipe.Sending(second.ID), "other sessions are not blocked")

	close(gated.gate)
	require.NoError(t, <-errc)
	require.NoError(t, <-otherc)
	assert.False(t, h.pipe.Sending(first))

	firstSess, _ := h.sessions.Get(first)
	require.Len(t, userMessages(firstSess), 1)
}

func TestSend_CompletesInOriginatingSession(t *testing.T) {
	var gated *gatedAPI
	h := newHarness(t, withAPI(func(api backend.API) backend.API {
		gated = &gatedAPI{API: api, gate: make(chan struct{}), entered: make(chan struct{}, 1)}
		return gated
	}))
	ctx := context.Background()
	origin := h.sess.ID

	errc := make(chan error, 1)
	go func() { errc <- h.pipe.Send(ctx, "Hello", "") }()
	<-gated.entered

	other, err := h.sessions.Create(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, other.ID, h.sessions.ActiveID())

	close(gated.gate)
	require.NoError(t, <-errc)

	originSess, _ := h.sessions.Get(origin)
	assert.Len(t, originSess.Messages, 3)
	assert.Equal(t, chat.StatusSent, userMessages(originSess)[0].Status)

	otherSess, _ := h.sessions.Get(other.ID)
	assert.Len(t, otherSess.Messages, 1, "only the greeting")
}

func TestCancelSession(t *testing.T) {
	var gated *gatedAPI
	h := newHarness(t, withAPI(func(api backend.API) backend.API {
		gated = &gatedAPI{API: api, gate: make(chan struct{}), entered: make(chan struct{}, 1)}
		return gated
	}))

	errc := make(chan error, 1)
	go func() { errc <- h.pipe.Send(context.Background(), "Hello", "") }()
	<-gated.entered

	h.pipe.CancelSession(h.sess.ID)

	select {
	case err := <-errc:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("send was not cancelled")
	}

	users := userMessages(h.active(t))
	require.Len(t, users, 1)
	assert.Equal(t, chat.StatusError, users[0].Status)
	assert.Equal(t, 0, h.surface.Len(), "cancellation is not surfaced")
	assert.False(t, h.pipe.Sending(h.sess.ID))
}

func TestTitleInference(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.pipe.Send(context.Background(), "persistent dry cough at night", ""))
	h.pipe.Wait()

	got, _ := h.sessions.Get(h.sess.ID)
	assert.Equal(t, "Persistent Dry Cough At Night", got.Title)

	backendID, _ := h.sessions.BackendID(h.sess.ID)
	assert.Equal(t, got.Title, h.mock.Title(backendID))

	require.NoError(t, h.pipe.Send(context.Background(), "and a fever", ""))
	h.pipe.Wait()
	assert.Equal(t, 1, h.mock.Calls(mockbackend.RouteTitle), "only the first user message names the session")
}

func TestDetachedFailureGoesToTasks(t *testing.T) {
	h := newHarness(t)
	h.mock.Fail(mockbackend.RouteTitle, 1, http.StatusInternalServerError, nil)

	require.NoError(t, h.pipe.Send(context.Background(), "hello there", ""))
	h.pipe.Wait()

	var titleErr error
	found := false
	for {
		select {
		case res := <-h.pipe.Tasks():
			if res.Name == "title" {
				found = true
				titleErr = res.Err
			}
			continue
		default:
		}
		break
	}

	require.True(t, found)
	require.Error(t, titleErr)
	assert.Equal(t, apperrors.KindSideChannel, apperrors.KindOf(titleErr))
	assert.Equal(t, 0, h.surface.Len(), "side-channel failures are never surfaced")

	got, _ := h.sessions.Get(h.sess.ID)
	assert.Equal(t, chat.DefaultTitle, got.Title)
	assert.Equal(t, chat.StatusSent, userMessages(got)[0].Status)
}

func TestDictate(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.pipe.VoiceAvailable())
	assert.True(t, errors.Is(h.pipe.Dictate(context.Background()), ErrVoiceUnavailable))

	h.pipe.voice = fakeVoice{text: " spoken words "}
	assert.True(t, h.pipe.VoiceAvailable())
	require.NoError(t, h.pipe.Dictate(context.Background()))

	users := userMessages(h.active(t))
	require.Len(t, users, 1)
	assert.Equal(t, "spoken words", users[0].Text)

	h.pipe.voice = fakeVoice{err: errors.New("microphone busy")}
	assert.Error(t, h.pipe.Dictate(context.Background()))
	assert.Equal(t, 1, h.surface.Len())
}

func TestFeedback(t *testing.T) {
	h := newHarness(t)
	id := h.sess.Messages[0].ID

	require.NoError(t, h.pipe.SetFeedback(id, chat.FeedbackPositive))
	assert.Equal(t, chat.FeedbackPositive, h.pipe.Feedback()[id])

	h.pipe.ClearFeedback(id)
	assert.Empty(t, h.pipe.Feedback())
}
