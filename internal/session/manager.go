// ABOUTME: Session manager owning the chat session list, backend id mapping, and feedback
// ABOUTME: Creates backend sessions seeded with a greeting and persists every mutation

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/backend"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
	apperrors "github.com/dheeraj009joshi/WeCare-sub002/internal/errors"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/logger"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/retry"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/store"
	"github.com/google/uuid"
)

// DefaultGreeting seeds a new session when the backend greeting cannot be fetched.
const DefaultGreeting = "Hello! I'm your WeCare health assistant. How can I help you today?"

var ErrSessionNotFound = errors.New("session not found")

// Reporter receives failures that must be shown to the user.
type Reporter interface {
	Add(err error, context string) string
}

// Manager owns all chat state. Callers receive copies; every change goes
// through a functional update and is written back to the repository.
type Manager struct {
	api      backend.API
	retry    *retry.Controller
	repo     store.Repository
	reporter Reporter

	mu         sync.RWMutex
	sessions   []chat.Session
	active     chat.LocalID
	idMap      map[chat.LocalID]string
	feedback   map[string]chat.Feedback
	escalation *chat.EscalationLinks

	persistMu sync.Mutex
	changes   chat.Signal
}

func NewManager(api backend.API, rc *retry.Controller, repo store.Repository, reporter Reporter) *Manager {
	return &Manager{
		api:      api,
		retry:    rc,
		repo:     repo,
		reporter: reporter,
		idMap:    make(map[chat.LocalID]string),
		feedback: make(map[string]chat.Feedback),
	}
}

// Create opens a backend session for userID, seeds it with a greeting, and
// makes it the active session at the head of the list.
func (m *Manager) Create(ctx context.Context, userID string) (chat.Session, error) {
	if userID == "" {
		err := apperrors.NewMissingUserIDError("create session")
		m.report(err, "session_create")
		return chat.Session{}, err
	}

	backendID, err := retry.Do(ctx, m.retry, "session_create", func(ctx context.Context) (string, error) {
		return m.api.CreateSession(ctx, userID, chat.DefaultTitle)
	})
	if err != nil {
		if !errors.Is(err, retry.ErrExhausted) && ctx.Err() == nil {
			m.report(err, "session_create")
		}
		return chat.Session{}, fmt.Errorf("create session: %w", err)
	}

	greeting, err := retry.Do(ctx, m.retry, "greeting", func(ctx context.Context) (string, error) {
		return m.api.Greeting(ctx)
	})
	if err != nil || greeting == "" {
		logger.Warn("session: greeting unavailable, using default: %v", err)
		greeting = DefaultGreeting
	}

	if err := m.api.SaveMessage(ctx, backendID, chat.SenderAI, greeting); err != nil {
		logger.Warn("session: persist greeting for %s: %v", backendID, err)
	}

	sess := chat.Session{
		ID:       chat.NewLocalID(),
		Title:    chat.DefaultTitle,
		Messages: []chat.Message{chat.NewAIMessage(uuid.NewString(), greeting)},
	}

	m.mu.Lock()
	m.sessions = append([]chat.Session{sess}, m.sessions...)
	m.active = sess.ID
	m.idMap[sess.ID] = backendID
	m.mu.Unlock()

	logger.Info("session: created %d -> %s", sess.ID, backendID)
	m.persist(persistSessions | persistActive | persistIDMap)
	m.changes.Notify()
	return sess.Clone(), nil
}

// Restore loads persisted state and reselects the last active session. When
// that session has no backend mapping it falls back to Create.
func (m *Manager) Restore(ctx context.Context, userID string) (chat.Session, error) {
	st, err := m.repo.Load(ctx)
	if err != nil {
		logger.Warn("session: load state: %v", err)
		st = store.State{}
	}

	m.mu.Lock()
	m.sessions = st.Sessions
	if st.SessionIDMap != nil {
		m.idMap = st.SessionIDMap
	}
	if st.Feedback != nil {
		m.feedback = st.Feedback
	}
	m.escalation = st.Escalation
	m.active = 0

	_, backendID, ok := m.lookupLocked(st.ActiveSessionID)
	if ok {
		m.active = st.ActiveSessionID
	}
	m.mu.Unlock()

	if !ok {
		logger.Info("session: no usable session to restore (active=%d), creating one", st.ActiveSessionID)
		return m.Create(ctx, userID)
	}

	m.refreshHistory(ctx, st.ActiveSessionID, backendID)
	m.changes.Notify()

	sess, _ := m.Get(st.ActiveSessionID)
	logger.Info("session: restored %d -> %s", sess.ID, backendID)
	return sess, nil
}

func (m *Manager) lookupLocked(id chat.LocalID) (int, string, bool) {
	if id == 0 {
		return -1, "", false
	}
	idx := m.indexLocked(id)
	if idx < 0 {
		return -1, "", false
	}
	backendID, ok := m.idMap[id]
	if !ok || backendID == "" {
		return idx, "", false
	}
	return idx, backendID, true
}

// refreshHistory fills an empty local transcript from the backend.
func (m *Manager) refreshHistory(ctx context.Context, id chat.LocalID, backendID string) {
	sess, ok := m.Get(id)
	if !ok || len(sess.Messages) > 0 {
		return
	}

	msgs, err := m.api.Messages(ctx, backendID)
	if err != nil {
		logger.Warn("session: fetch history for %s: %v", backendID, err)
		return
	}
	for i := range msgs {
		if msgs[i].ID == "" {
			msgs[i].ID = uuid.NewString()
		}
		if msgs[i].Time == "" {
			msgs[i].Time = time.Now().Format(chat.TimeLayout)
		}
		if msgs[i].Sender == chat.SenderUser && msgs[i].Status == chat.StatusNone {
			msgs[i].Status = chat.StatusSent
		}
	}
	err = m.Update(id, func(s *chat.Session) {
		if len(s.Messages) == 0 {
			s.Messages = msgs
		}
	})
	if err != nil {
		logger.Warn("session: apply history for %d: %v", id, err)
	}
}

// Select makes id the active session.
func (m *Manager) Select(id chat.LocalID) error {
	m.mu.Lock()
	if m.indexLocked(id) < 0 {
		m.mu.Unlock()
		return fmt.Errorf("select %d: %w", id, ErrSessionNotFound)
	}
	m.active = id
	m.mu.Unlock()

	m.persist(persistActive)
	m.changes.Notify()
	return nil
}

func (m *Manager) ActiveID() chat.LocalID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

func (m *Manager) Active() (chat.Session, bool) {
	return m.Get(m.ActiveID())
}

func (m *Manager) Get(id chat.LocalID) (chat.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return chat.Session{}, false
	}
	return m.sessions[idx].Clone(), true
}

// List returns all sessions, newest first.
func (m *Manager) List() []chat.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]chat.Session, len(m.sessions))
	for i, s := range m.sessions {
		out[i] = s.Clone()
	}
	return out
}

// BackendID returns the backend session id mapped to id.
func (m *Manager) BackendID(id chat.LocalID) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	backendID, ok := m.idMap[id]
	return backendID, ok && backendID != ""
}

// Update applies fn to a copy of the session and stores the result.
func (m *Manager) Update(id chat.LocalID, fn func(*chat.Session)) error {
	m.mu.Lock()
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("update %d: %w", id, ErrSessionNotFound)
	}
	next := m.sessions[idx].Clone()
	fn(&next)
	sessions := make([]chat.Session, len(m.sessions))
	copy(sessions, m.sessions)
	sessions[idx] = next
	m.sessions = sessions
	m.mu.Unlock()

	m.persist(persistSessions)
	m.changes.Notify()
	return nil
}

// Append adds messages to the end of the session's transcript.
func (m *Manager) Append(id chat.LocalID, msgs ...chat.Message) error {
	return m.Update(id, func(s *chat.Session) {
		s.Messages = append(s.Messages, msgs...)
	})
}

// Put inserts msg, or replaces the message with the same id in place.
func (m *Manager) Put(id chat.LocalID, msg chat.Message) error {
	return m.Update(id, func(s *chat.Session) {
		if i := s.FindMessage(msg.ID); i >= 0 {
			s.Messages[i] = msg
			return
		}
		s.Messages = append(s.Messages, msg)
	})
}

// SetStatus transitions a user message. reason is kept only for StatusError.
func (m *Manager) SetStatus(id chat.LocalID, messageID string, status chat.Status, reason string) error {
	found := false
	err := m.Update(id, func(s *chat.Session) {
		i := s.FindMessage(messageID)
		if i < 0 {
			return
		}
		found = true
		s.Messages[i].Status = status
		if status == chat.StatusError {
			s.Messages[i].Error = reason
		} else {
			s.Messages[i].Error = ""
		}
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("set status: message %s not in session %d", messageID, id)
	}
	return nil
}

func (m *Manager) Rename(id chat.LocalID, title string) error {
	return m.Update(id, func(s *chat.Session) {
		s.Title = title
	})
}

// Delete is not supported; sessions live as long as the local store.
func (m *Manager) Delete(id chat.LocalID) error {
	return fmt.Errorf("delete %d: %w", id, apperrors.ErrNotSupported)
}

// FindMessage locates a message by id across all sessions.
func (m *Manager) FindMessage(messageID string) (chat.LocalID, chat.Message, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sessions {
		if i := s.FindMessage(messageID); i >= 0 {
			return s.ID, s.Messages[i], true
		}
	}
	return 0, chat.Message{}, false
}

// SetFeedback records the user's rating of a message.
func (m *Manager) SetFeedback(messageID string, f chat.Feedback) error {
	if !f.Valid() {
		return &apperrors.Error{
			Kind:        apperrors.KindValidation,
			Op:          "feedback",
			Explanation: fmt.Sprintf("Unknown feedback %q.", f),
			Recoverable: true,
			Err:         fmt.Errorf("invalid feedback %q", f),
		}
	}
	m.mu.Lock()
	m.feedback[messageID] = f
	m.mu.Unlock()

	m.persist(persistFeedback)
	m.changes.Notify()
	return nil
}

// ClearFeedback removes a rating. It is the only way feedback is removed.
func (m *Manager) ClearFeedback(messageID string) {
	m.mu.Lock()
	_, ok := m.feedback[messageID]
	delete(m.feedback, messageID)
	m.mu.Unlock()

	if ok {
		m.persist(persistFeedback)
		m.changes.Notify()
	}
}

func (m *Manager) Feedback() map[string]chat.Feedback {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]chat.Feedback, len(m.feedback))
	for k, v := range m.feedback {
		out[k] = v
	}
	return out
}

// SetEscalation replaces the escalation snapshot. nil clears it.
func (m *Manager) SetEscalation(links *chat.EscalationLinks) {
	var next *chat.EscalationLinks
	if links != nil {
		l := *links
		next = &l
	}
	m.mu.Lock()
	m.escalation = next
	m.mu.Unlock()

	m.persist(persistEscalation)
	m.changes.Notify()
}

func (m *Manager) Escalation() *chat.EscalationLinks {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.escalation == nil {
		return nil
	}
	l := *m.escalation
	return &l
}

// Changes signals after every state change.
func (m *Manager) Changes() <-chan struct{} {
	return m.changes.Subscribe()
}

func (m *Manager) indexLocked(id chat.LocalID) int {
	for i, s := range m.sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) report(err error, context string) {
	if m.reporter != nil {
		m.reporter.Add(err, context)
	}
}

type persistMask uint8

const (
	persistSessions persistMask = 1 << iota
	persistActive
	persistIDMap
	persistFeedback
	persistEscalation
)

// persist writes the selected keys. The snapshot is taken while holding
// persistMu so a later write never carries older state.
func (m *Manager) persist(mask persistMask) {
	if m.repo == nil {
		return
	}
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.RLock()
	sessions := m.sessions
	active := m.active
	idMap := make(map[chat.LocalID]string, len(m.idMap))
	for k, v := range m.idMap {
		idMap[k] = v
	}
	feedback := make(map[string]chat.Feedback, len(m.feedback))
	for k, v := range m.feedback {
		feedback[k] = v
	}
	escalation := m.escalation
	m.mu.RUnlock()

	ctx := context.Background()
	var errs []error
	if mask&persistSessions != 0 {
		errs = append(errs, m.repo.SaveSessions(ctx, sessions))
	}
	if mask&persistActive != 0 {
		errs = append(errs, m.repo.SaveActiveSessionID(ctx, active))
	}
	if mask&persistIDMap != 0 {
		errs = append(errs, m.repo.SaveSessionIDMap(ctx, idMap))
	}
	if mask&persistFeedback != 0 {
		errs = append(errs, m.repo.SaveFeedback(ctx, feedback))
	}
	if mask&persistEscalation != 0 {
		errs = append(errs, m.repo.SaveEscalation(ctx, escalation))
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn("session: persist state: %v", err)
	}
}
