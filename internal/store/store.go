// ABOUTME: Typed repository for locally persisted chat state
// ABOUTME: Encodes sessions, active id, id map, feedback, and escalation as JSON values

package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/logger"
)

// Keys under which each piece of state is stored.
const (
	KeySessions        = "chatSessions"
	KeyActiveSessionID = "activeSessionId"
	KeySessionIDMap    = "sessionIdMap"
	KeyFeedback        = "messageFeedback"
	KeyEscalation      = "escalationLinks"
)

// State is everything the chat client restores at startup.
type State struct {
	Sessions        []chat.Session
	ActiveSessionID chat.LocalID
	SessionIDMap    map[chat.LocalID]string
	Feedback        map[string]chat.Feedback
	Escalation      *chat.EscalationLinks
}

// Repository is the single entry point for reading and writing chat state.
// Every Save replaces the stored value for its key.
type Repository interface {
	Load(ctx context.Context) (State, error)
	SaveSessions(ctx context.Context, sessions []chat.Session) error
	SaveActiveSessionID(ctx context.Context, id chat.LocalID) error
	SaveSessionIDMap(ctx context.Context, m map[chat.LocalID]string) error
	SaveFeedback(ctx context.Context, f map[string]chat.Feedback) error
	SaveEscalation(ctx context.Context, links *chat.EscalationLinks) error
	Close() error
}

// KV is a string key-value backend.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// KVRepository implements Repository on top of any KV backend.
type KVRepository struct {
	kv KV
}

func NewKVRepository(kv KV) *KVRepository {
	return &KVRepository{kv: kv}
}

func (r *KVRepository) Load(ctx context.Context) (State, error) {
	st := State{
		SessionIDMap: make(map[chat.LocalID]string),
		Feedback:     make(map[string]chat.Feedback),
	}

	var err error
	if st.Sessions, err = read(ctx, r.kv, KeySessions, st.Sessions); err != nil {
		return State{}, err
	}
	if st.ActiveSessionID, err = read(ctx, r.kv, KeyActiveSessionID, st.ActiveSessionID); err != nil {
		return State{}, err
	}
	if st.SessionIDMap, err = read(ctx, r.kv, KeySessionIDMap, st.SessionIDMap); err != nil {
		return State{}, err
	}
	if st.Feedback, err = read(ctx, r.kv, KeyFeedback, st.Feedback); err != nil {
		return State{}, err
	}
	if st.Escalation, err = read(ctx, r.kv, KeyEscalation, st.Escalation); err != nil {
		return State{}, err
	}

	if st.SessionIDMap == nil {
		st.SessionIDMap = make(map[chat.LocalID]string)
	}
	if st.Feedback == nil {
		st.Feedback = make(map[string]chat.Feedback)
	}
	return st, nil
}

// read decodes key, returning def when the key is missing. A corrupt value is
// logged and treated as missing; a partial decode never leaks out.
func read[T any](ctx context.Context, kv KV, key string, def T) (T, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return def, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return def, nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		logger.Warn("store: discarding corrupt value for %s: %v", key, err)
		return def, nil
	}
	return v, nil
}

func (r *KVRepository) write(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.kv.Put(ctx, key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (r *KVRepository) SaveSessions(ctx context.Context, sessions []chat.Session) error {
	if sessions == nil {
		sessions = []chat.Session{}
	}
	return r.write(ctx, KeySessions, sessions)
}

func (r *KVRepository) SaveActiveSessionID(ctx context.Context, id chat.LocalID) error {
	if id == 0 {
		return r.kv.Delete(ctx, KeyActiveSessionID)
	}
	return r.write(ctx, KeyActiveSessionID, id)
}

func (r *KVRepository) SaveSessionIDMap(ctx context.Context, m map[chat.LocalID]string) error {
	return r.write(ctx, KeySessionIDMap, m)
}

func (r *KVRepository) SaveFeedback(ctx context.Context, f map[string]chat.Feedback) error {
	return r.write(ctx, KeyFeedback, f)
}

func (r *KVRepository) SaveEscalation(ctx context.Context, links *chat.EscalationLinks) error {
	if links == nil {
		return r.kv.Delete(ctx, KeyEscalation)
	}
	return r.write(ctx, KeyEscalation, links)
}

func (r *KVRepository) Close() error {
	return r.kv.Close()
}
