// ABOUTME: Chat data model shared by the session manager, pipeline, and store
// ABOUTME: Defines sessions, messages, delivery status, escalation links, and feedback

package chat

import (
	"sync"
	"time"
)

// LocalID identifies a session on this client. It is a millisecond timestamp
// that never repeats within a process.
type LocalID int64

var (
	idMu   sync.Mutex
	lastID LocalID
)

// NewLocalID returns a strictly increasing timestamp-based id.
func NewLocalID() LocalID {
	idMu.Lock()
	defer idMu.Unlock()

	id := LocalID(time.Now().UnixMilli())
	if id <= lastID {
		id = lastID + 1
	}
	lastID = id
	return id
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Status tracks delivery of a user message. AI messages carry no status.
type Status string

const (
	StatusNone    Status = ""
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusError   Status = "error"
)

func (s Status) Icon() string {
	switch s {
	case StatusSending:
		return "…"
	case StatusSent:
		return "✓"
	case StatusError:
		return "⚠️"
	default:
		return ""
	}
}

// TimeLayout is the display format for Message.Time.
const TimeLayout = "15:04"

type Message struct {
	ID     string `json:"id"`
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
	Time   string `json:"time"`
	Status Status `json:"status,omitempty"`
	// Error holds the failure reason shown next to a message in StatusError.
	Error string `json:"error,omitempty"`
}

// NewAIMessage builds a final AI message stamped with the current time.
func NewAIMessage(id, text string) Message {
	return Message{
		ID:     id,
		Sender: SenderAI,
		Text:   text,
		Time:   time.Now().Format(TimeLayout),
	}
}

// IsFinal reports whether the message will not transition any further.
func (m Message) IsFinal() bool {
	return m.Sender == SenderAI || m.Status == StatusSent
}

type Session struct {
	ID       LocalID   `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (s Session) Clone() Session {
	out := s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	return out
}

// UserMessageCount counts messages sent by the user.
func (s Session) UserMessageCount() int {
	n := 0
	for _, m := range s.Messages {
		if m.Sender == SenderUser {
			n++
		}
	}
	return n
}

// FindMessage returns the index of the message with id, or -1.
func (s Session) FindMessage(id string) int {
	for i, m := range s.Messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// EscalationLinks are surfaced when an AI reply signals an emergency.
type EscalationLinks struct {
	DoctorServices    string `json:"doctorServices"`
	EmergencyServices string `json:"emergencyServices"`
}

type Feedback string

const (
	FeedbackPositive Feedback = "positive"
	FeedbackNegative Feedback = "negative"
)

// Valid reports whether f is one of the known feedback values.
func (f Feedback) Valid() bool {
	return f == FeedbackPositive || f == FeedbackNegative
}

// DefaultTitle is given to sessions before a title is inferred.
const DefaultTitle = "New Chat"
