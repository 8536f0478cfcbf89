// ABOUTME: Tests for ChatView component rendering and message display
// ABOUTME: Verifies status marks, failure hints, feedback, and quick replies
package components

import (
	"testing"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/tui/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transcript() []chat.Message {
	return []chat.Message{
		{ID: "g", Sender: chat.SenderAI, Text: "Hi, how can I help?", Time: "09:00"},
		{ID: "u1", Sender: chat.SenderUser, Text: "I feel dizzy", Time: "09:01", Status: chat.StatusSent},
		{ID: "a1", Sender: chat.SenderAI, Text: "How long has this lasted?", Time: "09:01"},
		{ID: "u2", Sender: chat.SenderUser, Text: "Two days", Time: "09:02", Status: chat.StatusError, Error: "Server unavailable."},
	}
}

func TestNewChatView(t *testing.T) {
	th := theme.DefaultTheme
	cv := NewChatView(80, 24, th)

	require.NotNil(t, cv)
	assert.Equal(t, 80, cv.width)
	assert.Equal(t, 24, cv.height)
	assert.Empty(t, cv.messages)
	assert.Contains(t, cv.View(), "No messages yet")
}

func TestChatView_RendersTranscript(t *testing.T) {
	cv := NewChatView(100, 40, theme.DefaultTheme)
	cv.SetMessages(transcript(), map[string]chat.Feedback{"a1": chat.FeedbackPositive})

	view := cv.View()
	assert.Contains(t, view, "I feel dizzy")
	assert.Contains(t, view, "How long has this lasted?")
	assert.Contains(t, view, "Server unavailable.")
	assert.Contains(t, view, "Press r to retry")
	assert.Contains(t, view, "👍")
}

func TestChatView_LastFailedAndLastAI(t *testing.T) {
	cv := NewChatView(80, 24, theme.DefaultTheme)

	_, ok := cv.LastFailed()
	assert.False(t, ok)

	cv.SetMessages(transcript(), nil)

	failed, ok := cv.LastFailed()
	require.True(t, ok)
	assert.Equal(t, "u2", failed.ID)

	ai, ok := cv.LastAI()
	require.True(t, ok)
	assert.Equal(t, "a1", ai.ID)
}

func TestChatView_QuickReplies(t *testing.T) {
	cv := NewChatView(100, 30, theme.DefaultTheme)
	assert.False(t, cv.ShowsQuickReplies(), "empty transcript offers nothing")

	cv.SetMessages(transcript()[:1], nil)
	assert.True(t, cv.ShowsQuickReplies())
	assert.Contains(t, cv.View(), QuickReplies[0])

	cv.SetMessages(transcript(), nil)
	assert.False(t, cv.ShowsQuickReplies())
}

func TestChatView_SetSize(t *testing.T) {
	cv := NewChatView(80, 24, theme.DefaultTheme)
	cv.SetSize(120, 40)

	assert.Equal(t, 120, cv.width)
	assert.Equal(t, 40, cv.viewport.Height)
}
