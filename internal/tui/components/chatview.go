// ABOUTME: ChatView component for displaying a session transcript with scrolling
// ABOUTME: Uses bubbles viewport and marks delivery status, failures, and feedback
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/tui/theme"
)

// QuickReplies are offered while a session holds only its greeting.
var QuickReplies = []string{
	"I have a headache",
	"I'd like to see a doctor",
	"I need emergency help",
}

type ChatView struct {
	width    int
	height   int
	theme    theme.Theme
	viewport viewport.Model
	messages []chat.Message
	feedback map[string]chat.Feedback
}

func NewChatView(width, height int, t theme.Theme) *ChatView {
	vp := viewport.New(width, height)
	vp.Style = t.ChatViewStyle()

	return &ChatView{
		width:    width,
		height:   height,
		theme:    t,
		viewport: vp,
		feedback: map[string]chat.Feedback{},
	}
}

// SetMessages replaces the transcript and scrolls to the newest message.
func (cv *ChatView) SetMessages(messages []chat.Message, feedback map[string]chat.Feedback) {
	cv.messages = messages
	if feedback == nil {
		feedback = map[string]chat.Feedback{}
	}
	cv.feedback = feedback
	cv.updateViewport()
	cv.viewport.GotoBottom()
}

// LastFailed returns the newest user message in StatusError.
func (cv *ChatView) LastFailed() (chat.Message, bool) {
	for i := len(cv.messages) - 1; i >= 0; i-- {
		m := cv.messages[i]
		if m.Sender == chat.SenderUser && m.Status == chat.StatusError {
			return m, true
		}
	}
	return chat.Message{}, false
}

// LastAI returns the newest AI message.
func (cv *ChatView) LastAI() (chat.Message, bool) {
	for i := len(cv.messages) - 1; i >= 0; i-- {
		if cv.messages[i].Sender == chat.SenderAI {
			return cv.messages[i], true
		}
	}
	return chat.Message{}, false
}

// ShowsQuickReplies reports whether only the greeting has been exchanged.
func (cv *ChatView) ShowsQuickReplies() bool {
	for _, m := range cv.messages {
		if m.Sender == chat.SenderUser {
			return false
		}
	}
	return len(cv.messages) > 0
}

func (cv *ChatView) formatMessage(msg chat.Message) string {
	var sb strings.Builder

	who := "🩺 WeCare"
	contentStyle := cv.theme.ChatViewStyle().Foreground(cv.theme.AIMsg)
	if msg.Sender == chat.SenderUser {
		who = "🙂 You"
		contentStyle = cv.theme.ChatViewStyle().Foreground(cv.theme.UserMsg)
	}

	header := fmt.Sprintf("%s %s", who, cv.theme.DimStyle().Render(msg.Time))
	if icon := msg.Status.Icon(); icon != "" {
		header += " " + icon
	}
	switch cv.feedback[msg.ID] {
	case chat.FeedbackPositive:
		header += " 👍"
	case chat.FeedbackNegative:
		header += " 👎"
	}
	sb.WriteString(header)
	sb.WriteString("\n")
	sb.WriteString(contentStyle.Render(msg.Text))
	sb.WriteString("\n")

	if msg.Status == chat.StatusError {
		reason := msg.Error
		if reason == "" {
			reason = "Not delivered."
		}
		sb.WriteString(cv.theme.ErrorStyle().Render(reason + " Press r to retry."))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (cv *ChatView) updateViewport() {
	if len(cv.messages) == 0 {
		cv.viewport.SetContent(cv.theme.DimStyle().Render("No messages yet"))
		return
	}

	var sb strings.Builder
	for i, msg := range cv.messages {
		sb.WriteString(cv.formatMessage(msg))
		if i < len(cv.messages)-1 {
			sb.WriteString("\n")
		}
	}

	if cv.ShowsQuickReplies() {
		sb.WriteString("\n")
		for i, qr := range QuickReplies {
			sb.WriteString(cv.theme.DimStyle().Render(fmt.Sprintf("  [%d] %s", i+1, qr)))
			sb.WriteString("\n")
		}
	}

	cv.viewport.SetContent(sb.String())
}

func (cv *ChatView) View() string {
	if len(cv.messages) == 0 {
		return cv.theme.ChatViewStyle().
			Width(cv.width - 2).
			Height(cv.height - 2).
			Render(cv.theme.DimStyle().Render("No messages yet"))
	}

	return cv.viewport.View()
}

func (cv *ChatView) SetSize(width, height int) {
	cv.width = width
	cv.height = height
	cv.viewport.Width = width
	cv.viewport.Height = height
	cv.updateViewport()
}

func (cv *ChatView) Init() tea.Cmd {
	return nil
}

func (cv *ChatView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	cv.viewport, cmd = cv.viewport.Update(msg)
	return cv, cmd
}
