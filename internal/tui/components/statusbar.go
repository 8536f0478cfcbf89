// ABOUTME: StatusBar component for network state, sending state, and session info
// ABOUTME: Shows a colored connectivity indicator plus the staged attachment, if any
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/tui/theme"
)

type ConnectionState string

const (
	StateOnline     ConnectionState = "online"
	StateConnecting ConnectionState = "connecting"
	StateOffline    ConnectionState = "offline"
)

type StatusBar struct {
	width       int
	theme       theme.Theme
	state       ConnectionState
	sending     bool
	sessionName string
	stagedFile  string
	spin        string
}

func NewStatusBar(width int, t theme.Theme) *StatusBar {
	return &StatusBar{
		width: width,
		theme: t,
		state: StateOnline,
	}
}

func (s *StatusBar) SetConnectionState(state ConnectionState) {
	s.state = state
}

func (s *StatusBar) SetSending(sending bool) {
	s.sending = sending
}

// SetSpinner sets the frame shown next to busy states.
func (s *StatusBar) SetSpinner(frame string) {
	s.spin = frame
}

func (s *StatusBar) SetActiveSession(name string) {
	s.sessionName = name
}

// SetStagedFile shows name as the pending attachment. Empty clears it.
func (s *StatusBar) SetStagedFile(name string) {
	s.stagedFile = name
}

func (s *StatusBar) SetSize(width int) {
	s.width = width
}

func (s *StatusBar) View() string {
	var statusPart string
	switch s.state {
	case StateOnline:
		statusPart = "[🟢 Online]"
	case StateConnecting:
		statusPart = "[🟡 Connecting" + s.spinFrame() + "]"
	default:
		statusPart = "[🔴 Offline]"
	}

	parts := []string{statusPart}
	if s.sessionName != "" {
		parts = append(parts, "Chat: "+s.sessionName)
	} else {
		parts = append(parts, "No active chat")
	}
	if s.sending {
		parts = append(parts, "Sending…"+s.spinFrame())
	}
	if s.stagedFile != "" {
		parts = append(parts, "📎 "+s.stagedFile)
	}
	leftContent := strings.Join(parts, " ")

	shortcuts := "?: Help, ctrl+c: Quit"

	padding := s.width - lipgloss.Width(leftContent) - lipgloss.Width(shortcuts) - 7
	if padding < 1 {
		padding = 1
	}

	fullContent := fmt.Sprintf("%s%s| %s", leftContent, strings.Repeat(" ", padding), shortcuts)

	return s.theme.StatusBarStyle().
		Width(s.width - 2).
		Render(fullContent)
}

func (s *StatusBar) spinFrame() string {
	if s.spin == "" {
		return ""
	}
	return " " + s.spin
}
