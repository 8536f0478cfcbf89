// ABOUTME: Sidebar component listing chat sessions with the active one marked
// ABOUTME: Handles cursor navigation and selection over the session list
package components

import (
	"fmt"
	"strings"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/tui/theme"
)

type Sidebar struct {
	width    int
	height   int
	theme    theme.Theme
	sessions []chat.Session
	active   chat.LocalID
	busy     map[chat.LocalID]bool
	cursor   int
}

func NewSidebar(width, height int, t theme.Theme) *Sidebar {
	return &Sidebar{
		width:  width,
		height: height,
		theme:  t,
	}
}

// SetSessions replaces the list. busy marks sessions with a send in flight.
func (s *Sidebar) SetSessions(sessions []chat.Session, active chat.LocalID, busy map[chat.LocalID]bool) {
	s.sessions = sessions
	s.active = active
	s.busy = busy

	s.cursor = min(max(s.cursor, 0), max(len(sessions)-1, 0))
}

func (s *Sidebar) CursorDown() { s.move(1) }

func (s *Sidebar) CursorUp() { s.move(-1) }

// move shifts the cursor by delta, wrapping at both ends.
func (s *Sidebar) move(delta int) {
	n := len(s.sessions)
	if n == 0 {
		return
	}
	s.cursor = ((s.cursor+delta)%n + n) % n
}

// Selected returns the session under the cursor.
func (s *Sidebar) Selected() (chat.Session, bool) {
	if s.cursor < 0 || s.cursor >= len(s.sessions) {
		return chat.Session{}, false
	}
	return s.sessions[s.cursor], true
}

// FocusActive moves the cursor onto the active session.
func (s *Sidebar) FocusActive() {
	for i, sess := range s.sessions {
		if sess.ID == s.active {
			s.cursor = i
			return
		}
	}
}

func (s *Sidebar) View() string {
	if len(s.sessions) == 0 {
		emptyMsg := s.theme.DimStyle().Render("No chats yet\n\nPress 'n' to start one")
		return s.theme.SidebarStyle().
			Width(s.width - 2).
			Height(s.height - 2).
			Render(emptyMsg)
	}

	title := s.theme.ActiveSessionStyle().
		Width(s.width - 4).
		Render("CHATS")
	items := []string{title, ""}

	for i, sess := range s.sessions {
		marker := " "
		if sess.ID == s.active {
			marker = "●"
		}
		if s.busy[sess.ID] {
			marker = "…"
		}

		name := sess.Title
		if name == "" {
			name = chat.DefaultTitle
		}
		maxLen := s.width - 8
		if maxLen > 3 && len([]rune(name)) > maxLen {
			name = string([]rune(name)[:maxLen-3]) + "..."
		}

		line := fmt.Sprintf("%s %s", marker, name)
		if i == s.cursor {
			line = s.theme.ActiveSessionStyle().Width(s.width - 4).Render(line)
		} else {
			line = s.theme.InactiveSessionStyle().Width(s.width - 4).Render(line)
		}
		items = append(items, line)
	}

	help := s.theme.DimStyle().Render("\n↑↓: Navigate\nenter: Open\nn: New chat")
	items = append(items, "", help)

	return s.theme.SidebarStyle().
		Width(s.width - 2).
		Height(s.height - 2).
		Render(strings.Join(items, "\n"))
}

func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
}
