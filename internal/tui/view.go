// ABOUTME: View rendering for the TUI (converts model state to terminal output)
// ABOUTME: Stacks banners over the chat, with toasts placed in the top-right corner
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

const offlineBannerText = "⚠️  You are offline. Messages will be retried when the connection returns."

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.helpOverlay.IsVisible() {
		return m.helpOverlay.View()
	}

	// Layout: banners / chatView / inputArea
	var column []string
	if !m.deps.Monitor.Online() {
		column = append(column, m.theme.OfflineBannerStyle().
			Width(m.chatWidth()).
			Render(offlineBannerText))
	}
	if banner := m.escalation.View(); banner != "" {
		column = append(column, banner)
	}
	column = append(column, m.chatView.View(), m.inputArea.View())
	chatAndInput := lipgloss.JoinVertical(lipgloss.Top, column...)

	mainContent := chatAndInput
	if m.sidebarVisible {
		mainContent = lipgloss.JoinHorizontal(
			lipgloss.Top,
			m.sidebar.View(),
			chatAndInput,
		)
	}

	fullView := lipgloss.JoinVertical(
		lipgloss.Top,
		mainContent,
		m.statusBar.View(),
	)

	notificationView := m.notifications.View()
	if notificationView != "" {
		toasts := lipgloss.Place(
			m.width,
			lipgloss.Height(notificationView),
			lipgloss.Right,
			lipgloss.Top,
			notificationView,
			lipgloss.WithWhitespaceChars(" "),
			lipgloss.WithWhitespaceForeground(lipgloss.NoColor{}),
		)
		fullView = toasts + "\n" + fullView
	}

	return fullView
}

func (m Model) chatWidth() int {
	if !m.sidebarVisible {
		return m.width
	}
	w := m.width / 4
	if w < 25 {
		w = 25
	}
	if w > 40 {
		w = 40
	}
	return m.width - w
}
