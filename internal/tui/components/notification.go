// ABOUTME: Toast stack rendering the live entries of the error surface
// ABOUTME: Shows severity icons, context, and a retry hint for retryable entries
package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/notify"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/tui/theme"
)

const (
	defaultMaxVisible = 3
	notificationWidth = 44
)

// NotificationComponent renders toasts. Expiry is owned by notify.Surface;
// this component only shows the latest snapshot.
type NotificationComponent struct {
	entries    []notify.Entry
	maxVisible int
	width      int
	theme      theme.Theme
}

func NewNotificationComponent(width, maxVisible int, th theme.Theme) *NotificationComponent {
	if maxVisible <= 0 {
		maxVisible = defaultMaxVisible
	}
	return &NotificationComponent{
		maxVisible: maxVisible,
		width:      width,
		theme:      th,
	}
}

// SetEntries replaces the displayed toasts, keeping the most recent.
func (nc *NotificationComponent) SetEntries(entries []notify.Entry) {
	if len(entries) > nc.maxVisible {
		entries = entries[len(entries)-nc.maxVisible:]
	}
	nc.entries = entries
}

func (nc *NotificationComponent) Entries() []notify.Entry {
	return nc.entries
}

// Newest returns the most recent toast.
func (nc *NotificationComponent) Newest() (notify.Entry, bool) {
	if len(nc.entries) == 0 {
		return notify.Entry{}, false
	}
	return nc.entries[len(nc.entries)-1], true
}

// NewestRetryable returns the most recent toast that offers a retry.
func (nc *NotificationComponent) NewestRetryable() (notify.Entry, bool) {
	for i := len(nc.entries) - 1; i >= 0; i-- {
		if nc.entries[i].CanRetry() {
			return nc.entries[i], true
		}
	}
	return notify.Entry{}, false
}

// View renders the notifications as a vertical stack.
func (nc *NotificationComponent) View() string {
	if len(nc.entries) == 0 {
		return ""
	}

	views := make([]string, 0, len(nc.entries))
	for _, e := range nc.entries {
		style := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(nc.borderColor(e.Severity)).
			Padding(0, 1).
			Width(notificationWidth).
			MarginBottom(1)

		content := nc.icon(e.Severity) + " " + e.Message
		if e.CanRetry() {
			content += "\n" + nc.theme.DimStyle().Render("ctrl+r retry · ctrl+x dismiss")
		}
		views = append(views, style.Render(content))
	}

	return lipgloss.JoinVertical(lipgloss.Left, views...)
}

func (nc *NotificationComponent) icon(severity notify.Severity) string {
	switch severity {
	case notify.SeverityWarning:
		return "⚠️"
	case notify.SeverityError:
		return "❌"
	case notify.SeveritySuccess:
		return "✅"
	default:
		return "ℹ️"
	}
}

func (nc *NotificationComponent) borderColor(severity notify.Severity) lipgloss.Color {
	switch severity {
	case notify.SeverityWarning:
		return nc.theme.Warning
	case notify.SeverityError:
		return nc.theme.Error
	case notify.SeveritySuccess:
		return nc.theme.Success
	default:
		return nc.theme.UserMsg
	}
}
