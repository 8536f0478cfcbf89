// ABOUTME: Banner pointing the user at doctor and emergency services
// ABOUTME: Rendered above the chat whenever escalation links are present
package components

import (
	"strings"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/tui/theme"
)

type EscalationBanner struct {
	width int
	theme theme.Theme
	links *chat.EscalationLinks
}

func NewEscalationBanner(width int, t theme.Theme) *EscalationBanner {
	return &EscalationBanner{width: width, theme: t}
}

// SetLinks replaces the links shown. nil hides the banner.
func (b *EscalationBanner) SetLinks(links *chat.EscalationLinks) {
	b.links = links
}

func (b *EscalationBanner) Visible() bool {
	return b.links != nil && (b.links.DoctorServices != "" || b.links.EmergencyServices != "")
}

func (b *EscalationBanner) SetSize(width int) {
	b.width = width
}

func (b *EscalationBanner) View() string {
	if !b.Visible() {
		return ""
	}

	lines := []string{b.theme.ErrorStyle().Render("🚨 This may need medical attention")}
	if b.links.EmergencyServices != "" {
		lines = append(lines, "Emergency services: "+b.links.EmergencyServices)
	}
	if b.links.DoctorServices != "" {
		lines = append(lines, "Talk to a doctor:   "+b.links.DoctorServices)
	}
	lines = append(lines, b.theme.DimStyle().Render("ctrl+e to dismiss"))

	return b.theme.EscalationStyle().
		Width(b.width - 2).
		Render(strings.Join(lines, "\n"))
}
