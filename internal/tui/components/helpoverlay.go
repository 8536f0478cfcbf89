// ABOUTME: HelpOverlay component listing keyboard shortcuts grouped by focus area
// ABOUTME: Renders a centered modal; the dictation key only appears when voice is available
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/tui/theme"
)

// Shortcut is one key binding shown in the overlay.
type Shortcut struct {
	key         string
	description string
}

type shortcutGroup struct {
	title     string
	shortcuts []Shortcut
}

// HelpOverlay displays a modal overlay with keyboard shortcuts.
type HelpOverlay struct {
	width   int
	height  int
	theme   theme.Theme
	visible bool
	voice   bool
	groups  []shortcutGroup
}

func NewHelpOverlay(width, height int, t theme.Theme) *HelpOverlay {
	return &HelpOverlay{
		width:  width,
		height: height,
		theme:  t,
		groups: []shortcutGroup{
			{"Global", []Shortcut{
				{"Tab", "Switch focus"},
				{"Ctrl+B", "Toggle sidebar"},
				{"Ctrl+N", "New chat"},
				{"Ctrl+R", "Retry from latest toast"},
				{"Ctrl+X", "Dismiss latest toast"},
				{"Ctrl+E", "Dismiss emergency links"},
				{"?", "Toggle help"},
				{"Ctrl+C", "Quit"},
			}},
			{"Input", []Shortcut{
				{"Enter", "Send (uploads staged file)"},
				{"/attach", "Stage a file to upload"},
				{"/detach", "Drop the staged file"},
			}},
			{"Chat", []Shortcut{
				{"r", "Retry last failed message"},
				{"+ / -", "Rate last reply"},
				{"0", "Clear rating"},
				{"1-3", "Send a quick reply"},
			}},
			{"Sidebar", []Shortcut{
				{"↑ / ↓", "Move"},
				{"Enter", "Open chat"},
				{"n", "New chat"},
			}},
		},
	}
}

// SetVoiceAvailable adds or removes the dictation shortcut.
func (h *HelpOverlay) SetVoiceAvailable(available bool) {
	h.voice = available
}

func (h *HelpOverlay) shortcuts() []Shortcut {
	var all []Shortcut
	for _, g := range h.allGroups() {
		all = append(all, g.shortcuts...)
	}
	return all
}

func (h *HelpOverlay) allGroups() []shortcutGroup {
	if !h.voice {
		return h.groups
	}
	groups := make([]shortcutGroup, len(h.groups))
	copy(groups, h.groups)
	global := groups[0]
	global.shortcuts = append(append([]Shortcut(nil), global.shortcuts...), Shortcut{"Ctrl+V", "Dictate a message"})
	groups[0] = global
	return groups
}

func (h *HelpOverlay) Show() {
	h.visible = true
}

func (h *HelpOverlay) Hide() {
	h.visible = false
}

func (h *HelpOverlay) IsVisible() bool {
	return h.visible
}

func (h *HelpOverlay) Toggle() {
	h.visible = !h.visible
}

func (h *HelpOverlay) SetSize(width, height int) {
	h.width = width
	h.height = height
}

func (h *HelpOverlay) View() string {
	if !h.visible {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(h.theme.Primary)
	groupStyle := lipgloss.NewStyle().
		Foreground(h.theme.Dim).
		Underline(true)
	keyStyle := lipgloss.NewStyle().
		Foreground(h.theme.Success).
		Bold(true)
	descStyle := lipgloss.NewStyle().
		Foreground(h.theme.Foreground)

	maxKeyLen := 0
	for _, sc := range h.shortcuts() {
		if n := lipgloss.Width(sc.key); n > maxKeyLen {
			maxKeyLen = n
		}
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("Keyboard Shortcuts"))
	content.WriteString("\n")

	for _, g := range h.allGroups() {
		content.WriteString("\n" + groupStyle.Render(g.title) + "\n")
		for _, sc := range g.shortcuts {
			paddedKey := sc.key + strings.Repeat(" ", maxKeyLen-lipgloss.Width(sc.key))
			content.WriteString(fmt.Sprintf("  %s  %s\n",
				keyStyle.Render(paddedKey),
				descStyle.Render(sc.description)))
		}
	}

	modalWidth := 50
	if modalWidth > h.width-4 {
		modalWidth = h.width - 4
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(h.theme.Primary).
		Padding(1, 2).
		Width(modalWidth).
		Render(strings.TrimRight(content.String(), "\n"))

	return lipgloss.Place(h.width, h.height, lipgloss.Center, lipgloss.Center, modal)
}
