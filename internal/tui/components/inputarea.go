// ABOUTME: InputArea component for composing chat messages
// ABOUTME: Wraps bubbles/textarea with an attachment chip, a length counter, and a disabled state
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/tui/theme"
)

const (
	defaultPlaceholder  = "Describe how you feel... (Enter to send, /attach <path> to add a file)"
	disabledPlaceholder = "Connecting to WeCare..."

	// MaxMessageLength caps a single message.
	MaxMessageLength = 2000
)

type InputArea struct {
	width      int
	height     int
	theme      theme.Theme
	textarea   textarea.Model
	focused    bool
	disabled   bool
	attachment string
}

func NewInputArea(width, height int, th theme.Theme) *InputArea {
	ta := textarea.New()
	ta.Placeholder = defaultPlaceholder
	ta.ShowLineNumbers = false
	ta.CharLimit = MaxMessageLength
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()

	ia := &InputArea{theme: th, textarea: ta}
	ia.SetSize(width, height)
	return ia
}

func (ia *InputArea) SetValue(value string) {
	ia.textarea.SetValue(value)
}

func (ia *InputArea) GetValue() string {
	return ia.textarea.Value()
}

func (ia *InputArea) Clear() {
	ia.textarea.Reset()
}

// Submit returns the trimmed draft and empties the editor.
func (ia *InputArea) Submit() string {
	text := strings.TrimSpace(ia.textarea.Value())
	ia.textarea.Reset()
	return text
}

func (ia *InputArea) Focus() {
	ia.focused = true
	ia.textarea.Focus()
}

func (ia *InputArea) Blur() {
	ia.focused = false
	ia.textarea.Blur()
}

func (ia *InputArea) IsFocused() bool {
	return ia.focused
}

// SetDisabled blocks typing while no session is usable.
func (ia *InputArea) SetDisabled(disabled bool) {
	ia.disabled = disabled
	if disabled {
		ia.textarea.Placeholder = disabledPlaceholder
	} else {
		ia.textarea.Placeholder = defaultPlaceholder
	}
}

func (ia *InputArea) IsDisabled() bool {
	return ia.disabled
}

// SetAttachment shows the staged file name under the editor. Empty hides it.
func (ia *InputArea) SetAttachment(name string) {
	ia.attachment = name
}

// SetSize keeps one line below the editor for the footer.
func (ia *InputArea) SetSize(width, height int) {
	ia.width = width
	ia.height = height
	ia.textarea.SetWidth(max(width-2, 1))
	ia.textarea.SetHeight(max(height-1, 1))
}

func (ia *InputArea) Init() tea.Cmd {
	return textarea.Blink
}

func (ia *InputArea) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, isKey := msg.(tea.KeyMsg); isKey && ia.disabled {
		return ia, nil
	}
	var cmd tea.Cmd
	ia.textarea, cmd = ia.textarea.Update(msg)
	return ia, cmd
}

func (ia *InputArea) footer() string {
	counter := fmt.Sprintf("%d/%d", ia.textarea.Length(), MaxMessageLength)
	if ia.attachment == "" {
		return ia.theme.DimStyle().Render(counter)
	}
	chip := lipgloss.NewStyle().Foreground(ia.theme.Primary).Render("📎 " + ia.attachment + " (/detach to drop)")
	return chip + "  " + ia.theme.DimStyle().Render(counter)
}

func (ia *InputArea) View() string {
	style := ia.theme.InputAreaStyle().
		Width(ia.width).
		Height(ia.height)
	if ia.focused {
		style = style.BorderLeft(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(ia.theme.Primary)
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, ia.textarea.View(), ia.footer()))
}
