// ABOUTME: Theme system for TUI styling with lipgloss
// ABOUTME: Provides predefined themes and style constructors for chat components
package theme

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	Primary    lipgloss.Color
	Background lipgloss.Color
	Foreground lipgloss.Color
	SidebarBg  lipgloss.Color
	InputBg    lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	UserMsg    lipgloss.Color
	AIMsg      lipgloss.Color
	Dim        lipgloss.Color
	Emergency  lipgloss.Color
}

var DefaultTheme = Theme{
	Primary:    lipgloss.Color("#14B8A6"), // Teal
	Background: lipgloss.Color("#1E1E2E"),
	Foreground: lipgloss.Color("#CDD6F4"),
	SidebarBg:  lipgloss.Color("#181825"),
	InputBg:    lipgloss.Color("#313244"),
	Success:    lipgloss.Color("#A6E3A1"),
	Warning:    lipgloss.Color("#F9E2AF"),
	Error:      lipgloss.Color("#F38BA8"),
	UserMsg:    lipgloss.Color("#89B4FA"),
	AIMsg:      lipgloss.Color("#94E2D5"),
	Dim:        lipgloss.Color("#6C7086"),
	Emergency:  lipgloss.Color("#EF4444"),
}

var DarkTheme = Theme{
	Primary:    lipgloss.Color("#00D7AF"),
	Background: lipgloss.Color("#000000"),
	Foreground: lipgloss.Color("#FFFFFF"),
	SidebarBg:  lipgloss.Color("#0A0A0A"),
	InputBg:    lipgloss.Color("#1A1A1A"),
	Success:    lipgloss.Color("#00FF00"),
	Warning:    lipgloss.Color("#FFFF00"),
	Error:      lipgloss.Color("#FF0000"),
	UserMsg:    lipgloss.Color("#00FFFF"),
	AIMsg:      lipgloss.Color("#AFFFD7"),
	Dim:        lipgloss.Color("#808080"),
	Emergency:  lipgloss.Color("#FF0000"),
}

var LightTheme = Theme{
	Primary:    lipgloss.Color("#0F766E"),
	Background: lipgloss.Color("#FDF6E3"),
	Foreground: lipgloss.Color("#657B83"),
	SidebarBg:  lipgloss.Color("#EEE8D5"),
	InputBg:    lipgloss.Color("#EEE8D5"),
	Success:    lipgloss.Color("#859900"),
	Warning:    lipgloss.Color("#B58900"),
	Error:      lipgloss.Color("#DC322F"),
	UserMsg:    lipgloss.Color("#268BD2"),
	AIMsg:      lipgloss.Color("#2AA198"),
	Dim:        lipgloss.Color("#93A1A1"),
	Emergency:  lipgloss.Color("#DC322F"),
}

// GetTheme returns the named theme. Unknown names get DefaultTheme.
func GetTheme(name string) Theme {
	switch name {
	case "dark":
		return DarkTheme
	case "light":
		return LightTheme
	default:
		return DefaultTheme
	}
}

func (t Theme) SidebarStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.SidebarBg).
		Foreground(t.Foreground).
		Padding(0, 1)
}

func (t Theme) ActiveSessionStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.Primary).
		Foreground(t.Background).
		Bold(true).
		Padding(0, 1)
}

func (t Theme) InactiveSessionStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Foreground).
		Padding(0, 1)
}

func (t Theme) ChatViewStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.Background).
		Foreground(t.Foreground).
		Padding(1)
}

func (t Theme) InputAreaStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.InputBg).
		Foreground(t.Foreground).
		Padding(0, 1)
}

func (t Theme) StatusBarStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.Primary).
		Foreground(t.Background).
		Padding(0, 1)
}

// OfflineBannerStyle is the full-width banner shown while the network is down.
func (t Theme) OfflineBannerStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.Warning).
		Foreground(t.Background).
		Bold(true).
		Padding(0, 1)
}

func (t Theme) EscalationStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(t.Emergency).
		Foreground(t.Foreground).
		Padding(0, 1)
}

func (t Theme) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Error).
		Bold(true)
}

func (t Theme) SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Success)
}

func (t Theme) DimStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Dim)
}
