// ABOUTME: Core Bubbletea model wiring the chat services to the TUI components
// ABOUTME: Subscribes to every state source and re-renders from their snapshots
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/config"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/netmon"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/notify"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/pipeline"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/retry"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/session"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/tui/components"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/tui/theme"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/upload"
)

// FocusArea represents which component currently has focus
type FocusArea int

const (
	FocusSidebar FocusArea = iota
	FocusChatView
	FocusInputArea
)

// Deps are the services the TUI drives. All of them are required.
type Deps struct {
	Config   *config.Config
	Sessions *session.Manager
	Pipeline *pipeline.Pipeline
	Stager   *upload.Stager
	Surface  *notify.Surface
	Retry    *retry.Controller
	Monitor  *netmon.Monitor
}

// changeSource names a subscription so its wait can be re-armed.
type changeSource int

const (
	sourceSessions changeSource = iota
	sourceStager
	sourceSurface
	sourceRetry
	sourceMonitor
)

type Model struct {
	ctx    context.Context
	deps   Deps
	theme  theme.Theme
	width  int
	height int

	// Components
	sidebar       *components.Sidebar
	chatView      *components.ChatView
	inputArea     *components.InputArea
	statusBar     *components.StatusBar
	helpOverlay   *components.HelpOverlay
	notifications *components.NotificationComponent
	escalation    *components.EscalationBanner
	spinner       spinner.Model

	subs map[changeSource]<-chan struct{}

	// UI state
	focusedArea    FocusArea
	sidebarVisible bool
	restored       bool
}

// NewModel builds the TUI. ctx bounds every operation the TUI starts.
func NewModel(ctx context.Context, deps Deps) Model {
	th := theme.GetTheme(deps.Config.UI.Theme)

	// Default dimensions until the first WindowSizeMsg
	helpOverlay := components.NewHelpOverlay(80, 24, th)
	helpOverlay.SetVoiceAvailable(deps.Pipeline.VoiceAvailable())

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	m := Model{
		ctx:           ctx,
		deps:          deps,
		theme:         th,
		sidebar:       components.NewSidebar(30, 24, th),
		chatView:      components.NewChatView(80, 20, th),
		inputArea:     components.NewInputArea(80, 4, th),
		statusBar:     components.NewStatusBar(80, th),
		helpOverlay:   helpOverlay,
		notifications: components.NewNotificationComponent(80, deps.Config.Notifications.MaxVisible, th),
		escalation:    components.NewEscalationBanner(80, th),
		spinner:       sp,
		subs: map[changeSource]<-chan struct{}{
			sourceSessions: deps.Sessions.Changes(),
			sourceStager:   deps.Stager.Changes(),
			sourceSurface:  deps.Surface.Changes(),
			sourceRetry:    deps.Retry.Changes(),
			sourceMonitor:  deps.Monitor.Changes(),
		},
		focusedArea:    FocusInputArea,
		sidebarVisible: true,
	}
	m.inputArea.Focus()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.inputArea.Init(),
		m.spinner.Tick,
		m.restoreSession(),
		m.waitForTask(),
	}
	for src := range m.subs {
		cmds = append(cmds, m.waitForChange(src))
	}
	return tea.Batch(cmds...)
}
