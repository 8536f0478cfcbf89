// ABOUTME: Update logic for the TUI (handles all messages and state transitions)
// ABOUTME: Implements the Elm architecture Update function over the chat services
package tui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
	apperrors "github.com/dheeraj009joshi/WeCare-sub002/internal/errors"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/logger"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/pipeline"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/tui/components"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/xdg"
)

// Custom message types for service events.
type stateChangedMsg struct {
	source changeSource
}

type taskDoneMsg struct {
	result pipeline.TaskResult
}

type sessionRestoredMsg struct {
	err error
}

// opDoneMsg reports a finished send, retry, upload, dictation or create.
// Failures are already on the error surface; the TUI only logs them.
type opDoneMsg struct {
	op  string
	err error
}

const (
	attachCommand = "/attach"
	detachCommand = "/detach"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateComponentSizes()
		return m, nil

	case tea.KeyMsg:
		// Help overlay gets priority
		if m.helpOverlay.IsVisible() {
			if msg.String() == "?" || msg.String() == "esc" {
				m.helpOverlay.Toggle()
			}
			return m, nil
		}

		if handled, next, cmd := m.handleGlobalKey(msg); handled {
			return next, cmd
		}
		return m.handleFocusedInput(msg)

	case stateChangedMsg:
		m = m.refresh()
		return m, m.waitForChange(msg.source)

	case taskDoneMsg:
		if msg.result.Err != nil {
			logger.Debug("tui: background %s for session %d: %v", msg.result.Name, msg.result.SessionID, msg.result.Err)
		}
		return m, m.waitForTask()

	case sessionRestoredMsg:
		m.restored = true
		if msg.err != nil {
			logger.Error("tui: restore session: %v", msg.err)
		}
		m = m.refresh()
		return m, nil

	case opDoneMsg:
		if !isQuiet(msg.err) {
			logger.Debug("tui: %s finished with error: %v", msg.op, msg.err)
		}
		m = m.refresh()
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		m = m.refreshStatus()
		return m, cmd
	}

	// Update components that need to receive all messages (like viewport scrolling)
	if m.focusedArea == FocusChatView {
		_, cmd = m.chatView.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.focusedArea == FocusInputArea {
		_, cmd = m.inputArea.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleGlobalKey(msg tea.KeyMsg) (bool, Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return true, m, tea.Quit

	case "?":
		if m.focusedArea == FocusInputArea {
			return false, m, nil
		}
		m.helpOverlay.Toggle()
		return true, m, nil

	case "ctrl+b":
		m.sidebarVisible = !m.sidebarVisible
		if !m.sidebarVisible && m.focusedArea == FocusSidebar {
			m.setFocus(FocusInputArea)
		}
		m.updateComponentSizes()
		return true, m, nil

	case "tab":
		m.cycleFocus()
		return true, m, nil

	case "ctrl+n":
		return true, m, m.createSession()

	case "ctrl+r":
		if e, ok := m.notifications.NewestRetryable(); ok {
			if err := m.deps.Surface.Retry(e.ID); err != nil {
				logger.Debug("tui: retry toast %s: %v", e.ID, err)
			}
		}
		return true, m, nil

	case "ctrl+x":
		if e, ok := m.notifications.Newest(); ok {
			m.deps.Surface.Dismiss(e.ID)
		}
		return true, m, nil

	case "ctrl+e":
		m.deps.Pipeline.DismissEscalation()
		return true, m, nil

	case "ctrl+v":
		if !m.deps.Pipeline.VoiceAvailable() {
			return false, m, nil
		}
		return true, m, m.dictate()
	}
	return false, m, nil
}

// updateComponentSizes recalculates and applies sizes to all components based on window dimensions
func (m *Model) updateComponentSizes() {
	if m.width == 0 || m.height == 0 {
		return
	}

	statusBarHeight := 1
	availableHeight := m.height - statusBarHeight

	sidebarWidth := 0
	if m.sidebarVisible {
		sidebarWidth = m.width / 4
		if sidebarWidth < 25 {
			sidebarWidth = 25
		}
		if sidebarWidth > 40 {
			sidebarWidth = 40
		}
	}

	mainWidth := m.width - sidebarWidth
	inputAreaHeight := 5
	if inputAreaHeight > availableHeight/3 {
		inputAreaHeight = availableHeight / 3
	}
	chatViewHeight := availableHeight - inputAreaHeight - m.bannerHeight()
	if chatViewHeight < 3 {
		chatViewHeight = 3
	}

	if m.sidebarVisible {
		m.sidebar.SetSize(sidebarWidth, availableHeight)
	}
	m.chatView.SetSize(mainWidth, chatViewHeight)
	m.inputArea.SetSize(mainWidth, inputAreaHeight)
	m.escalation.SetSize(mainWidth)
	m.statusBar.SetSize(m.width)
	m.helpOverlay.SetSize(m.width, m.height)
}

// bannerHeight is the vertical space taken by the offline and escalation banners.
func (m *Model) bannerHeight() int {
	h := 0
	if !m.deps.Monitor.Online() {
		h++
	}
	if m.escalation.Visible() {
		h += strings.Count(m.escalation.View(), "\n") + 1
	}
	return h
}

// cycleFocus moves focus to the next component
func (m *Model) cycleFocus() {
	next := (m.focusedArea + 1) % 3
	if next == FocusSidebar && !m.sidebarVisible {
		next = FocusChatView
	}
	m.setFocus(next)
}

func (m *Model) setFocus(area FocusArea) {
	if m.focusedArea == FocusInputArea {
		m.inputArea.Blur()
	}
	m.focusedArea = area
	switch area {
	case FocusInputArea:
		m.inputArea.Focus()
	case FocusSidebar:
		m.sidebar.FocusActive()
	}
}

// handleFocusedInput routes key messages to the currently focused component
func (m Model) handleFocusedInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.focusedArea {
	case FocusSidebar:
		switch msg.String() {
		case "up", "k":
			m.sidebar.CursorUp()
		case "down", "j":
			m.sidebar.CursorDown()
		case "enter":
			m = m.onSessionSelect()
		case "n":
			cmd = m.createSession()
		}

	case FocusChatView:
		cmd = m.handleChatKey(msg)

	case FocusInputArea:
		switch msg.String() {
		case "enter":
			m, cmd = m.onSubmit()
		case "esc":
			id := m.deps.Sessions.ActiveID()
			if m.deps.Pipeline.Sending(id) {
				m.deps.Pipeline.CancelSession(id)
			}
		default:
			_, cmd = m.inputArea.Update(msg)
		}
	}

	return m, cmd
}

func (m Model) handleChatKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	switch key {
	case "r":
		if failed, ok := m.chatView.LastFailed(); ok {
			return m.retryMessage(failed.ID)
		}
		return nil
	case "+", "-":
		if ai, ok := m.chatView.LastAI(); ok {
			f := chat.FeedbackPositive
			if key == "-" {
				f = chat.FeedbackNegative
			}
			if err := m.deps.Pipeline.SetFeedback(ai.ID, f); err != nil {
				logger.Debug("tui: feedback on %s: %v", ai.ID, err)
			}
		}
		return nil
	case "0":
		if ai, ok := m.chatView.LastAI(); ok {
			m.deps.Pipeline.ClearFeedback(ai.ID)
		}
		return nil
	case "1", "2", "3":
		if !m.chatView.ShowsQuickReplies() {
			return nil
		}
		n, _ := strconv.Atoi(key)
		if n > len(components.QuickReplies) {
			return nil
		}
		return m.sendText(components.QuickReplies[n-1])
	}

	_, cmd := m.chatView.Update(msg)
	return cmd
}

// onSessionSelect makes the sidebar selection the active session
func (m Model) onSessionSelect() Model {
	sess, ok := m.sidebar.Selected()
	if !ok {
		return m
	}
	if err := m.deps.Sessions.Select(sess.ID); err != nil {
		logger.Warn("tui: select session %d: %v", sess.ID, err)
		return m
	}
	m.setFocus(FocusInputArea)
	return m.refresh()
}

// onSubmit handles Enter in the input area: slash commands, uploads, and sends.
func (m Model) onSubmit() (Model, tea.Cmd) {
	if m.inputArea.IsDisabled() {
		return m, nil
	}
	content := m.inputArea.Submit()

	switch {
	case content == detachCommand:
		m.deps.Stager.Clear()
		return m, nil

	case strings.HasPrefix(content, attachCommand+" "):
		path := xdg.ExpandPath(strings.TrimSpace(strings.TrimPrefix(content, attachCommand)))
		if err := m.deps.Stager.StageFromPath(path); err != nil {
			logger.Debug("tui: stage %s: %v", path, err)
		}
		return m, nil
	}

	if _, staged := m.deps.Stager.Staged(); staged {
		return m, m.uploadStaged(content)
	}
	if content == "" {
		return m, nil
	}
	return m, m.sendText(content)
}

// refresh copies service state into the components.
func (m Model) refresh() Model {
	sessions := m.deps.Sessions.List()
	activeID := m.deps.Sessions.ActiveID()

	busy := make(map[chat.LocalID]bool)
	for _, s := range sessions {
		if m.deps.Pipeline.Sending(s.ID) {
			busy[s.ID] = true
		}
	}
	m.sidebar.SetSessions(sessions, activeID, busy)

	if active, ok := m.deps.Sessions.Active(); ok {
		m.chatView.SetMessages(active.Messages, m.deps.Pipeline.Feedback())
		m.statusBar.SetActiveSession(active.Title)
	} else {
		m.chatView.SetMessages(nil, nil)
		m.statusBar.SetActiveSession("")
	}

	staged := ""
	if f, ok := m.deps.Stager.Staged(); ok {
		staged = f.Name
	}
	m.statusBar.SetStagedFile(staged)
	m.inputArea.SetAttachment(staged)

	m.notifications.SetEntries(m.deps.Surface.List())
	m.escalation.SetLinks(m.deps.Pipeline.Escalation())
	m.inputArea.SetDisabled(!m.restored || activeID == 0)

	m = m.refreshStatus()
	m.updateComponentSizes()
	return m
}

func (m Model) refreshStatus() Model {
	switch {
	case !m.deps.Monitor.Online():
		m.statusBar.SetConnectionState(components.StateOffline)
	case m.deps.Retry.Connecting():
		m.statusBar.SetConnectionState(components.StateConnecting)
	default:
		m.statusBar.SetConnectionState(components.StateOnline)
	}
	m.statusBar.SetSending(m.deps.Pipeline.Sending(m.deps.Sessions.ActiveID()))
	m.statusBar.SetSpinner(m.spinner.View())
	return m
}

// isQuiet reports errors the user already saw or caused deliberately.
func isQuiet(err error) bool {
	return err == nil ||
		errors.Is(err, apperrors.ErrEmptyMessage) ||
		errors.Is(err, apperrors.ErrNoStagedFile)
}
