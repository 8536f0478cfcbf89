// ABOUTME: Bubbletea commands bridging blocking service calls and change signals
// ABOUTME: Each command runs off the UI goroutine and reports back with a message
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// waitForChange blocks until the source signals, then asks for a re-render.
// The handler re-arms it.
func (m Model) waitForChange(src changeSource) tea.Cmd {
	ch := m.subs[src]
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case <-ch:
			return stateChangedMsg{source: src}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) waitForTask() tea.Cmd {
	tasks := m.deps.Pipeline.Tasks()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case res := <-tasks:
			return taskDoneMsg{result: res}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) restoreSession() tea.Cmd {
	ctx, sessions, userID := m.ctx, m.deps.Sessions, m.deps.Config.User.ID
	return func() tea.Msg {
		_, err := sessions.Restore(ctx, userID)
		return sessionRestoredMsg{err: err}
	}
}

func (m Model) createSession() tea.Cmd {
	ctx, sessions, userID := m.ctx, m.deps.Sessions, m.deps.Config.User.ID
	return func() tea.Msg {
		_, err := sessions.Create(ctx, userID)
		return opDoneMsg{op: "create", err: err}
	}
}

func (m Model) sendText(text string) tea.Cmd {
	ctx, p := m.ctx, m.deps.Pipeline
	return func() tea.Msg {
		return opDoneMsg{op: "send", err: p.Send(ctx, text, "")}
	}
}

func (m Model) retryMessage(messageID string) tea.Cmd {
	ctx, p := m.ctx, m.deps.Pipeline
	return func() tea.Msg {
		return opDoneMsg{op: "retry", err: p.Retry(ctx, messageID)}
	}
}

func (m Model) uploadStaged(caption string) tea.Cmd {
	ctx, s := m.ctx, m.deps.Stager
	return func() tea.Msg {
		return opDoneMsg{op: "upload", err: s.UploadStaged(ctx, caption)}
	}
}

func (m Model) dictate() tea.Cmd {
	ctx, p := m.ctx, m.deps.Pipeline
	return func() tea.Msg {
		return opDoneMsg{op: "dictate", err: p.Dictate(ctx)}
	}
}
