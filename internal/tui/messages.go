package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"chitui/pkg/logging"
)

type tickMsg time.Time

// wakeMsg means the scheduler has outcomes waiting.
type wakeMsg struct{}

type logEntryMsg logging.LogEntry

type configChangedMsg string

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForWake(wake <-chan struct{}) tea.Cmd {
	if wake == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-wake; !ok {
			return nil
		}
		return wakeMsg{}
	}
}

// listenForLogs waits for the next log entry. A closed channel ends the
// listener.
func listenForLogs(logs <-chan logging.LogEntry) tea.Cmd {
	if logs == nil {
		return nil
	}
	return func() tea.Msg {
		entry, ok := <-logs
		if !ok {
			return nil
		}
		return logEntryMsg(entry)
	}
}

func watchConfig(changes <-chan string) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		path, ok := <-changes
		if !ok {
			return nil
		}
		return configChangedMsg(path)
	}
}
