package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitui/internal/config"
	"chitui/internal/engine"
	"chitui/pkg/logging"
)

func newTestModel(t *testing.T, opts Options) (Model, *engine.Engine) {
	t.Helper()
	e := engine.New(context.Background(), engine.Options{
		Config: config.AppConfig{
			Header: "Test",
			Menu:   []config.MenuItem{{ID: "one", Title: "First", Content: "x", Widget: config.WidgetMarkdown}},
		},
		Clipboard: func(string) error { return nil },
	})
	t.Cleanup(e.Close)
	return NewModel(e, opts), e
}

func TestModel_QuitKey(t *testing.T) {
	m, e := newTestModel(t, Options{})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, e.Quitting())
	assert.Empty(t, m.View())
}

func TestModel_ResizeAndRender(t *testing.T) {
	m, _ := newTestModel(t, Options{})

	next, cmd := m.Update(tea.WindowSizeMsg{Width: 90, Height: 20})
	assert.Nil(t, cmd)
	view := next.View()
	assert.Contains(t, view, "Test")
	assert.Contains(t, view, "First")
}

func TestModel_TickReschedules(t *testing.T) {
	m, _ := newTestModel(t, Options{Interval: time.Millisecond})

	_, cmd := m.Update(tickMsg(time.Now()))
	require.NotNil(t, cmd)
	assert.IsType(t, tickMsg{}, cmd())
}

func TestModel_LogEntriesReachDebugPane(t *testing.T) {
	logs := make(chan logging.LogEntry, 1)
	m, e := newTestModel(t, Options{Logs: logs})

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	require.True(t, e.DebugVisible())

	_, cmd := m.Update(logEntryMsg(logging.LogEntry{
		Timestamp: time.Now(),
		Level:     logging.LevelInfo,
		Subsystem: "Test",
		Message:   "hello from the log",
	}))
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "hello from the log")

	close(logs)
	assert.Nil(t, cmd())
}

func TestModel_ConfigChangeReloads(t *testing.T) {
	changes := make(chan string, 1)
	m, e := newTestModel(t, Options{Changes: changes})

	_, cmd := m.Update(configChangedMsg("/not/the/config.yaml"))
	require.NotNil(t, cmd)
	assert.Equal(t, "Test", e.Top().Title)

	changes <- "/x.yaml"
	assert.Equal(t, configChangedMsg("/x.yaml"), cmd())
}
