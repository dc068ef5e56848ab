package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chitui/internal/engine"
	"chitui/internal/tui/design"
	"chitui/pkg/logging"
)

const tuiSubsystem = "TUI"

// Options configure the program around an engine.
type Options struct {
	// Interval between idle ticks; 200ms when zero.
	Interval time.Duration
	// Logs feeds the debug pane, usually the channel from logging.InitForTUI.
	Logs <-chan logging.LogEntry
	// Changes delivers config file paths that changed on disk.
	Changes <-chan string
}

// Model adapts an engine to tea.Model.
type Model struct {
	engine  *engine.Engine
	opts    Options
	spinner spinner.Model
}

// NewModel wraps e. The engine stays owned by the caller.
func NewModel(e *engine.Engine, opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = 200 * time.Millisecond
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(design.ColorWarning)
	e.SetSpinner(s.View())
	return Model{engine: e, opts: opts, spinner: s}
}

// NewProgram creates the full-screen program for e.
func NewProgram(e *engine.Engine, opts Options) *tea.Program {
	return tea.NewProgram(NewModel(e, opts), tea.WithAltScreen())
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.opts.Interval),
		waitForWake(m.engine.Scheduler().Wake()),
		listenForLogs(m.opts.Logs),
		watchConfig(m.opts.Changes),
		m.spinner.Tick,
	)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.engine.Tick([]engine.Input{engine.KeyInput{Msg: msg}})

	case tea.WindowSizeMsg:
		m.engine.Tick([]engine.Input{engine.ResizeInput{Width: msg.Width, Height: msg.Height}})

	case tickMsg:
		m.engine.Tick(nil)
		cmd = tickCmd(m.opts.Interval)

	case wakeMsg:
		m.engine.Tick(nil)
		cmd = waitForWake(m.engine.Scheduler().Wake())

	case logEntryMsg:
		m.engine.Tick([]engine.Input{engine.LogInput{Entry: logging.LogEntry(msg)}})
		cmd = listenForLogs(m.opts.Logs)

	case configChangedMsg:
		logging.Info(tuiSubsystem, "config changed: %s", string(msg))
		m.engine.Tick([]engine.Input{engine.ReloadInput{Path: string(msg)}})
		cmd = watchConfig(m.opts.Changes)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		m.engine.SetSpinner(m.spinner.View())
		return m, cmd
	}

	if m.engine.Quitting() {
		return m, tea.Quit
	}
	return m, cmd
}

// View implements tea.Model
func (m Model) View() string {
	if m.engine.Quitting() {
		return ""
	}
	return m.engine.View()
}
