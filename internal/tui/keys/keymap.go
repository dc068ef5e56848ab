package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the application.
// It helps in managing and displaying help information.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Home        key.Binding
	Follow      key.Binding
	Tab         key.Binding
	ShiftTab    key.Binding
	Enter       key.Binding
	Esc         key.Binding
	Filter      key.Binding
	Submit      key.Binding
	Restart     key.Binding
	Toggle      key.Binding
	PrevSection key.Binding
	NextSection key.Binding
	Copy        key.Binding
	Reload      key.Binding
	Help        key.Binding
	ToggleDebug key.Binding
	Quit        key.Binding
}

// Default is the keymap shared by widgets, the engine and the help view.
var Default = DefaultKeyMap()

// DefaultKeyMap returns a KeyMap with default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "up / scroll"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "down / scroll"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("home/g", "oldest output"),
		),
		Follow: key.NewBinding(
			key.WithKeys("f", "end", "G"),
			key.WithHelp("f/end", "follow output"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next pane"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous pane"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select/confirm"),
		),
		Esc: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel/back"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter menu"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "submit form"),
		),
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restart watchdog"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop/start (kill external)"),
		),
		PrevSection: key.NewBinding(
			key.WithKeys("[", "left"),
			key.WithHelp("[/←", "previous section"),
		),
		NextSection: key.NewBinding(
			key.WithKeys("]", "right"),
			key.WithHelp("]/→", "next section"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy pane"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reload pane"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		ToggleDebug: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "debug log"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
	}
}

// FullHelp returns bindings for the main help view.
// It's a slice of slices, where each inner slice is a column in the help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.Follow},
		{k.Tab, k.ShiftTab, k.Enter, k.Esc, k.Filter, k.Submit},
		{k.Restart, k.Toggle, k.PrevSection, k.NextSection, k.Copy},
		{k.Reload, k.Help, k.ToggleDebug, k.Quit},
	}
}

// ShortHelp returns a minimal set of bindings for the status line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Esc, k.Help, k.Quit}
}

// IsFunctionKey returns the 1-based F-key number of s, or zero.
func IsFunctionKey(s string) int {
	if len(s) < 2 || s[0] != 'f' {
		return 0
	}
	n := 0
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	if n < 1 || n > 12 {
		return 0
	}
	return n
}
