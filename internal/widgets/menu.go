package widgets

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"chitui/internal/config"
	"chitui/internal/effects"
	"chitui/internal/tui/design"
	"chitui/internal/tui/keys"
	"chitui/internal/tui/utils"
)

// Entry is one selectable menu row. Config menus carry the item; menus
// built from command output carry a value.
type Entry struct {
	ID    string
	Title string
	Item  *config.MenuItem
	Value string
}

// EntriesFromConfig builds entries for configured menu items.
func EntriesFromConfig(items []config.MenuItem) []Entry {
	out := make([]Entry, 0, len(items))
	for i := range items {
		item := items[i]
		title := item.Title
		if title == "" {
			title = item.ID
		}
		out = append(out, Entry{ID: item.ID, Title: title, Item: &item})
	}
	return out
}

// EntriesFromChoices builds entries for a dynamic list.
func EntriesFromChoices(choices []effects.Choice) []Entry {
	out := make([]Entry, 0, len(choices))
	for _, c := range choices {
		out = append(out, Entry{ID: c.Value, Title: c.Label, Value: c.Value})
	}
	return out
}

// MenuEvent is what a key press did to the menu.
type MenuEvent int

const (
	MenuIgnored MenuEvent = iota
	MenuMoved
	MenuActivated
)

// Menu is a vertical list with an optional fuzzy filter.
type Menu struct {
	title   string
	entries []Entry
	visible []int
	cursor  int
	offset  int

	filter    textinput.Model
	filtering bool
}

// NewMenu creates a menu over entries.
func NewMenu(title string, entries []Entry) *Menu {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter"
	ti.CharLimit = 64
	m := &Menu{title: title, filter: ti}
	m.SetEntries(entries)
	return m
}

func (m *Menu) Title() string      { return m.title }
func (m *Menu) Entries() []Entry   { return m.entries }
func (m *Menu) Capturing() bool    { return m.filtering }
func (m *Menu) FilterQuery() string { return m.filter.Value() }

// SetEntries replaces the rows, keeping the cursor on the same id when it
// is still present.
func (m *Menu) SetEntries(entries []Entry) {
	prev, _ := m.Selected()
	m.entries = entries
	m.applyFilter()
	if prev.ID != "" {
		m.Select(prev.ID)
	}
}

// Visible returns the rows that pass the filter, best match first.
func (m *Menu) Visible() []Entry {
	out := make([]Entry, 0, len(m.visible))
	for _, i := range m.visible {
		out = append(out, m.entries[i])
	}
	return out
}

// Selected returns the row under the cursor.
func (m *Menu) Selected() (Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return Entry{}, false
	}
	return m.entries[m.visible[m.cursor]], true
}

// Select moves the cursor to the row with id.
func (m *Menu) Select(id string) bool {
	for pos, i := range m.visible {
		if m.entries[i].ID == id {
			m.cursor = pos
			return true
		}
	}
	return false
}

// SetFilter applies a filter query directly.
func (m *Menu) SetFilter(query string) {
	m.filter.SetValue(query)
	m.applyFilter()
}

// HandleKey moves the cursor, edits the filter or activates the row.
func (m *Menu) HandleKey(msg tea.KeyMsg) MenuEvent {
	k := keys.Default
	if m.filtering {
		switch msg.Type {
		case tea.KeyEnter:
			m.filtering = false
			m.filter.Blur()
			return MenuActivated
		case tea.KeyEsc:
			m.filtering = false
			m.filter.Blur()
			m.filter.SetValue("")
			m.applyFilter()
			return MenuMoved
		case tea.KeyUp, tea.KeyDown:
			// fall through to navigation
		default:
			m.filter, _ = m.filter.Update(msg)
			m.applyFilter()
			return MenuMoved
		}
	}

	switch {
	case key.Matches(msg, k.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return MenuMoved
	case key.Matches(msg, k.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
		return MenuMoved
	case key.Matches(msg, k.Home):
		m.cursor = 0
		return MenuMoved
	case key.Matches(msg, k.Enter):
		if _, ok := m.Selected(); ok {
			return MenuActivated
		}
		return MenuIgnored
	case key.Matches(msg, k.Filter):
		m.filtering = true
		m.filter.Focus()
		return MenuMoved
	}
	return MenuIgnored
}

func (m *Menu) applyFilter() {
	query := strings.TrimSpace(m.filter.Value())
	m.visible = m.visible[:0]
	if query == "" {
		for i := range m.entries {
			m.visible = append(m.visible, i)
		}
	} else {
		titles := make([]string, len(m.entries))
		for i, e := range m.entries {
			titles[i] = e.Title
		}
		ranks := fuzzy.RankFindNormalizedFold(query, titles)
		sort.Stable(ranks)
		for _, r := range ranks {
			m.visible = append(m.visible, r.OriginalIndex)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View renders the rows that fit in height.
func (m *Menu) View(width, height int, focused bool) string {
	if height <= 0 || width <= 0 {
		return ""
	}
	var lines []string
	if m.filtering || m.filter.Value() != "" {
		m.filter.Width = max(width-4, 1)
		lines = append(lines, m.filter.View())
		height--
	}
	if len(m.visible) == 0 {
		lines = append(lines, design.DimStyle.Render("no matches"))
		return strings.Join(lines, "\n")
	}

	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if height > 0 && m.cursor >= m.offset+height {
		m.offset = m.cursor - height + 1
	}
	end := min(m.offset+height, len(m.visible))
	for pos := m.offset; pos < end; pos++ {
		e := m.entries[m.visible[pos]]
		label := utils.TruncateString(e.Title, width-3)
		if pos == m.cursor {
			style := design.ListItemStyle
			if focused {
				style = design.ListItemSelectedStyle
			}
			lines = append(lines, style.Render("> "+label))
			continue
		}
		lines = append(lines, design.ListItemStyle.Render("  "+label))
	}
	return strings.Join(lines, "\n")
}
