package panes

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"chitui/internal/tui/keys"
)

// Ring returns the focus ring: leaf IDs in pre-order.
func (t *Tree) Ring() []ID {
	return append([]ID(nil), t.ring...)
}

// Focused returns the focused leaf, or NoID for an empty tree.
func (t *Tree) Focused() ID {
	if len(t.ring) == 0 {
		return NoID
	}
	return t.ring[t.focus]
}

// FocusedPane returns the focused leaf.
func (t *Tree) FocusedPane() *Pane {
	id := t.Focused()
	if id == NoID {
		return nil
	}
	return t.panes[id]
}

// Focus moves focus to leaf id.
func (t *Tree) Focus(id ID) bool {
	for i, rid := range t.ring {
		if rid == id {
			t.focus = i
			return true
		}
	}
	return false
}

// Advance moves focus dir steps around the ring, wrapping at both ends.
func (t *Tree) Advance(dir int) ID {
	n := len(t.ring)
	if n == 0 {
		return NoID
	}
	t.focus = ((t.focus+dir)%n + n) % n
	return t.ring[t.focus]
}

// rebuildRing recomputes the ring after a structural change. Focus stays on
// the same leaf when it survived, otherwise it moves to the first leaf.
func (t *Tree) rebuildRing() {
	prev := t.Focused()
	t.ring = t.ring[:0]
	t.Walk(func(p *Pane, _ int) {
		if !p.split {
			t.ring = append(t.ring, p.id)
		}
	})
	t.focus = 0
	if prev != NoID {
		t.Focus(prev)
	}
}

// Handler receives input routed to the focused leaf and reports whether it
// consumed it.
type Handler func(p *Pane, msg tea.KeyMsg) bool

// RouteInput cycles focus on tab and shift+tab and hands every other key
// to the focused leaf only.
func (t *Tree) RouteInput(msg tea.KeyMsg, handle Handler) bool {
	switch {
	case key.Matches(msg, keys.Default.Tab):
		t.Advance(1)
		return true
	case key.Matches(msg, keys.Default.ShiftTab):
		t.Advance(-1)
		return true
	}
	p := t.FocusedPane()
	if p == nil || handle == nil {
		return false
	}
	return handle(p, msg)
}
