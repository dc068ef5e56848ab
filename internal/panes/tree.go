package panes

import (
	"fmt"
	"strconv"
	"strings"

	"chitui/internal/effects"
)

// ID addresses a pane inside one Tree's arena. IDs are never reused.
type ID int

// NoID is returned when there is no pane to report.
const NoID ID = -1

// Orientation of a split.
type Orientation int

const (
	// Horizontal places the children side by side.
	Horizontal Orientation = iota
	// Vertical stacks the children.
	Vertical
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// ParseOrientation reads a panel_layout value; anything but "vertical" is horizontal.
func ParseOrientation(s string) Orientation {
	if strings.EqualFold(strings.TrimSpace(s), "vertical") {
		return Vertical
	}
	return Horizontal
}

// Ratio divides a split between its children. Both parts are positive.
type Ratio struct {
	A, B int
}

// Even is the 1:1 ratio.
var Even = Ratio{1, 1}

func (r Ratio) String() string {
	return fmt.Sprintf("%d:%d", r.A, r.B)
}

// ParseRatio reads "a:b". Malformed or non-positive input gives 1:1.
func ParseRatio(s string) Ratio {
	a, b, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Even
	}
	x, errA := strconv.Atoi(strings.TrimSpace(a))
	y, errB := strconv.Atoi(strings.TrimSpace(b))
	if errA != nil || errB != nil || x <= 0 || y <= 0 {
		return Even
	}
	return Ratio{x, y}
}

// Status is the load state of a leaf.
type Status int

const (
	StatusReady Status = iota
	StatusLoading
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "Loading"
	case StatusFailed:
		return "Failed"
	default:
		return "Ready"
	}
}

// Pane is a node in the arena: a split when Split is true, a leaf otherwise.
// Splits refer to their children by ID.
type Pane struct {
	id ID

	split       bool
	orientation Orientation
	ratio       Ratio
	first       ID
	second      ID

	Title      string
	Status     Status
	Content    Content
	Err        error
	Source     Source
	Generation uint64
	Progress   *effects.Progress
}

func (p *Pane) ID() ID                   { return p.id }
func (p *Pane) IsSplit() bool            { return p.split }
func (p *Pane) Orientation() Orientation { return p.orientation }
func (p *Pane) Ratio() Ratio             { return p.ratio }

// Children returns the two child IDs of a split.
func (p *Pane) Children() (ID, ID) {
	return p.first, p.second
}

// Tree owns every pane of one screen and the focus ring over its leaves.
type Tree struct {
	name     string
	resolver Resolver

	panes map[ID]*Pane
	root  ID
	next  ID

	ring  []ID
	focus int
}

func newTree(name string, r Resolver) *Tree {
	return &Tree{name: name, resolver: r, panes: make(map[ID]*Pane), root: NoID}
}

func (t *Tree) Name() string { return t.name }
func (t *Tree) Root() ID     { return t.root }

// Pane returns the node with id, or nil.
func (t *Tree) Pane(id ID) *Pane {
	return t.panes[id]
}

// Leaf returns the leaf with id; splits and unknown ids report false.
func (t *Tree) Leaf(id ID) (*Pane, bool) {
	p, ok := t.panes[id]
	if !ok || p.split {
		return nil, false
	}
	return p, true
}

// Leaves returns the leaves in ring order.
func (t *Tree) Leaves() []*Pane {
	out := make([]*Pane, 0, len(t.ring))
	for _, id := range t.ring {
		out = append(out, t.panes[id])
	}
	return out
}

// Target is the effect target owned by leaf id.
func (t *Tree) Target(id ID) effects.Target {
	return effects.Target(t.name + "/" + strconv.Itoa(int(id)))
}

// Targets lists the effect targets of every current leaf.
func (t *Tree) Targets() []effects.Target {
	out := make([]effects.Target, 0, len(t.ring))
	for _, id := range t.ring {
		out = append(out, t.Target(id))
	}
	return out
}

// LeafFor maps an effect target back to a leaf of this tree.
func (t *Tree) LeafFor(target effects.Target) (ID, bool) {
	rest, ok := strings.CutPrefix(string(target), t.name+"/")
	if !ok {
		return NoID, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return NoID, false
	}
	if _, ok := t.Leaf(ID(n)); !ok {
		return NoID, false
	}
	return ID(n), true
}

func (t *Tree) alloc() *Pane {
	p := &Pane{id: t.next, first: NoID, second: NoID}
	t.panes[p.id] = p
	t.next++
	return p
}

// release drops id and its descendants from the arena.
func (t *Tree) release(id ID) {
	p, ok := t.panes[id]
	if !ok {
		return
	}
	if p.split {
		t.release(p.first)
		t.release(p.second)
	}
	delete(t.panes, id)
}

// Walk visits every node in pre-order, first child before second.
func (t *Tree) Walk(fn func(p *Pane, depth int)) {
	var visit func(id ID, depth int)
	visit = func(id ID, depth int) {
		p, ok := t.panes[id]
		if !ok {
			return
		}
		fn(p, depth)
		if p.split {
			visit(p.first, depth+1)
			visit(p.second, depth+1)
		}
	}
	visit(t.root, 0)
}
