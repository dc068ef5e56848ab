package panes

// Rect is a cell rectangle.
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Partition splits total by r. The first part is floor(total*A/(A+B))
// clamped to [1, total-1] so neither side collapses while total >= 2.
func Partition(total int, r Ratio) (int, int) {
	if total <= 0 {
		return 0, 0
	}
	if total == 1 {
		return 1, 0
	}
	if r.A <= 0 || r.B <= 0 {
		r = Even
	}
	first := total * r.A / (r.A + r.B)
	first = min(max(first, 1), total-1)
	return first, total - first
}

// Layout assigns a rectangle to every node, top-down from the root.
func (t *Tree) Layout(area Rect) map[ID]Rect {
	out := make(map[ID]Rect, len(t.panes))
	var place func(id ID, r Rect)
	place = func(id ID, r Rect) {
		p, ok := t.panes[id]
		if !ok {
			return
		}
		out[id] = r
		if !p.split {
			return
		}
		if p.orientation == Horizontal {
			a, b := Partition(r.W, p.ratio)
			place(p.first, Rect{X: r.X, Y: r.Y, W: a, H: r.H})
			place(p.second, Rect{X: r.X + a, Y: r.Y, W: b, H: r.H})
			return
		}
		a, b := Partition(r.H, p.ratio)
		place(p.first, Rect{X: r.X, Y: r.Y, W: r.W, H: a})
		place(p.second, Rect{X: r.X, Y: r.Y + a, W: r.W, H: b})
	}
	place(t.root, area)
	return out
}
