package panes

import (
	"errors"

	"chitui/internal/effects"
	"chitui/internal/widgets"
	"chitui/pkg/logging"
)

// maxRedirects bounds how many payloads may point a leaf at another source
// before it fails.
const maxRedirects = 8

var errTooManyRedirects = errors.New("too many nested widget specs")

// Build materializes a split from spec. Leaves whose source resolves
// synchronously start Ready; the others start Loading and contribute one
// request each, targeted at that leaf.
func Build(name string, spec LayoutSpec, r Resolver) (*Tree, []effects.Request) {
	return BuildSource(name, Source{Split: &spec}, r)
}

// BuildSource materializes a tree whose root is src, which may be a single leaf.
func BuildSource(name string, src Source, r Resolver) (*Tree, []effects.Request) {
	t := newTree(name, r)
	var reqs []effects.Request
	t.root = t.build(src, &reqs)
	t.rebuildRing()
	return t, reqs
}

func (t *Tree) build(src Source, reqs *[]effects.Request) ID {
	p := t.alloc()
	t.fill(p, src, reqs, 0)
	return p.id
}

// fill turns p into the node src describes, keeping p's ID.
func (t *Tree) fill(p *Pane, src Source, reqs *[]effects.Request, hops int) {
	if src.Split != nil {
		spec := *src.Split
		ratio := spec.Ratio
		if ratio.A <= 0 || ratio.B <= 0 {
			ratio = Even
		}
		*p = Pane{
			id:          p.id,
			split:       true,
			orientation: spec.Orientation,
			ratio:       ratio,
			Title:       src.Title,
			Source:      src,
		}
		p.first = t.build(spec.A, reqs)
		p.second = t.build(spec.B, reqs)
		return
	}

	// Generation zero never matches a scheduler generation, so results for
	// whatever p showed before are ignored from here on.
	*p = Pane{
		id:     p.id,
		first:  NoID,
		second: NoID,
		Title:  titleOr(src.Title, "Pane"),
		Source: src,
	}

	if src.Content != nil {
		p.Content = src.Content
		return
	}
	if out, ok := t.immediate(src); ok {
		t.settle(p, out, reqs, hops)
		return
	}
	if req, ok := src.request(t.Target(p.id)); ok {
		p.Status = StatusLoading
		if src.InitialText != "" {
			v := widgets.NewViewer(p.Title)
			v.SetText(src.InitialText)
			p.Content = ViewerContent{v}
		}
		*reqs = append(*reqs, req)
		return
	}
	t.settle(p, effects.Outcome{Format: "text"}, reqs, hops)
}

func (t *Tree) immediate(src Source) (effects.Outcome, bool) {
	switch {
	case src.Text != "":
		return effects.Outcome{Kind: effects.KindLoadSource, Raw: []byte(src.Text), Format: "text"}, true
	case src.Value != nil:
		return effects.Outcome{Kind: effects.KindLoadSource, Value: src.Value, Format: "json"}, true
	case src.Command == "" && src.Path != "":
		return t.resolver.Immediate(src)
	}
	return effects.Outcome{}, false
}

// settle applies a final outcome to leaf p. A payload describing a panel
// turns p into a split; one pointing at another source reloads p from it.
func (t *Tree) settle(p *Pane, out effects.Outcome, reqs *[]effects.Request, hops int) {
	p.Progress = nil
	if out.Err != nil {
		t.fail(p, out.Err)
		return
	}

	if spec, ok := t.panelSpec(out.Value, p.Title); ok {
		t.fill(p, Source{Title: p.Title, Split: &spec}, reqs, hops)
		return
	}
	if next, ok := t.redirect(out.Value, p.Title); ok {
		if hops >= maxRedirects {
			t.fail(p, errTooManyRedirects)
			return
		}
		t.fill(p, next, reqs, hops+1)
		return
	}

	c, err := t.resolver.Content(p.Source, out)
	if err != nil {
		t.fail(p, err)
		return
	}
	p.Content, p.Status, p.Err = c, StatusReady, nil
}

func (t *Tree) fail(p *Pane, err error) {
	v := widgets.NewViewer(p.Title)
	v.SetError(err)
	p.Content, p.Status, p.Err = ViewerContent{v}, StatusFailed, err
}

// Track records the generation the scheduler assigned to target's request.
func (t *Tree) Track(target effects.Target, gen uint64) bool {
	id, ok := t.LeafFor(target)
	if !ok {
		return false
	}
	t.panes[id].Generation = gen
	return true
}

// Apply delivers an outcome to its leaf. Outcomes for unknown leaves or
// for a generation other than the leaf's current one are dropped. Interim
// progress only updates the leaf's progress. Any follow-up requests (from
// a nested panel or a redirect) are returned for submission.
func (t *Tree) Apply(out effects.Outcome) ([]effects.Request, bool) {
	id, ok := t.LeafFor(out.Target)
	if !ok {
		logging.Debug("Panes", "%s: no leaf for %s", t.name, out.Target)
		return nil, false
	}
	p := t.panes[id]
	if out.Generation != p.Generation {
		logging.Debug("Panes", "%s: stale outcome for leaf %d (gen %d, live %d)", t.name, id, out.Generation, p.Generation)
		return nil, false
	}
	if out.Interim() {
		p.Progress = out.Progress
		return nil, true
	}

	var reqs []effects.Request
	t.settle(p, out, &reqs, 0)
	t.rebuildRing()
	return reqs, true
}

// Reload re-requests a leaf's source. Leaves without an asynchronous
// source are rebuilt in place.
func (t *Tree) Reload(id ID) []effects.Request {
	p, ok := t.Leaf(id)
	if !ok {
		return nil
	}
	src := p.Source
	if src.Content != nil {
		return nil
	}
	return t.Replace(id, src)
}

// Replace swaps the node at id for src, keeping the ID. Watchdogs in the
// replaced subtree are closed.
func (t *Tree) Replace(id ID, src Source) []effects.Request {
	p, ok := t.panes[id]
	if !ok {
		return nil
	}
	t.discard(p)
	var reqs []effects.Request
	t.fill(p, src, &reqs, 0)
	t.rebuildRing()
	return reqs
}

// discard closes supervisors under p and drops p's descendants.
func (t *Tree) discard(p *Pane) {
	if p.split {
		t.closeSubtree(p.first)
		t.closeSubtree(p.second)
		t.release(p.first)
		t.release(p.second)
		return
	}
	if sup := Supervisor(p.Content); sup != nil {
		sup.Close()
	}
}

func (t *Tree) closeSubtree(id ID) {
	if p, ok := t.panes[id]; ok {
		t.discard(p)
	}
}

// Close stops every watchdog in the tree.
func (t *Tree) Close() {
	for _, p := range t.Leaves() {
		if sup := Supervisor(p.Content); sup != nil {
			sup.Close()
		}
	}
}
