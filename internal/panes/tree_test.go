package panes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitui/internal/config"
	"chitui/internal/effects"
)

func testResolver(t *testing.T) DefaultResolver {
	t.Helper()
	return DefaultResolver{
		BaseDir:     t.TempDir(),
		InlineLimit: effects.DefaultInlineLimit,
		Expander: config.Expander{Lookup: func(name string) (string, bool) {
			if name == "TOOL" {
				return "tool", true
			}
			return "", false
		}},
	}
}

// threeLeaves builds  split(A, split(B, C)).
func threeLeaves(t *testing.T) *Tree {
	t.Helper()
	tree, reqs := Build("s", LayoutSpec{
		Orientation: Horizontal,
		Ratio:       Ratio{1, 3},
		A:           Source{Title: "A", Text: "a"},
		B: Source{Split: &LayoutSpec{
			Orientation: Vertical,
			Ratio:       Even,
			A:           Source{Title: "B", Text: "b"},
			B:           Source{Title: "C", Command: "echo c"},
		}},
	}, testResolver(t))
	require.Len(t, reqs, 1)
	return tree
}

func leafTitles(tree *Tree) []string {
	var out []string
	for _, p := range tree.Leaves() {
		out = append(out, p.Title)
	}
	return out
}

func TestRing_PreOrderAndCyclic(t *testing.T) {
	tree := threeLeaves(t)
	assert.Equal(t, []string{"A", "B", "C"}, leafTitles(tree))

	start := tree.Focused()
	ring := tree.Ring()
	for i := 0; i < len(ring); i++ {
		tree.Advance(1)
	}
	assert.Equal(t, start, tree.Focused())

	assert.Equal(t, ring[2], tree.Advance(-1))
	assert.Equal(t, ring[0], tree.Advance(1))
	assert.Equal(t, ring[1], tree.Advance(4))
}

func TestRing_EmptyTree(t *testing.T) {
	tree := newTree("empty", testResolver(t))
	assert.Equal(t, NoID, tree.Focused())
	assert.Equal(t, NoID, tree.Advance(1))
	assert.Nil(t, tree.FocusedPane())
}

func TestPartition(t *testing.T) {
	ratios := []Ratio{{1, 1}, {1, 2}, {2, 1}, {1, 3}, {3, 1}, {2, 3}, {3, 2}, {7, 1}}
	for _, r := range ratios {
		for total := r.A + r.B; total <= 80; total++ {
			a, b := Partition(total, r)
			assert.Positive(t, a, "%s over %d", r, total)
			assert.Positive(t, b, "%s over %d", r, total)
			assert.Equal(t, total, a+b)
		}
	}

	a, b := Partition(12, Ratio{1, 3})
	assert.Equal(t, 3, a)
	assert.Equal(t, 9, b)

	a, b = Partition(2, Ratio{9, 1})
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)

	a, b = Partition(1, Even)
	assert.Equal(t, 1, a+b)
	a, b = Partition(0, Even)
	assert.Zero(t, a+b)
}

func TestLayout(t *testing.T) {
	tree := threeLeaves(t)
	rects := tree.Layout(Rect{W: 80, H: 20})
	ring := tree.Ring()

	assert.Equal(t, Rect{X: 0, Y: 0, W: 20, H: 20}, rects[ring[0]])
	assert.Equal(t, Rect{X: 20, Y: 0, W: 60, H: 10}, rects[ring[1]])
	assert.Equal(t, Rect{X: 20, Y: 10, W: 60, H: 10}, rects[ring[2]])
	assert.Equal(t, Rect{W: 80, H: 20}, rects[tree.Root()])
}

func TestParseRatioAndOrientation(t *testing.T) {
	assert.Equal(t, Ratio{2, 3}, ParseRatio("2:3"))
	assert.Equal(t, Even, ParseRatio("0:3"))
	assert.Equal(t, Even, ParseRatio("wide"))
	assert.Equal(t, Vertical, ParseOrientation("Vertical"))
	assert.Equal(t, Horizontal, ParseOrientation(""))
}

func TestBuild_InlineAndAsync(t *testing.T) {
	r := testResolver(t)
	require.NoError(t, os.WriteFile(filepath.Join(r.BaseDir, "small.yaml"), []byte("name: x\n"), 0o644))

	tree, reqs := Build("s", LayoutSpec{
		A: Source{Title: "File", Path: "small.yaml"},
		B: Source{Title: "Cmd", Command: "tool list", InitialText: "waiting"},
	}, r)
	leaves := tree.Leaves()
	require.Len(t, leaves, 2)

	assert.Equal(t, StatusReady, leaves[0].Status)
	viewer, ok := leaves[0].Content.(ViewerContent)
	require.True(t, ok)
	assert.Contains(t, viewer.Text(), `"name": "x"`)

	assert.Equal(t, StatusLoading, leaves[1].Status)
	assert.Equal(t, "waiting", Text(leaves[1].Content))
	require.Len(t, reqs, 1)
	assert.Equal(t, effects.KindRunCommand, reqs[0].Kind)
	assert.Equal(t, tree.Target(leaves[1].ID()), reqs[0].Target)
	assert.Equal(t, "tool list", reqs[0].Command)
}

func TestBuild_LargeOrMissingFileLoadsAsync(t *testing.T) {
	r := testResolver(t)
	r.InlineLimit = 0
	tree, reqs := BuildSource("s", Source{Path: "missing.json"}, r)
	require.Len(t, reqs, 1)
	assert.Equal(t, effects.KindLoadSource, reqs[0].Kind)
	assert.Equal(t, StatusLoading, tree.FocusedPane().Status)
}

func TestApply_GenerationDiscipline(t *testing.T) {
	tree := threeLeaves(t)
	c := tree.Ring()[2]
	target := tree.Target(c)
	require.True(t, tree.Track(target, 2))

	_, applied := tree.Apply(effects.Outcome{Target: target, Generation: 1, Raw: []byte("old")})
	assert.False(t, applied)
	leaf, _ := tree.Leaf(c)
	assert.Equal(t, StatusLoading, leaf.Status)

	_, applied = tree.Apply(effects.Outcome{Target: target, Generation: 2, Raw: []byte("fresh"), Format: "text"})
	assert.True(t, applied)
	assert.Equal(t, StatusReady, leaf.Status)
	assert.Equal(t, "fresh", Text(leaf.Content))

	tree.Replace(c, Source{Title: "C", Text: "replaced"})
	_, applied = tree.Apply(effects.Outcome{Target: target, Generation: 2, Raw: []byte("late")})
	assert.False(t, applied)
	assert.Equal(t, "replaced", Text(leaf.Content))

	_, applied = tree.Apply(effects.Outcome{Target: "other/1", Generation: 1})
	assert.False(t, applied)
	_, applied = tree.Apply(effects.Outcome{Target: tree.Target(tree.Root()), Generation: 0})
	assert.False(t, applied, "splits never receive outcomes")
}

func TestApply_ProgressAndFailure(t *testing.T) {
	tree, reqs := BuildSource("s", Source{Title: "Deploy", Command: "deploy", Stream: true}, testResolver(t))
	require.Len(t, reqs, 1)
	assert.Equal(t, effects.KindStreamCommand, reqs[0].Kind)
	tree.Track(reqs[0].Target, 1)

	_, applied := tree.Apply(effects.Outcome{Target: reqs[0].Target, Generation: 1, Progress: &effects.Progress{Message: "half", Percent: 50}})
	require.True(t, applied)
	leaf := tree.FocusedPane()
	assert.Equal(t, StatusLoading, leaf.Status)
	require.NotNil(t, leaf.Progress)
	assert.Equal(t, "half", leaf.Progress.Message)

	tree.Apply(effects.Outcome{Target: reqs[0].Target, Generation: 1, Err: errors.New("command failed: deploy")})
	assert.Equal(t, StatusFailed, leaf.Status)
	assert.Nil(t, leaf.Progress)
	assert.Contains(t, Text(leaf.Content), "command failed")
}

func TestApply_NestedPanelReplacesLeaf(t *testing.T) {
	tree := threeLeaves(t)
	a, c := tree.Ring()[0], tree.Ring()[2]
	tree.Track(tree.Target(c), 1)
	tree.Focus(c)

	payload := map[string]interface{}{
		"type":   "panel",
		"layout": "vertical",
		"size":   "1:2",
		"a":      map[string]interface{}{"text": "inner"},
		"b":      map[string]interface{}{"cmd": "${TOOL} status", "title": "Status"},
	}
	reqs, applied := tree.Apply(effects.Outcome{Target: tree.Target(c), Generation: 1, Value: payload})
	require.True(t, applied)

	node := tree.Pane(c)
	require.True(t, node.IsSplit(), "leaf keeps its id and becomes a split")
	assert.Equal(t, Vertical, node.Orientation())
	assert.Equal(t, Ratio{1, 2}, node.Ratio())
	assert.Equal(t, []string{"A", "B", "C.A", "Status"}, leafTitles(tree))

	require.Len(t, reqs, 1)
	assert.Equal(t, "tool status", reqs[0].Command)
	assert.Equal(t, a, tree.Focused(), "focus falls back to the first leaf")
	_, ok := tree.LeafFor(tree.Target(c))
	assert.False(t, ok)
}

func TestApply_NestedPanelKeepsFocusElsewhere(t *testing.T) {
	tree := threeLeaves(t)
	b, c := tree.Ring()[1], tree.Ring()[2]
	tree.Track(tree.Target(c), 1)
	tree.Focus(b)

	tree.Apply(effects.Outcome{Target: tree.Target(c), Generation: 1, Value: map[string]interface{}{
		"type": "panel",
		"a":    map[string]interface{}{"text": "1"},
		"b":    map[string]interface{}{"text": "2"},
	}})
	assert.Equal(t, b, tree.Focused())
	assert.Len(t, tree.Ring(), 4)
}

func TestApply_RedirectReloadsLeaf(t *testing.T) {
	tree, reqs := BuildSource("s", Source{Title: "Spec", Command: "spec"}, testResolver(t))
	tree.Track(reqs[0].Target, 1)

	next, applied := tree.Apply(effects.Outcome{Target: reqs[0].Target, Generation: 1, Value: map[string]interface{}{
		"type": "json-viewer",
		"cmd":  "${TOOL} items",
	}})
	require.True(t, applied)
	require.Len(t, next, 1)
	assert.Equal(t, "tool items", next[0].Command)
	assert.Equal(t, reqs[0].Target, next[0].Target)
	assert.Equal(t, StatusLoading, tree.FocusedPane().Status)
}

func TestRouteInput(t *testing.T) {
	tree := threeLeaves(t)
	ring := tree.Ring()
	var got []ID
	handler := func(p *Pane, msg tea.KeyMsg) bool {
		got = append(got, p.ID())
		return true
	}

	assert.True(t, tree.RouteInput(tea.KeyMsg{Type: tea.KeyTab}, handler))
	assert.Equal(t, ring[1], tree.Focused())
	assert.True(t, tree.RouteInput(tea.KeyMsg{Type: tea.KeyShiftTab}, handler))
	assert.Equal(t, ring[0], tree.Focused())
	assert.Empty(t, got, "focus keys never reach leaves")

	tree.Advance(2)
	assert.True(t, tree.RouteInput(tea.KeyMsg{Type: tea.KeyDown}, handler))
	assert.Equal(t, []ID{ring[2]}, got)
}

func TestTargets(t *testing.T) {
	tree := threeLeaves(t)
	targets := tree.Targets()
	require.Len(t, targets, 3)
	for i, id := range tree.Ring() {
		assert.Equal(t, effects.Target(fmt.Sprintf("s/%d", id)), targets[i])
		got, ok := tree.LeafFor(targets[i])
		require.True(t, ok)
		assert.Equal(t, id, got)
	}
}
