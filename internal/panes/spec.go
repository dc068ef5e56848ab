package panes

import (
	"strings"
)

// specType returns the normalized "type" of a widget spec payload.
func specType(obj map[string]interface{}) string {
	t, _ := obj["type"].(string)
	t = strings.ToLower(strings.TrimSpace(t))
	switch t {
	case "json-viewer":
		return "json_viewer"
	case "markdown-viewer":
		return "markdown"
	}
	return t
}

func str(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}

// panelSpec recognizes a nested panel payload:
//
//	{"type": "panel", "layout": "vertical", "size": "1:2",
//	 "a": {"cmd": "..."}, "b": {"yaml": "pane.yaml"}}
func (t *Tree) panelSpec(v interface{}, title string) (LayoutSpec, bool) {
	obj, ok := v.(map[string]interface{})
	if !ok || specType(obj) != "panel" {
		return LayoutSpec{}, false
	}
	spec := LayoutSpec{
		Orientation: ParseOrientation(str(obj, "layout")),
		Ratio:       ParseRatio(str(obj, "size")),
	}
	titleA := titleOr(str(obj, "title_a"), titleOr(title, "Pane")+".A")
	titleB := titleOr(str(obj, "title_b"), titleOr(title, "Pane")+".B")
	spec.A = t.childSource(obj["a"], titleA)
	spec.B = t.childSource(obj["b"], titleB)
	return spec, true
}

// childSource reads one side of a nested panel.
func (t *Tree) childSource(v interface{}, title string) Source {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return Source{Title: title}
	}
	title = titleOr(str(obj, "title"), title)
	if nested, ok := t.panelSpec(obj, title); ok {
		return Source{Title: title, Split: &nested}
	}
	src := Source{
		Title:    title,
		Unwrap:   str(obj, "unwrap"),
		Markdown: specType(obj) == "markdown",
		List:     specType(obj) == "menu" || specType(obj) == "list",
	}
	src.Stream, _ = obj["stream"].(bool)
	switch {
	case str(obj, "cmd") != "":
		src.Command = t.resolver.Expand(str(obj, "cmd"))
	case str(obj, "yaml") != "":
		src.Path = str(obj, "yaml")
	case str(obj, "path") != "":
		src.Path = str(obj, "path")
	case str(obj, "text") != "":
		src.Text = str(obj, "text")
	case str(obj, "content") != "":
		src.Text = str(obj, "content")
	}
	return src
}

// redirect recognizes payloads that point a leaf at another source:
// json_viewer specs with cmd or yaml, markdown specs with a path or content
// and menu specs naming a screen file.
func (t *Tree) redirect(v interface{}, title string) (Source, bool) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return Source{}, false
	}
	if _, envelope := obj["ok"]; envelope {
		return Source{}, false
	}
	title = titleOr(str(obj, "title"), title)
	switch specType(obj) {
	case "json_viewer":
		if cmd := str(obj, "cmd"); cmd != "" {
			return Source{Title: title, Command: t.resolver.Expand(cmd), Unwrap: str(obj, "unwrap")}, true
		}
		if path := str(obj, "yaml"); path != "" {
			return Source{Title: title, Path: path}, true
		}
	case "markdown":
		if path := str(obj, "path"); path != "" {
			return Source{Title: title, Path: path, Markdown: true}, true
		}
		if content, ok := obj["content"].(string); ok {
			return Source{Title: title, Text: content, Markdown: true}, true
		}
	case "menu":
		if path := str(obj, "spec"); path != "" {
			return Source{Title: title, Path: path}, true
		}
	}
	return Source{}, false
}
