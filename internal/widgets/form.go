package widgets

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"chitui/internal/effects"
	"chitui/internal/tui/design"
	"chitui/internal/tui/keys"
	"chitui/internal/tui/utils"
)

// FieldKind is the editor used for a form field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldNumber
	FieldInteger
	FieldCheckbox
	FieldSelect
	FieldArray
)

// Field is one form input derived from a JSON schema property.
type Field struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
	Options  []string
	Err      string

	input    textinput.Model
	checked  bool
	selected int
}

func newField(name, label string, kind FieldKind) *Field {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 512
	return &Field{Name: name, Label: label, Kind: kind, input: ti}
}

// Value is the field's current value as entered.
func (f *Field) Value() string {
	switch f.Kind {
	case FieldCheckbox:
		return strconv.FormatBool(f.checked)
	case FieldSelect:
		if f.selected >= 0 && f.selected < len(f.Options) {
			return f.Options[f.selected]
		}
		return ""
	default:
		return f.input.Value()
	}
}

// SetValue sets the field from a string.
func (f *Field) SetValue(v string) {
	switch f.Kind {
	case FieldCheckbox:
		f.checked, _ = strconv.ParseBool(v)
	case FieldSelect:
		for i, o := range f.Options {
			if o == v {
				f.selected = i
			}
		}
	default:
		f.input.SetValue(v)
	}
}

func (f *Field) editsText() bool {
	return f.Kind != FieldCheckbox && f.Kind != FieldSelect
}

// FieldsFromSchema builds fields from a JSON schema object. Properties are
// ordered by their "order" hint, then by name.
func FieldsFromSchema(schema map[string]interface{}) []*Field {
	props, _ := schema["properties"].(map[string]interface{})
	required := map[string]bool{}
	if list, ok := schema["required"].([]interface{}); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	order := func(name string) float64 {
		if p, ok := props[name].(map[string]interface{}); ok {
			if o, ok := p["order"].(float64); ok {
				return o
			}
		}
		return 1 << 30
	}
	sort.SliceStable(names, func(i, j int) bool {
		oi, oj := order(names[i]), order(names[j])
		if oi != oj {
			return oi < oj
		}
		return names[i] < names[j]
	})

	fields := make([]*Field, 0, len(names))
	for _, name := range names {
		prop, _ := props[name].(map[string]interface{})
		label, _ := prop["title"].(string)
		if label == "" {
			label = name
		}
		typ, _ := prop["type"].(string)
		typ = strings.ToLower(typ)

		var f *Field
		switch {
		case prop["enum"] != nil:
			f = newField(name, label, FieldSelect)
			f.Options = stringList(prop["enum"])
		case typ == "boolean":
			f = newField(name, label, FieldCheckbox)
		case typ == "integer":
			f = newField(name, label, FieldInteger)
		case typ == "number":
			f = newField(name, label, FieldNumber)
		case typ == "array":
			f = newField(name, label, FieldArray)
			f.input.Placeholder = "comma,separated"
		default:
			f = newField(name, label, FieldText)
		}
		f.Required = required[name]
		if def, ok := prop["default"]; ok && def != nil {
			f.SetValue(scalar(def))
		}
		fields = append(fields, f)
	}
	return fields
}

// SchemaFor finds the input schema in a schema command's output. It accepts
// a bare schema, an envelope whose data is a schema, or a command catalog
// (data.commands[].input_schema) matched against the submit command's
// subcommand.
func SchemaFor(doc interface{}, submitCmd string) (map[string]interface{}, bool) {
	if env, ok := effects.ParseEnvelope(doc); ok {
		doc = env.Data
	}
	obj, ok := doc.(map[string]interface{})
	if !ok {
		return nil, false
	}
	if _, ok := obj["properties"]; ok {
		return obj, true
	}
	if s, ok := obj["input_schema"].(map[string]interface{}); ok {
		return s, true
	}
	cmds, _ := obj["commands"].([]interface{})
	want := ""
	if parts := strings.Fields(submitCmd); len(parts) >= 2 {
		want = parts[1]
	}
	for _, c := range cmds {
		cm, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if name, _ := cm["name"].(string); name == want {
			if s, ok := cm["input_schema"].(map[string]interface{}); ok {
				return s, true
			}
		}
	}
	return nil, false
}

// KebabCase converts snake_case and camelCase names to kebab-case flags.
func KebabCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_':
			b.WriteByte('-')
		case unicode.IsUpper(r):
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ShellQuote single-quotes s when it contains whitespace.
func ShellQuote(s string) string {
	if !strings.ContainsAny(s, " \t\n") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// BuildCommand appends one flag per filled field to submitCmd. Checkboxes
// become bare flags when set; array fields repeat the flag per item.
func BuildCommand(submitCmd string, fields []*Field) string {
	parts := []string{submitCmd}
	for _, f := range fields {
		flag := "--" + KebabCase(f.Name)
		switch f.Kind {
		case FieldCheckbox:
			if f.checked {
				parts = append(parts, flag)
			}
		case FieldArray:
			for _, item := range strings.Split(f.input.Value(), ",") {
				if item = strings.TrimSpace(item); item != "" {
					parts = append(parts, flag, ShellQuote(item))
				}
			}
		default:
			if v := f.Value(); v != "" {
				parts = append(parts, flag, ShellQuote(v))
			}
		}
	}
	return strings.Join(parts, " ")
}

// ErrInvalidForm is returned by Submit when a field fails validation.
var ErrInvalidForm = errors.New("form has invalid fields")

// FormEvent is what a key press did to the form.
type FormEvent int

const (
	FormIgnored FormEvent = iota
	FormEdited
	FormSubmitted
)

// Form edits the fields of a submit command.
type Form struct {
	title     string
	submitCmd string
	fields    []*Field
	cursor    int
	message   string
}

// NewForm creates a form. The first text field gets the cursor.
func NewForm(title, submitCmd string, fields []*Field) *Form {
	f := &Form{title: title, submitCmd: submitCmd, fields: fields}
	f.focus(0)
	return f
}

func (f *Form) Title() string     { return f.title }
func (f *Form) Fields() []*Field  { return f.fields }
func (f *Form) SubmitCmd() string { return f.submitCmd }
func (f *Form) Message() string   { return f.message }

// SetMessage shows a result or error line below the fields.
func (f *Form) SetMessage(msg string) { f.message = msg }

// Field returns the field called name.
func (f *Form) Field(name string) *Field {
	for _, fld := range f.fields {
		if fld.Name == name {
			return fld
		}
	}
	return nil
}

// Capturing reports whether printable keys go into a text field.
func (f *Form) Capturing() bool {
	if f.cursor >= len(f.fields) {
		return false
	}
	return f.fields[f.cursor].editsText()
}

func (f *Form) focus(i int) {
	if len(f.fields) == 0 {
		return
	}
	for _, fld := range f.fields {
		fld.input.Blur()
	}
	f.cursor = max(0, min(i, len(f.fields)-1))
	f.fields[f.cursor].input.Focus()
}

// Validate checks required fields and numeric values, recording errors on
// the fields.
func (f *Form) Validate() bool {
	ok := true
	for _, fld := range f.fields {
		fld.Err = ""
		v := strings.TrimSpace(fld.Value())
		switch {
		case fld.Required && fld.Kind != FieldCheckbox && v == "":
			fld.Err = "required"
		case v == "":
		case fld.Kind == FieldInteger:
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				fld.Err = "must be an integer"
			}
		case fld.Kind == FieldNumber:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				fld.Err = "must be a number"
			}
		}
		if fld.Err != "" {
			ok = false
		}
	}
	return ok
}

// Submit validates and returns the command line to run.
func (f *Form) Submit() (string, error) {
	if !f.Validate() {
		f.message = "fix the highlighted fields"
		return "", ErrInvalidForm
	}
	f.message = "submitting..."
	return BuildCommand(f.submitCmd, f.fields), nil
}

// HandleKey edits the focused field or moves between fields. Enter on the
// last field and ctrl+s submit.
func (f *Form) HandleKey(msg tea.KeyMsg) FormEvent {
	k := keys.Default
	if len(f.fields) == 0 {
		if key.Matches(msg, k.Enter, k.Submit) {
			return FormSubmitted
		}
		return FormIgnored
	}
	fld := f.fields[f.cursor]

	switch {
	case key.Matches(msg, k.Submit):
		return FormSubmitted
	case msg.Type == tea.KeyEnter:
		if f.cursor == len(f.fields)-1 {
			return FormSubmitted
		}
		f.focus(f.cursor + 1)
		return FormEdited
	case msg.Type == tea.KeyUp:
		f.focus(f.cursor - 1)
		return FormEdited
	case msg.Type == tea.KeyDown:
		f.focus(f.cursor + 1)
		return FormEdited
	}

	switch fld.Kind {
	case FieldCheckbox:
		if msg.Type == tea.KeySpace || msg.String() == "x" {
			fld.checked = !fld.checked
			return FormEdited
		}
		if key.Matches(msg, k.Up) {
			f.focus(f.cursor - 1)
			return FormEdited
		}
		if key.Matches(msg, k.Down) {
			f.focus(f.cursor + 1)
			return FormEdited
		}
	case FieldSelect:
		if len(fld.Options) == 0 {
			return FormIgnored
		}
		switch {
		case msg.Type == tea.KeySpace, key.Matches(msg, k.NextSection):
			fld.selected = (fld.selected + 1) % len(fld.Options)
			return FormEdited
		case key.Matches(msg, k.PrevSection):
			fld.selected = (fld.selected + len(fld.Options) - 1) % len(fld.Options)
			return FormEdited
		case key.Matches(msg, k.Up):
			f.focus(f.cursor - 1)
			return FormEdited
		case key.Matches(msg, k.Down):
			f.focus(f.cursor + 1)
			return FormEdited
		}
	default:
		if msg.Type == tea.KeyEsc {
			return FormIgnored
		}
		fld.input, _ = fld.input.Update(msg)
		return FormEdited
	}
	return FormIgnored
}

// View renders one line per field plus the message line.
func (f *Form) View(width, height int, focused bool) string {
	if len(f.fields) == 0 {
		return design.DimStyle.Render("no fields; ctrl+s runs " + utils.TruncateString(f.submitCmd, max(width-20, 1)))
	}
	labelWidth := 0
	for _, fld := range f.fields {
		labelWidth = max(labelWidth, len(fld.Label)+2)
	}
	labelWidth = min(labelWidth, width/2)

	var lines []string
	for i, fld := range f.fields {
		label := fld.Label
		if fld.Required {
			label += "*"
		}
		labelStyle := design.FieldLabelStyle
		if i == f.cursor && focused {
			labelStyle = design.FieldLabelFocusedStyle
		}
		valueWidth := max(width-labelWidth-1, 1)

		var value string
		switch fld.Kind {
		case FieldCheckbox:
			value = "[ ]"
			if fld.checked {
				value = "[x]"
			}
		case FieldSelect:
			value = fmt.Sprintf("< %s >", fld.Value())
		default:
			fld.input.Width = valueWidth
			value = fld.input.View()
		}
		line := labelStyle.Render(utils.PadRight(label, labelWidth)) + " " + value
		if fld.Err != "" {
			line += " " + design.TextErrorStyle.Render(fld.Err)
		}
		lines = append(lines, line)
	}
	if f.message != "" {
		lines = append(lines, "", design.TextInfoStyle.Render(utils.TruncateString(f.message, width)))
	}
	if height > 0 && len(lines) > height {
		start := min(f.cursor, len(lines)-height)
		lines = lines[start : start+height]
	}
	return strings.Join(lines, "\n")
}

func stringList(v interface{}) []string {
	list, _ := v.([]interface{})
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, scalar(item))
	}
	return out
}

func scalar(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
