package effects

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultItemsPath is where backends put lists inside their envelope.
const DefaultItemsPath = "data.items"

// GetByPath walks a dotted path through nested objects.
func GetByPath(v interface{}, path string) (interface{}, bool) {
	if path == "" {
		return v, true
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Items returns the array found at unwrap (default data.items).
func Items(v interface{}, unwrap string) ([]interface{}, bool) {
	if unwrap == "" {
		unwrap = DefaultItemsPath
	}
	unwrap, _, _ = strings.Cut(unwrap, "[]")
	found, ok := GetByPath(v, strings.TrimSuffix(unwrap, "."))
	if !ok {
		return nil, false
	}
	arr, ok := found.([]interface{})
	return arr, ok
}

// Choice is a label/value pair derived from backend output.
type Choice struct {
	Label string
	Value string
}

// Choices extracts label/value pairs. Supported unwrap forms:
//
//	""                      data.items; strings or objects with id/value and title/name
//	"data.items"            same, at an explicit path
//	"data.items[].id/title" value from id, label from title
//	"data.items[].name"     value and label both from name
func Choices(v interface{}, unwrap string) []Choice {
	if unwrap == "" {
		unwrap = DefaultItemsPath
	}

	if base, rest, ok := strings.Cut(unwrap, "[]"); ok {
		rest = strings.TrimPrefix(rest, ".")
		valPath, lblPath := "id", "title"
		if rest != "" {
			valPath, lblPath = rest, rest
			if a, b, found := strings.Cut(rest, "/"); found {
				valPath, lblPath = a, b
			}
		}
		arr, ok := Items(v, base)
		if !ok {
			return nil
		}
		out := make([]Choice, 0, len(arr))
		for _, item := range arr {
			val, ok := scalarAt(item, valPath)
			if !ok {
				val = compact(item)
			}
			lbl, ok := scalarAt(item, lblPath)
			if !ok {
				lbl = val
			}
			out = append(out, Choice{Label: lbl, Value: val})
		}
		return out
	}

	arr, ok := Items(v, unwrap)
	if !ok {
		arr, ok = Items(v, DefaultItemsPath)
	}
	if !ok {
		return nil
	}
	out := make([]Choice, 0, len(arr))
	for _, item := range arr {
		switch t := item.(type) {
		case string:
			out = append(out, Choice{Label: t, Value: t})
		case map[string]interface{}:
			val := firstString(t, "id", "value")
			if val == "" {
				val = compact(t)
			}
			lbl := firstString(t, "title", "name")
			if lbl == "" {
				lbl = val
			}
			out = append(out, Choice{Label: lbl, Value: val})
		}
	}
	return out
}

func scalarAt(v interface{}, path string) (string, bool) {
	found, ok := GetByPath(v, path)
	if !ok {
		return "", false
	}
	switch t := found.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func firstString(obj map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok {
			return s
		}
	}
	return ""
}

func compact(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// Envelope is the optional wrapper backends put around payloads.
type Envelope struct {
	OK      bool
	Type    string
	Data    interface{}
	Code    string
	Message string
}

// ParseEnvelope recognises {"ok":..., "data":..., "error":{...}} documents.
// Documents without an "ok" field are not envelopes.
func ParseEnvelope(v interface{}) (Envelope, bool) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return Envelope{}, false
	}
	okVal, ok := obj["ok"].(bool)
	if !ok {
		return Envelope{}, false
	}
	env := Envelope{OK: okVal, Data: obj["data"]}
	env.Type, _ = obj["type"].(string)
	if e, ok := obj["error"].(map[string]interface{}); ok {
		env.Code, _ = e["code"].(string)
		env.Message, _ = e["message"].(string)
	}
	return env, true
}
