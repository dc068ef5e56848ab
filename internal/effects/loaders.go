package effects

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chitui/internal/process"

	"gopkg.in/yaml.v3"
)

// CommandPrefix marks a LoadSource that is a command rather than a path.
const CommandPrefix = "cmd:"

func errUnknownKind(k Kind) error {
	return fmt.Errorf("unknown effect kind %s", k)
}

// CommandError is returned when a command exits non-zero.
type CommandError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("command failed: %s (exit %d)", e.Command, e.Code)
	}
	return fmt.Sprintf("command failed: %s\n%s", e.Command, e.Stderr)
}

func (s *Scheduler) runCommand(out Outcome, req Request) Outcome {
	if req.Cached {
		if raw, ok := s.cache.Get(req.Command); ok {
			return decodeInto(out, raw, "json")
		}
	}

	res := s.runner.Run(s.ctx, req.Command, nil)
	if res.Code != 0 {
		out.Err = &CommandError{Command: req.Command, Code: res.Code, Stderr: res.StderrText()}
		return out
	}
	raw := []byte(res.StdoutText())
	out = decodeInto(out, raw, "json")
	if req.Cached && out.Value != nil {
		s.cache.Put(req.Command, raw)
	}
	return out
}

func (s *Scheduler) loadSource(out Outcome, source string) Outcome {
	if cmd, ok := strings.CutPrefix(source, CommandPrefix); ok {
		return s.runCommand(out, Request{Command: strings.TrimSpace(cmd)})
	}
	return readFile(out, resolvePath(s.baseDir, source))
}

func readFile(out Outcome, path string) Outcome {
	raw, err := os.ReadFile(path)
	if err != nil {
		out.Err = fmt.Errorf("failed to read %s: %w", path, err)
		return out
	}
	return decodeInto(out, raw, formatFor(path))
}

// resolveInline handles the small-file fast path. The outcome it builds is
// the same one a worker would deliver.
func (s *Scheduler) resolveInline(req Request, gen uint64) (Outcome, bool) {
	if req.Kind != KindLoadSource {
		return Outcome{}, false
	}
	out, ok := ReadInline(s.baseDir, req.Source, s.inlineLimit)
	if !ok {
		return Outcome{}, false
	}
	out.Target, out.Generation, out.Kind = req.Target, gen, req.Kind
	return out, true
}

// ReadInline loads a file source synchronously when it is a regular file of
// at most limit bytes. Commands, missing files and larger files report
// false and must go through a worker.
func ReadInline(baseDir, source string, limit int64) (Outcome, bool) {
	if limit <= 0 || strings.HasPrefix(source, CommandPrefix) {
		return Outcome{}, false
	}
	path := resolvePath(baseDir, source)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() > limit {
		return Outcome{}, false
	}
	return readFile(Outcome{Kind: KindLoadSource}, path), true
}

func (s *Scheduler) streamCommand(out Outcome, command string) Outcome {
	var last []byte
	res := s.runner.Run(s.ctx, command, func(ev process.Event) {
		if ev.Kind != process.Stdout {
			return
		}
		line := strings.TrimSpace(ev.Line)
		if line == "" {
			return
		}
		if p, ok := parseProgress(line); ok {
			interim := out
			interim.Progress = &p
			s.deliver(interim)
			return
		}
		last = []byte(line)
	})
	if res.Code != 0 {
		out.Err = &CommandError{Command: command, Code: res.Code, Stderr: res.StderrText()}
		return out
	}
	if last == nil {
		out.Err = errors.New("stream ended without a result")
		return out
	}
	return decodeInto(out, last, "json")
}

func parseProgress(line string) (Progress, bool) {
	var msg struct {
		Type string   `json:"type"`
		Data Progress `json:"data"`
	}
	if err := json.Unmarshal([]byte(line), &msg); err != nil || msg.Type != "progress" {
		return Progress{}, false
	}
	return msg.Data, true
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return "text"
	}
}

// decodeInto fills Raw, Value and Format. Text that does not parse as the
// expected format is kept as text rather than treated as an error.
func decodeInto(out Outcome, raw []byte, format string) Outcome {
	out.Raw = raw
	out.Format = "text"
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return out
	}

	switch format {
	case "yaml":
		var v interface{}
		if err := yaml.Unmarshal(trimmed, &v); err != nil {
			out.Err = fmt.Errorf("invalid yaml: %w", err)
			return out
		}
		out.Value = Normalize(v)
		out.Format = "yaml"
	case "json":
		var v interface{}
		if err := json.Unmarshal(trimmed, &v); err == nil {
			out.Value = v
			out.Format = "json"
		}
	}
	return out
}

// Normalize converts yaml-decoded maps into JSON-compatible
// map[string]interface{} values so every consumer sees one shape.
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			t[k] = Normalize(val)
		}
		return t
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = Normalize(val)
		}
		return m
	case []interface{}:
		for i, val := range t {
			t[i] = Normalize(val)
		}
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	default:
		return v
	}
}
