package effects

import (
	"fmt"
)

// Target identifies who receives an outcome: a pane leaf, a form field, a
// menu. Each target has exactly one live generation at a time.
type Target string

// Kind is the kind of deferred work.
type Kind int

const (
	// KindRunCommand runs a shell command and delivers its stdout.
	KindRunCommand Kind = iota
	// KindLoadSource reads a file (or a "cmd:" prefixed command).
	KindLoadSource
	// KindStreamCommand runs an NDJSON command, delivering progress
	// outcomes before the final result.
	KindStreamCommand
)

func (k Kind) String() string {
	switch k {
	case KindRunCommand:
		return "run"
	case KindLoadSource:
		return "load"
	case KindStreamCommand:
		return "stream"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Request describes deferred work. Requests are values and never mutated
// after submission.
type Request struct {
	Kind   Kind
	Target Target
	// Command is used by KindRunCommand and KindStreamCommand.
	Command string
	// Source is a path or "cmd:<command>" for KindLoadSource.
	Source string
	// Cached allows KindRunCommand results to be served from the options cache.
	Cached bool
}

// RunCommand builds a command request.
func RunCommand(target Target, command string) Request {
	return Request{Kind: KindRunCommand, Target: target, Command: command}
}

// LoadSource builds a file/command load request.
func LoadSource(target Target, source string) Request {
	return Request{Kind: KindLoadSource, Target: target, Source: source}
}

// StreamCommand builds a streaming command request.
func StreamCommand(target Target, command string) Request {
	return Request{Kind: KindStreamCommand, Target: target, Command: command}
}

// Progress is an interim update from a streaming command.
type Progress struct {
	Message string  `json:"message"`
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
}

// Outcome is the result of a Request, tagged with the generation it was
// submitted under.
type Outcome struct {
	Target     Target
	Generation uint64
	Kind       Kind

	// Raw is the unparsed payload (stdout or file content).
	Raw []byte
	// Value is the decoded JSON/YAML document, or nil when Raw is not structured.
	Value interface{}
	// Format is "json", "yaml" or "text".
	Format string

	// Progress is set on interim outcomes of streaming commands.
	Progress *Progress

	Err error
}

// Interim reports whether this outcome is a progress update rather than a result.
func (o Outcome) Interim() bool {
	return o.Progress != nil
}

// Failed reports whether the work failed.
func (o Outcome) Failed() bool {
	return o.Err != nil
}
