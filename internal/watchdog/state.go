package watchdog

// State is the supervisor state of a single section.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateSucceeded
	StateFailed
	StateRetrying
	StatePanicked
	StateAborted
	StateStopped
	StateExternalRunning
	StateExternalStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateSucceeded:
		return "Succeeded"
	case StateFailed:
		return "Failed"
	case StateRetrying:
		return "Retrying"
	case StatePanicked:
		return "Panicked"
	case StateAborted:
		return "Aborted"
	case StateStopped:
		return "Stopped"
	case StateExternalRunning:
		return "ExternalRunning"
	case StateExternalStopped:
		return "ExternalStopped"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the section will not progress without an
// explicit start or restart.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StatePanicked, StateAborted, StateStopped:
		return true
	default:
		return false
	}
}

// Active reports whether the section owns a live process or a pending wake.
func (s State) Active() bool {
	return s == StateRunning || s == StateRetrying
}

// Marker lines appended to section buffers.
const (
	markerDone          = "[done]"
	markerStopped       = "[stopped]"
	markerStopRequested = "[stop requested]"
	markerPanic         = "[panic: retries exhausted]"
	markerAborted       = "[aborted by stop_on_failure]"
	markerEmpty         = "[error] empty command"
	markerExternalMode  = "[external mode] will not spawn commands"
	markerExtRunning    = "[external] running (detected)"
	markerExtStopped    = "[external] not running"
	markerExtNoRestart  = "[external mode] restart not supported"
	markerExtKill       = "[external] kill invoked"
	markerExtNoKill     = "[external] no kill command configured"
	stderrPrefix        = "[stderr] "
)
