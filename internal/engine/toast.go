package engine

import (
	"time"

	"chitui/internal/tui/components"
)

// ToastDuration is how long a toast stays in the status bar.
const ToastDuration = 3 * time.Second

// Toast is a short-lived status bar message.
type Toast struct {
	Kind    components.MessageType
	Message string
	Expires time.Time
}

func (e *Engine) toast(kind components.MessageType, msg string) {
	e.toasts = append(e.toasts, Toast{Kind: kind, Message: msg, Expires: e.now().Add(ToastDuration)})
	e.statusSeen = true
}

// expireToasts drops toasts past their deadline and reports whether any went.
func (e *Engine) expireToasts(now time.Time) bool {
	kept := e.toasts[:0]
	for _, t := range e.toasts {
		if now.Before(t.Expires) {
			kept = append(kept, t)
		}
	}
	changed := len(kept) != len(e.toasts)
	e.toasts = kept
	return changed
}

// Toast returns the newest live toast.
func (e *Engine) Toast() (Toast, bool) {
	if len(e.toasts) == 0 {
		return Toast{}, false
	}
	return e.toasts[len(e.toasts)-1], true
}
