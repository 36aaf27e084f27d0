// Package notify holds transient user-facing messages shared by the
// presentation surfaces: at most one active error and one active success
// message, where setting one clears the other.
package notify

import (
	"sync"
	"time"
)

// DefaultDuration is how long a temporary message stays up.
const DefaultDuration = 3 * time.Second

// Notifier is safe for concurrent use.
type Notifier struct {
	mu      sync.Mutex
	err     string
	success string
	// gen increments on every message change so a scheduled clear can tell
	// whether its message is still the active one.
	gen uint64

	after func(d time.Duration, fn func()) stopper
}

type stopper interface{ Stop() bool }

func New() *Notifier {
	return &Notifier{
		after: func(d time.Duration, fn func()) stopper {
			return time.AfterFunc(d, fn)
		},
	}
}

// Error returns the active error message, or "".
func (n *Notifier) Error() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

// Success returns the active success message, or "".
func (n *Notifier) Success() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.success
}

// SetError sets the error message and clears any success message.
func (n *Notifier) SetError(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = msg
	n.success = ""
	n.gen++
}

// SetSuccess sets the success message and clears any error.
func (n *Notifier) SetSuccess(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.success = msg
	n.err = ""
	n.gen++
}

// Clear drops both messages.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = ""
	n.success = ""
	n.gen++
}

// ShowTemporaryError sets an error message and schedules its removal after
// d (DefaultDuration when d <= 0). The scheduled clear is a no-op if the
// message changed in the meantime, so a stale timer never erases a newer
// message.
func (n *Notifier) ShowTemporaryError(msg string, d time.Duration) {
	n.show(msg, d, true)
}

// ShowTemporarySuccess is ShowTemporaryError for the success slot.
func (n *Notifier) ShowTemporarySuccess(msg string, d time.Duration) {
	n.show(msg, d, false)
}

func (n *Notifier) show(msg string, d time.Duration, isError bool) {
	if d <= 0 {
		d = DefaultDuration
	}

	n.mu.Lock()
	if isError {
		n.err = msg
		n.success = ""
	} else {
		n.success = msg
		n.err = ""
	}
	n.gen++
	gen := n.gen
	n.mu.Unlock()

	n.after(d, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if n.gen != gen {
			return
		}
		n.err = ""
		n.success = ""
		n.gen++
	})
}
