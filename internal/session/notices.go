package session

import (
	"sync"
	"time"
)

// DefaultErrorTTL is how long a transient error stays visible.
const DefaultErrorTTL = 3 * time.Second

// Notices is the ambient status text shown to the user: a transient error
// that expires, an informational line, and a blocking alert for failures
// that cannot be recovered in this session.
type Notices struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	err      string
	errUntil time.Time
	info     string
	alert    string
}

// NoticeSnapshot is a point-in-time view of Notices.
type NoticeSnapshot struct {
	Error string
	Info  string
	Alert string
}

// NewNotices returns Notices whose errors expire after ttl.
func NewNotices(ttl time.Duration) *Notices {
	if ttl <= 0 {
		ttl = DefaultErrorTTL
	}
	return &Notices{ttl: ttl, now: time.Now}
}

// Error shows msg until the TTL elapses. A newer error replaces an older one.
func (n *Notices) Error(msg string) {
	n.mu.Lock()
	n.err = msg
	n.errUntil = n.now().Add(n.ttl)
	n.mu.Unlock()
}

// Info sets the informational line.
func (n *Notices) Info(msg string) {
	n.mu.Lock()
	n.info = msg
	n.mu.Unlock()
}

// Alert sets the blocking alert.
func (n *Notices) Alert(msg string) {
	n.mu.Lock()
	n.alert = msg
	n.mu.Unlock()
}

// Snapshot returns the visible notices.
func (n *Notices) Snapshot() NoticeSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	s := NoticeSnapshot{Info: n.info, Alert: n.alert}
	if n.err != "" && n.now().Before(n.errUntil) {
		s.Error = n.err
	}
	return s
}
