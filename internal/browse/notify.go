package browse

import (
	"sync"
	"time"
)

// NotificationTTL is how long a notification stays open.
const NotificationTTL = 3 * time.Second

type Severity int

const (
	SeveritySuccess Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "success"
}

// Notification is the single status banner of a view.
type Notification struct {
	Open     bool
	Message  string
	Severity Severity
}

// Notifier holds one notification; a new one replaces the old.
type Notifier struct {
	now     func() time.Time
	ttl     time.Duration
	current Notification
	expires time.Time
}

func NewNotifier(now func() time.Time) *Notifier {
	if now == nil {
		now = time.Now
	}
	return &Notifier{now: now, ttl: NotificationTTL}
}

func (n *Notifier) Success(msg string) { n.show(msg, SeveritySuccess) }
func (n *Notifier) Error(msg string)   { n.show(msg, SeverityError) }

func (n *Notifier) show(msg string, sev Severity) {
	n.current = Notification{Open: true, Message: msg, Severity: sev}
	n.expires = n.now().Add(n.ttl)
}

// Close dismisses the notification.
func (n *Notifier) Close() {
	n.current.Open = false
}

// Current returns the notification, closing it first if it has expired.
func (n *Notifier) Current() Notification {
	if n.current.Open && !n.now().Before(n.expires) {
		n.current.Open = false
	}
	return n.current
}

// Mailbox carries a single flash message to the next list view.
// Post overwrites; Take consumes.
type Mailbox interface {
	Post(msg string)
	Take() (string, bool)
}

// MemoryMailbox is a Mailbox scoped to the process.
type MemoryMailbox struct {
	mu  sync.Mutex
	msg string
	set bool
}

func (m *MemoryMailbox) Post(msg string) {
	m.mu.Lock()
	m.msg, m.set = msg, true
	m.mu.Unlock()
}

func (m *MemoryMailbox) Take() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return "", false
	}
	msg := m.msg
	m.msg, m.set = "", false
	return msg, true
}
