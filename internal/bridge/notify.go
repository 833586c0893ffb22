package bridge

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultNotificationTTL is how long a notification stays active.
const DefaultNotificationTTL = 3 * time.Second

// Level is the notification type.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is transient user-facing feedback.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Level     Level     `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Sink receives every notification once, when it is created. Sinks must not block.
type Sink func(Notification)

// Notifier keeps the active notifications of one app. Each one is dismissed by its own timer.
type Notifier struct {
	mu     sync.Mutex
	ttl    time.Duration
	active []Notification
	timers map[string]*time.Timer
	sinks  []Sink
	closed bool
}

// NewNotifier creates a notifier; a non-positive ttl uses DefaultNotificationTTL.
func NewNotifier(ttl time.Duration, sinks ...Sink) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	return &Notifier{
		ttl:    ttl,
		timers: make(map[string]*time.Timer),
		sinks:  sinks,
	}
}

// AddSink attaches another sink.
func (n *Notifier) AddSink(sink Sink) {
	n.mu.Lock()
	n.sinks = append(n.sinks, sink)
	n.mu.Unlock()
}

// Notify shows message and schedules its dismissal. It never blocks on delivery.
func (n *Notifier) Notify(message string, level Level) Notification {
	now := time.Now()
	note := Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Level:     level,
		CreatedAt: now,
		ExpiresAt: now.Add(n.ttl),
	}

	n.mu.Lock()
	if !n.closed {
		n.active = append(n.active, note)
		id := note.ID
		n.timers[id] = time.AfterFunc(n.ttl, func() { n.Dismiss(id) })
	}
	sinks := n.sinks
	n.mu.Unlock()

	for _, sink := range sinks {
		sink(note)
	}
	return note
}

// Dismiss removes a notification early. It reports whether it was still active.
func (n *Notifier) Dismiss(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if timer, ok := n.timers[id]; ok {
		timer.Stop()
		delete(n.timers, id)
	}
	for i, note := range n.active {
		if note.ID == id {
			n.active = append(n.active[:i:i], n.active[i+1:]...)
			return true
		}
	}
	return false
}

// Active returns the notifications currently shown, oldest first.
func (n *Notifier) Active() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.active))
	copy(out, n.active)
	return out
}

// Close stops all pending timers and drops the active list.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, timer := range n.timers {
		timer.Stop()
		delete(n.timers, id)
	}
	n.active = nil
	n.closed = true
}
