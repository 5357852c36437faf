// Package notify carries user-facing success and error messages out of the
// controller without tying it to any particular UI.
package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	Success Level = "success"
	Error   Level = "error"
	Info    Level = "info"
)

type Notification struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Port receives notifications. Implementations must be safe for concurrent use.
type Port interface {
	Notify(n Notification)
}

// Logger writes notifications to a logrus entry.
type Logger struct {
	log *logrus.Entry
}

func NewLogger(log *logrus.Entry) *Logger {
	return &Logger{log: log.WithField("component", "notify")}
}

func (l *Logger) Notify(n Notification) {
	entry := l.log.WithFields(logrus.Fields{"kind": string(n.Level), "title": n.Title})
	switch n.Level {
	case Error:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.all = append(r.all, n)
	r.mu.Unlock()
}

// All returns a copy of the recorded notifications in order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.all...)
}

// Last returns the most recent notification, if any.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.all) == 0 {
		return Notification{}, false
	}
	return r.all[len(r.all)-1], true
}

// Count returns how many notifications of the given level were recorded.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.all {
		if x.Level == level {
			n++
		}
	}
	return n
}

// Multi fans a notification out to several ports.
type Multi []Port

func (m Multi) Notify(n Notification) {
	for _, p := range m {
		p.Notify(n)
	}
}
