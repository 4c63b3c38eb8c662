// Package notify is the channel for user-visible messages. Senders never
// wait on it: every notifier here is fire-and-forget.
package notify

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	}
	return "info"
}

// Notification is one message as seen by subscribers.
type Notification struct {
	Level   Level
	Message string
	Time    time.Time
}

// Notifier surfaces transient messages to the user.
type Notifier interface {
	Error(msg string)
	Success(msg string)
	Info(msg string)
}

// Discard drops every message.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Error(string)   {}
func (discard) Success(string) {}
func (discard) Info(string)    {}

// LogNotifier writes messages through a logrus logger.
type LogNotifier struct {
	Logger logrus.FieldLogger
}

func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) Error(msg string) {
	n.Logger.WithField("notify", LevelError).Error(msg)
}

func (n *LogNotifier) Success(msg string) {
	n.Logger.WithField("notify", LevelSuccess).Info(msg)
}

func (n *LogNotifier) Info(msg string) {
	n.Logger.WithField("notify", LevelInfo).Info(msg)
}

// Multi fans one message out to several notifiers, in order.
func Multi(notifiers ...Notifier) Notifier {
	return multi(notifiers)
}

type multi []Notifier

func (m multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}

func (m multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

func (m multi) Info(msg string) {
	for _, n := range m {
		n.Info(msg)
	}
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
}

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, Notification{Level: level, Message: msg, Time: time.Now()})
}

func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }
func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }
func (r *Recorder) Info(msg string)    { r.add(LevelInfo, msg) }

// Notifications returns a copy of what was recorded so far.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

// Messages returns the recorded messages of one level.
func (r *Recorder) Messages(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notifications {
		if n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}
