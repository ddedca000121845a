package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/aiventure/internal/protocol"
)

// Level is the severity of a notification
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notification is a one-shot message for the user. It is never stored
// in state; a view shows it once and discards it.
type Notification struct {
	Level   Level               `json:"level"`
	Action  protocol.ActionKind `json:"action,omitempty"`
	Message string              `json:"message"`
	At      time.Time           `json:"at"`
}

// Notifier delivers notifications. Implementations must not block the caller.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notification)

// Notify implements Notifier
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// Multi fans a notification out to every notifier, in order
type Multi []Notifier

// Notify implements Notifier
func (m Multi) Notify(n Notification) {
	for _, target := range m {
		target.Notify(n)
	}
}

// LogNotifier writes notifications to a logger
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(slog.String("component", "notify"))}
}

// Notify implements Notifier
func (l *LogNotifier) Notify(n Notification) {
	level := slog.LevelInfo
	if n.Level == LevelError {
		level = slog.LevelError
	}
	l.logger.LogAttrs(context.Background(), level, n.Message,
		slog.String("action", string(n.Action)),
		slog.Time("at", n.At),
	)
}
