package notify

import "log/slog"

// DefaultQueueSize is the buffer used when NewQueue is given a
// non-positive size
const DefaultQueueSize = 64

// Queue buffers notifications for a consumer goroutine. When the buffer is
// full new notifications are dropped, so a slow view never stalls the
// connection's read loop.
type Queue struct {
	ch     chan Notification
	logger *slog.Logger
}

// NewQueue creates a queue holding up to size pending notifications
func NewQueue(size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		ch:     make(chan Notification, size),
		logger: logger.With(slog.String("component", "notify")),
	}
}

// Notify implements Notifier
func (q *Queue) Notify(n Notification) {
	select {
	case q.ch <- n:
	default:
		q.logger.Warn("notification queue full, dropping",
			slog.String("action", string(n.Action)),
			slog.String("message", n.Message),
		)
	}
}

// C is the channel consumers read from
func (q *Queue) C() <-chan Notification {
	return q.ch
}
