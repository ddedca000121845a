package conn

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
)

// Dialer opens a transport to the game endpoint
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Transport, error)
}

// Transport is one established bidirectional text-frame channel.
// ReadMessage is called from a single goroutine; WriteMessage calls are
// serialized by the Manager.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	// Close sends a close frame with code and reason, best effort, then
	// releases the underlying connection
	Close(code int, reason string) error
}

// FrameHandler receives every inbound frame, in arrival order, on the read
// loop's goroutine. A returned error drops that frame only.
type FrameHandler interface {
	HandleFrame(data []byte) error
}

// FrameHandlerFunc adapts a function to FrameHandler
type FrameHandlerFunc func(data []byte) error

// HandleFrame implements FrameHandler
func (f FrameHandlerFunc) HandleFrame(data []byte) error {
	return f(data)
}

// CloseEvent describes how an open connection ended
type CloseEvent struct {
	Code   int
	Reason string
	// Local is true when this client initiated the close
	Local bool
}

// closeEventFor maps a read error to the close the peer reported. Errors
// without a close frame count as abnormal closure.
func closeEventFor(err error) CloseEvent {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return CloseEvent{Code: ce.Code, Reason: ce.Text}
	}
	return CloseEvent{Code: websocket.CloseAbnormalClosure, Reason: err.Error()}
}
