package conn

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var errTransportClosed = errors.New("transport closed")

type fakeTransport struct {
	inbound chan []byte
	readErr chan error
	done    chan struct{}

	mu        sync.Mutex
	written   [][]byte
	closeCode int
	closed    bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan []byte, 16),
		readErr: make(chan error, 1),
		done:    make(chan struct{}),
	}
}

func (t *fakeTransport) ReadMessage() ([]byte, error) {
	select {
	case data := <-t.inbound:
		return data, nil
	case err := <-t.readErr:
		return nil, err
	case <-t.done:
		return nil, errTransportClosed
	}
}

func (t *fakeTransport) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errTransportClosed
	}
	t.written = append(t.written, data)
	return nil
}

func (t *fakeTransport) Close(code int, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		t.closeCode = code
		close(t.done)
	}
	return nil
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *fakeTransport) code() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeCode
}

func (t *fakeTransport) frames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.written))
	for i, w := range t.written {
		out[i] = string(w)
	}
	return out
}

// peerClose simulates the server sending a close frame
func (t *fakeTransport) peerClose(code int, reason string) {
	t.readErr <- &websocket.CloseError{Code: code, Text: reason}
}

type fakeDialer struct {
	transport *fakeTransport
	err       error
	// release, when set, holds every Dial until closed
	release chan struct{}

	mu     sync.Mutex
	calls  int
	url    string
	header http.Header
}

func (d *fakeDialer) Dial(_ context.Context, url string, header http.Header) (Transport, error) {
	d.mu.Lock()
	d.calls++
	d.url = url
	d.header = header
	d.mu.Unlock()

	if d.release != nil {
		<-d.release
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.transport, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type recordingHandler struct {
	mu     sync.Mutex
	frames []string
	fail   map[string]bool
}

func (h *recordingHandler) HandleFrame(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = append(h.frames, string(data))
	if h.fail[string(data)] {
		return errors.New("malformed")
	}
	return nil
}

func (h *recordingHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.frames...)
}
