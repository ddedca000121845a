package conn

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const closeWriteWait = time.Second

// WebsocketDialer dials the game endpoint with gorilla/websocket
type WebsocketDialer struct {
	dialer *websocket.Dialer
}

// NewWebsocketDialer creates a dialer whose handshake gives up after
// handshakeTimeout. Proxies come from the environment.
func NewWebsocketDialer(handshakeTimeout time.Duration) *WebsocketDialer {
	return &WebsocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			ReadBufferSize:   2048,
			WriteBufferSize:  2048,
		},
	}
}

// Dial implements Dialer
func (d *WebsocketDialer) Dial(ctx context.Context, url string, header http.Header) (Transport, error) {
	ws, resp, err := d.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%w (%s)", err, resp.Status)
		}
		return nil, err
	}
	return &websocketTransport{ws: ws}, nil
}

type websocketTransport struct {
	ws *websocket.Conn
}

func (t *websocketTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.ws.ReadMessage()
	return data, err
}

func (t *websocketTransport) WriteMessage(data []byte) error {
	return t.ws.WriteMessage(websocket.TextMessage, data)
}

func (t *websocketTransport) Close(code int, reason string) error {
	_ = t.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(closeWriteWait))
	return t.ws.Close()
}
