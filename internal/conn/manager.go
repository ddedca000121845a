package conn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/aiventure/internal/config"
	"github.com/mcoot/aiventure/internal/dependencies/clock"
	"github.com/mcoot/aiventure/internal/dependencies/random"
	"github.com/mcoot/aiventure/internal/model"
	"github.com/mcoot/aiventure/internal/protocol"
)

// Errors
var (
	ErrNoCredential     = errors.New("no credential to connect with")
	ErrAlreadyConnected = errors.New("connection already open or opening")
	ErrConnectFailed    = errors.New("connection failed")
	ErrConnectTimeout   = errors.New("connection did not open in time")
	ErrNotConnected     = errors.New("connection is not open")
)

// Manager owns the single game connection of a session. It never
// reconnects on its own; after Closed or Failed the caller decides.
type Manager struct {
	cfg     *config.Config
	dialer  Dialer
	handler FrameHandler
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger

	openTimeout time.Duration

	mu        sync.Mutex
	state     State
	transport Transport
	// attempt increments on every Connect and Close so a stale dial or
	// read loop can tell it no longer owns the connection
	attempt uint64

	// writeMu serializes frames onto the transport
	writeMu sync.Mutex

	stateListeners listeners[State]
	closeListeners listeners[CloseEvent]
}

// NewManager creates a connection manager. Inbound frames go to handler.
// A non-positive cfg.OpenTimeout falls back to config.DefaultOpenTimeout.
func NewManager(
	cfg *config.Config,
	dialer Dialer,
	handler FrameHandler,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) *Manager {
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = config.DefaultOpenTimeout
	}
	return &Manager{
		cfg:         cfg,
		dialer:      dialer,
		handler:     handler,
		clock:       clk,
		random:      rnd,
		logger:      logger.With(slog.String("component", "conn")),
		openTimeout: openTimeout,
		state:       Disconnected,
	}
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnStateChange registers fn for every state transition
func (m *Manager) OnStateChange(fn func(State)) (unsubscribe func()) {
	return m.stateListeners.add(fn)
}

// OnClose registers fn for the end of every open connection
func (m *Manager) OnClose(fn func(CloseEvent)) (unsubscribe func()) {
	return m.closeListeners.add(fn)
}

// Connect opens the game connection with cred. It returns once the
// outcome is known: Open, a dial failure, the open timeout, or ctx ending.
// Whichever happens first decides; later outcomes are discarded.
func (m *Manager) Connect(ctx context.Context, cred *model.Credential) error {
	if !cred.Valid() {
		return ErrNoCredential
	}

	url, err := m.cfg.WebSocketURL(cred.Token)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	m.mu.Lock()
	if m.state == Connecting || m.state == Open {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	m.attempt++
	attempt := m.attempt
	m.state = Connecting
	m.mu.Unlock()
	m.stateListeners.emit(Connecting)

	logger := m.logger.With(slog.String("conn_id", m.random.ID("conn_", 8)))
	logger.Info("connecting")

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cred.Token)

	dialCtx, cancel := context.WithCancel(ctx)
	results := make(chan dialResult, 1)
	go func() {
		t, err := m.dialer.Dial(dialCtx, url, header)
		results <- dialResult{transport: t, err: err}
	}()

	timeout := m.clock.After(m.openTimeout)

	select {
	case res := <-results:
		cancel()
		if res.err != nil {
			m.fail(attempt)
			logger.Warn("connect failed", slog.Any("error", res.err))
			return fmt.Errorf("%w: %w", ErrConnectFailed, res.err)
		}
		return m.open(attempt, res.transport, logger)

	case <-timeout:
		cancel()
		m.fail(attempt)
		go discardLate(results)
		logger.Warn("connect timed out", slog.Duration("timeout", m.openTimeout))
		return ErrConnectTimeout

	case <-ctx.Done():
		cancel()
		m.fail(attempt)
		go discardLate(results)
		return fmt.Errorf("%w: %w", ErrConnectFailed, ctx.Err())
	}
}

// Send writes msg as one text frame. Only valid while Open; nothing is queued.
func (m *Manager) Send(msg protocol.GameMessage) error {
	m.mu.Lock()
	t := m.transport
	open := m.state == Open && t != nil
	m.mu.Unlock()

	if !open {
		return ErrNotConnected
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := t.WriteMessage(data); err != nil {
		return fmt.Errorf("send %s: %w", msg.Action, err)
	}
	return nil
}

// Close ends the connection or a pending attempt. It is idempotent and a
// no-op before the first Connect. Close listeners hear about it only if
// a connection was open.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.state == Disconnected || m.state == Closed {
		m.mu.Unlock()
		return nil
	}
	t := m.transport
	m.transport = nil
	m.attempt++
	m.state = Closed
	m.mu.Unlock()

	m.stateListeners.emit(Closed)
	if t == nil {
		return nil
	}

	m.writeMu.Lock()
	err := t.Close(websocket.CloseNormalClosure, "client closed")
	m.writeMu.Unlock()

	m.logger.Info("connection closed locally")
	m.closeListeners.emit(CloseEvent{Code: websocket.CloseNormalClosure, Reason: "client closed", Local: true})
	return err
}

type dialResult struct {
	transport Transport
	err       error
}

// discardLate closes a transport whose dial finished after the attempt
// was already decided
func discardLate(results <-chan dialResult) {
	res := <-results
	if res.transport != nil {
		_ = res.transport.Close(websocket.CloseGoingAway, "connect abandoned")
	}
}

func (m *Manager) open(attempt uint64, t Transport, logger *slog.Logger) error {
	m.mu.Lock()
	if m.attempt != attempt || m.state != Connecting {
		// Closed while dialing
		m.mu.Unlock()
		_ = t.Close(websocket.CloseGoingAway, "connect abandoned")
		return fmt.Errorf("%w: closed while connecting", ErrConnectFailed)
	}
	m.transport = t
	m.state = Open
	m.mu.Unlock()

	logger.Info("connection open")
	m.stateListeners.emit(Open)

	go m.readLoop(attempt, t, logger)
	return nil
}

func (m *Manager) fail(attempt uint64) {
	m.mu.Lock()
	if m.attempt != attempt || m.state != Connecting {
		m.mu.Unlock()
		return
	}
	m.state = Failed
	m.mu.Unlock()
	m.stateListeners.emit(Failed)
}

func (m *Manager) readLoop(attempt uint64, t Transport, logger *slog.Logger) {
	for {
		data, err := t.ReadMessage()
		if err != nil {
			m.lost(attempt, t, err, logger)
			return
		}

		if err := m.handler.HandleFrame(data); err != nil {
			if errors.Is(err, protocol.ErrBroadcast) {
				logger.Debug("ignoring broadcast frame", slog.Int("size", len(data)))
				continue
			}
			logger.Warn("dropping frame", slog.Any("error", err))
		}
	}
}

// lost handles the peer or network ending an open connection
func (m *Manager) lost(attempt uint64, t Transport, err error, logger *slog.Logger) {
	m.mu.Lock()
	if m.attempt != attempt || m.state != Open {
		// Local Close already handled it
		m.mu.Unlock()
		return
	}
	m.transport = nil
	m.state = Closed
	m.mu.Unlock()

	m.writeMu.Lock()
	_ = t.Close(websocket.CloseNormalClosure, "")
	m.writeMu.Unlock()

	ev := closeEventFor(err)
	logger.Info("connection closed by peer",
		slog.Int("code", ev.Code),
		slog.String("reason", ev.Reason),
	)
	m.stateListeners.emit(Closed)
	m.closeListeners.emit(ev)
}
