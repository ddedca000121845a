package conn

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/aiventure/internal/config"
	"github.com/mcoot/aiventure/internal/dependencies/mocks"
	"github.com/mcoot/aiventure/internal/model"
	"github.com/mcoot/aiventure/internal/protocol"
	"github.com/mcoot/aiventure/internal/testutil"
)

const waitFor = time.Second

type ManagerSuite struct {
	suite.Suite
	clock     *mocks.MockClock
	transport *fakeTransport
	dialer    *fakeDialer
	handler   *recordingHandler
	manager   *Manager
	cred      *model.Credential
	ctx       context.Context

	mu     sync.Mutex
	states []State
	closes []CloseEvent
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.transport = newFakeTransport()
	s.dialer = &fakeDialer{transport: s.transport}
	s.handler = &recordingHandler{fail: map[string]bool{}}
	s.cred = &model.Credential{Token: "tok en", Verified: true}
	s.ctx = context.Background()

	cfg := &config.Config{ServerURL: "https://game.example.com", OpenTimeout: 5 * time.Second}
	s.manager = NewManager(cfg, s.dialer, s.handler, s.clock, mocks.NewMockRandom(), testutil.NopLogger())

	s.states = nil
	s.closes = nil
	s.manager.OnStateChange(func(st State) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.states = append(s.states, st)
	})
	s.manager.OnClose(func(ev CloseEvent) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closes = append(s.closes, ev)
	})
}

func (s *ManagerSuite) TearDownTest() {
	_ = s.manager.Close()
}

func (s *ManagerSuite) recordedStates() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]State(nil), s.states...)
}

func (s *ManagerSuite) recordedCloses() []CloseEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CloseEvent(nil), s.closes...)
}

// Connect tests

func (s *ManagerSuite) TestInitialState() {
	s.Equal(Disconnected, s.manager.State())
}

func (s *ManagerSuite) TestConnectWithoutCredential() {
	for _, cred := range []*model.Credential{nil, {Token: ""}} {
		s.ErrorIs(s.manager.Connect(s.ctx, cred), ErrNoCredential)
	}
	s.Equal(Disconnected, s.manager.State())
	s.Zero(s.dialer.dialCount())
	s.Empty(s.recordedStates())
}

func (s *ManagerSuite) TestConnectOpens() {
	s.Require().NoError(s.manager.Connect(s.ctx, s.cred))

	s.Equal(Open, s.manager.State())
	s.Equal([]State{Connecting, Open}, s.recordedStates())
	s.Equal("wss://game.example.com/api/game/ws?token=tok+en", s.dialer.url)
	s.Equal("Bearer tok en", s.dialer.header.Get("Authorization"))
}

func (s *ManagerSuite) TestSecondConnectFails() {
	s.Require().NoError(s.manager.Connect(s.ctx, s.cred))

	s.ErrorIs(s.manager.Connect(s.ctx, s.cred), ErrAlreadyConnected)
	s.Equal(1, s.dialer.dialCount())
	s.Equal(Open, s.manager.State())
}

func (s *ManagerSuite) TestConnectWhileConnectingFails() {
	s.dialer.release = make(chan struct{})
	errCh := make(chan error, 1)
	go func() { errCh <- s.manager.Connect(s.ctx, s.cred) }()

	s.Require().Eventually(func() bool { return s.manager.State() == Connecting }, waitFor, time.Millisecond)
	s.ErrorIs(s.manager.Connect(s.ctx, s.cred), ErrAlreadyConnected)

	close(s.dialer.release)
	s.NoError(<-errCh)
	s.Equal(Open, s.manager.State())
}

func (s *ManagerSuite) TestDialErrorFails() {
	s.dialer.err = errors.New("connection refused")

	err := s.manager.Connect(s.ctx, s.cred)

	s.ErrorIs(err, ErrConnectFailed)
	s.Equal(Failed, s.manager.State())
	s.Equal([]State{Connecting, Failed}, s.recordedStates())
	s.Empty(s.recordedCloses())
}

func (s *ManagerSuite) TestInvalidServerURLFails() {
	cfg := &config.Config{ServerURL: "ftp://nope", OpenTimeout: time.Second}
	m := NewManager(cfg, s.dialer, s.handler, s.clock, mocks.NewMockRandom(), testutil.NopLogger())

	s.ErrorIs(m.Connect(s.ctx, s.cred), ErrConnectFailed)
	s.Zero(s.dialer.dialCount())
}

func (s *ManagerSuite) TestOpenTimeoutSettlesOnce() {
	s.dialer.release = make(chan struct{})
	errCh := make(chan error, 1)
	go func() { errCh <- s.manager.Connect(s.ctx, s.cred) }()

	s.Require().Eventually(func() bool { return s.clock.PendingTimers() == 1 }, waitFor, time.Millisecond)
	s.Equal(Connecting, s.manager.State())

	s.clock.Advance(4 * time.Second)
	s.Equal(Connecting, s.manager.State())

	s.clock.Advance(time.Second)
	s.ErrorIs(<-errCh, ErrConnectTimeout)
	s.Equal(Failed, s.manager.State())

	// The dial completes late; the transport is discarded and the state stays Failed.
	close(s.dialer.release)
	s.Eventually(s.transport.isClosed, waitFor, time.Millisecond)
	s.Equal(Failed, s.manager.State())
	s.Equal([]State{Connecting, Failed}, s.recordedStates())
	s.ErrorIs(s.manager.Send(protocol.RetrievePlayerData()), ErrNotConnected)
}

func (s *ManagerSuite) TestNonPositiveOpenTimeoutUsesDefault() {
	for _, timeout := range []time.Duration{0, -time.Second} {
		transport := newFakeTransport()
		dialer := &fakeDialer{transport: transport, release: make(chan struct{})}
		clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
		cfg := &config.Config{ServerURL: "https://game.example.com", OpenTimeout: timeout}
		m := NewManager(cfg, dialer, s.handler, clk, mocks.NewMockRandom(), testutil.NopLogger())

		errCh := make(chan error, 1)
		go func() { errCh <- m.Connect(s.ctx, s.cred) }()

		s.Require().Eventually(func() bool { return clk.PendingTimers() == 1 }, waitFor, time.Millisecond)
		clk.Advance(config.DefaultOpenTimeout - time.Millisecond)
		s.Equal(Connecting, m.State())

		close(dialer.release)
		s.NoError(<-errCh)
		s.Equal(Open, m.State())
		s.NoError(m.Close())
	}
}

func (s *ManagerSuite) TestContextCancelDuringConnect() {
	s.dialer.release = make(chan struct{})
	defer close(s.dialer.release)

	ctx, cancel := context.WithCancel(s.ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- s.manager.Connect(ctx, s.cred) }()

	s.Require().Eventually(func() bool { return s.manager.State() == Connecting }, waitFor, time.Millisecond)
	cancel()

	err := <-errCh
	s.ErrorIs(err, ErrConnectFailed)
	s.ErrorIs(err, context.Canceled)
	s.Equal(Failed, s.manager.State())
}

func (s *ManagerSuite) TestReconnectAfterFailure() {
	s.dialer.err = errors.New("refused")
	s.Require().Error(s.manager.Connect(s.ctx, s.cred))

	s.dialer.err = nil
	s.Require().NoError(s.manager.Connect(s.ctx, s.cred))
	s.Equal(Open, s.manager.State())
}

// Send tests

func (s *ManagerSuite) TestSendRequiresOpen() {
	s.ErrorIs(s.manager.Send(protocol.RetrievePlayerData()), ErrNotConnected)
	s.Empty(s.transport.frames())
}

func (s *ManagerSuite) TestSendWritesJSONFrame() {
	s.Require().NoError(s.manager.Connect(s.ctx, s.cred))

	s.Require().NoError(s.manager.Send(protocol.CreateLab("Skunkworks", model.LocationEU)))

	frames := s.transport.frames()
	s.Require().Len(frames, 1)
	s.JSONEq(`{"action":"create-lab","payload":{"name":"Skunkworks","location":"eu"}}`, frames[0])
}

func (s *ManagerSuite) TestConcurrentSendsAreSerialized() {
	s.Require().NoError(s.manager.Connect(s.ctx, s.cred))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.manager.Send(protocol.RetrievePlayerData())
		}()
	}
	wg.Wait()

	s.Len(s.transport.frames(), 20)
}

// Read loop tests

func (s *ManagerSuite) TestFramesReachHandlerInOrder() {
	s.Require().NoError(s.manager.Connect(s.ctx, s.cred))

	s.transport.inbound <- []byte("one")
	s.transport.inbound <- []byte("two")
	s.transport.inbound <- []byte("three")

	s.Eventually(func() bool { return len(s.handler.seen()) == 3 }, waitFor, time.Millisecond)
	s.Equal([]string{"one", "two", "three"}, s.handler.seen())
}

func (s *ManagerSuite) TestHandlerErrorDropsOnlyThatFrame() {
	s.handler.fail["bad"] = true
	s.Require().NoError(s.manager.Connect(s.ctx, s.cred))

	s.transport.inbound <- []byte("bad")
	s.transport.inbound <- []byte("good")

	s.Eventually(func() bool { return len(s.handler.seen()) == 2 }, waitFor, time.Millisecond)
	s.Equal(Open, s.manager.State())
}

func (s *ManagerSuite) TestBroadcastFramesLogAtDebug() {
	logger, logs := testutil.BufferLogger()
	decode := FrameHandlerFunc(func(data []byte) error {
		_, err := protocol.DecodeResponse(data)
		return err
	})
	cfg := &config.Config{ServerURL: "https://game.example.com", OpenTimeout: 5 * time.Second}
	m := NewManager(cfg, s.dialer, decode, s.clock, mocks.NewMockRandom(), logger)
	s.Require().NoError(m.Connect(s.ctx, s.cred))
	defer func() { _ = m.Close() }()

	s.transport.inbound <- []byte(`{"n_connected_players":2}`)
	s.transport.inbound <- []byte(`{"payload":{}}`)

	s.Eventually(func() bool {
		return strings.Contains(logs.String(), "dropping frame")
	}, waitFor, time.Millisecond)

	var broadcast, dropped int
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		switch {
		case strings.Contains(line, "ignoring broadcast frame"):
			broadcast++
			s.Contains(line, `"level":"DEBUG"`)
		case strings.Contains(line, "dropping frame"):
			dropped++
			s.Contains(line, `"level":"WARN"`)
		}
	}
	s.Equal(1, broadcast)
	s.Equal(1, dropped)
}

func (s *ManagerSuite) TestPeerCloseMovesToClosed() {
	s.Require().NoError(s.manager.Connect(s.ctx, s.cred))

	s.transport.peerClose(4001, "Invalid authentication token")

	s.Eventually(func() bool { return s.manager.State() == Closed }, waitFor, time.Millisecond)
	s.Eventually(func() bool { return len(s.recordedCloses()) == 1 }, waitFor, time.Millisecond)
	s.Equal(CloseEvent{Code: 4001, Reason: "Invalid authentication token"}, s.recordedCloses()[0])
	s.True(s.transport.isClosed())

	// No automatic reconnect.
	s.Equal(1, s.dialer.dialCount())
	s.ErrorIs(s.manager.Send(protocol.RetrievePlayerData()), ErrNotConnected)
}

func (s *ManagerSuite) TestNetworkErrorIsAbnormalClosure() {
	s.Require().NoError(s.manager.Connect(s.ctx, s.cred))

	s.transport.readErr <- errors.New("connection reset by peer")

	s.Eventually(func() bool { return len(s.recordedCloses()) == 1 }, waitFor, time.Millisecond)
	ev := s.recordedCloses()[0]
	s.Equal(websocket.CloseAbnormalClosure, ev.Code)
	s.False(ev.Local)
}

// Close tests

func (s *ManagerSuite) TestCloseBeforeConnectIsNoop() {
	s.NoError(s.manager.Close())
	s.Equal(Disconnected, s.manager.State())
	s.Empty(s.recordedStates())
}

func (s *ManagerSuite) TestCloseIsIdempotent() {
	s.Require().NoError(s.manager.Connect(s.ctx, s.cred))

	s.NoError(s.manager.Close())
	s.NoError(s.manager.Close())

	s.Equal(Closed, s.manager.State())
	s.Equal([]State{Connecting, Open, Closed}, s.recordedStates())
	s.True(s.transport.isClosed())
	s.Equal(websocket.CloseNormalClosure, s.transport.code())

	closes := s.recordedCloses()
	s.Require().Len(closes, 1)
	s.True(closes[0].Local)
	s.ErrorIs(s.manager.Send(protocol.RetrievePlayerData()), ErrNotConnected)
}

func (s *ManagerSuite) TestCloseWhileConnectingDiscardsDial() {
	s.dialer.release = make(chan struct{})
	errCh := make(chan error, 1)
	go func() { errCh <- s.manager.Connect(s.ctx, s.cred) }()

	s.Require().Eventually(func() bool { return s.manager.State() == Connecting }, waitFor, time.Millisecond)
	s.Require().NoError(s.manager.Close())
	s.Equal(Closed, s.manager.State())

	close(s.dialer.release)
	s.ErrorIs(<-errCh, ErrConnectFailed)
	s.True(s.transport.isClosed())
	s.Equal(Closed, s.manager.State())
}

func (s *ManagerSuite) TestCloseFromFailed() {
	s.dialer.err = errors.New("refused")
	_ = s.manager.Connect(s.ctx, s.cred)

	s.NoError(s.manager.Close())
	s.Equal(Closed, s.manager.State())
	s.Empty(s.recordedCloses())
}

func (s *ManagerSuite) TestUnsubscribe() {
	calls := 0
	unsubscribe := s.manager.OnStateChange(func(State) { calls++ })
	unsubscribe()

	s.Require().NoError(s.manager.Connect(s.ctx, s.cred))
	s.Zero(calls)
}

func TestStateString(t *testing.T) {
	for st, name := range map[State]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Open:         "open",
		Closed:       "closed",
		Failed:       "failed",
		State(99):    "unknown",
	} {
		assert.Equal(t, name, st.String())
	}
}
