package testutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/aiventure/internal/api/request"
	"github.com/mcoot/aiventure/internal/api/response"
	"github.com/mcoot/aiventure/internal/protocol"
)

// CloseUnauthorized is the close code the game endpoint uses for bad tokens
const CloseUnauthorized = 4001

// Responder produces the frames the game server sends back for one client message
type Responder func(msg protocol.GameMessage) []protocol.GameMessageResponse

type fakeUser struct {
	id       string
	email    string
	hash     []byte
	verified bool
	admin    bool
}

type fakeConn struct {
	mu   sync.Mutex
	ws   *websocket.Conn
	user string
}

func (c *fakeConn) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(messageType, data)
}

// GameServer is an in-process stand-in for the authentication and game
// services: the auth endpoints, a health endpoint and the game websocket.
type GameServer struct {
	srv    *httptest.Server
	jwtKey []byte

	mu        sync.Mutex
	users     map[string]*fakeUser
	revoked   map[string]bool
	conns     []*fakeConn
	received  []protocol.GameMessage
	responder Responder
	meCalls   int
	issued    int
	nextID    int
}

// NewGameServer starts a fake server that is shut down with the test
func NewGameServer(t *testing.T) *GameServer {
	t.Helper()

	gs := &GameServer{
		jwtKey:  []byte("test-signing-key-0123456789abcdef"),
		users:   map[string]*fakeUser{},
		revoked: map[string]bool{},
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", gs.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/version", gs.handleVersion).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/authenticate", gs.handleAuthenticate).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/me", gs.handleMe).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/create", gs.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/verify", gs.handleVerify).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/refresh", gs.handleRefresh).Methods(http.MethodGet)
	r.HandleFunc("/api/game/ws", gs.handleGame)

	gs.srv = httptest.NewServer(r)
	t.Cleanup(gs.Close)
	return gs
}

// URL is the server's http base address
func (gs *GameServer) URL() string {
	return gs.srv.URL
}

// Close disconnects game clients and stops the server
func (gs *GameServer) Close() {
	gs.mu.Lock()
	conns := gs.conns
	gs.conns = nil
	gs.mu.Unlock()

	for _, c := range conns {
		_ = c.ws.Close()
	}
	gs.srv.Close()
}

// AddUser registers an account directly
func (gs *GameServer) AddUser(email, password string, verified bool) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.nextID++
	gs.users[strings.ToLower(email)] = &fakeUser{
		id:       fmt.Sprintf("user-%d", gs.nextID),
		email:    email,
		hash:     hash,
		verified: verified,
	}
}

// IssueToken signs a token for email without a password check
func (gs *GameServer) IssueToken(email string) string {
	return gs.sign(email, "access")
}

// VerificationCode is the code the server would have emailed to email
func (gs *GameServer) VerificationCode(email string) string {
	return gs.sign(email, "verify")
}

// Revoke makes the server reject token from now on
func (gs *GameServer) Revoke(token string) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.revoked[token] = true
}

// SetResponder installs the per-message reply script for game clients
func (gs *GameServer) SetResponder(r Responder) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.responder = r
}

// MeCalls counts requests to the current-user endpoint
func (gs *GameServer) MeCalls() int {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.meCalls
}

// Connections is the number of live game sockets
func (gs *GameServer) Connections() int {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return len(gs.conns)
}

// Received returns the client messages seen so far, in arrival order
func (gs *GameServer) Received() []protocol.GameMessage {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	out := make([]protocol.GameMessage, len(gs.received))
	copy(out, gs.received)
	return out
}

// Verified reports the server-side verification flag for email
func (gs *GameServer) Verified(email string) bool {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	u, ok := gs.users[strings.ToLower(email)]
	return ok && u.verified
}

// Push sends a response frame to every connected game client
func (gs *GameServer) Push(frame protocol.GameMessageResponse) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return gs.PushRaw(data)
}

// PushRaw sends raw text to every connected game client
func (gs *GameServer) PushRaw(data []byte) error {
	gs.mu.Lock()
	conns := append([]*fakeConn(nil), gs.conns...)
	gs.mu.Unlock()

	if len(conns) == 0 {
		return errors.New("no game clients connected")
	}
	for _, c := range conns {
		if err := c.write(websocket.TextMessage, data); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect closes every game socket with the given close code
func (gs *GameServer) Disconnect(code int, reason string) {
	gs.mu.Lock()
	conns := gs.conns
	gs.conns = nil
	gs.mu.Unlock()

	for _, c := range conns {
		_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
		_ = c.ws.Close()
	}
}

func (gs *GameServer) sign(email, purpose string) string {
	gs.mu.Lock()
	gs.issued++
	jti := gs.issued
	gs.mu.Unlock()

	claims := jwt.MapClaims{
		"sub": email,
		"use": purpose,
		"jti": fmt.Sprintf("%d", jti),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(gs.jwtKey)
	if err != nil {
		panic(err)
	}
	return signed
}

func (gs *GameServer) parse(tok, purpose string) (*fakeUser, error) {
	if tok == "" {
		return nil, errors.New("missing token")
	}
	t, err := jwt.Parse(tok, func(*jwt.Token) (any, error) {
		return gs.jwtKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok || claims["use"] != purpose {
		return nil, errors.New("bad claims")
	}
	sub, _ := claims["sub"].(string)

	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.revoked[tok] {
		return nil, errors.New("revoked token")
	}
	u, ok := gs.users[strings.ToLower(sub)]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	response.Detail(w, http.StatusUnauthorized, "Could not validate credentials")
}

func (gs *GameServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "healthy"})
}

func (gs *GameServer) handleVersion(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Version{Version: "0.1.0"})
}

func (gs *GameServer) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "password" {
		response.Detail(w, http.StatusUnprocessableEntity, "invalid form")
		return
	}

	gs.mu.Lock()
	u, ok := gs.users[strings.ToLower(r.PostForm.Get("username"))]
	gs.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(r.PostForm.Get("password"))) != nil {
		response.JSON(w, http.StatusUnauthorized, response.StatusMessage{Status: false, Message: "Incorrect username or password"})
		return
	}

	response.JSON(w, http.StatusOK, response.Token{AccessToken: gs.IssueToken(u.email), TokenType: "bearer"})
}

func (gs *GameServer) handleMe(w http.ResponseWriter, r *http.Request) {
	gs.mu.Lock()
	gs.meCalls++
	gs.mu.Unlock()

	u, err := gs.parse(bearer(r), "access")
	if err != nil {
		unauthorized(w)
		return
	}

	gs.mu.Lock()
	user := response.User{ID: u.id, Email: u.email, IsAdmin: u.admin, IsVerified: u.verified}
	gs.mu.Unlock()
	response.JSON(w, http.StatusOK, user)
}

func (gs *GameServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		response.Detail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	gs.mu.Lock()
	_, exists := gs.users[strings.ToLower(req.Email)]
	gs.mu.Unlock()
	if exists {
		// The real service answers null for a taken email.
		response.JSON(w, http.StatusCreated, json.RawMessage("null"))
		return
	}

	gs.AddUser(req.Email, req.Password, false)

	gs.mu.Lock()
	u := gs.users[strings.ToLower(req.Email)]
	user := response.User{ID: u.id, Email: u.email}
	gs.mu.Unlock()
	response.JSON(w, http.StatusCreated, user)
}

func (gs *GameServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Detail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	u, err := gs.parse(req.Token, "verify")
	if err != nil {
		response.JSON(w, http.StatusBadRequest, response.StatusMessage{Status: false, Message: "Invalid verification token"})
		return
	}

	gs.mu.Lock()
	u.verified = true
	gs.mu.Unlock()
	response.JSON(w, http.StatusOK, response.StatusMessage{Status: true, Message: "The user has been verified!"})
}

func (gs *GameServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	u, err := gs.parse(bearer(r), "access")
	if err != nil {
		unauthorized(w)
		return
	}
	response.JSON(w, http.StatusOK, response.Token{AccessToken: gs.IssueToken(u.email), TokenType: "bearer"})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (gs *GameServer) handleGame(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &fakeConn{ws: ws}

	// The game service accepts first and rejects bad tokens with a close frame.
	u, err := gs.parse(r.URL.Query().Get("token"), "access")
	if err != nil {
		_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(CloseUnauthorized, "Invalid authentication token"))
		_ = ws.Close()
		return
	}
	c.user = u.email

	gs.mu.Lock()
	gs.conns = append(gs.conns, c)
	gs.mu.Unlock()

	defer gs.drop(c)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var msg protocol.GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		gs.mu.Lock()
		gs.received = append(gs.received, msg)
		responder := gs.responder
		gs.mu.Unlock()

		if responder == nil {
			continue
		}
		for _, frame := range responder(msg) {
			out, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			if err := c.write(websocket.TextMessage, out); err != nil {
				return
			}
		}
	}
}

func (gs *GameServer) drop(c *fakeConn) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	for i, other := range gs.conns {
		if other == c {
			gs.conns = append(gs.conns[:i], gs.conns[i+1:]...)
			break
		}
	}
	_ = c.ws.Close()
}
