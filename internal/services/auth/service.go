package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/aiventure/internal/api"
	"github.com/mcoot/aiventure/internal/api/apierr"
	"github.com/mcoot/aiventure/internal/api/request"
	"github.com/mcoot/aiventure/internal/model"
	"github.com/mcoot/aiventure/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalid     = errors.New("session is no longer valid")
	ErrNoCredential       = errors.New("not logged in")
	ErrEmailTaken         = errors.New("email already registered")
)

// Service holds the session credential in memory and mirrors it to a
// durable record so a later process can resume the session
type Service struct {
	store  storage.CredentialStore
	client *api.Client
	logger *slog.Logger

	mu      sync.RWMutex
	current *model.Credential
}

// New creates a new auth service
func New(store storage.CredentialStore, client *api.Client, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		client: client,
		logger: logger.With(slog.String("component", "auth")),
	}
}

// Current returns a copy of the in-memory credential, or nil when logged out
func (s *Service) Current() *model.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.current)
}

// Login exchanges email and password for a token, then reads the
// verification flag once. A failed profile fetch still stores the token,
// unverified.
func (s *Service) Login(ctx context.Context, email, password string) (*model.Credential, error) {
	tok, err := s.client.Authenticate(ctx, request.LoginForm{Username: email, Password: password})
	if err != nil {
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	cred := &model.Credential{Token: tok.AccessToken, TokenType: tok.TokenType}

	user, err := s.client.Me(ctx, cred.Token)
	if err != nil {
		s.logger.Warn("profile fetch after login failed", slog.Any("error", err))
	} else {
		cred.Verified = user.IsVerified
		cred.Profile = user.ToProfile()
	}

	if err := s.set(ctx, cred); err != nil {
		return clone(cred), err
	}

	s.logger.Info("logged in", slog.Bool("verified", cred.Verified))
	return clone(cred), nil
}

// Restore loads the durable record into memory without touching the network.
// Absent or malformed records report false; malformed ones are left in place.
func (s *Service) Restore(ctx context.Context) (*model.Credential, bool) {
	data, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, model.ErrCredentialNotFound) {
			s.logger.Warn("credential load failed", slog.Any("error", err))
		}
		return nil, false
	}

	var cred model.Credential
	if err := json.Unmarshal(data, &cred); err != nil || !cred.Valid() {
		s.logger.Warn("ignoring credential record",
			slog.Any("error", errors.Join(model.ErrCredentialMalformed, err)),
		)
		return nil, false
	}

	s.mu.Lock()
	s.current = &cred
	s.mu.Unlock()

	return clone(&cred), true
}

// Revalidate asks the server whether the held token is still good and
// refreshes the verification flag. Any failure other than the caller
// cancelling ctx logs the session out, in memory and durably.
func (s *Service) Revalidate(ctx context.Context) (*model.Credential, error) {
	cur := s.Current()
	if cur == nil {
		return nil, ErrNoCredential
	}

	user, err := s.client.Me(ctx, cur.Token)
	if err != nil {
		return nil, s.invalidate(ctx, err)
	}

	cur.Verified = user.IsVerified
	cur.Profile = user.ToProfile()
	if err := s.set(ctx, cur); err != nil {
		return clone(cur), err
	}
	return clone(cur), nil
}

// Clear drops the credential from memory and durable storage
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// Register creates an account. It does not log in; the account starts unverified.
func (s *Service) Register(ctx context.Context, email, password string) (*model.Profile, error) {
	user, err := s.client.CreateUser(ctx, request.RegisterRequest{Email: email, Password: password})
	if err != nil {
		if errors.Is(err, api.ErrEmptyResponse) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	return user.ToProfile(), nil
}

// Verify submits an emailed verification code and marks the held
// credential verified on success
func (s *Service) Verify(ctx context.Context, code string) (*model.Credential, error) {
	cur := s.Current()
	if cur == nil {
		return nil, ErrNoCredential
	}

	if err := s.client.Verify(ctx, cur.Token, request.VerifyRequest{Token: code}); err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	cur.Verified = true
	if cur.Profile != nil {
		cur.Profile.IsVerified = true
	}
	if err := s.set(ctx, cur); err != nil {
		return clone(cur), err
	}
	return clone(cur), nil
}

// Refresh swaps the held token for a fresh one. A rejected refresh ends
// the session the same way a failed Revalidate does.
func (s *Service) Refresh(ctx context.Context) (*model.Credential, error) {
	cur := s.Current()
	if cur == nil {
		return nil, ErrNoCredential
	}

	tok, err := s.client.Refresh(ctx, cur.Token)
	if err != nil {
		return nil, s.invalidate(ctx, err)
	}

	cur.Token = tok.AccessToken
	cur.TokenType = tok.TokenType
	if err := s.set(ctx, cur); err != nil {
		return clone(cur), err
	}
	return clone(cur), nil
}

// set stores cred in memory first so the session survives a failing
// durable write for the life of the process
func (s *Service) set(ctx context.Context, cred *model.Credential) error {
	s.mu.Lock()
	s.current = clone(cred)
	s.mu.Unlock()

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := s.store.Save(ctx, data); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, cause error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.Info("session rejected, clearing credential", slog.Any("error", cause))
	if err := s.Clear(ctx); err != nil {
		s.logger.Warn("credential clear failed", slog.Any("error", err))
	}
	return fmt.Errorf("%w: %w", ErrSessionInvalid, cause)
}

func clone(c *model.Credential) *model.Credential {
	if c == nil {
		return nil
	}
	out := *c
	if c.Profile != nil {
		p := *c.Profile
		out.Profile = &p
	}
	return &out
}
