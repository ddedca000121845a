package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mcoot/aiventure/internal/api/apierr"
	"github.com/mcoot/aiventure/internal/api/middleware"
	"github.com/mcoot/aiventure/internal/api/request"
	"github.com/mcoot/aiventure/internal/api/response"
)

// ErrEmptyResponse is returned when the server answers 2xx with a null body
// where a record was expected
var ErrEmptyResponse = errors.New("empty response")

const defaultTimeout = 30 * time.Second

// Client is an HTTP client for the authentication service
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client. A nil httpClient gets a default one
// with request logging.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   defaultTimeout,
			Transport: middleware.Logging(logger.With(slog.String("component", "api")), nil),
		}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// do performs an HTTP request and decodes a 2xx JSON body into result.
// Non-2xx replies become *apierr.Error.
func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, contentType string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apierr.FromResponse(resp.StatusCode, respBody)
	}

	trimmed := bytes.TrimSpace(respBody)
	if result == nil || len(trimmed) == 0 {
		return nil
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal(trimmed, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path, token string, result any) error {
	return c.do(ctx, http.MethodGet, path, token, nil, "", result)
}

func (c *Client) postJSON(ctx context.Context, path, token string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, token, bytes.NewReader(data), "application/json", result)
}

// Authenticate exchanges an email and password for a bearer token
func (c *Client) Authenticate(ctx context.Context, form request.LoginForm) (*response.Token, error) {
	var tok response.Token
	err := c.do(ctx, http.MethodPost, "/api/auth/authenticate", "",
		strings.NewReader(form.Values().Encode()), "application/x-www-form-urlencoded", &tok)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, ErrEmptyResponse
	}
	return &tok, nil
}

// Me fetches the user the token belongs to
func (c *Client) Me(ctx context.Context, token string) (*response.User, error) {
	var user response.User
	if err := c.getJSON(ctx, "/api/auth/me", token, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser registers a new account. The server answers null when the
// email is already taken, reported as ErrEmptyResponse.
func (c *Client) CreateUser(ctx context.Context, req request.RegisterRequest) (*response.User, error) {
	var user response.User
	if err := c.postJSON(ctx, "/api/auth/create", "", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Verify confirms the account's email address with a one-time code
func (c *Client) Verify(ctx context.Context, token string, req request.VerifyRequest) error {
	return c.postJSON(ctx, "/api/auth/verify", token, req, nil)
}

// Refresh trades a still-valid token for a fresh one
func (c *Client) Refresh(ctx context.Context, token string) (*response.Token, error) {
	var tok response.Token
	if err := c.getJSON(ctx, "/api/auth/refresh", token, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, ErrEmptyResponse
	}
	return &tok, nil
}

// Health checks server health
func (c *Client) Health(ctx context.Context) (*response.Health, error) {
	var h response.Health
	if err := c.getJSON(ctx, "/health", "", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Version reports the server version
func (c *Client) Version(ctx context.Context) (*response.Version, error) {
	var v response.Version
	if err := c.getJSON(ctx, "/version", "", &v); err != nil {
		return nil, err
	}
	return &v, nil
}
