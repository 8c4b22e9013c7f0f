// Package auth establishes and maintains a brokerage session.
//
// A Session is created by Login, which exchanges credentials for a
// session token at the /sessions endpoint. The session token is what
// every subsequent REST call carries in its Authorization header, so
// Session satisfies the api package's TokenSource. When the brokerage
// rejects a stale token, Refresh re-logs-in, preferring the single-use
// remember token over the stored password.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

var (
	// ErrMissingCredentials indicates a login attempt without a usable
	// password or remember token.
	ErrMissingCredentials = errors.New("auth: missing credentials")

	// ErrLoginFailed indicates the brokerage rejected the login.
	ErrLoginFailed = errors.New("auth: login failed")
)

// Credentials are the inputs to a session login.
type Credentials struct {
	Login      string
	Password   string
	RememberMe bool
}

// User describes the authenticated customer.
type User struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	ExternalID string `json:"external-id"`
}

// Session holds a live session token and knows how to renew it.
// All methods are safe for concurrent use.
type Session struct {
	baseURL    string
	login      string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string

	// refreshMu serializes login round trips so a burst of 401s
	// produces a single /sessions call.
	refreshMu sync.Mutex

	mu            sync.Mutex
	sessionToken  string
	rememberToken string
	user          User
}

// Option configures the login behavior.
type Option func(*Session)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) { s.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Session) { s.userAgent = ua }
}

// Login creates a session against the given API base URL.
func Login(ctx context.Context, baseURL string, creds Credentials, opts ...Option) (*Session, error) {
	if creds.Login == "" || creds.Password == "" {
		return nil, ErrMissingCredentials
	}

	s := &Session{
		baseURL:    baseURL,
		login:      creds.Login,
		password:   creds.Password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		userAgent:  "tastygo",
	}
	for _, opt := range opts {
		opt(s)
	}

	body := loginRequest{
		Login:      creds.Login,
		Password:   creds.Password,
		RememberMe: creds.RememberMe,
	}
	if err := s.postSessions(ctx, body); err != nil {
		return nil, err
	}

	s.logger.Info("session established", "username", s.user.Username)
	return s, nil
}

// Token returns the current session token.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionToken
}

// User returns the authenticated user's details.
func (s *Session) User() User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Refresh re-establishes the session after a token rejection. The
// remember token is preferred when present; it is single-use, so the
// response always replaces it. Concurrent callers serialize on one
// login round trip: whoever arrives while a refresh is in flight waits
// for it and reuses the new token.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	stale := s.sessionToken
	s.mu.Unlock()

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.Lock()
	current, remember := s.sessionToken, s.rememberToken
	s.mu.Unlock()
	if current != stale {
		// Another caller refreshed while we waited.
		return nil
	}

	body := loginRequest{Login: s.login, RememberMe: true}
	switch {
	case remember != "":
		body.RememberToken = remember
	case s.password != "":
		body.Password = s.password
	default:
		return ErrMissingCredentials
	}

	s.logger.Debug("refreshing session", "login", s.login, "via-remember-token", remember != "")
	return s.postSessions(ctx, body)
}

type loginRequest struct {
	Login         string `json:"login"`
	Password      string `json:"password,omitempty"`
	RememberMe    bool   `json:"remember-me"`
	RememberToken string `json:"remember-token,omitempty"`
}

type loginResponse struct {
	User          User   `json:"user"`
	SessionToken  string `json:"session-token"`
	RememberToken string `json:"remember-token"`
}

type loginEnvelope struct {
	Data  *loginResponse `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Session) postSessions(ctx context.Context, body loginRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sessions", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post sessions: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read login response: %w", err)
	}

	var env loginEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("%w: status %d", ErrLoginFailed, resp.StatusCode)
		}
		return fmt.Errorf("unmarshal login response: %w", err)
	}

	if resp.StatusCode >= 400 || env.Error != nil {
		if env.Error != nil {
			return fmt.Errorf("%w: %s (%s)", ErrLoginFailed, env.Error.Message, env.Error.Code)
		}
		return fmt.Errorf("%w: status %d", ErrLoginFailed, resp.StatusCode)
	}
	if env.Data == nil || env.Data.SessionToken == "" {
		return fmt.Errorf("%w: response missing session token", ErrLoginFailed)
	}

	s.mu.Lock()
	s.sessionToken = env.Data.SessionToken
	s.rememberToken = env.Data.RememberToken
	s.user = env.Data.User
	s.mu.Unlock()

	return nil
}
