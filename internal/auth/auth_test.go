package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

func loginServer(t *testing.T, handler func(req map[string]any) (status int, resp string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sessions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode login body: %v", err)
		}
		status, resp := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(resp))
	}))
}

func TestLogin(t *testing.T) {
	server := loginServer(t, func(req map[string]any) (int, string) {
		if req["login"] != "trader@example.com" {
			t.Errorf("login = %v", req["login"])
		}
		if req["password"] != "hunter2" {
			t.Errorf("password = %v", req["password"])
		}
		if req["remember-me"] != true {
			t.Errorf("remember-me = %v", req["remember-me"])
		}
		return http.StatusCreated, `{"data": {
			"user": {"email": "trader@example.com", "username": "trader", "external-id": "ext-1"},
			"session-token": "sess-1",
			"remember-token": "rem-1"
		}}`
	})
	defer server.Close()

	s, err := Login(context.Background(), server.URL, Credentials{
		Login:      "trader@example.com",
		Password:   "hunter2",
		RememberMe: true,
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if got := s.Token(); got != "sess-1" {
		t.Errorf("Token = %q, want %q", got, "sess-1")
	}
	if got := s.User().Username; got != "trader" {
		t.Errorf("Username = %q, want %q", got, "trader")
	}
}

func TestLogin_MissingCredentials(t *testing.T) {
	_, err := Login(context.Background(), "https://api.example.com", Credentials{Login: "user"})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("err = %v, want ErrMissingCredentials", err)
	}
}

func TestLogin_Rejected(t *testing.T) {
	server := loginServer(t, func(map[string]any) (int, string) {
		return http.StatusUnauthorized, `{"error": {"code": "invalid_credentials", "message": "Invalid login"}}`
	})
	defer server.Close()

	_, err := Login(context.Background(), server.URL, Credentials{Login: "u", Password: "p"})
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("err = %v, want ErrLoginFailed", err)
	}
}

func TestSession_RefreshUsesRememberToken(t *testing.T) {
	var logins atomic.Int32
	server := loginServer(t, func(req map[string]any) (int, string) {
		n := logins.Add(1)
		if n == 1 {
			return http.StatusCreated, `{"data": {
				"user": {"username": "trader"},
				"session-token": "sess-1",
				"remember-token": "rem-1"
			}}`
		}
		// Renewal must present the remember token, not the password.
		if req["remember-token"] != "rem-1" {
			t.Errorf("remember-token = %v", req["remember-token"])
		}
		if _, hasPassword := req["password"]; hasPassword {
			t.Error("refresh should not resend the password when a remember token exists")
		}
		return http.StatusCreated, `{"data": {
			"user": {"username": "trader"},
			"session-token": "sess-2",
			"remember-token": "rem-2"
		}}`
	})
	defer server.Close()

	s, err := Login(context.Background(), server.URL, Credentials{Login: "u", Password: "p", RememberMe: true})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := s.Token(); got != "sess-2" {
		t.Errorf("Token after refresh = %q, want %q", got, "sess-2")
	}
	if got := logins.Load(); got != 2 {
		t.Errorf("logins = %d, want 2", got)
	}
}

func TestSession_ConcurrentRefreshSingleFlight(t *testing.T) {
	const refreshers = 8

	var logins atomic.Int32
	var entered sync.WaitGroup
	entered.Add(refreshers)

	server := loginServer(t, func(map[string]any) (int, string) {
		n := logins.Add(1)
		if n > 1 {
			// Hold the refresh response until every goroutine is inside
			// Refresh, so they all observe the same stale token.
			entered.Wait()
		}
		return http.StatusCreated, `{"data": {
			"user": {"username": "trader"},
			"session-token": "sess-` + string(rune('0'+n)) + `",
			"remember-token": "rem-1"
		}}`
	})
	defer server.Close()

	s, err := Login(context.Background(), server.URL, Credentials{Login: "u", Password: "p"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < refreshers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entered.Done()
			if err := s.Refresh(context.Background()); err != nil {
				t.Errorf("Refresh failed: %v", err)
			}
		}()
	}
	wg.Wait()

	// One login for the initial session, one shared refresh.
	if got := logins.Load(); got != 2 {
		t.Errorf("logins = %d, want 2", got)
	}
}
