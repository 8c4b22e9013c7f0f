package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Error represents a structured rejection from the brokerage API.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	Details    []ErrorDetail
}

// ErrorDetail is one entry of a compound brokerage error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("brokerage error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("brokerage error %d: %s", e.StatusCode, e.Message)
}

// IsAuth reports whether the error is a credential/token rejection.
func (e *Error) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// envelope is the standard response wrapper.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Context string          `json:"context"`
	Error   *wireError      `json:"error"`
}

type wireError struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Errors  []ErrorDetail `json:"errors"`
}

// do performs a request, decoding the data envelope into result (which may
// be nil). On a 401 it refreshes the token once and retries; all other
// failures surface immediately. Blind retries of order-mutating calls
// risk duplicate submission.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, result any) error {
	err := c.doOnce(ctx, method, path, query, payload, result)
	if err == nil {
		return nil
	}

	apiErr, ok := err.(*Error)
	if !ok || !apiErr.IsAuth() || c.tokens == nil {
		return err
	}

	c.logger.Debug("session token rejected, refreshing", "path", path)
	if rerr := c.tokens.Refresh(ctx); rerr != nil {
		return fmt.Errorf("refresh session: %w", rerr)
	}

	return c.doOnce(ctx, method, path, query, payload, result)
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, payload, result any) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, respBody)
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Data == nil {
		return fmt.Errorf("response missing data field")
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("unmarshal response data: %w", err)
	}

	return nil
}

// decodeError turns a non-2xx response into a *Error, keeping the
// brokerage code and message when the body parses.
func decodeError(status int, body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		return &Error{
			StatusCode: status,
			Code:       env.Error.Code,
			Message:    env.Error.Message,
			Details:    env.Error.Errors,
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{StatusCode: status, Message: msg}
}

// get performs a GET request.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, result)
}

// post performs a POST request with a JSON payload.
func (c *Client) post(ctx context.Context, path string, payload, result any) error {
	return c.do(ctx, http.MethodPost, path, nil, payload, result)
}

// put performs a PUT request with a JSON payload.
func (c *Client) put(ctx context.Context, path string, payload, result any) error {
	return c.do(ctx, http.MethodPut, path, nil, payload, result)
}

// del performs a DELETE request.
func (c *Client) del(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, result)
}
