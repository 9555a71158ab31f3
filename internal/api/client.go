package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TokenResponse is returned by the auth endpoints.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// UserProfile describes the authenticated user.
type UserProfile struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// LoginResponse is returned by the login endpoint.
type LoginResponse struct {
	TokenResponse
	User UserProfile `json:"user"`
}

// Client is the HTTP client for the Skemmarize API. Authenticated calls go
// through an AuthTransport that injects the access token and performs
// single-flight refresh on 401; the auth endpoints themselves use a bare
// client so a failing refresh cannot recurse.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	bareClient *http.Client
	sessions   SessionProvider
	transport  *AuthTransport
}

// NewClient creates a new API client.
func NewClient(baseURL string, timeoutSeconds int, sessions SessionProvider) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  time.Duration(timeoutSeconds) * time.Second,
		sessions: sessions,
	}

	c.transport = &AuthTransport{
		Base:     http.DefaultTransport,
		Sessions: sessions,
		Refresh:  c.refreshSession,
	}
	c.httpClient = &http.Client{
		Transport: c.transport,
		// The deadline covers a possible interposed refresh plus replay.
		Timeout: c.timeout + defaultRefreshTimeout,
	}
	c.bareClient = &http.Client{Timeout: c.timeout}

	return c
}

// OnSessionExpired registers the hook fired when the session terminally
// expires (refresh rejected). Wired by the composition root.
func (c *Client) OnSessionExpired(fn func()) {
	c.transport.OnSessionExpired = fn
}

// SetRefreshTimeout bounds how long requests wait for an in-flight refresh.
// The client deadline stretches with it so the waiter timeout, not the
// transport deadline, is what fires on a hung refresh.
func (c *Client) SetRefreshTimeout(d time.Duration) {
	c.transport.RefreshTimeout = d
	c.httpClient.Timeout = c.timeout + d
}

// Get performs an authenticated GET request.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, "GET", path, nil, "")
}

// Post performs an authenticated POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.do(ctx, "POST", path, data, "application/json")
}

// do executes an authenticated request. The Authorization header is attached
// by the transport, which also retries once after a successful refresh.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	if c.sessions.AccessToken() == "" {
		return nil, fmt.Errorf("not authenticated. Run `skemmarize login`")
	}

	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return respBody, nil
	default:
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}
}

// Login calls the login endpoint with email/password credentials.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	respBody, err := c.postBare(ctx, PathAuthLogin, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var login LoginResponse
	if err := unwrapJSON(respBody, &login); err != nil {
		return nil, err
	}
	return &login, nil
}

// Logout revokes the stored refresh token server-side. Best-effort: local
// session teardown does not depend on it succeeding. Goes through the
// authenticated pipeline, so an expired access token refreshes on the way.
func (c *Client) Logout(ctx context.Context) error {
	refreshToken := c.sessions.RefreshToken()
	if refreshToken == "" {
		return nil
	}
	_, err := c.Post(ctx, PathAuthLogout, map[string]string{
		"refresh_token": refreshToken,
	})
	return err
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*UserProfile, error) {
	data, err := c.Get(ctx, PathAuthMe)
	if err != nil {
		return nil, err
	}

	var profile UserProfile
	if err := unwrapJSON(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// refreshSession exchanges the stored refresh token for a new pair and
// persists it. Used by the AuthTransport; goes through the bare client.
func (c *Client) refreshSession(ctx context.Context) error {
	refreshToken := c.sessions.RefreshToken()
	if refreshToken == "" {
		return ErrUnauthorized
	}

	respBody, err := c.postBare(ctx, PathAuthRefresh, map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return err
	}

	var tokens TokenResponse
	if err := unwrapJSON(respBody, &tokens); err != nil {
		return err
	}
	if tokens.AccessToken == "" {
		return fmt.Errorf("refresh returned empty access token")
	}

	return c.sessions.UpdateTokens(tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt)
}

// postBare sends a JSON POST without going through the auth transport.
// Only the credential endpoints use it: they authenticate with their own
// payloads, and routing them around the transport keeps a failing refresh
// from recursing.
func (c *Client) postBare(ctx context.Context, path string, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.bareClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return respBody, nil
	default:
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}
}

// unwrapJSON parses a response that may arrive wrapped as { "data": {...} },
// falling back to a flat parse.
func unwrapJSON(data []byte, v interface{}) error {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && len(wrapper.Data) > 0 {
		return json.Unmarshal(wrapper.Data, v)
	}
	return json.Unmarshal(data, v)
}
