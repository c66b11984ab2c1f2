package goSession

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// apiClient speaks the backend's auth protocol. It owns no state beyond the
// HTTP client; all token handling stays in Session.
type apiClient struct {
	baseURL string
	cfg     APIConfig
	http    *http.Client
}

func newAPIClient(cfg APIConfig, client *http.Client) *apiClient {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &apiClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:     cfg,
		http:    client,
	}
}

type loginResponse struct {
	Success bool `json:"success"`
	Tokens  struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	} `json:"tokens"`
	User *IdentityUser `json:"user"`
}

// login posts credentials. A 401/403 maps to ErrInvalidCredentials; any
// other non-2xx or transport failure wraps ErrLoginUnavailable.
func (c *apiClient) login(ctx context.Context, username, password string) (*loginResponse, error) {
	body := map[string]string{"username": username, "password": password}

	resp, err := c.postJSON(ctx, c.cfg.LoginPath, body, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginUnavailable, err)
	}
	defer drainClose(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidCredentials
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: unexpected response %d", ErrLoginUnavailable, resp.StatusCode)
	}

	var parsed loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrLoginUnavailable, err)
	}
	if !parsed.Success || parsed.Tokens.AccessToken == "" || parsed.Tokens.RefreshToken == "" {
		return nil, fmt.Errorf("%w: response missing token pair", ErrLoginUnavailable)
	}
	return &parsed, nil
}

// refresh exchanges a refresh token for a new access token. Any non-2xx
// response or transport failure is one error: the caller fails closed and
// never retries.
func (c *apiClient) refresh(ctx context.Context, refreshToken string) (string, error) {
	body := map[string]string{"refreshToken": refreshToken}

	resp, err := c.postJSON(ctx, c.cfg.RefreshPath, body, "")
	if err != nil {
		return "", err
	}
	defer drainClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("refresh rejected with status %d", resp.StatusCode)
	}

	var parsed struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("refresh response missing access token")
	}
	return parsed.AccessToken, nil
}

// status asks the backend who this session is. A 401 is expected data —
// it decodes to an unauthenticated identity, not an error. Any other
// non-2xx wraps ErrStatusUnavailable.
func (c *apiClient) status(ctx context.Context, accessToken string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.cfg.StatusPath, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrStatusUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrStatusUnavailable, err)
	}
	defer drainClose(resp)

	if resp.StatusCode == http.StatusUnauthorized {
		return Identity{Authenticated: false}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Identity{}, fmt.Errorf("%w: unexpected response %d", ErrStatusUnavailable, resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return Identity{}, fmt.Errorf("%w: decode response: %v", ErrStatusUnavailable, err)
	}
	return identity, nil
}

// logout is best-effort server-side bookkeeping. The caller clears local
// tokens regardless of this call's outcome.
func (c *apiClient) logout(ctx context.Context, accessToken string) error {
	resp, err := c.postJSON(ctx, c.cfg.LogoutPath, struct{}{}, accessToken)
	if err != nil {
		return err
	}
	defer drainClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("logout rejected with status %d", resp.StatusCode)
	}
	return nil
}

func (c *apiClient) postJSON(ctx context.Context, path string, body any, bearer string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return c.http.Do(req)
}

func drainClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
