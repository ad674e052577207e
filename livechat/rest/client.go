package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Client provides access to the identity provider's HTTP API.
type Client struct {
	baseURL    string
	appID      string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

// NewClient creates a new identity API client.
// baseURL should be the base URL of the API, e.g., "https://api.example.com".
func NewClient(baseURL, appID string) *Client {
	return &Client{
		baseURL: baseURL,
		appID:   appID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the refresh token for authenticated requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current refresh token, empty when signed out.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// AuthorizationURL returns the URL that starts the OAuth redirect flow for the
// named client. No request is made.
func (c *Client) AuthorizationURL(clientName, redirectURL string) (string, error) {
	if clientName == "" {
		return "", errors.New("empty client name")
	}
	u, err := url.Parse(c.baseURL + "/runtime/oauth/start")
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("app_id", c.appID)
	q.Set("client_name", clientName)
	q.Set("redirect_uri", redirectURL)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeCode completes the redirect flow and stores the returned token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	var resp TokenResponse
	req := ExchangeCodeRequest{AppID: c.appID, Code: code}
	if err := c.post(ctx, "/runtime/oauth/token", req, &resp, false); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// CurrentUser returns the signed-in account, or nil when the token is missing
// or no longer valid.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	if c.Token() == "" {
		return nil, nil
	}
	var resp UserResponse
	if err := c.get(ctx, "/runtime/auth/user", &resp, true); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
			return nil, nil
		}
		return nil, err
	}
	return resp.User, nil
}

// SignOut revokes the current token. The local token is cleared even when the
// request fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.token = ""
	c.mu.Unlock()
	if token == "" {
		return nil
	}
	return c.post(ctx, "/runtime/signout", SignOutRequest{AppID: c.appID, RefreshToken: token}, nil, false)
}

// Helper methods

func (c *Client) post(ctx context.Context, path string, body, dest any, requireAuth bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token := c.Token(); requireAuth && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any, requireAuth bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if token := c.Token(); requireAuth && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return &StatusError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	if dest != nil && len(body) > 0 {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
