// Package upstream is the HTTP client for the remote EcoFlow backend. All
// durable state lives there; this client only attaches cached bearer tokens,
// recovers once from access-token expiry, and decodes responses.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"EcoFlowOps/internal/config"
	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/models"
)

// TokenSource provides the cached session tokens. Implementations own
// persistence; the client only reads the pair and reports outcomes.
type TokenSource interface {
	Tokens() *models.TokenPair
	SetAccess(access string)
	Clear()
	// AccessExpired reports whether the cached access token's exp claim has
	// already lapsed, so a request certain to 401 can refresh first.
	AccessExpired(now time.Time) bool
}

// APIError is a non-2xx backend response with its decoded message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *logger.Logger
}

func New(cfg *config.UpstreamConfig, tokens TokenSource, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		tokens: tokens,
		log:    log,
	}
}

// endpoint builds the full URL. The backend requires a trailing slash on
// every collection and resource path; without it, POST bodies are lost to a
// redirect.
func (c *Client) endpoint(path string, query url.Values) string {
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do issues one request, attaching the cached access token when present.
// On a 401 with a refresh token available, it refreshes once and retries the
// original request exactly once with the new access token. A failed refresh
// clears the cached pair and surfaces the original 401.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	pair := c.currentTokens()

	// A token already known to be expired is refreshed up front instead of
	// burning a round trip on a guaranteed 401. A failed proactive refresh is
	// not fatal here; the 401 path below makes the final call.
	if pair != nil && pair.Refresh != "" && c.tokens.AccessExpired(time.Now()) {
		if newAccess, err := c.refresh(ctx, pair.Refresh); err == nil {
			c.tokens.SetAccess(newAccess)
			pair.Access = newAccess
		} else {
			c.log.Debug("Proactive token refresh failed: %v", err)
		}
	}

	resp, err := c.send(ctx, method, path, query, payload, accessOf(pair))
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && pair != nil && pair.Refresh != "" {
		originalErr := c.drainError(resp)

		newAccess, refreshErr := c.refresh(ctx, pair.Refresh)
		if refreshErr != nil {
			c.log.Warn("Token refresh failed, clearing cached session: %v", refreshErr)
			if c.tokens != nil {
				c.tokens.Clear()
			}
			return originalErr
		}

		if c.tokens != nil {
			c.tokens.SetAccess(newAccess)
		}

		resp, err = c.send(ctx, method, path, query, payload, newAccess)
		if err != nil {
			return err
		}
	}

	return c.decode(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, access string) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	return resp, nil
}

// refresh exchanges the refresh token for a new access token.
func (c *Client) refresh(ctx context.Context, refreshToken string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"refresh": refreshToken})

	resp, err := c.send(ctx, http.MethodPost, "/auth/refresh", nil, payload, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("refresh rejected with status %d", resp.StatusCode)
	}

	var data struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if data.Access == "" {
		return "", fmt.Errorf("refresh response carried no access token")
	}
	return data.Access, nil
}

// decode consumes the response, converting non-2xx into *APIError using the
// backend's detail/message conventions. 204 responses carry no body.
func (c *Client) decode(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.readError(resp)
	}

	if resp.StatusCode == http.StatusNoContent || out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}

// drainError reads and closes an error response so the connection can be
// reused before the retry.
func (c *Client) drainError(resp *http.Response) error {
	defer resp.Body.Close()
	return c.readErrorBody(resp)
}

func (c *Client) readError(resp *http.Response) error {
	return c.readErrorBody(resp)
}

func (c *Client) readErrorBody(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	msg := resp.Status
	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if detail, ok := parsed["detail"].(string); ok && detail != "" {
			msg = detail
		} else if m, ok := parsed["message"].(string); ok && m != "" {
			msg = m
		} else if len(parsed) > 0 {
			msg = string(raw)
		}
	} else if len(strings.TrimSpace(string(raw))) > 0 {
		msg = strings.TrimSpace(string(raw))
	}

	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func (c *Client) currentTokens() *models.TokenPair {
	if c.tokens == nil {
		return nil
	}
	return c.tokens.Tokens()
}

func accessOf(pair *models.TokenPair) string {
	if pair == nil {
		return ""
	}
	return pair.Access
}

// Forward relays a request to the backend verbatim: same method, path,
// query, body, and Authorization header. Used by the proxy passthrough
// routes, which must return the upstream status and body unmodified.
func (c *Client) Forward(ctx context.Context, method, path string, query url.Values, body []byte, authHeader string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build proxy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("proxy request failed: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read proxy response: %w", err)
	}
	return resp.StatusCode, out, nil
}
