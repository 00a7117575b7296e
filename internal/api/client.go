package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/remsmachous/jo-storefront/internal/store"
)

const refreshPath = "/api/accounts/token/refresh"

// Client talks to the ticketing backend. It owns bearer-token storage and the
// 401 refresh-and-retry protocol: at most one refresh per logical call, and
// concurrent 401s collapse into a single refresh through the singleflight
// group. A failed refresh clears both tokens and the original 401 is what the
// caller sees.
type Client struct {
	base  string
	http  *http.Client
	store store.Store
	log   *slog.Logger

	refreshGroup singleflight.Group
}

func NewClient(baseURL string, hc *http.Client, st store.Store, log *slog.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		http:  hc,
		store: st,
		log:   log,
	}
}

// AccessToken returns the stored access token, empty when absent.
func (c *Client) AccessToken() string {
	return c.token(store.KeyAccess)
}

// RefreshToken returns the stored refresh token, empty when absent.
func (c *Client) RefreshToken() string {
	return c.token(store.KeyRefresh)
}

// SetTokens persists the given tokens. Empty arguments leave the stored
// counterpart untouched, so a refresh can rotate the access token alone.
func (c *Client) SetTokens(access, refresh string) {
	if access != "" {
		if err := c.store.Set(store.KeyAccess, []byte(access)); err != nil {
			c.log.Warn("access token write failed", "err", err)
		}
	}
	if refresh != "" {
		if err := c.store.Set(store.KeyRefresh, []byte(refresh)); err != nil {
			c.log.Warn("refresh token write failed", "err", err)
		}
	}
}

// ClearTokens drops both tokens. Best effort, never fails.
func (c *Client) ClearTokens() {
	if err := c.store.Delete(store.KeyAccess); err != nil {
		c.log.Warn("access token delete failed", "err", err)
	}
	if err := c.store.Delete(store.KeyRefresh); err != nil {
		c.log.Warn("refresh token delete failed", "err", err)
	}
}

func (c *Client) token(key string) string {
	data, err := c.store.Get(key)
	if err != nil {
		return ""
	}
	return string(data)
}

// do runs one logical call: request id assigned once, refresh budget of one.
func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	return c.doOnce(ctx, method, path, body, uuid.NewString(), true)
}

func (c *Client) doOnce(ctx context.Context, method, path string, body any, requestID string, retry bool) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	text, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized && retry {
		if refresh := c.RefreshToken(); refresh != "" {
			if c.tryRefresh(ctx, refresh) {
				return c.doOnce(ctx, method, path, body, requestID, false)
			}
			c.ClearTokens()
		}
	}

	payload := parsePayload(text)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Payload: payload}
	}
	return text, nil
}

// tryRefresh exchanges the refresh token for a new access token. Concurrent
// callers share one in-flight exchange; the refresh token itself is never
// rotated here.
func (c *Client) tryRefresh(ctx context.Context, refresh string) bool {
	ok, _, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		data, err := json.Marshal(map[string]string{"refresh": refresh})
		if err != nil {
			return false, nil
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+refreshPath, bytes.NewReader(data))
		if err != nil {
			return false, nil
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			c.log.Debug("token refresh failed", "err", err)
			return false, nil
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			c.log.Debug("token refresh rejected", "status", resp.StatusCode)
			return false, nil
		}

		var out struct {
			Access string `json:"access"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Access == "" {
			return false, nil
		}
		c.SetTokens(out.Access, "")
		return true, nil
	})
	return ok.(bool)
}

// parsePayload decodes the response body, synthesizing a detail payload when
// the body is empty or not valid JSON.
func parsePayload(text []byte) any {
	trimmed := bytes.TrimSpace(text)
	if len(trimmed) == 0 {
		return map[string]any{"detail": "Invalid JSON response"}
	}
	var payload any
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return map[string]any{"detail": string(text)}
	}
	return payload
}
