// Package client talks to the Data API: it opens sessions, sends find
// requests built by package query, and hydrates typed records from the
// responses.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"FMQuery/internal/config"
	"FMQuery/internal/logger"
)

// The Data API drops idle sessions after 15 minutes.
const sessionTTL = 14 * time.Minute

type Client struct {
	cfg    config.DataAPIConfig
	http   *http.Client
	tokens TokenStore

	// serializes session creation so concurrent callers share one login
	sessionMu sync.Mutex
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.tokens = s }
}

func New(cfg config.DataAPIConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Server) == "" {
		return nil, errors.New("data api server is required")
	}
	if strings.TrimSpace(cfg.Database) == "" {
		return nil, errors.New("data api database is required")
	}
	cfg.Server = strings.TrimRight(cfg.Server, "/")
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		tokens: NewMemoryTokenStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) databaseURL() string {
	return c.cfg.Server + "/fmi/data/v1/databases/" + url.PathEscape(c.cfg.Database)
}

func (c *Client) layoutURL(layout string) string {
	return c.databaseURL() + "/layouts/" + url.PathEscape(layout)
}

func (c *Client) tokenKey() string {
	return c.cfg.Server + "/" + c.cfg.Database + "/" + c.cfg.User
}

// token returns the cached session token or logs in for a new one.
func (c *Client) token(ctx context.Context) (string, error) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	tok, err := c.tokens.Get(ctx, c.tokenKey())
	if err != nil {
		logger.WarnCtx(ctx, "token_store_get_failed", map[string]any{"error": err.Error()})
	}
	if tok != "" {
		return tok, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.databaseURL()+"/sessions", strings.NewReader("{}"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.User, c.cfg.Password)
	body, status, err := c.roundTrip(ctx, req)
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	env, err := decodeEnvelope(body)
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	if err := env.err(status); err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	if env.Response.Token == "" {
		return "", errors.New("open session: empty token")
	}
	if err := c.tokens.Set(ctx, c.tokenKey(), env.Response.Token, sessionTTL); err != nil {
		logger.WarnCtx(ctx, "token_store_set_failed", map[string]any{"error": err.Error()})
	}
	logger.InfoCtx(ctx, "session_opened", map[string]any{"database": c.cfg.Database})
	return env.Response.Token, nil
}

// Logout closes the cached session, if any.
func (c *Client) Logout(ctx context.Context) error {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	tok, err := c.tokens.Get(ctx, c.tokenKey())
	if err != nil || tok == "" {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.databaseURL()+"/sessions/"+url.PathEscape(tok), nil)
	if err != nil {
		return err
	}
	body, status, err := c.roundTrip(ctx, req)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if cerr := c.tokens.Clear(ctx, c.tokenKey()); cerr != nil {
		logger.WarnCtx(ctx, "token_store_clear_failed", map[string]any{"error": cerr.Error()})
	}
	env, err := decodeEnvelope(body)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return env.err(status)
}

// call performs an authenticated request against the Data API.
func (c *Client) call(ctx context.Context, method, target string, payload []byte) ([]byte, int, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, 0, err
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	respBody, status, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	if status == http.StatusUnauthorized {
		if cerr := c.tokens.Clear(ctx, c.tokenKey()); cerr != nil {
			logger.WarnCtx(ctx, "token_store_clear_failed", map[string]any{"error": cerr.Error()})
		}
	}
	return respBody, status, nil
}

func (c *Client) roundTrip(ctx context.Context, req *http.Request) ([]byte, int, error) {
	rid := logger.RequestID(ctx)
	if rid == "" {
		rid = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", rid)
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.ErrorCtx(ctx, "data_api_request_failed", map[string]any{
			"method": req.Method,
			"path":   req.URL.Path,
			"error":  err.Error(),
		})
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	logger.DebugCtx(ctx, "data_api_call", map[string]any{
		"method":      req.Method,
		"path":        req.URL.Path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return body, resp.StatusCode, nil
}
