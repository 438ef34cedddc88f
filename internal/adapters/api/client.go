// Package api is the single egress point for every backend call. It attaches
// bearer tokens, bounds each request with a timeout, and performs the silent
// refresh-and-retry dance when an access token expires mid-flight.
package api

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

	"golang.org/x/sync/singleflight"

	"github.com/essencia-app/essencia-cli/internal/domain"
	"github.com/essencia-app/essencia-cli/internal/logging"
	"github.com/essencia-app/essencia-cli/internal/ports"
)

const maxResponseBytes = 1 << 20

const defaultTimeout = 10 * time.Second

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Tokens     ports.TokenStore
	Logger     logging.Logger
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	tokens     ports.TokenStore
	log        logging.Logger

	// refreshGroup coalesces concurrent 401-triggered refreshes into a
	// single call so parallel requests cannot race each other into
	// invalidating the refresh token.
	refreshGroup singleflight.Group

	// onSessionEnd tells the session layer to drop its in-memory user after
	// an irrecoverable refresh failure.
	onSessionEnd func()

	citiesMu sync.Mutex
	cities   map[string][]string
}

func NewClient(cfg Config) (*Client, error) {
	baseURL, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token store is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop{}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		timeout:    timeout,
		tokens:     cfg.Tokens,
		log:        log,
		cities:     map[string][]string{},
	}, nil
}

// SetSessionEndHook registers the callback fired once when the gateway gives
// up on a session (refresh failed, or a second 401 after refresh).
func (c *Client) SetSessionEndHook(fn func()) {
	c.onSessionEnd = fn
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	// noAuth skips the bearer header and the 401 refresh-retry. Set for the
	// auth endpoints themselves to keep a bad login from looping.
	noAuth bool
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, noAuth bool) error {
	req := request{method: method, path: path, noAuth: noAuth}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		req.body = body
		req.contentType = "application/json"
	}
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	// The attempt counter replaces any hidden per-request retry flag: attempt
	// zero may refresh and go again, attempt one is final.
	return c.doAttempt(ctx, req, out, 0)
}

func (c *Client) doAttempt(ctx context.Context, req request, out any, attempt int) error {
	endpoint, err := c.endpoint(req.path, req.query)
	if err != nil {
		return err
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	var body io.Reader
	if len(req.body) > 0 {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(reqCtx, req.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create %s %s request: %w", req.method, req.path, err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	if !req.noAuth {
		if access, err := c.tokens.Get(ctx, domain.StorageKeyAccessToken); err == nil && access != "" {
			httpReq.Header.Set("Authorization", "Bearer "+access)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return wrapTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized && !req.noAuth {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes)) //nolint:errcheck
		if attempt > 0 {
			// Second 401 in a row: the refreshed token was rejected too.
			c.endSession(ctx)
			return fmt.Errorf("request rejected after token refresh: %w", domain.ErrSessionExpired)
		}
		c.log.Debug(ctx, "access token rejected, refreshing", "path", req.path)
		if _, err := c.refreshAccessToken(ctx); err != nil {
			return err
		}
		return c.doAttempt(ctx, req, out, attempt+1)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.method, req.path, err)
	}
	return nil
}

type refreshResponse struct {
	Access string `json:"access"`
}

// refreshAccessToken exchanges the stored refresh token for a new access
// token. Concurrent callers share a single in-flight exchange. Any failure is
// terminal for the session: tokens are cleared and the session-end hook runs.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		refreshToken, err := c.tokens.Get(ctx, domain.StorageKeyRefreshToken)
		if err != nil || refreshToken == "" {
			return nil, fmt.Errorf("no refresh token: %w", domain.ErrSessionExpired)
		}

		var res refreshResponse
		payload := map[string]string{"refresh": refreshToken}
		if err := c.doJSON(ctx, http.MethodPost, "/auth/refresh/", payload, &res, true); err != nil {
			return nil, fmt.Errorf("refresh access token: %w: %w", domain.ErrSessionExpired, err)
		}
		if res.Access == "" {
			return nil, fmt.Errorf("refresh response missing access token: %w", domain.ErrSessionExpired)
		}

		if err := c.tokens.Put(ctx, domain.StorageKeyAccessToken, res.Access); err != nil {
			return nil, fmt.Errorf("store refreshed access token: %w", err)
		}
		return res.Access, nil
	})
	if err != nil {
		c.endSession(ctx)
		return "", err
	}
	return v.(string), nil
}

func (c *Client) endSession(ctx context.Context) {
	for _, key := range []string{
		domain.StorageKeyAccessToken,
		domain.StorageKeyRefreshToken,
		domain.StorageKeyProfessionalID,
		domain.StorageKeyJustVerifiedEmail,
	} {
		if err := c.tokens.Delete(ctx, key); err != nil {
			c.log.Warn(ctx, "clear stored token", "key", key, "error", err)
		}
	}
	if c.onSessionEnd != nil {
		c.onSessionEnd()
	}
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) endpoint(path string, query url.Values) (string, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	endpoint, err := parsed.Parse(relativePath(path))
	if err != nil {
		return "", fmt.Errorf("parse api path %q: %w", path, err)
	}
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}
	return endpoint.String(), nil
}

// relativePath keeps URL resolution from eating the base path prefix.
func relativePath(path string) string {
	if len(path) > 0 && path[0] == '/' {
		return "." + path
	}
	return path
}

func normalizeBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", errors.New("api base url is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("api base url host is required")
	}
	if parsed.Path == "" || parsed.Path[len(parsed.Path)-1] != '/' {
		parsed.Path += "/"
	}
	return parsed.String(), nil
}
