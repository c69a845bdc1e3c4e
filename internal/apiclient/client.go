// Package apiclient is the typed HTTP client for the storefront backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/example/ec-storefront/internal/logging"
)

// RequestIDHeader carries a per-call correlation id
const RequestIDHeader = "X-Request-ID"

// maxBodySize caps how much of a response body is read
const maxBodySize = 8 << 20

// TokenSource supplies and stores bearer tokens. session.Store implements it.
type TokenSource interface {
	AccessToken(ctx context.Context) string
	RefreshToken(ctx context.Context) string
	UpdateTokens(ctx context.Context, accessToken, refreshToken string) error
}

// Config configures the client
type Config struct {
	BaseURL string
	// Timeout of zero leaves requests bounded only by the caller's context
	Timeout    time.Duration
	HTTPClient *http.Client
	Tokens     TokenSource

	// RefreshEnabled turns on the one-shot refresh-and-replay on 401
	RefreshEnabled bool
	// OnUnauthorized runs when a token-bearing request still ends in 401
	OnUnauthorized func(ctx context.Context)
}

// Client talks to one backend base URL. It never retries and never caches.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	tokens         TokenSource
	refreshEnabled bool
	onUnauthorized func(ctx context.Context)

	refreshMu sync.Mutex
	log       *logrus.Entry
}

// New creates a client from cfg
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        cfg.BaseURL,
		tokens:         cfg.Tokens,
		refreshEnabled: cfg.RefreshEnabled,
		onUnauthorized: cfg.OnUnauthorized,
		log:            logging.Component("api-client"),
	}
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one backend call
type request struct {
	method string
	path   string
	// route is the templated path used as the metrics label
	route       string
	query       url.Values
	body        any
	rawBody     []byte
	contentType string
	// anonymous calls never carry a bearer token and never trigger a refresh
	anonymous bool
}

type response struct {
	status int
	body   []byte
}

// do runs req and decodes a successful body into out when out is non-nil.
// requiredKeys are checked with gjson before decoding.
func (c *Client) do(ctx context.Context, req request, out any, requiredKeys ...string) error {
	payload, contentType, err := req.encode()
	if err != nil {
		return err
	}

	token := ""
	if !req.anonymous && c.tokens != nil {
		token = c.tokens.AccessToken(ctx)
	}

	resp, err := c.send(ctx, req, payload, contentType, token)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized && token != "" {
		resp, err = c.handleUnauthorized(ctx, req, payload, contentType, token, resp)
		if err != nil {
			return err
		}
	}

	if resp.status < 200 || resp.status >= 300 {
		return newError(resp.status, resp.body)
	}

	if out == nil {
		return nil
	}
	return decodeObject(resp.body, out, requiredKeys...)
}

// doList is do for endpoints returning a top-level JSON array
func (c *Client) doList(ctx context.Context, req request, out any) error {
	var raw json.RawMessage
	if err := c.do(ctx, req, &raw); err != nil {
		return err
	}
	if !gjson.ParseBytes(raw).IsArray() {
		return fmt.Errorf("%w: expected array from %s", ErrUnexpectedShape, req.path)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return nil
}

// handleUnauthorized refreshes the tokens once and replays the request once.
// Concurrent callers share a single refresh.
func (c *Client) handleUnauthorized(ctx context.Context, req request, payload []byte, contentType, usedToken string, resp response) (response, error) {
	if !c.refreshEnabled || req.anonymous {
		c.unauthorized(ctx)
		return resp, nil
	}

	newToken, ok := c.refresh(ctx, usedToken)
	if !ok {
		c.unauthorized(ctx)
		return resp, nil
	}

	replayed, err := c.send(ctx, req, payload, contentType, newToken)
	if err != nil {
		return response{}, err
	}
	if replayed.status == http.StatusUnauthorized {
		c.unauthorized(ctx)
	}
	return replayed, nil
}

func (c *Client) refresh(ctx context.Context, usedToken string) (string, bool) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// another caller already refreshed while we waited
	if current := c.tokens.AccessToken(ctx); current != "" && current != usedToken {
		return current, true
	}

	refreshToken := c.tokens.RefreshToken(ctx)
	if refreshToken == "" {
		tokenRefreshes.WithLabelValues("no_token").Inc()
		return "", false
	}

	auth, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		tokenRefreshes.WithLabelValues("failed").Inc()
		c.log.WithError(err).Warn("token refresh failed")
		return "", false
	}
	if err := c.tokens.UpdateTokens(ctx, auth.AccessToken, auth.RefreshToken); err != nil {
		tokenRefreshes.WithLabelValues("failed").Inc()
		c.log.WithError(err).Warn("failed to store refreshed tokens")
		return "", false
	}

	tokenRefreshes.WithLabelValues("ok").Inc()
	c.log.Info("access token refreshed")
	return auth.AccessToken, true
}

func (c *Client) unauthorized(ctx context.Context) {
	if c.onUnauthorized != nil {
		c.onUnauthorized(ctx)
	}
}

func (c *Client) send(ctx context.Context, req request, payload []byte, contentType, token string) (response, error) {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, bodyReader)
	if err != nil {
		return response{}, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(RequestIDHeader, requestID)

	route := req.route
	if route == "" {
		route = req.path
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	elapsed := time.Since(start)
	requestDuration.WithLabelValues(req.method, route).Observe(elapsed.Seconds())

	entry := c.log.WithFields(logrus.Fields{
		"method":     req.method,
		"path":       req.path,
		"request_id": requestID,
		"duration":   elapsed.String(),
	})

	if err != nil {
		requestsTotal.WithLabelValues(req.method, route, "error").Inc()
		entry.WithError(err).Warn("request failed")
		return response{}, &TransportError{Method: req.method, Path: req.path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		requestsTotal.WithLabelValues(req.method, route, "error").Inc()
		return response{}, &TransportError{Method: req.method, Path: req.path, Err: err}
	}

	requestsTotal.WithLabelValues(req.method, route, strconv.Itoa(resp.StatusCode)).Inc()
	entry.WithField("status", resp.StatusCode).Debug("request completed")

	return response{status: resp.StatusCode, body: body}, nil
}

func (r request) encode() ([]byte, string, error) {
	if r.rawBody != nil {
		return r.rawBody, r.contentType, nil
	}
	if r.body == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(r.body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	return data, "application/json", nil
}

func decodeObject(body []byte, out any, requiredKeys ...string) error {
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("%w: body is not valid JSON", ErrUnexpectedShape)
	}
	for _, key := range requiredKeys {
		if !gjson.GetBytes(body, key).Exists() {
			return fmt.Errorf("%w: missing %q", ErrUnexpectedShape, key)
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return nil
}

func pageQuery(page, size int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	return q
}

func idPath(prefix string, id int64, suffix ...string) string {
	p := prefix + "/" + strconv.FormatInt(id, 10)
	for _, s := range suffix {
		p += s
	}
	return p
}
