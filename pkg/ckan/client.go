// CLAUDE:SUMMARY CKAN Action API client: one GET per call, 30s timeout, envelope decoding and error classification.
package ckan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds every CKAN call. There is no retry.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent identifies this server to CKAN portals.
	DefaultUserAgent = "CKAN-MCP-Server/1.0"

	// DefaultMaxResponseSize caps a CKAN response body. Larger bodies fail
	// rather than being decoded truncated.
	DefaultMaxResponseSize = 64 << 20
)

// Client calls the Action API of any CKAN portal. The portal is chosen per
// call, so one Client serves every server_url. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	maxBody    int64
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets the http.Client requests are sent with. The client is
// copied, never modified; nil keeps the default.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxResponseSize caps the response body read per call.
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger used for debug tracing of calls.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client with the default timeout and User-Agent.
func NewClient(opts ...Option) *Client {
	c := &Client{
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		maxBody:   DefaultMaxResponseSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	var hc http.Client
	if c.httpClient != nil {
		hc = *c.httpClient
	}
	hc.Timeout = c.timeout
	c.httpClient = &hc
	return c
}

// Timeout returns the configured request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// ActionURL returns {serverURL}/api/3/action/{action}, with one trailing slash
// stripped from serverURL.
func ActionURL(serverURL, action string) string {
	return strings.TrimSuffix(serverURL, "/") + "/api/3/action/" + action
}

type envelope struct {
	Success *bool           `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// Do calls action on serverURL and returns the raw "result" member of the
// envelope. Any failure is returned as *Error.
func (c *Client) Do(ctx context.Context, serverURL, action string, params *Params) (json.RawMessage, error) {
	endpoint := ActionURL(serverURL, action)
	if q := params.Encode(); q != "" {
		endpoint += "?" + q
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Server: serverURL, Message: err.Error(), Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("ckan request failed", "action", action, "server", serverURL, "error", err)
		return nil, classifyTransportError(serverURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, classifyTransportError(serverURL, fmt.Errorf("read response: %w", err))
	}
	if int64(len(body)) > c.maxBody {
		c.logger.Debug("ckan response too large", "action", action, "server", serverURL, "limit", c.maxBody)
		return nil, &Error{
			Kind:    KindNetwork,
			Server:  serverURL,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("response from %s exceeds %d bytes", serverURL, c.maxBody),
			Err:     ErrResponseTooLarge,
		}
	}
	c.logger.Debug("ckan request",
		"action", action,
		"server", serverURL,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:    KindHTTP,
			Server:  serverURL,
			Status:  resp.StatusCode,
			Message: httpErrorMessage(body),
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Success == nil || !*env.Success {
		return nil, &Error{Kind: KindUnsuccessful, Server: serverURL, Status: resp.StatusCode, Message: rawEnvelope(body)}
	}
	if len(env.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return env.Result, nil
}

// httpErrorMessage extracts error.message, then error, from a CKAN error body.
func httpErrorMessage(body []byte) string {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Error) == 0 || string(env.Error) == "null" {
		return "Unknown error"
	}

	var detail struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(env.Error, &detail); err == nil {
		if msg, ok := detail.Message.(string); ok && msg != "" {
			return msg
		}
	}

	var s string
	if err := json.Unmarshal(env.Error, &s); err == nil {
		if s == "" {
			return "Unknown error"
		}
		return s
	}
	return string(env.Error)
}

// rawEnvelope renders the response body compactly for error messages.
func rawEnvelope(body []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err == nil {
		return buf.String()
	}
	quoted, _ := json.Marshal(string(body))
	return string(quoted)
}

// PackageSearch calls package_search.
func (c *Client) PackageSearch(ctx context.Context, serverURL string, opts PackageSearchOptions) (json.RawMessage, error) {
	params, err := opts.Params()
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, serverURL, ActionPackageSearch, params)
}

// PackageShow calls package_show.
func (c *Client) PackageShow(ctx context.Context, serverURL string, opts PackageShowOptions) (json.RawMessage, error) {
	params, err := opts.Params()
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, serverURL, ActionPackageShow, params)
}

// OrganizationList calls organization_list.
func (c *Client) OrganizationList(ctx context.Context, serverURL string, opts OrganizationListOptions) (json.RawMessage, error) {
	params, err := opts.Params()
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, serverURL, ActionOrganizationList, params)
}

// OrganizationShow calls organization_show.
func (c *Client) OrganizationShow(ctx context.Context, serverURL string, opts OrganizationShowOptions) (json.RawMessage, error) {
	params, err := opts.Params()
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, serverURL, ActionOrganizationShow, params)
}

// DatastoreSearch calls datastore_search.
func (c *Client) DatastoreSearch(ctx context.Context, serverURL string, opts DatastoreSearchOptions) (json.RawMessage, error) {
	params, err := opts.Params()
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, serverURL, ActionDatastoreSearch, params)
}

// StatusShow calls status_show, which takes no parameters.
func (c *Client) StatusShow(ctx context.Context, serverURL string) (json.RawMessage, error) {
	return c.Do(ctx, serverURL, ActionStatusShow, nil)
}

// ResourceShow calls resource_show.
func (c *Client) ResourceShow(ctx context.Context, serverURL, id string) (json.RawMessage, error) {
	p := NewParams()
	p.Set("id", id)
	return c.Do(ctx, serverURL, ActionResourceShow, p)
}
