// Package remote talks to the ledger web app over its single endpoint.
//
// Reads are GET <endpoint>?action=<name>; mutations are POSTed to the same
// URL with a {"action", "payload"} JSON body. A response carrying an
// "error" field is the only way the ledger reports business failures.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"feedesk/internal/core"
	"feedesk/internal/ledger"
	applog "feedesk/internal/log"
)

// ErrEndpointNotConfigured is returned when the endpoint is empty or still
// holds the deployment placeholder.
var ErrEndpointNotConfigured = errors.New("ledger endpoint not configured")

const placeholderMarker = "REPLACE_WITH"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 16 << 20

type Client struct {
	endpoint  *url.URL
	http      *http.Client
	indicator ledger.Indicator
	logger    *applog.Logger
}

// Ensure interface conformance
var _ ledger.Ledger = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the default client. The default has no timeout:
// a call lasts until it settles or the caller's context is done.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithIndicator(ind ledger.Indicator) Option {
	return func(c *Client) { c.indicator = ind }
}

func WithLogger(l *applog.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(applog.ComponentLedger) }
}

// New creates a client for the given endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || strings.Contains(endpoint, placeholderMarker) {
		return nil, ErrEndpointNotConfigured
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse ledger endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("ledger endpoint scheme %q: must be http or https", u.Scheme)
	}

	c := &Client{
		endpoint:  u,
		http:      &http.Client{},
		indicator: ledger.NoIndicator,
		logger:    applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentLedger),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type envelope struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
}

// Call dispatches one action. A nil payload makes it a GET. The loading
// signal is raised before dispatch and cleared once the call settles.
func (c *Client) Call(ctx context.Context, action string, payload any) (json.RawMessage, error) {
	c.indicator.SetLoading(true)
	defer c.indicator.SetLoading(false)

	start := time.Now()
	method := http.MethodGet
	if payload != nil {
		method = http.MethodPost
	}

	body, err := c.do(ctx, method, action, payload)
	fields := applog.NewFields().
		WithAction(action).
		WithOperation(method).
		WithDuration(time.Since(start))
	if err != nil {
		c.logger.WarnContext(ctx, "Ledger call failed", fields.WithError(err).ToSlice()...)
		return nil, err
	}
	c.logger.DebugContext(ctx, "Ledger call completed", fields.ToSlice()...)
	return body, nil
}

func (c *Client) do(ctx context.Context, method, action string, payload any) (json.RawMessage, error) {
	u := *c.endpoint
	q := u.Query()
	q.Set("action", action)
	u.RawQuery = q.Encode()

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(envelope{Action: action, Payload: payload})
		if err != nil {
			return nil, &core.TransportError{Action: action, Err: fmt.Errorf("encode payload: %w", err)}
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, &core.TransportError{Action: action, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &core.TransportError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &core.TransportError{Action: action, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.TransportError{Action: action, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	if !json.Valid(raw) {
		return nil, &core.TransportError{Action: action, Err: errors.New("response is not valid JSON")}
	}
	if msg, ok := remoteError(raw); ok {
		return nil, &core.RemoteLedgerError{Action: action, Message: msg}
	}
	return json.RawMessage(raw), nil
}

// remoteError extracts the "error" field of an object response.
func remoteError(raw []byte) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var errBody struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &errBody); err != nil || len(errBody.Error) == 0 {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(errBody.Error, &msg); err == nil {
		msg = strings.TrimSpace(msg)
		return msg, msg != ""
	}
	switch string(errBody.Error) {
	case "null", "false":
		return "", false
	}
	return string(errBody.Error), true
}
