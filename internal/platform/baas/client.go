// Package baas holds the HTTP plumbing shared by the identity (GoTrue) and
// data (PostgREST) clients of the hosted backend.
package baas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"adminconsole/pkg/platform/sentinel"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
)

// APIError is a non-2xx response from the backend. Both services report
// failures as a JSON object; the fields below cover either dialect.
type APIError struct {
	Status           int    `json:"-"`
	Code             string `json:"code"`
	ErrorCode        string `json:"error_code"`
	Err              string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Details          string `json:"details"`
}

func (e *APIError) Error() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Err} {
		if s != "" {
			return fmt.Sprintf("backend %d: %s", e.Status, s)
		}
	}
	return fmt.Sprintf("backend %d", e.Status)
}

// Description returns the most specific human readable message.
func (e *APIError) Description() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Err} {
		if s != "" {
			return s
		}
	}
	return http.StatusText(e.Status)
}

// Client sends authenticated JSON requests to the backend.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// New returns a client for baseURL authenticated with the project api key.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, sentinel.ErrInvalidInput)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("backend api key is required: %w", sentinel.ErrInvalidInput)
	}

	c := &Client{
		baseURL: u.String(),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized backend url without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request describes a single backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header

	// Bearer overrides the api key in the Authorization header.
	Bearer string
}

// Do performs req and decodes a 2xx JSON body into out (when non-nil).
// Transport failures wrap sentinel.ErrUnavailable; non-2xx responses are
// returned as *APIError.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	bearer := req.Bearer
	if bearer == "" {
		bearer = c.apiKey
	}
	httpReq.Header.Set("apikey", c.apiKey)
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", req.Method, req.Path, ctxErr)
		}
		return fmt.Errorf("%s %s: %w: %v", req.Method, req.Path, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if len(raw) > 0 {
			if jsonErr := json.Unmarshal(raw, apiErr); jsonErr != nil {
				apiErr.Message = strings.TrimSpace(string(raw))
			}
		}
		c.logger.DebugContext(ctx, "backend request failed",
			"method", req.Method,
			"path", req.Path,
			"status", resp.StatusCode,
			"code", apiErr.Code,
		)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.Path, err)
	}
	return nil
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
