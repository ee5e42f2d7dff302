// Package httpx is the single request/response wrapper every outbound call
// goes through. It owns start/stop structured logging with elapsed time and
// typed failure translation; retries and backoff belong to the caller.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/v-kyrychenko/ka4-today-bot/apperr"
)

const maxLoggedBodyBytes = 1000

type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

type Client struct {
	http *http.Client
	log  *slog.Logger
}

func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: 90 * time.Second},
		log:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Request describes one call against a named external endpoint.
type Request struct {
	Method  string
	BaseURL string
	Path    string
	Header  http.Header
	// Body is JSON-encoded when non-nil. GET requests carry no body.
	Body any
	// Label names the endpoint in logs, e.g. "openai:responses".
	Label string
	// ExposeBody logs the response body verbatim instead of "#hidden".
	ExposeBody bool
	// Fail translates a failure into the caller's error kind. status is the
	// remote status code, zero for transport-level failures. Defaults to
	// apperr.RemoteService.
	Fail func(status int, msg string) error
}

func (r Request) fail(status int, msg string) error {
	if r.Fail != nil {
		return r.Fail(status, msg)
	}
	return apperr.RemoteService("%s", msg).WithRemoteStatus(status)
}

// Do issues the request once and decodes the JSON response into out when
// out is non-nil. Transport failures and non-success statuses are returned
// through the request's Fail translation; the response body attached for
// diagnostics is truncated.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	url := req.BaseURL + req.Path

	var bodyReader io.Reader
	printableBody := "null"
	if req.Body != nil && req.Method != http.MethodGet {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return req.fail(0, "encode request body for "+req.Path+": "+err.Error())
		}
		bodyReader = bytes.NewReader(b)
		printableBody = truncate(string(b))
	}

	log := c.log.With("label", req.Label, "method", req.Method, "url", url)
	log.Info("http_call_start", "body_bytes", len(printableBody))
	log.Debug("http_call_body", "body", printableBody)
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		return req.fail(0, "build "+req.Label+" request to "+req.Path+": "+err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Error("http_call_error",
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err.Error(),
		)
		return req.fail(0, "failed "+req.Label+" request to "+req.Path+": "+err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("http_call_error",
			"elapsed_ms", time.Since(start).Milliseconds(),
			"status", resp.StatusCode,
			"error", err.Error(),
		)
		return req.fail(0, "read "+req.Label+" response from "+req.Path+": "+err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error("http_call_stop",
			"elapsed_ms", time.Since(start).Milliseconds(),
			"status", resp.StatusCode,
			"response", truncate(string(raw)),
		)
		return req.fail(resp.StatusCode,
			"failed "+req.Label+" request to "+req.Path+": "+truncate(string(raw)))
	}

	logged := "#hidden"
	if req.ExposeBody {
		logged = truncate(string(raw))
	}
	log.Info("http_call_stop",
		"elapsed_ms", time.Since(start).Milliseconds(),
		"status", resp.StatusCode,
		"response", logged,
	)

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return req.fail(resp.StatusCode,
			"decode "+req.Label+" response from "+req.Path+": "+err.Error())
	}
	return nil
}

func truncate(s string) string {
	if len(s) <= maxLoggedBodyBytes {
		return s
	}
	return s[:maxLoggedBodyBytes] + "...[truncated]"
}
