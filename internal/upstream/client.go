package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/DukeRupert/rinsr/internal/domain"
	"github.com/DukeRupert/rinsr/internal/metrics"
	"github.com/DukeRupert/rinsr/internal/tracing"
)

// maxBodyBytes caps how much of an upstream reply is read into memory.
const maxBodyBytes = 10 << 20

// =============================================================================
// Request / Response
// =============================================================================

// Request describes one call to the upstream API.
type Request struct {
	// Resource labels the call in logs, metrics and spans (e.g. "services").
	Resource string

	Method string

	// Path is relative to the API root, built with Path().
	Path string

	// Query is appended to the URL when non-empty.
	Query url.Values

	// Body is JSON-encoded when non-nil.
	Body any

	// StrictJSON turns an undecodable reply into a BadGateway error instead
	// of an empty object.
	StrictJSON bool

	// FailMessage is used when a failed upstream reply carries no message.
	FailMessage string
}

// Response is a successful (2xx) upstream reply.
type Response struct {
	Status  int
	Payload any
}

// =============================================================================
// Client
// =============================================================================

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the configured upstream base URL. It may be empty; every
	// call then fails with a configuration error.
	BaseURL string

	// Timeout bounds a single upstream call. Ignored when HTTPClient is set.
	Timeout time.Duration

	// HTTPClient overrides the default client (tests use httptest servers).
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client forwards dashboard requests to the upstream API. It holds no
// per-request state and is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		logger:  logger,
	}
}

// Root returns the normalized API root, or the configuration error every
// call would fail with.
func (c *Client) Root() (string, error) {
	return APIRoot(c.baseURL)
}

// Do performs one upstream call authenticated with token. An empty token
// sends no Authorization header (used by login).
//
// Errors are always *domain.Error:
//   - ECONFIG when no base URL is configured (no call is made)
//   - EINTERNAL for transport failures, carrying the failure text
//   - EBADGATEWAY for undecodable replies when req.StrictJSON is set
//   - EUPSTREAM for non-2xx replies, carrying the upstream status
//
// The outbound call is detached from ctx cancellation: a browser that goes
// away does not abort a mutation already in flight.
func (c *Client) Do(ctx context.Context, token string, req Request) (*Response, error) {
	op := req.Resource + "." + strings.ToLower(req.Method)

	root, err := APIRoot(c.baseURL)
	if err != nil {
		return nil, err
	}

	target := root + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, domain.Server(err, op, "Failed to encode request body")
		}
		body = bytes.NewReader(encoded)
	}

	ctx, span := tracing.StartSpan(context.WithoutCancel(ctx), "upstream "+req.Method+" "+req.Resource,
		attribute.String("http.request.method", req.Method),
		attribute.String("rinsr.resource", req.Resource),
	)
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, domain.Server(err, op, "Failed to build upstream request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if req.Method == http.MethodGet {
		// Dashboard reads always show live state.
		httpReq.Header.Set("Cache-Control", "no-store")
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.UpstreamFailed(req.Resource, req.Method, "error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.logger.Error("upstream request failed",
			"op", op,
			"error", err,
		)
		return nil, domain.Server(err, op, "Internal server error")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.UpstreamFailed(req.Resource, req.Method, "error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failure")
		return nil, domain.Server(err, op, "Internal server error")
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	payload, err := decode(raw)
	if err != nil {
		if req.StrictJSON {
			metrics.UpstreamFailed(req.Resource, req.Method, "bad_gateway", time.Since(start))
			span.SetStatus(codes.Error, "non-JSON reply")
			c.logger.Warn("upstream returned non-JSON body",
				"op", op,
				"status", resp.StatusCode,
				"content_type", resp.Header.Get("Content-Type"),
			)
			return nil, domain.BadGateway(err, op, "Upstream returned an invalid response")
		}
		payload = map[string]any{}
	}

	metrics.UpstreamCompleted(req.Resource, req.Method, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, fmt.Sprintf("upstream status %d", resp.StatusCode))
		message := MessageOf(payload)
		if message == "" {
			message = req.FailMessage
		}
		c.logger.Info("upstream rejected request",
			"op", op,
			"status", resp.StatusCode,
			"message", message,
		)
		return nil, domain.Upstream(op, resp.StatusCode, message, errorOf(payload))
	}

	c.logger.Debug("upstream request",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Response{Status: resp.StatusCode, Payload: payload}, nil
}

// =============================================================================
// Payload helpers
// =============================================================================

// decode parses an upstream body. An empty body is an empty object.
func decode(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return map[string]any{}, nil
	}
	return payload, nil
}

// MessageOf returns the payload's "message" field when it is a non-empty string.
func MessageOf(payload any) string {
	m, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m["message"].(string)
	return strings.TrimSpace(s)
}

// errorOf returns the payload's "error" field, if any.
func errorOf(payload any) any {
	m, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	return m["error"]
}
