// Package handler contains the HTTP handlers of the rinsr admin gateway.
//
// Almost every API route is a proxy: it reads the session token, forwards
// the request to the upstream REST API and answers with the uniform
// envelope. Routes are declared as Endpoint values (see resources.go) and
// served by one generic ProxyHandler.
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/DukeRupert/rinsr/internal/domain"
	"github.com/DukeRupert/rinsr/internal/session"
	"github.com/DukeRupert/rinsr/internal/upstream"
)

// maxJSONBody bounds inbound JSON bodies forwarded upstream.
const maxJSONBody = 1 << 20

// =============================================================================
// Endpoint Schema
// =============================================================================

// Endpoint declares one proxied route: how the inbound request maps onto an
// upstream call and how the reply is shaped for the dashboard.
type Endpoint struct {
	// Resource labels logs, metrics and spans ("services", "orders", ...).
	Resource string

	Method string

	// Pattern is the inbound ServeMux path, e.g. "/api/services/{id}".
	Pattern string

	// Upstream is the path below the API root. "{name}" segments are filled
	// from the matching inbound path values, escaped.
	Upstream string

	// Query lists the inbound query parameters forwarded upstream.
	Query []string

	// StrictJSON reports an undecodable upstream reply as 502 instead of
	// treating it as an empty object.
	StrictJSON bool

	// FailMessage is used when a failed upstream reply has no message.
	FailMessage string

	// OKMessage is used when a successful upstream reply has no message.
	OKMessage string

	// Reshape converts the upstream payload into the envelope's data.
	// Nil passes the payload through unchanged.
	Reshape func(payload any) (any, error)
}

// Op names the endpoint in errors, e.g. "services.put".
func (e Endpoint) Op() string {
	return e.Resource + "." + strings.ToLower(e.Method)
}

// hasBody reports whether the inbound body is forwarded.
func (e Endpoint) hasBody() bool {
	switch e.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// upstreamPath expands the Upstream template with the request's path values.
func (e Endpoint) upstreamPath(r *http.Request) string {
	parts := strings.Split(strings.Trim(e.Upstream, "/"), "/")
	for i, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			parts[i] = r.PathValue(p[1 : len(p)-1])
		}
	}
	return upstream.Path(parts...)
}

// =============================================================================
// Proxy Handler
// =============================================================================

// ProxyHandler serves Endpoint routes through the upstream client.
type ProxyHandler struct {
	client    *upstream.Client
	endpoints []Endpoint
	logger    *slog.Logger
}

// NewProxyHandler creates a ProxyHandler for the given endpoints.
func NewProxyHandler(client *upstream.Client, endpoints []Endpoint, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		client:    client,
		endpoints: endpoints,
		logger:    logger,
	}
}

// RegisterRoutes registers every endpoint with the provided mux.
func (h *ProxyHandler) RegisterRoutes(mux *http.ServeMux) {
	for _, ep := range h.endpoints {
		mux.Handle(ep.Method+" "+ep.Pattern, h.Handle(ep))
	}
}

// Handle returns the handler for one endpoint.
//
// Preconditions are checked in order: upstream configured (500), session
// token present (401). Only then is the upstream called.
func (h *ProxyHandler) Handle(ep Endpoint) http.Handler {
	return requireSession(h.logger, h.client.Root, func(w http.ResponseWriter, r *http.Request, token string) {
		req := upstream.Request{
			Resource:    ep.Resource,
			Method:      ep.Method,
			Path:        ep.upstreamPath(r),
			Query:       forwardQuery(r, ep.Query),
			StrictJSON:  ep.StrictJSON,
			FailMessage: ep.FailMessage,
		}

		if ep.hasBody() {
			body, err := decodeBody(w, r, ep.Op())
			if err != nil {
				ErrorResponse(w, r, h.logger, err)
				return
			}
			req.Body = body
		}

		resp, err := h.client.Do(r.Context(), token, req)
		if err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}

		data := resp.Payload
		if ep.Reshape != nil {
			data, err = ep.Reshape(resp.Payload)
			if err != nil {
				ErrorResponse(w, r, h.logger, err)
				return
			}
		}

		message := upstream.MessageOf(resp.Payload)
		if message == "" {
			message = ep.OKMessage
		}

		respondOK(w, successStatus(resp.Status), data, message)
	})
}

// =============================================================================
// Helpers
// =============================================================================

// sessionFunc is a handler that received the caller's session token.
type sessionFunc func(w http.ResponseWriter, r *http.Request, token string)

// requireSession reads the session token once at the boundary and hands it to
// next. checkConfig, when non-nil, runs first so a misconfigured gateway
// reports 500 before any 401.
func requireSession(logger *slog.Logger, checkConfig func() (string, error), next sessionFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if checkConfig != nil {
			if _, err := checkConfig(); err != nil {
				ErrorResponse(w, r, logger, err)
				return
			}
		}

		token := session.Token(r)
		if token == "" {
			UnauthorizedResponse(w, r, logger)
			return
		}

		next(w, r, token)
	})
}

// decodeBody reads an inbound JSON body. An empty body yields nil.
func decodeBody(w http.ResponseWriter, r *http.Request, op string) (any, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.TooLarge(op, "Request body is too large")
		}
		return nil, domain.Invalid(op, "Failed to read request body")
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, domain.Invalid(op, "Request body must be valid JSON")
	}
	return body, nil
}

// forwardQuery copies the listed, non-empty query parameters.
func forwardQuery(r *http.Request, keys []string) url.Values {
	if len(keys) == 0 {
		return nil
	}
	in := r.URL.Query()
	out := url.Values{}
	for _, k := range keys {
		if v := strings.TrimSpace(in.Get(k)); v != "" {
			out.Set(k, v)
		}
	}
	return out
}

// successStatus relays the upstream 2xx status; 204 becomes 200 because the
// envelope always has a body.
func successStatus(status int) int {
	if status == http.StatusNoContent || status < 200 || status > 299 {
		return http.StatusOK
	}
	return status
}
