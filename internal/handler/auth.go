package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/rinsr/internal/domain"
	"github.com/DukeRupert/rinsr/internal/metrics"
	"github.com/DukeRupert/rinsr/internal/session"
	"github.com/DukeRupert/rinsr/internal/upstream"
)

// LoginLimiter settles the slot a login attempt took when it arrived.
// Attempts rejected on credentials keep it.
type LoginLimiter interface {
	// ReleaseLogin gives the slot back (bad input, upstream outage).
	ReleaseLogin(r *http.Request)
	// ResetLogin clears the client's window after a successful login.
	ResetLogin(r *http.Request)
}

// AuthHandler handles session routes: login and logout. The profile
// (/api/auth/me) is a plain proxied endpoint.
type AuthHandler struct {
	client   *upstream.Client
	limiter  LoginLimiter
	logger   *slog.Logger
	isSecure bool
}

// NewAuthHandler creates a new AuthHandler. limiter may be nil.
func NewAuthHandler(
	client *upstream.Client,
	limiter LoginLimiter,
	logger *slog.Logger,
	isSecure bool,
) *AuthHandler {
	return &AuthHandler{
		client:   client,
		limiter:  limiter,
		logger:   logger,
		isSecure: isSecure,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers the session routes with the provided mux.
// limitLogin wraps the login route (rate limiting); it may be nil.
//
// Routes:
// - POST /api/auth/login  -> Login
// - POST /api/auth/logout -> Logout
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, limitLogin func(http.Handler) http.Handler) {
	var login http.Handler = http.HandlerFunc(h.Login)
	if limitLogin != nil {
		login = limitLogin(login)
	}
	mux.Handle("POST /api/auth/login", login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
}

// =============================================================================
// POST /api/auth/login
// =============================================================================

// Login forwards credentials to the upstream login endpoint. The issued
// token is stored in the session cookie and removed from the payload
// returned to the browser. A reply without a token is still a success, but
// no cookie is set.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "auth.login"

	outcome := "error"
	defer func() { h.settle(r, outcome) }()

	if _, err := h.client.Root(); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	body, err := decodeBody(w, r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if body == nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Email and password are required"))
		return
	}

	resp, err := h.client.Do(r.Context(), "", upstream.Request{
		Resource:    "auth",
		Method:      http.MethodPost,
		Path:        upstream.Path("auth", "login"),
		Body:        body,
		FailMessage: "Login failed",
	})
	if err != nil {
		if status := domain.UpstreamStatus(err); status >= 400 && status < 500 {
			outcome = "rejected"
		}
		metrics.LoginAttempt(outcome)
		ErrorResponse(w, r, h.logger, err)
		return
	}

	token := upstream.ExtractToken(resp.Payload)
	if token != "" {
		session.SetCookie(w, token, h.isSecure)
		outcome = "success"
	} else {
		outcome = "no_token"
		h.logger.Warn("login succeeded without a token in the upstream reply")
	}
	metrics.LoginAttempt(outcome)

	message := upstream.MessageOf(resp.Payload)
	if message == "" {
		message = "Login successful"
	}

	respondOK(w, http.StatusOK, upstream.StripToken(resp.Payload), message)
}

// settle returns or clears the limiter slot taken by a login attempt.
func (h *AuthHandler) settle(r *http.Request, outcome string) {
	if h.limiter == nil {
		return
	}
	switch outcome {
	case "rejected":
	case "success", "no_token":
		h.limiter.ResetLogin(r)
	default:
		h.limiter.ReleaseLogin(r)
	}
}

// =============================================================================
// POST /api/auth/logout
// =============================================================================

// Logout clears the session cookie. The upstream token is not revoked; it
// simply stops being sent.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session.ClearCookie(w, h.isSecure)

	h.logger.Debug("session cleared")

	respondOK(w, http.StatusOK, nil, "Logged out successfully")
}
