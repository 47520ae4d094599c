// Package middleware contains HTTP middleware for the rinsr admin gateway.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/DukeRupert/rinsr/internal/metrics"
	"github.com/DukeRupert/rinsr/internal/session"
)

// LoginPath is the dashboard login page unauthenticated navigations are sent to.
const LoginPath = "/auth/login"

// =============================================================================
// Session Gate
// =============================================================================

// Access classifies a request path for the session gate.
type Access int

const (
	// AccessOpen paths are neither public nor protected and are not enforced.
	AccessOpen Access = iota
	// AccessPublic paths always pass through.
	AccessPublic
	// AccessProtected paths require the session cookie.
	AccessProtected
)

// Classify returns the gate's view of a request path.
//
//	/auth, /auth/...            public
//	/api/auth/login, /, /favicon.ico public
//	/dashboard, /dashboard/...  protected
//	anything else               open
func Classify(path string) Access {
	switch {
	case path == "/" || path == "/favicon.ico" || path == "/api/auth/login":
		return AccessPublic
	case underPrefix(path, "/auth"):
		return AccessPublic
	case underPrefix(path, "/dashboard"):
		return AccessProtected
	default:
		return AccessOpen
	}
}

// SessionGate redirects browser navigations to protected pages back to the
// login page when the request carries no session token. The original path
// travels along as the "from" query parameter.
//
// Only presence is checked here. Token validity is decided by the upstream
// API on the first proxied call.
func SessionGate(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Classify(r.URL.Path) != AccessProtected || session.Token(r) != "" {
				next.ServeHTTP(w, r)
				return
			}

			target := LoginPath + "?from=" + url.QueryEscape(r.URL.Path)

			logger.Debug("redirecting unauthenticated request to login",
				"path", r.URL.Path,
				"request_id", RequestID(r.Context()),
			)
			metrics.GateRedirectsTotal.Inc()

			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
		})
	}
}

// underPrefix reports whether path is prefix itself or a path below it.
// "/authors" is not under "/auth".
func underPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// =============================================================================
// Middleware Composition
// =============================================================================

// Stack composes multiple middleware into a single middleware.
// Middleware are applied in order, so the first middleware in the list
// is the outermost (executes first on request, last on response).
//
// Usage:
//
//	stack := middleware.Stack(
//	    metrics.Middleware,
//	    logging.Handler,
//	    middleware.SessionGate(logger),
//	)
//	handler := stack(mux)
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
