package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Metrics Auth Middleware Tests
// =============================================================================

func metricsHandler(user, pass string) http.Handler {
	return NewMetricsAuthMiddleware(user, pass, testLogger()).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("metrics data"))
	}))
}

func TestMetricsAuthMiddleware_Credentials(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		pass     string
		send     bool
		expected int
	}{
		{"valid", "admin", "secret123", true, http.StatusOK},
		{"wrong password", "admin", "wrong", true, http.StatusUnauthorized},
		{"wrong user", "wrong", "secret123", true, http.StatusUnauthorized},
		{"empty credentials", "", "", true, http.StatusUnauthorized},
		{"no credentials", "", "", false, http.StatusUnauthorized},
	}

	h := metricsHandler("admin", "secret123")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.send {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.expected, rec.Code)
			if tt.expected == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="metrics"`, rec.Header().Get("WWW-Authenticate"))
			} else {
				assert.Equal(t, "metrics data", rec.Body.String())
			}
		})
	}
}

func TestMetricsAuthMiddleware_RejectsMalformedAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Basic notvalidbase64!!!")
	rec := httptest.NewRecorder()

	metricsHandler("admin", "secret123").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsAuthMiddleware_HeaderInjection(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	malicious := base64.StdEncoding.EncodeToString([]byte("admin:secret123\r\nX-Injected: header"))
	req.Header.Set("Authorization", "Basic "+malicious)
	rec := httptest.NewRecorder()

	metricsHandler("admin", "secret123").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsAuthMiddleware_DisabledWhenNoCredentials(t *testing.T) {
	rec := httptest.NewRecorder()

	metricsHandler("", "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
