package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/rinsr/internal/middleware"
	"github.com/DukeRupert/rinsr/internal/session"
)

// fakeLimiter records login limiter calls.
type fakeLimiter struct {
	releases int
	resets   int
}

func (f *fakeLimiter) ReleaseLogin(r *http.Request) { f.releases++ }
func (f *fakeLimiter) ResetLogin(r *http.Request)   { f.resets++ }

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func loginRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	if body != "" {
		req = apiRequest(http.MethodPost, "/api/auth/login", body)
	}
	return req
}

// =============================================================================
// POST /api/auth/login
// =============================================================================

func TestLogin_NestedAccessToken_SetsCookie(t *testing.T) {
	client := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"), "login never sends a bearer token")

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "admin@rinsr.in", creds["email"])

		writeJSON(w, http.StatusOK, `{"data":{"accessToken":"X","admin":{"name":"Asha"}}}`)
	})
	limiter := &fakeLimiter{}

	rec, env := serve(newAPI(client, limiter), loginRequest(`{"email":"admin@rinsr.in","password":"pw"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Login successful", env.Message)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, "X", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, session.CookieMaxAge, cookie.MaxAge)
	assert.False(t, cookie.Secure)

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	inner, ok := data["data"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, inner, "accessToken")
	assert.Contains(t, inner, "admin")

	assert.Equal(t, 1, limiter.resets)
	assert.Zero(t, limiter.releases)
}

func TestLogin_TopLevelTokenWins(t *testing.T) {
	client := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"access_token":"top","data":{"token":"nested"},"message":"Welcome back"}`)
	})

	rec, env := serve(newAPI(client, nil), loginRequest(`{"email":"a","password":"b"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome back", env.Message)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, "top", cookie.Value)
}

func TestLogin_NoToken_SucceedsWithoutCookie(t *testing.T) {
	client := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"admin":{"name":"Asha"}}}`)
	})
	limiter := &fakeLimiter{}

	rec, env := serve(newAPI(client, limiter), loginRequest(`{"email":"a","password":"b"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Nil(t, sessionCookie(rec))
	assert.Equal(t, 1, limiter.resets)
}

func TestLogin_Rejected_RelaysStatusAndCountsFailure(t *testing.T) {
	client := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
	})
	limiter := &fakeLimiter{}

	rec, env := serve(newAPI(client, limiter), loginRequest(`{"email":"a","password":"wrong"}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Invalid credentials", env.Message)
	assert.Nil(t, sessionCookie(rec))
	assert.Zero(t, limiter.releases, "a rejected attempt keeps its slot")
	assert.Zero(t, limiter.resets)
}

func TestLogin_UpstreamOutage_ReleasesSlot(t *testing.T) {
	client := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	limiter := &fakeLimiter{}

	rec, env := serve(newAPI(client, limiter), loginRequest(`{"email":"a","password":"b"}`))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Login failed", env.Message)
	assert.Equal(t, 1, limiter.releases)
	assert.Zero(t, limiter.resets)
}

func TestLogin_EmptyBody_Returns400(t *testing.T) {
	client := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	})

	limiter := &fakeLimiter{}

	rec, env := serve(newAPI(client, limiter), loginRequest(""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, 1, limiter.releases)
}

func TestLogin_WithRealLimiter_RejectedAttemptsLockOut(t *testing.T) {
	client := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
	})
	limiter := middleware.NewLoginRateLimiter(2, time.Minute, false, discardLogger())
	mux := http.NewServeMux()
	NewAuthHandler(client, limiter, discardLogger(), false).RegisterRoutes(mux, limiter.Limit)

	codes := []int{}
	for i := 0; i < 3; i++ {
		rec, _ := serve(mux, loginRequest(`{"email":"a","password":"wrong"}`))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

// =============================================================================
// POST /api/auth/logout
// =============================================================================

func TestLogout_ClearsCookie(t *testing.T) {
	client := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("logout does not call upstream")
	})

	rec, env := serve(newAPI(client, nil), apiRequest(http.MethodPost, "/api/auth/logout", ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}
