package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func setAuthEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CLIENT_SECRET", "test-secret")
	t.Setenv("ADMINS", "root@example.com, boss@example.com")
}

func authedRequest(method, target, email string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	r.Header.Set("Authorization", "Bearer "+signEmail(email))
	return r
}

func TestSignAndAuthorize(t *testing.T) {
	setAuthEnv(t)

	email, ok := authorize(authedRequest("GET", "/", "curator@example.com"))
	require.True(t, ok)
	assert.Equal(t, "curator@example.com", email)

	r := httptest.NewRequest("GET", "/", nil)
	_, ok = authorize(r)
	assert.False(t, ok)

	r.Header.Set("Authorization", "Bearer "+signEmail("curator@example.com")+"x")
	_, ok = authorize(r)
	assert.False(t, ok)

	forged := authedRequest("GET", "/", "curator@example.com")
	t.Setenv("CLIENT_SECRET", "rotated")
	_, ok = authorize(forged)
	assert.False(t, ok)
}

func TestIsAdmin(t *testing.T) {
	setAuthEnv(t)
	assert.True(t, isAdmin("root@example.com"))
	assert.True(t, isAdmin("boss@example.com"))
	assert.False(t, isAdmin("curator@example.com"))
}

func TestHandleAdminCheck(t *testing.T) {
	setAuthEnv(t)

	w := httptest.NewRecorder()
	handleAdminCheck(w, authedRequest("GET", "/api/admin/check", "root@example.com"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"admin": true}`, w.Body.String())

	w = httptest.NewRecorder()
	handleAdminCheck(w, httptest.NewRequest("GET", "/api/admin/check", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdminRejectsOthers(t *testing.T) {
	setAuthEnv(t)

	w := httptest.NewRecorder()
	handleListMuseums(nil)(w, authedRequest("GET", "/api/museums", "curator@example.com"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	handleCreateMuseum(nil)(w, httptest.NewRequest("POST", "/api/museums", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireMuseumAdminBadID(t *testing.T) {
	setAuthEnv(t)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/museums/{museumID}/members", handleListMembers(nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest("GET", "/api/museums/abc/members", "root@example.com"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid museum ID")
}

func TestHandleSolveRateLimited(t *testing.T) {
	setAuthEnv(t)

	limits := solveLimits{
		timeout: time.Second,
		limiter: rate.NewLimiter(0, 0),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/museums/{museumID}/solve", handleSolve(nil, limits))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest("POST", "/api/museums/1/solve", "root@example.com"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestLoadSolveLimits(t *testing.T) {
	for _, key := range []string{"SOLVE_TIMEOUT", "MAX_STATES", "SOLVES_PER_SECOND"} {
		t.Setenv(key, "")
	}

	limits, err := loadSolveLimits()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, limits.timeout)
	assert.Equal(t, 500_000, limits.params.MaxStates)

	t.Setenv("SOLVE_TIMEOUT", "3s")
	t.Setenv("MAX_STATES", "1000")
	t.Setenv("SOLVES_PER_SECOND", "0.5")
	limits, err = loadSolveLimits()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, limits.timeout)
	assert.Equal(t, 1000, limits.params.MaxStates)
	assert.Equal(t, rate.Limit(0.5), limits.limiter.Limit())
	assert.Equal(t, 1, limits.limiter.Burst())

	for key, value := range map[string]string{
		"SOLVE_TIMEOUT":     "-1s",
		"MAX_STATES":        "0",
		"SOLVES_PER_SECOND": "fast",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := loadSolveLimits()
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestAddAdminError(t *testing.T) {
	tests := map[string]struct {
		err    error
		status int
	}{
		"unknown museum":  {&pq.Error{Code: "23503"}, http.StatusNotFound},
		"duplicate email": {fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), http.StatusConflict},
		"other pq error":  {&pq.Error{Code: "42P01"}, http.StatusInternalServerError},
		"plain error":     {errors.New("connection reset"), http.StatusInternalServerError},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			addAdminError(w, httptest.NewRequest("POST", "/api/museums/1/admins", nil), tt.err)
			assert.Equal(t, tt.status, w.Code)
			if tt.status < http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "pq:")
			}
		})
	}
}
