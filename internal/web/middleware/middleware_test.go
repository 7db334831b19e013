package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dados/internal/access"
	"github.com/JonMunkholm/dados/internal/core"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	handler := RateLimiter(t.Context(), RateLimitConfig{RequestsPerSecond: 100, Burst: 10})(okHandler())

	for range 5 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	handler := RateLimiter(t.Context(), RateLimitConfig{RequestsPerSecond: 1, Burst: 2})(okHandler())

	for range 2 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "RATE001", body["code"])
}

func TestRateLimiter_PerClientIsolation(t *testing.T) {
	handler := RateLimiter(t.Context(), RateLimitConfig{RequestsPerSecond: 1, Burst: 1})(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"))
}

func TestClientTable_Sweep(t *testing.T) {
	clients := newClientTable(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	now := time.Now()

	clients.get("10.0.0.1", now.Add(-2*clientIdleTTL))
	clients.get("10.0.0.2", now)
	require.Equal(t, 2, clients.len())

	clients.sweep(now, clientIdleTTL)
	assert.Equal(t, 1, clients.len())

	clients.sweep(now.Add(2*clientIdleTTL), clientIdleTTL)
	assert.Equal(t, 0, clients.len())
}

func TestClientTable_CleanupStopsWithContext(t *testing.T) {
	clients := newClientTable(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	clients.get("10.0.0.1", time.Now().Add(-2*clientIdleTTL))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		clients.cleanup(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return clients.len() == 0 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup did not return after cancel")
	}
}

type stubAuth map[string]access.Session

func (s stubAuth) Authorize(identity, secret string) (access.Session, error) {
	sess, ok := s[identity+":"+secret]
	if !ok {
		return access.Session{}, &core.AuthorizationError{Identity: identity, Err: core.ErrInvalidCredentials}
	}
	return sess, nil
}

func TestBasicAuth(t *testing.T) {
	auth := stubAuth{"ana:pw": {Identity: "ana", Role: access.RoleAnalyst}}

	var seen access.Session
	handler := BasicAuth(auth, "dados")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = access.SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		user     string
		pass     string
		withAuth bool
		want     int
		wantCode string
	}{
		{name: "valid", user: "ana", pass: "pw", withAuth: true, want: http.StatusOK},
		{name: "wrong secret", user: "ana", pass: "nope", withAuth: true, want: http.StatusUnauthorized, wantCode: "AUTH001"},
		{name: "missing header", want: http.StatusUnauthorized, wantCode: "AUTH001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = access.Session{}
			req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
			if tt.withAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want != http.StatusOK {
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `realm="dados"`)
				var body map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, tt.wantCode, body["code"])
				assert.Empty(t, seen.Identity)
				return
			}
			assert.Equal(t, "ana", seen.Identity)
			assert.Equal(t, access.RoleAnalyst, seen.Role)
		})
	}
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:    "untrusted peer keeps address",
			trusted: []string{"10.0.0.0/8"},
			remote:  "192.0.2.1:5555",
			headers: map[string]string{"X-Real-IP": "203.0.113.9"},
			want:    "192.0.2.1:5555",
		},
		{
			name:    "trusted peer uses X-Real-IP",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.1.2.3:5555",
			headers: map[string]string{"X-Real-IP": "203.0.113.9"},
			want:    "203.0.113.9",
		},
		{
			name:    "trusted bare address uses first forwarded hop",
			trusted: []string{"127.0.0.1"},
			remote:  "127.0.0.1:5555",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			want:    "203.0.113.7",
		},
		{
			name:    "invalid header ignored",
			trusted: []string{"127.0.0.1/32"},
			remote:  "127.0.0.1:5555",
			headers: map[string]string{"X-Real-IP": "not-an-ip"},
			want:    "127.0.0.1:5555",
		},
		{
			name:    "no trusted proxies",
			remote:  "127.0.0.1:5555",
			headers: map[string]string{"X-Real-IP": "203.0.113.9"},
			want:    "127.0.0.1:5555",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogger_RecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	line := buf.String()
	assert.True(t, strings.Contains(line, `"status":418`), line)
	assert.True(t, strings.Contains(line, `"bytes":5`), line)
	assert.True(t, strings.Contains(line, `"path":"/healthz"`), line)
}

func TestWriteError_MapsMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusTooManyRequests, errors.New("rate limit exceeded"))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Too many requests", body["message"])
}
