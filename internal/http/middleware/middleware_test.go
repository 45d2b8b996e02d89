package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/diagnosis/sai-platform/internal/http/response"
	"github.com/diagnosis/sai-platform/pkg/auth"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestRequireJWT(t *testing.T) {
	good, err := auth.NewAccessToken(7, "a@b.com", "ab", "", secret, time.Hour)
	require.NoError(t, err)
	expired, err := auth.NewAccessToken(7, "a@b.com", "ab", "", secret, -time.Hour)
	require.NoError(t, err)

	var seen *auth.Claims
	h := RequireJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = Claims(r)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"missing", "", http.StatusUnauthorized, "Access token required"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "Access token required"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "Access token required"},
		{"garbage", "Bearer nope", http.StatusForbidden, "Invalid or expired token"},
		{"expired", "Bearer " + expired, http.StatusForbidden, "Invalid or expired token"},
		{"valid", "Bearer " + good, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.msg != "" {
				env := decodeEnvelope(t, rec)
				assert.False(t, env.Success)
				assert.Equal(t, tt.msg, env.Message)
			}
		})
	}
	require.NotNil(t, seen)
	assert.Equal(t, int64(7), seen.Sub)
}

func TestRequireAdminKey(t *testing.T) {
	open := RequireAdminKey("")(okHandler())
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/contacts", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	gated := RequireAdminKey("s3cret")(okHandler())
	rec = httptest.NewRecorder()
	gated.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/contacts", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/contacts", nil)
	req.Header.Set("X-Admin-Key", "s3cret")
	rec = httptest.NewRecorder()
	gated.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecover(t *testing.T) {
	h := Recover("Failed to submit contact form. Please try again or contact us directly.")(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/contact", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Failed to submit contact form. Please try again or contact us directly.", env.Message)
}

func TestRateLimiter_Memory(t *testing.T) {
	store := NewMemoryLimitStore(3, 15*time.Minute)
	rl := NewRateLimiter(store, RateLimitConfig{Requests: 3, Window: 15 * time.Minute}, nil)
	h := rl.Middleware()(okHandler())

	do := func(path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do("/api/contact", "10.0.0.1").Code)
	}
	rec := do("/api/contact", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))
	assert.Equal(t, "Too many requests, please try again later.", decodeEnvelope(t, rec).Message)

	assert.Equal(t, http.StatusOK, do("/api/contact", "10.0.0.2").Code, "other clients unaffected")
	assert.Equal(t, http.StatusOK, do("/assets/app.js", "10.0.0.1").Code, "static assets exempt")
	assert.Equal(t, http.StatusOK, do("/healthz", "10.0.0.1").Code)
}

type erroringStore struct{}

func (erroringStore) Allow(context.Context, string) (bool, error) { return false, errors.New("down") }

func TestRateLimiter_FailsOpen(t *testing.T) {
	h := NewRateLimiter(erroringStore{}, RateLimitConfig{Requests: 1, Window: time.Minute}, nil).Middleware()(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contact", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMemoryLimitStore_SweepsIdleKeys(t *testing.T) {
	now := time.Now()
	s := NewMemoryLimitStore(1, time.Minute)
	s.now = func() time.Time { return now }

	ok, _ := s.Allow(context.Background(), "a")
	assert.True(t, ok)
	ok, _ = s.Allow(context.Background(), "a")
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = s.Allow(context.Background(), "b")
	assert.True(t, ok)
	s.mu.Lock()
	_, stillThere := s.limiters["a"]
	s.mu.Unlock()
	assert.False(t, stillThere)
}

func TestIsStaticRequest(t *testing.T) {
	for path, want := range map[string]bool{
		"/assets/index.css": true,
		"/static/logo":      true,
		"/favicon.ico":      true,
		"/fonts/x.WOFF2":    true,
		"/metrics":          true,
		"/api/contact":      false,
		"/":                 false,
	} {
		assert.Equal(t, want, IsStaticRequest(httptest.NewRequest(http.MethodGet, path, nil)), path)
	}
}

func TestClientIP_UntrustedPeerIgnoresForwardingHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	req.Header.Set("X-Real-IP", "198.51.100.2")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")

	assert.Equal(t, "192.0.2.1", TrustedProxies(nil).ClientIP(req))
}

func TestClientIP_TrustedProxy(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "127.0.0.1"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"no headers", "10.1.1.1:80", "", "", "10.1.1.1"},
		{"single hop", "10.1.1.1:80", "203.0.113.9", "", "203.0.113.9"},
		{"spoofed leftmost entry", "10.1.1.1:80", "1.2.3.4, 203.0.113.9", "", "203.0.113.9"},
		{"chained trusted proxies", "127.0.0.1:80", "203.0.113.9, 10.2.2.2", "", "203.0.113.9"},
		{"real ip header", "10.1.1.1:80", "", "198.51.100.2", "198.51.100.2"},
		{"garbage forwarded value", "10.1.1.1:80", "not-an-ip", "", "10.1.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, proxies.ClientIP(req))
		})
	}
}

func TestParseTrustedProxies_Invalid(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"10.0.0.0/8", "nope"})
	assert.Error(t, err)
}

func TestRateLimiter_RotatingForwardedForStillLimited(t *testing.T) {
	rl := NewRateLimiter(NewMemoryLimitStore(2, time.Minute), RateLimitConfig{Requests: 2, Window: time.Minute}, nil)
	h := rl.Middleware()(okHandler())

	var limited int
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/contacts", nil)
		req.RemoteAddr = "192.0.2.50:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 8, limited)
}

func TestRateLimiter_KeysOnForwardedClientBehindTrustedProxy(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.1"})
	require.NoError(t, err)
	rl := NewRateLimiter(NewMemoryLimitStore(1, time.Minute), RateLimitConfig{Requests: 1, Window: time.Minute, TrustedProxies: proxies}, nil)
	h := rl.Middleware()(okHandler())

	do := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/contact", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("203.0.113.1"))
	assert.Equal(t, http.StatusOK, do("203.0.113.2"))
}

func TestRedisLimitStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	ctx := context.Background()
	key := "test:" + time.Now().Format(time.RFC3339Nano)
	s := NewRedisLimitStore(rdb, 2, time.Minute)

	for i := 0; i < 2; i++ {
		ok, err := s.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := s.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := rdb.TTL(ctx, "sai:ratelimit:"+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "window key always carries a TTL")
	assert.LessOrEqual(t, ttl, time.Minute)
}
