package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/diagnosis/sai-platform/internal/http/response"
	"github.com/diagnosis/sai-platform/pkg/logger"
	"github.com/diagnosis/sai-platform/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// LimitStore counts requests per key. Errors make the limiter fail open.
type LimitStore interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// TrustedProxies are the peers whose forwarding headers are believed.
	TrustedProxies TrustedProxies
	KeyFunc        func(r *http.Request) string
	SkipFunc       func(r *http.Request) bool
}

type RateLimiter struct {
	store   LimitStore
	config  RateLimitConfig
	metrics *metrics.Metrics
}

func NewRateLimiter(store LimitStore, config RateLimitConfig, m *metrics.Metrics) *RateLimiter {
	if config.KeyFunc == nil {
		proxies := config.TrustedProxies
		config.KeyFunc = func(r *http.Request) string { return "ip:" + proxies.ClientIP(r) }
	}
	if config.SkipFunc == nil {
		config.SkipFunc = IsStaticRequest
	}
	return &RateLimiter{store: store, config: config, metrics: m}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.config.SkipFunc(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := rl.config.KeyFunc(r)
			ok, err := rl.store.Allow(r.Context(), key)
			if err != nil {
				logger.WarnContext(r.Context(), "rate limit store failed, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				rl.metrics.IncRateLimited()
				logger.WarnContext(r.Context(), "rate limit exceeded", "key", key, "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(int(rl.config.Window.Seconds())))
				response.RateLimit(w, "Too many requests, please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var staticExtensions = map[string]bool{
	".js": true, ".css": true, ".map": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".svg": true, ".ico": true, ".webp": true, ".woff": true, ".woff2": true,
	".ttf": true, ".txt": true, ".xml": true,
}

// IsStaticRequest reports whether r targets an asset or probe endpoint
// that is never rate limited.
func IsStaticRequest(r *http.Request) bool {
	p := r.URL.Path
	switch {
	case p == "/healthz", p == "/metrics":
		return true
	case strings.HasPrefix(p, "/assets/"), strings.HasPrefix(p, "/static/"):
		return true
	}
	return staticExtensions[strings.ToLower(path.Ext(p))]
}

// TrustedProxies lists the networks allowed to set X-Forwarded-For and
// X-Real-IP. An empty list trusts nobody and keys on the TCP peer.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies accepts bare addresses and CIDR prefixes.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	var out TrustedProxies
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return out, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return out, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

func (t TrustedProxies) trusts(ip string) bool {
	a, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range t {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// ClientIP returns the TCP peer unless that peer is a trusted proxy. Behind
// a trusted proxy it walks X-Forwarded-For from the right and returns the
// first hop that is not itself trusted, falling back to X-Real-IP.
func (t TrustedProxies) ClientIP(r *http.Request) string {
	peer := remoteIP(r)
	if !t.trusts(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				break
			}
			if !t.trusts(hop) || i == 0 {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}
	return peer
}

func remoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// MemoryLimitStore keeps one token bucket per key in process. Buckets
// refill at requests/window with a burst of requests.
type MemoryLimitStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewMemoryLimitStore(requests int, window time.Duration) *MemoryLimitStore {
	if requests <= 0 {
		requests = 1
	}
	return &MemoryLimitStore{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
		idle:     window,
		now:      time.Now,
	}
}

func (s *MemoryLimitStore) Allow(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > s.idle {
		s.sweep(now)
	}

	e, ok := s.limiters[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1), nil
}

// sweep drops buckets idle for a full window; they would be full again.
func (s *MemoryLimitStore) sweep(now time.Time) {
	for k, e := range s.limiters {
		if now.Sub(e.seen) > s.idle {
			delete(s.limiters, k)
		}
	}
	s.lastSweep = now
}

// RedisLimitStore is a fixed-window counter shared by every instance.
type RedisLimitStore struct {
	rdb      *redis.Client
	requests int
	window   time.Duration
	prefix   string
}

func NewRedisLimitStore(rdb *redis.Client, requests int, window time.Duration) *RedisLimitStore {
	if requests <= 0 {
		requests = 1
	}
	return &RedisLimitStore{rdb: rdb, requests: requests, window: window, prefix: "sai:ratelimit"}
}

func (s *RedisLimitStore) Allow(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	k := s.prefix + ":" + key
	// The window key is created with its TTL in the same transaction that
	// counts, so no key can outlive its window.
	var incr *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, s.window)
		incr = pipe.Incr(ctx, k)
		return nil
	})
	if err != nil {
		return true, err
	}
	return incr.Val() <= int64(s.requests), nil
}
