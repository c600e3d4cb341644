package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-client token bucket limiter.
type RateLimitConfig struct {
	// RPS is the sustained number of requests per second per client.
	RPS float64
	// Burst is the bucket size. Defaults to ceil(RPS) when zero.
	Burst int
	// IdleTTL evicts buckets of clients that have been quiet this long.
	// Defaults to 10 minutes.
	IdleTTL time.Duration
	// KeyFunc extracts the client key from a request. Defaults to the
	// client IP.
	KeyFunc func(*http.Request) string
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*bucket
}

func newLimiterSet(cfg RateLimitConfig) *limiterSet {
	if cfg.Burst <= 0 {
		cfg.Burst = max(1, int(math.Ceil(cfg.RPS)))
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	return &limiterSet{cfg: cfg, buckets: make(map[string]*bucket)}
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(s.cfg.RPS), s.cfg.Burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

func (s *limiterSet) evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for key, b := range s.buckets {
		if now.Sub(b.lastSeen) >= s.cfg.IdleTTL {
			delete(s.buckets, key)
			n++
		}
	}
	return n
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// RateLimit returns a middleware that limits every client to cfg.RPS with
// bursts up to cfg.Burst. Rejected requests get 429 with a Retry-After
// header. Idle buckets are evicted in the background until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	s := newLimiterSet(cfg)
	go func() {
		ticker := time.NewTicker(s.cfg.IdleTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.evict(now)
			}
		}
	}()
	return s.middleware
}

func (s *limiterSet) middleware(next http.Handler) http.Handler {
	limit := strconv.Itoa(s.cfg.Burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		lim := s.get(s.cfg.KeyFunc(r), now)

		w.Header().Set("X-RateLimit-Limit", limit)
		res := lim.ReserveN(now, 1)
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			writeTooMany(w)
			return
		}
		remaining := int(lim.TokensAt(now))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, remaining)))

		next.ServeHTTP(w, r)
	})
}

func writeTooMany(w http.ResponseWriter) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(http.StatusTooManyRequests) })
		e.Field("message", func(e *jx.Encoder) { e.Str("rate limit exceeded") })
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write(e.Bytes())
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
