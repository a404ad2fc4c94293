package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Rrens/chatwidget/internal/api/response"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Limiter decides whether a request identified by key may proceed.
// Returns (allowed, remaining, resetTime, error)
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, int, time.Time, error)
}

// RateLimitMiddleware handles rate limiting
type RateLimitMiddleware struct {
	limiter Limiter
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(limiter Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Limit applies rate limiting per client IP
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, resetTime, err := m.limiter.Allow(r.Context(), clientIP(r))
		if err != nil {
			// a broken limiter must not take the widget down
			log.Warn().Err(err).Msg("Rate limiter failed, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", resetTime.UTC().Format(time.RFC3339))

		if !allowed {
			response.TooManyRequests(w, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter is an in-process token bucket per key, used when Redis is not configured
type LocalLimiter struct {
	mu            sync.Mutex
	m             map[string]*limiterEntry
	limit         rate.Limit
	burst         int
	ttl           time.Duration
	cleanupPeriod time.Duration
	startCleanup  sync.Once
	stopCh        chan struct{}
}

// NewLocalLimiter allows requestsPerMinute on average with the given burst
func NewLocalLimiter(requestsPerMinute, burst int) *LocalLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &LocalLimiter{
		m:             make(map[string]*limiterEntry),
		limit:         rate.Limit(float64(requestsPerMinute) / 60),
		burst:         burst,
		ttl:           10 * time.Minute,
		cleanupPeriod: time.Minute,
		stopCh:        make(chan struct{}),
	}
}

func (l *LocalLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	lim := l.get(key)
	now := time.Now()

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	reset := now
	if tokens < float64(l.burst) && l.limit > 0 {
		missing := float64(l.burst) - tokens
		reset = now.Add(time.Duration(missing / float64(l.limit) * float64(time.Second)))
	}

	return allowed, remaining, reset, nil
}

// Shutdown stops the cleanup goroutine
func (l *LocalLimiter) Shutdown() {
	select {
	case <-l.stopCh:
	default:
		close(l.stopCh)
	}
}

func (l *LocalLimiter) get(key string) *rate.Limiter {
	l.startCleanup.Do(func() { go l.cleanupLoop() })

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.m[key]; ok {
		e.lastSeen = time.Now()
		return e.l
	}

	lim := rate.NewLimiter(l.limit, l.burst)
	l.m[key] = &limiterEntry{l: lim, lastSeen: time.Now()}
	return lim
}

// cleanupLoop removes limiters unused for longer than ttl
func (l *LocalLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-l.ttl)
			l.mu.Lock()
			for k, e := range l.m {
				if e.lastSeen.Before(cutoff) {
					delete(l.m, k)
				}
			}
			l.mu.Unlock()
		case <-l.stopCh:
			return
		}
	}
}
