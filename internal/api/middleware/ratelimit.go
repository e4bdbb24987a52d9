package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedRateLimiter holds one token bucket per key. A blanket limiter keys on
// remote IP; the tighter per-endpoint limiter keys on endpoint+IP so a low
// limit on sign-in or password-reset requests doesn't also throttle
// unrelated traffic from the same client.
type KeyedRateLimiter struct {
	buckets sync.Map
	rps     rate.Limit
	burst   int
}

// NewKeyedRateLimiter builds a limiter whose buckets replenish at rps and
// allow bursts up to burst.
func NewKeyedRateLimiter(rps rate.Limit, burst int) *KeyedRateLimiter {
	l := &KeyedRateLimiter{rps: rps, burst: burst}
	go l.evictStale()
	return l
}

func (l *KeyedRateLimiter) bucket(key string) *rate.Limiter {
	if existing, ok := l.buckets.Load(key); ok {
		return existing.(*rate.Limiter)
	}
	fresh := rate.NewLimiter(l.rps, l.burst)
	actual, _ := l.buckets.LoadOrStore(key, fresh)
	return actual.(*rate.Limiter)
}

// Allow reports whether a request keyed by key may proceed, consuming a
// token from that key's bucket if so.
func (l *KeyedRateLimiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// evictStale periodically clears every bucket. Buckets are cheap to
// regenerate; without this, the map grows with every distinct key ever seen.
func (l *KeyedRateLimiter) evictStale() {
	for {
		time.Sleep(10 * time.Minute)
		l.buckets.Range(func(key, _ interface{}) bool {
			l.buckets.Delete(key)
			return true
		})
	}
}

// PerIP rate-limits every request by remote address, ahead of routing.
func (l *KeyedRateLimiter) PerIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(r.RemoteAddr) {
			slog.Warn("rate limit exceeded", "ip", r.RemoteAddr, "path", r.URL.Path)
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PerEndpoint rate-limits a single route by remote address, under a bucket
// scoped to name so it doesn't share a budget with PerIP's blanket limiter.
// Intended for the credential-facing endpoints that most need a tight
// budget: sign-in, password-reset request, verification-email resend.
func (l *KeyedRateLimiter) PerEndpoint(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(name + ":" + r.RemoteAddr) {
				slog.Warn("rate limit exceeded", "endpoint", name, "ip", r.RemoteAddr)
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
