package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/todoplatform/eventbackbone/internal/auth"
)

// PerUserLimiter caps request throughput independently for every
// authenticated subject, so one noisy client cannot starve the rest of
// the fleet's share of the Command Service. Buckets are created lazily
// and are not removed per request; a background sweep drops idle ones.
type PerUserLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      rate.Limit
	burst     int
	idleAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewPerUserLimiter builds a limiter allowing requestsPerSecond sustained
// throughput with a burst allowance, per user id.
func NewPerUserLimiter(requestsPerSecond float64, burst int) *PerUserLimiter {
	l := &PerUserLimiter{
		buckets:   make(map[string]*bucket),
		rate:      rate.Limit(requestsPerSecond),
		burst:     burst,
		idleAfter: 10 * time.Minute,
	}
	go l.sweep()
	return l
}

func (l *PerUserLimiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-l.idleAfter)
		l.mu.Lock()
		for k, b := range l.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(l.buckets, k)
			}
		}
		l.mu.Unlock()
	}
}

func (l *PerUserLimiter) allow(userID string) bool {
	l.mu.Lock()
	b, ok := l.buckets[userID]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[userID] = b
	}
	b.lastSeen = time.Now()
	l.mu.Unlock()
	return b.limiter.Allow()
}

// Limit returns middleware that rejects requests over the per-user rate
// with 429. Must run after auth.RequireUser so UserID(ctx) is populated;
// requests with no authenticated subject fall through unlimited.
func (l *PerUserLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !l.allow(userID) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
