package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// Telemetry ingestion limits per user: sustained 5 readings/s, bursts of 30.
const (
	readingRate  = rate.Limit(5)
	readingBurst = 30
	limiterTTL   = 3 * time.Minute
)

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// userLimiters throttles the readings endpoint per user ID. Idle limiters
// are evicted lazily on lookup.
type userLimiters struct {
	mu      sync.Mutex
	users   map[string]*userLimiter
	sweepAt time.Time
}

func newUserLimiters() *userLimiters {
	return &userLimiters{users: make(map[string]*userLimiter)}
}

func (l *userLimiters) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if !l.get(userID).Allow() {
			writeError(w, http.StatusTooManyRequests, "reading rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *userLimiters) get(userID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.sweepAt) {
		for id, u := range l.users {
			if now.Sub(u.lastSeen) > limiterTTL {
				delete(l.users, id)
			}
		}
		l.sweepAt = now.Add(time.Minute)
	}

	u, ok := l.users[userID]
	if !ok {
		u = &userLimiter{limiter: rate.NewLimiter(readingRate, readingBurst)}
		l.users[userID] = u
	}
	u.lastSeen = now
	return u.limiter
}
