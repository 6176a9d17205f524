package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/use-agent/dodf/config"
	"github.com/use-agent/dodf/models"
)

// idleLimiterTTL is how long an unused identity keeps its bucket.
const idleLimiterTTL = time.Hour

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet hands out one token bucket per identity.
type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
}

func (s *limiterSet) get(identity string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.limiters[identity]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[identity] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (s *limiterSet) evictIdle(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(s.limiters, id)
		}
	}
}

// RateLimit returns per-identity (API key or IP) token-bucket rate limiting
// middleware powered by golang.org/x/time/rate. A non-positive rate
// disables limiting.
//
// Identities idle for an hour are evicted by a background goroutine that
// runs every 5 minutes.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	set := &limiterSet{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    burst,
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			set.evictIdle(time.Now().Add(-idleLimiterTTL))
		}
	}()

	retryAfter := strconv.Itoa(int(math.Ceil(1 / cfg.RequestsPerSecond)))

	return func(c *gin.Context) {
		// Prefer the API key set by Auth; fall back to the client IP.
		identity := c.GetString(apiKeyContextKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		if !set.get(identity, time.Now()).Allow() {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody(models.ErrCodeRateLimited,
				"rate limit exceeded, please slow down"))
			return
		}
		c.Next()
	}
}
