package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/ratelimit"
)

// Throttle limits how fast a single client may send borrow and return
// requests. Each client IP gets its own token bucket.
type Throttle struct {
	clients *ratelimit.Keyed
}

// NewThrottle returns nil when throttling is disabled.
func NewThrottle(cfg config.Throttle) *Throttle {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	return &Throttle{
		clients: ratelimit.New(rate.Limit(cfg.RequestsPerSecond), cfg.Burst, ratelimit.DefaultIdleTTL),
	}
}

// Allow reports whether the client may make another request now.
func (t *Throttle) Allow(clientIP string) bool {
	return t.clients.Allow(clientIP)
}

// Middleware rejects requests over the limit with 429 Too Many Requests.
// A nil Throttle lets everything through.
func (t *Throttle) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if t == nil || t.Allow(c.ClientIP()) {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests, slow down"})
	}
}
