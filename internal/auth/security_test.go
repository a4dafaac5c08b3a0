package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/library/internal/config"
)

// TestOpenRedirectPrevention verifies that redirect paths are properly sanitized.
func TestOpenRedirectPrevention(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty path", "", "/dashboard"},
		{"root path", "/", "/"},
		{"local path", "/admin", "/admin"},
		{"local path with query", "/dashboard?search=dune", "/dashboard?search=dune"},
		{"protocol-relative URL", "//evil.com", "/dashboard"},
		{"full URL with scheme", "https://evil.com", "/dashboard"},
		{"URL with scheme in path", "/https://evil.com", "/dashboard"},
		{"backslash escape attempt", "/foo\\bar", "/dashboard"},
		{"javascript URL", "javascript:alert(1)", "/dashboard"},
		{"no leading slash", "evil.com", "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeRedirectPath(tt.input, "/dashboard"))
		})
	}
}

func TestLoginLimiter_LocksAfterMaxAttempts(t *testing.T) {
	rl := NewLoginLimiter(config.Auth{
		MaxLoginAttempts: 3,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	})

	for i := 0; i < 2; i++ {
		allowed, _ := rl.Allow("10.0.0.1", "alice")
		assert.True(t, allowed, "attempt %d", i+1)
		locked, _ := rl.RecordFailure("10.0.0.1", "alice")
		assert.False(t, locked)
	}

	locked, retryAfter := rl.RecordFailure("10.0.0.1", "alice")
	assert.True(t, locked)
	assert.Equal(t, time.Minute, retryAfter)

	allowed, _ := rl.Allow("10.0.0.1", "alice")
	assert.False(t, allowed)

	allowed, _ = rl.Allow("10.0.0.1", "bob")
	assert.True(t, allowed, "other usernames are tracked independently")
}

func TestLoginLimiter_SuccessResetsCounter(t *testing.T) {
	rl := NewLoginLimiter(config.Auth{MaxLoginAttempts: 2})

	rl.RecordFailure("10.0.0.1", "alice")
	rl.RecordSuccess("10.0.0.1", "alice")
	locked, _ := rl.RecordFailure("10.0.0.1", "alice")
	assert.False(t, locked)
}

func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
}

func TestHSTSHeader(t *testing.T) {
	router := gin.New()
	router.Use(StrictTransportSecurityMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Empty(t, rr.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Contains(t, rr.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}
