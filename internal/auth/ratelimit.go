package auth

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/ratelimit"
)

// LoginLimiter slows down password guessing from one client against one
// username. Each key may fail MaxLoginAttempts times per RateLimitWindow;
// the next failure locks it out for LockoutDuration.
type LoginLimiter struct {
	attempts *ratelimit.Keyed
	lockout  time.Duration
}

// NewLoginLimiter builds a limiter from the auth configuration, filling in
// defaults for unset values.
func NewLoginLimiter(cfg config.Auth) *LoginLimiter {
	maxAttempts := cfg.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	window := cfg.RateLimitWindow
	if window <= 0 {
		window = 15 * time.Minute
	}
	lockout := cfg.LockoutDuration
	if lockout <= 0 {
		lockout = 30 * time.Minute
	}

	return &LoginLimiter{
		attempts: ratelimit.New(rate.Every(window/time.Duration(maxAttempts)), maxAttempts, window+lockout),
		lockout:  lockout,
	}
}

func loginKey(ip, username string) string {
	return ip + ":" + username
}

// Allow reports whether a login attempt may proceed and, if not, when to retry.
func (l *LoginLimiter) Allow(ip, username string) (bool, time.Duration) {
	blocked, retryAfter := l.attempts.Blocked(loginKey(ip, username))
	return !blocked, retryAfter
}

// RecordFailure counts a failed login. It reports whether the key is now locked.
func (l *LoginLimiter) RecordFailure(ip, username string) (bool, time.Duration) {
	return l.attempts.Penalize(loginKey(ip, username), l.lockout)
}

// RecordSuccess clears the failures of a successful login.
func (l *LoginLimiter) RecordSuccess(ip, username string) {
	l.attempts.Reset(loginKey(ip, username))
}
