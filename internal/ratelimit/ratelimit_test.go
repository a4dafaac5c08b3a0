package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)}
}

func TestKeyed_Allow(t *testing.T) {
	clk := newClock()
	k := New(1, 2, time.Minute).WithClock(clk.now)

	assert.True(t, k.Allow("10.0.0.1"))
	assert.True(t, k.Allow("10.0.0.1"))
	assert.False(t, k.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, k.Allow("10.0.0.2"), "keys have their own bucket")

	clk.advance(time.Second)
	assert.True(t, k.Allow("10.0.0.1"))
	assert.False(t, k.Allow("10.0.0.1"))
}

func TestKeyed_PenalizeBlocksWhenDry(t *testing.T) {
	clk := newClock()
	k := New(rate.Every(time.Minute), 3, time.Hour).WithClock(clk.now)

	for i := 0; i < 2; i++ {
		blocked, _ := k.Penalize("alice", 30*time.Minute)
		assert.False(t, blocked, "failure %d", i+1)
	}

	blocked, retryAfter := k.Penalize("alice", 30*time.Minute)
	assert.True(t, blocked)
	assert.Equal(t, 30*time.Minute, retryAfter)

	blocked, retryAfter = k.Blocked("alice")
	assert.True(t, blocked)
	assert.Equal(t, 30*time.Minute, retryAfter)
	assert.False(t, k.Allow("alice"))

	blocked, _ = k.Blocked("bob")
	assert.False(t, blocked)

	clk.advance(31 * time.Minute)
	blocked, _ = k.Blocked("alice")
	assert.False(t, blocked, "blocks expire")
	blocked, _ = k.Penalize("alice", 30*time.Minute)
	assert.False(t, blocked, "a fresh bucket after the block")
}

func TestKeyed_ResetAndEviction(t *testing.T) {
	clk := newClock()
	k := New(rate.Every(time.Minute), 1, 10*time.Minute).WithClock(clk.now)

	k.Penalize("blocked", time.Hour)
	k.Allow("idle")
	k.Allow("reset")
	k.Reset("reset")
	assert.Equal(t, 2, k.Len())

	clk.advance(20 * time.Minute)
	k.Allow("new")

	assert.Equal(t, 2, k.Len(), "idle key evicted, blocked key kept")
	blocked, _ := k.Blocked("blocked")
	assert.True(t, blocked)
}
