// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestPerIdentityBurst(t *testing.T) {
	l := New(PerMinute(3))

	allowed := 0
	for i := 0; i < 10; i++ {
		if l.Allow("tg:1", "chat") {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)

	// Another identity has its own bucket.
	assert.True(t, l.Allow("tg:2", "chat"))
}

func TestGlobalLimit(t *testing.T) {
	l := New(Config{
		GlobalRate:       1,
		GlobalBurst:      2,
		PerIdentityRate:  100,
		PerIdentityBurst: 100,
	})
	assert.True(t, l.Allow("a", "web"))
	assert.True(t, l.Allow("b", "web"))
	assert.False(t, l.Allow("c", "web"))
}

func TestDisabled(t *testing.T) {
	l := New(PerMinute(0))
	for i := 0; i < 1000; i++ {
		if !l.Allow("tg:1", "chat") {
			t.Fatalf("request %d rejected with limiting disabled", i)
		}
	}
	assert.Equal(t, rate.Inf, l.config.PerIdentityRate)
}

func TestIdleCleanup(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(Config{GlobalRate: rate.Inf, PerIdentityRate: rate.Inf, IdleTTL: time.Minute})
	l.now = func() time.Time { return now }
	l.lastCleanup = now

	l.Allow("tg:1", "chat")
	l.Allow("tg:2", "chat")
	assert.Equal(t, 2, l.Len())

	now = now.Add(2 * time.Minute)
	l.Allow("tg:3", "chat")
	assert.Equal(t, 1, l.Len())
}
