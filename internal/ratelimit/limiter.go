// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ratelimit throttles job submissions per user identity.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ManuGH/ytaudio/internal/metrics"
)

// Config holds rate limiting configuration.
type Config struct {
	// Global caps submissions across all identities.
	GlobalRate  rate.Limit
	GlobalBurst int

	// PerIdentity caps submissions of one chat or web client.
	PerIdentityRate  rate.Limit
	PerIdentityBurst int

	// IdleTTL drops limiters not used for this long.
	IdleTTL time.Duration
}

// PerMinute builds a config allowing n submissions per minute per identity
// with a burst of n. n <= 0 disables limiting.
func PerMinute(n int) Config {
	if n <= 0 {
		return Config{GlobalRate: rate.Inf, PerIdentityRate: rate.Inf, IdleTTL: 10 * time.Minute}
	}
	return Config{
		GlobalRate:       rate.Limit(float64(n*20) / 60),
		GlobalBurst:      n * 20,
		PerIdentityRate:  rate.Limit(float64(n) / 60),
		PerIdentityBurst: n,
		IdleTTL:          10 * time.Minute,
	}
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per identity plus a global bucket.
type Limiter struct {
	config Config
	global *rate.Limiter

	mu          sync.Mutex
	perIdentity map[string]*entry
	lastCleanup time.Time
	now         func() time.Time
}

// New creates a limiter.
func New(config Config) *Limiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	return &Limiter{
		config:      config,
		global:      rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perIdentity: make(map[string]*entry),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Allow reports whether identity may submit now. surface labels the
// rejection metric ("chat" or "web").
func (l *Limiter) Allow(identity, surface string) bool {
	if !l.identityLimiter(identity).Allow() {
		metrics.IncRateLimited(surface)
		return false
	}
	if !l.global.Allow() {
		metrics.IncRateLimited(surface)
		return false
	}
	return true
}

func (l *Limiter) identityLimiter(identity string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanupLocked(now)

	e, ok := l.perIdentity[identity]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.config.PerIdentityRate, l.config.PerIdentityBurst)}
		l.perIdentity[identity] = e
	}
	e.lastSeen = now
	return e.limiter
}

// cleanupLocked drops idle limiters at most once per IdleTTL.
func (l *Limiter) cleanupLocked(now time.Time) {
	if now.Sub(l.lastCleanup) < l.config.IdleTTL {
		return
	}
	for id, e := range l.perIdentity {
		if now.Sub(e.lastSeen) > l.config.IdleTTL {
			delete(l.perIdentity, id)
		}
	}
	l.lastCleanup = now
}

// Len returns the number of tracked identities.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perIdentity)
}
