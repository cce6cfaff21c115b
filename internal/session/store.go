// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/ytaudio/internal/format"
	"github.com/ManuGH/ytaudio/internal/metrics"
)

// Store is the in-memory session map. All methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	seq      uint64

	ttl time.Duration
	now func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured expiry age.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return sess.Age(now) > s.ttl
}

// Put inserts or replaces the session for sess.Identity. The stored copy is
// reset to AwaitingFormatSelection with no tier; CreatedAt defaults to now.
// The returned snapshot carries the assigned Seq.
func (s *Store) Put(sess Session) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	rec := sess
	rec.Seq = s.seq
	rec.State = AwaitingFormatSelection
	rec.Tier = format.Tier{}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.sessions[rec.Identity] = &rec
	metrics.SetSessionsActive(len(s.sessions))
	return rec
}

// Get returns a snapshot of the live session for identity. Expired sessions
// are reported as absent.
func (s *Store) Get(identity string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[identity]
	if !ok || s.expired(rec, s.now()) {
		return Session{}, false
	}
	return *rec, true
}

// TransitionToDownloading atomically moves the identity's session into
// Downloading with tier selected. It is the admission check for jobs: of any
// number of concurrent callers for one identity, at most one succeeds.
//
// An expired session is evicted and ErrExpired returned.
func (s *Store) TransitionToDownloading(identity string, tier format.Tier) (Session, error) {
	return s.transition(identity, 0, tier)
}

// TransitionIfCurrent is TransitionToDownloading restricted to the
// incarnation identified by seq. A session put since then is left untouched
// and ErrSuperseded returned. seq 0 matches any incarnation.
func (s *Store) TransitionIfCurrent(identity string, seq uint64, tier format.Tier) (Session, error) {
	return s.transition(identity, seq, tier)
}

func (s *Store) transition(identity string, seq uint64, tier format.Tier) (Session, error) {
	if tier.ID == "" {
		return Session{}, fmt.Errorf("transition %q: empty tier", identity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[identity]
	if !ok {
		return Session{}, ErrNoSession
	}
	if s.expired(rec, s.now()) {
		delete(s.sessions, identity)
		metrics.SetSessionsActive(len(s.sessions))
		return Session{}, ErrExpired
	}
	if seq != 0 && rec.Seq != seq {
		return Session{}, ErrSuperseded
	}
	if rec.State == Downloading {
		return Session{}, ErrAlreadyDownloading
	}

	rec.Tier = tier
	rec.State = Downloading
	return *rec, nil
}

// Remove deletes the identity's session, if any.
func (s *Store) Remove(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, identity)
	metrics.SetSessionsActive(len(s.sessions))
}

// RemoveIf deletes the identity's session only if it is still the incarnation
// identified by seq. A newer session put under the same identity survives.
func (s *Store) RemoveIf(identity string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[identity]
	if !ok || rec.Seq != seq {
		return false
	}
	delete(s.sessions, identity)
	metrics.SetSessionsActive(len(s.sessions))
	return true
}

// Len returns the number of stored sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// RemoveExpired deletes every session older than the TTL and returns how
// many were removed.
func (s *Store) RemoveExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, rec := range s.sessions {
		if s.expired(rec, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	metrics.SetSessionsActive(len(s.sessions))
	return removed
}
