// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package tasks

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps tasks in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	ttl   time.Duration
}

// NewMemoryStore creates a store whose tasks vanish ttl after their last update.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*Task), ttl: ttl}
}

func (m *MemoryStore) Create(_ context.Context, t Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := t
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	m.tasks[t.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok || m.expired(t, time.Now()) {
		return Task{}, ErrNotFound
	}
	return *t, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Task)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return ErrNotFound
	}
	fn(t)
	t.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// DeleteExpired drops tasks past their TTL and returns how many.
func (m *MemoryStore) DeleteExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, t := range m.tasks {
		if m.expired(t, now) {
			delete(m.tasks, id)
			n++
		}
	}
	return n
}

func (m *MemoryStore) expired(t *Task, now time.Time) bool {
	return m.ttl > 0 && now.Sub(t.UpdatedAt) > m.ttl
}
