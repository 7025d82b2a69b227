// Package ratelimit provides a swappable sliding-window attempt counter
// used for login and account-request abuse protection.
package ratelimit

import (
	"sync"
	"time"
)

// Store checks and records attempts per key. Implementations may be
// process-local or backed by a shared cache for multi-instance deploys.
type Store interface {
	// Check reports whether another attempt under key is allowed within
	// the window, records the attempt when it is, and returns how many
	// attempts remain.
	Check(key string, max int, window time.Duration) (allowed bool, remaining int)
}

// Memory is an in-process sliding-window Store for single-instance
// deployments.
type Memory struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	now      func() time.Time
}

// NewMemory creates an in-memory store.
func NewMemory() *Memory {
	return &Memory{
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Check implements Store.
func (m *Memory) Check(key string, max int, window time.Duration) (bool, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-window)

	valid := m.attempts[key][:0:0]
	for _, t := range m.attempts[key] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= max {
		m.attempts[key] = valid
		return false, 0
	}

	m.attempts[key] = append(valid, now)
	return true, max - len(valid) - 1
}

// Prune drops keys whose every attempt is older than the window.
// Callers run it periodically to bound memory.
func (m *Memory) Prune(window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-window)
	for key, times := range m.attempts {
		keep := times[:0:0]
		for _, t := range times {
			if t.After(cutoff) {
				keep = append(keep, t)
			}
		}
		if len(keep) == 0 {
			delete(m.attempts, key)
		} else {
			m.attempts[key] = keep
		}
	}
}
