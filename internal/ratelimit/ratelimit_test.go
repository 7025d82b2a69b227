package ratelimit

import (
	"testing"
	"time"
)

func TestMemoryCheck_AllowsUpToMax(t *testing.T) {
	m := NewMemory()

	for i := 0; i < 5; i++ {
		allowed, remaining := m.Check("login:a@example.com", 5, time.Minute)
		if !allowed {
			t.Fatalf("attempt %d: expected allowed", i+1)
		}
		if want := 5 - i - 1; remaining != want {
			t.Fatalf("attempt %d: remaining = %d, want %d", i+1, remaining, want)
		}
	}

	allowed, remaining := m.Check("login:a@example.com", 5, time.Minute)
	if allowed {
		t.Fatal("sixth attempt should be denied")
	}
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
}

func TestMemoryCheck_KeysAreIndependent(t *testing.T) {
	m := NewMemory()

	for i := 0; i < 3; i++ {
		m.Check("k1", 3, time.Minute)
	}
	if allowed, _ := m.Check("k1", 3, time.Minute); allowed {
		t.Fatal("k1 should be exhausted")
	}
	if allowed, _ := m.Check("k2", 3, time.Minute); !allowed {
		t.Fatal("k2 should be unaffected by k1")
	}
}

func TestMemoryCheck_WindowSlides(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		m.Check("k", 3, time.Minute)
	}
	if allowed, _ := m.Check("k", 3, time.Minute); allowed {
		t.Fatal("should be denied inside window")
	}

	now = now.Add(61 * time.Second)
	allowed, remaining := m.Check("k", 3, time.Minute)
	if !allowed {
		t.Fatal("should be allowed after window passes")
	}
	if remaining != 2 {
		t.Fatalf("remaining = %d, want 2", remaining)
	}
}

func TestMemoryCheck_DeniedAttemptNotRecorded(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }

	m.Check("k", 1, time.Minute)
	// Denied attempts must not extend the lockout.
	m.Check("k", 1, time.Minute)

	now = now.Add(61 * time.Second)
	if allowed, _ := m.Check("k", 1, time.Minute); !allowed {
		t.Fatal("denied attempt extended the window")
	}
}

func TestMemoryPrune(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }

	m.Check("old", 5, time.Minute)
	now = now.Add(2 * time.Minute)
	m.Check("fresh", 5, time.Minute)

	m.Prune(time.Minute)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts["old"]; ok {
		t.Error("expired key not pruned")
	}
	if _, ok := m.attempts["fresh"]; !ok {
		t.Error("live key was pruned")
	}
}
