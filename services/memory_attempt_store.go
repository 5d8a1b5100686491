package services

import (
	"context"
	"sync"
	"time"
)

// MemoryAttemptStore keeps login attempts in process memory. State is lost
// on restart and not shared between instances.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	locked   map[string]time.Time
}

func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{
		attempts: make(map[string][]time.Time),
		locked:   make(map[string]time.Time),
	}
}

func (s *MemoryAttemptStore) AddFailure(_ context.Context, id string, now time.Time, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := inWindow(s.attempts[id], now.Add(-window))
	filtered = append(filtered, now)
	s.attempts[id] = filtered
	return len(filtered), nil
}

func (s *MemoryAttemptStore) Lock(_ context.Context, id string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locked[id] = until
	delete(s.attempts, id)
	return nil
}

func (s *MemoryAttemptStore) LockedUntil(_ context.Context, id string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, ok := s.locked[id]
	return until, ok, nil
}

func (s *MemoryAttemptStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.attempts, id)
	delete(s.locked, id)
	return nil
}

func (s *MemoryAttemptStore) Sweep(_ context.Context, now time.Time, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	cutoff := now.Add(-window)
	for id, timestamps := range s.attempts {
		filtered := inWindow(timestamps, cutoff)
		if len(filtered) == 0 {
			delete(s.attempts, id)
			removed++
			continue
		}
		s.attempts[id] = filtered
	}
	for id, until := range s.locked {
		if !now.Before(until) {
			delete(s.locked, id)
			removed++
		}
	}
	return removed, nil
}

// inWindow keeps the timestamps strictly after cutoff.
func inWindow(timestamps []time.Time, cutoff time.Time) []time.Time {
	filtered := make([]time.Time, 0, len(timestamps)+1)
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			filtered = append(filtered, ts)
		}
	}
	return filtered
}
