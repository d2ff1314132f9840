package lockout

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the single-instance fallback used when Redis is not
// configured, and the store of choice in tests.
type MemoryStore struct {
	mu     sync.Mutex
	policy Policy
	now    func() time.Time

	failures map[string][]time.Time
	locks    map[string]time.Time
}

func NewMemoryStore(policy Policy) *MemoryStore {
	if policy.Threshold <= 0 {
		policy = DefaultPolicy()
	}
	return &MemoryStore{
		policy:   policy,
		now:      time.Now,
		failures: make(map[string][]time.Time),
		locks:    make(map[string]time.Time),
	}
}

// WithClock overrides the time source. Test helper.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Locked(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.locks[key]
	if !ok {
		return false, nil
	}
	if s.now().After(until) {
		delete(s.locks, key)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) AddFailure(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	cutoff := now.Add(-s.policy.Window)

	kept := s.failures[key][:0]
	for _, t := range s.failures[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	s.failures[key] = kept
	return len(kept), nil
}

func (s *MemoryStore) Lock(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[key] = s.now().Add(s.policy.LockDuration)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, key)
	delete(s.locks, key)
	return nil
}
