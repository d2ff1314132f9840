// Package lockout throttles repeated login failures per account. It is a
// safety net in front of credential checking, not a session mechanism: state
// is a failure counter plus a lock flag, both with TTLs.
package lockout

import (
	"context"
	"log/slog"
	"time"
)

// Store keeps the failure counters and lock flags.
type Store interface {
	// Locked reports whether key is currently locked out.
	Locked(ctx context.Context, key string) (bool, error)
	// AddFailure increments the failure count inside the rolling window and
	// returns the new count.
	AddFailure(ctx context.Context, key string) (int, error)
	// Lock marks key locked for the lock duration.
	Lock(ctx context.Context, key string) error
	// Clear wipes failures and lock for key.
	Clear(ctx context.Context, key string) error
}

// Policy bounds the throttle behavior.
type Policy struct {
	// Threshold is the number of failures inside the window that triggers a
	// lock.
	Threshold int
	// Window is how long failures are remembered.
	Window time.Duration
	// LockDuration is how long a triggered lock holds.
	LockDuration time.Duration
}

// DefaultPolicy matches the usual institutional guidance: five strikes,
// fifteen-minute lock.
func DefaultPolicy() Policy {
	return Policy{Threshold: 5, Window: 15 * time.Minute, LockDuration: 15 * time.Minute}
}

// Service applies a Policy over a Store. All methods fail open: a store
// error must never turn into a login outage, so it is logged and treated as
// "not locked".
type Service struct {
	store  Store
	policy Policy
	logger *slog.Logger
}

func NewService(store Store, policy Policy, logger *slog.Logger) *Service {
	if policy.Threshold <= 0 {
		policy = DefaultPolicy()
	}
	return &Service{store: store, policy: policy, logger: logger}
}

// Locked reports whether the account key is throttled.
func (s *Service) Locked(ctx context.Context, key string) bool {
	locked, err := s.store.Locked(ctx, key)
	if err != nil {
		s.logger.Warn("lockout check failed, failing open", "error", err)
		return false
	}
	return locked
}

// NoteFailure records one failed attempt and reports whether it tripped the
// lock.
func (s *Service) NoteFailure(ctx context.Context, key string) bool {
	count, err := s.store.AddFailure(ctx, key)
	if err != nil {
		s.logger.Warn("lockout failure count failed", "error", err)
		return false
	}
	if count < s.policy.Threshold {
		return false
	}
	if err := s.store.Lock(ctx, key); err != nil {
		s.logger.Warn("lockout trigger failed", "error", err)
		return false
	}
	return true
}

// Clear resets the account after a successful login.
func (s *Service) Clear(ctx context.Context, key string) {
	if err := s.store.Clear(ctx, key); err != nil {
		s.logger.Warn("lockout clear failed", "error", err)
	}
}
