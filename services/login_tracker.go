package services

import (
	"context"
	"math"
	"time"

	"reliefhub-api/models"
)

// AttemptStore keeps failed login attempts and lockouts. Implementations must
// make each call atomic for a single identifier.
type AttemptStore interface {
	// AddFailure drops attempts at or before now-window, records one at now
	// and returns how many remain in the window.
	AddFailure(ctx context.Context, id string, now time.Time, window time.Duration) (int, error)
	// Lock locks id until the given time and forgets its attempts.
	Lock(ctx context.Context, id string, until time.Time) error
	// LockedUntil returns the unlock time of id, if it has one.
	LockedUntil(ctx context.Context, id string) (time.Time, bool, error)
	// Clear forgets attempts and lock for id.
	Clear(ctx context.Context, id string) error
	// Sweep removes aged-out attempt lists and expired locks and returns how
	// many identifiers it dropped.
	Sweep(ctx context.Context, now time.Time, window time.Duration) (int, error)
}

// LoginPolicy bounds failed logins.
type LoginPolicy struct {
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration
}

// DefaultLoginPolicy allows 5 failures in 15 minutes, then locks for 30.
var DefaultLoginPolicy = LoginPolicy{
	MaxAttempts: 5,
	Window:      15 * time.Minute,
	Lockout:     30 * time.Minute,
}

// LockStatus is the lock state of an identifier.
type LockStatus struct {
	Locked           bool
	UnlockAt         time.Time
	RemainingMinutes int
}

// FailureResult is what recording a failed attempt led to.
type FailureResult struct {
	Locked            bool
	UnlockAt          time.Time
	RemainingAttempts int
}

// LoginAttemptTracker locks identifiers out after repeated failed logins.
type LoginAttemptTracker struct {
	store  AttemptStore
	policy LoginPolicy
	now    func() time.Time
}

func NewLoginAttemptTracker(store AttemptStore, policy LoginPolicy) *LoginAttemptTracker {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = DefaultLoginPolicy.MaxAttempts
	}
	if policy.Window <= 0 {
		policy.Window = DefaultLoginPolicy.Window
	}
	if policy.Lockout <= 0 {
		policy.Lockout = DefaultLoginPolicy.Lockout
	}
	return &LoginAttemptTracker{store: store, policy: policy, now: time.Now}
}

// CheckLock reports whether the identifier is locked. An expired lock is
// cleared together with any attempts.
func (t *LoginAttemptTracker) CheckLock(ctx context.Context, identifier string) (LockStatus, error) {
	id := models.NormalizeEmail(identifier)
	until, ok, err := t.store.LockedUntil(ctx, id)
	if err != nil || !ok {
		return LockStatus{}, err
	}

	now := t.now()
	if !now.Before(until) {
		return LockStatus{}, t.store.Clear(ctx, id)
	}
	return LockStatus{
		Locked:           true,
		UnlockAt:         until,
		RemainingMinutes: int(math.Ceil(until.Sub(now).Minutes())),
	}, nil
}

// RecordFailure counts a failed attempt and locks the identifier once the
// window holds MaxAttempts failures.
func (t *LoginAttemptTracker) RecordFailure(ctx context.Context, identifier string) (FailureResult, error) {
	id := models.NormalizeEmail(identifier)
	now := t.now()

	count, err := t.store.AddFailure(ctx, id, now, t.policy.Window)
	if err != nil {
		return FailureResult{}, err
	}

	if count >= t.policy.MaxAttempts {
		until := now.Add(t.policy.Lockout)
		if err := t.store.Lock(ctx, id, until); err != nil {
			return FailureResult{}, err
		}
		return FailureResult{Locked: true, UnlockAt: until}, nil
	}
	return FailureResult{RemainingAttempts: t.policy.MaxAttempts - count}, nil
}

// Clear resets the identifier after a successful login.
func (t *LoginAttemptTracker) Clear(ctx context.Context, identifier string) error {
	return t.store.Clear(ctx, models.NormalizeEmail(identifier))
}

// Sweep drops stale state from the store.
func (t *LoginAttemptTracker) Sweep(ctx context.Context) (int, error) {
	return t.store.Sweep(ctx, t.now(), t.policy.Window)
}
