package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// PasswordHasher wraps bcrypt behind a weighted semaphore so that a burst of
// registrations or logins cannot occupy every request-handling goroutine
// with CPU-bound hashing. Callers queue on Acquire and honour context
// cancellation while they wait.
type PasswordHasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewPasswordHasher constructs a hasher with the given bcrypt cost and a cap
// on concurrent hash computations.
func NewPasswordHasher(cost, concurrency int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &PasswordHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(concurrency)),
	}
}

// Hash computes the bcrypt hash of the plaintext password.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire hashing slot: %w", err)
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare reports whether the plaintext password matches the stored hash.
// A mismatch returns ErrInvalidCredentials.
func (h *PasswordHasher) Compare(ctx context.Context, hash, password string) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire hashing slot: %w", err)
	}
	defer h.sem.Release(1)

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
