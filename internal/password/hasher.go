// Package password hashes and verifies user passwords with bcrypt.
//
// bcrypt is CPU bound, so every call takes a slot from a weighted semaphore sized
// to GOMAXPROCS. Waiting for a slot honours context cancellation, which keeps a
// burst of logins from starving unrelated requests and lets abandoned requests
// give up before any work is done.
package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost is the bcrypt cost factor used for all stored hashes.
const DefaultCost = 10

// dummyHash is compared against when there is no real hash so that the
// "unknown account" path costs the same as a wrong password.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Hasher hashes and compares passwords under a concurrency limit.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewHasher creates a hasher with the given bcrypt cost and concurrency limit.
// Non-positive values select DefaultCost and GOMAXPROCS.
func NewHasher(cost, concurrency int) *Hasher {
	if cost <= 0 {
		cost = DefaultCost
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(concurrency))}
}

// Hash returns the bcrypt hash of plain.
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare reports whether plain matches hashed. An empty hash never matches
// but still burns a comparison.
func (h *Hasher) Compare(ctx context.Context, hashed, plain string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	if hashed == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plain))
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password: %w", err)
	}
	return true, nil
}

// Burn performs a throwaway comparison. Used when the account does not exist.
func (h *Hasher) Burn(ctx context.Context, plain string) {
	_, _ = h.Compare(ctx, "", plain)
}
