// Package oneshot implements single-use tokens for password reset and
// email verification. Token generation and hashing reuse the same
// construction as refreshstore (crypto/rand + sha256), grounded in the
// teacher's recovery.go GenerateSecureToken/hashToken pair, generalized
// with an explicit purpose tag and an atomic consume step.
package oneshot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/authcore/internal/model"
)

// Consume's distinct failure modes. These are
// store-internal — the credential service collapses them into the
// uniform-shape corerr taxonomy at its boundary, keeping the
// enumeration-sensitive outward behavior separate from the store's
// precise internal diagnosis.
var (
	ErrInvalid     = errors.New("oneshot: token not found or purpose mismatch")
	ErrExpired     = errors.New("oneshot: token expired")
	ErrAlreadyUsed = errors.New("oneshot: token already consumed")
)

// Store is the contract this package exposes.
type Store interface {
	// Issue generates a fresh one-shot token for principalID and purpose,
	// storing its hash and expiration, and returns the plaintext once.
	Issue(ctx context.Context, principalID uuid.UUID, purpose model.OneShotPurpose, ttl time.Duration) (plaintext string, err error)

	// Consume looks up plaintext, verifies purpose and expiration, and
	// atomically transitions consumed_at from null to now, returning the
	// owning principal's identity. The check-and-set must be atomic
	// against concurrent consumption.
	Consume(ctx context.Context, plaintext string, purpose model.OneShotPurpose) (principalID uuid.UUID, err error)

	// RevokeOutstanding marks every non-consumed, non-expired token for
	// principalID+purpose as consumed, enforcing at-most-one-outstanding
	// per purpose before a new one is issued.
	RevokeOutstanding(ctx context.Context, principalID uuid.UUID, purpose model.OneShotPurpose) error
}
