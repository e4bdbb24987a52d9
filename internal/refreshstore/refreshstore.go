// Package refreshstore implements persistent refresh-token records,
// rotation, reuse-after-rotation (theft) detection, and bulk revocation.
// Token generation and hashing follow the prior service's recovery.go pattern
// (crypto/rand + base64 for the plaintext, sha256 hex for the lookup
// hash), generalized from single-use recovery tokens to the rotating
// refresh-token family.
package refreshstore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/authcore/internal/corerr"
	"github.com/taskforge/authcore/internal/model"
)

// Store is the contract this package exposes. Implementations must make Rotate
// atomic against concurrent presentation of the same plaintext: exactly one caller observes success, the rest
// observe invalid or theft.
type Store interface {
	// Issue generates a fresh refresh token for principalID, optionally
	// chained from parent (nil for the first token in a family), and
	// returns the plaintext exactly once.
	Issue(ctx context.Context, principalID uuid.UUID, parent *uuid.UUID, ttl time.Duration) (plaintext string, record model.RefreshTokenRecord, err error)

	// Rotate looks up plaintext by hash. If found, not revoked, not
	// expired: revokes it with reason "rotated", issues a successor
	// chained to it, and returns the new plaintext. If found but already
	// revoked, it performs family revocation and returns corerr.TheftDetected
	// along with the existing (pre-rotation) record, so the caller can still
	// attribute the theft to its owning principal. Otherwise returns
	// corerr.Unauthorized.
	Rotate(ctx context.Context, plaintext string, ttl time.Duration) (newPlaintext string, record model.RefreshTokenRecord, err error)

	// RevokeFamilyByToken revokes every member of the family reachable
	// from plaintext's token (root and all descendants).
	RevokeFamilyByToken(ctx context.Context, plaintext string, reason string) error

	// RevokeAllForPrincipal revokes every refresh-token family belonging
	// to principalID — used by sign-out-all, password change, and
	// password reset completion.
	RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID, reason string) error

	// RevokeExpired sweeps and removes records whose expiration has
	// passed, returning the count removed.
	RevokeExpired(ctx context.Context) (int64, error)
}

// GenerateToken produces a fresh opaque token with at least 256 bits of
// entropy.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", corerr.Internal(err)
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b), nil
}

// HashToken deterministically hashes a plaintext for lookup/storage.
// Plaintext tokens never appear in logs or audit records; only this hash
// is persisted.
func HashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
