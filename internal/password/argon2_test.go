package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerify_RoundTrip(t *testing.T) {
	h := NewArgon2Hasher(DefaultParams(), DefaultPolicy())

	verifier, err := h.Hash("correct-horse-battery-staple")
	require.NoError(t, err)

	ok, needsRehash, err := h.Verify("correct-horse-battery-staple", verifier)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, needsRehash)
}

func TestVerify_WrongPasswordRejected(t *testing.T) {
	h := NewArgon2Hasher(DefaultParams(), DefaultPolicy())

	verifier, err := h.Hash("correct-horse-battery-staple")
	require.NoError(t, err)

	ok, _, err := h.Verify("wrong-password", verifier)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_NeedsRehashWhenParamsChange(t *testing.T) {
	oldParams := Params{MemoryKiB: 8 * 1024, TimeCost: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16}
	old := NewArgon2Hasher(oldParams, DefaultPolicy())
	verifier, err := old.Hash("correct-horse-battery-staple")
	require.NoError(t, err)

	current := NewArgon2Hasher(DefaultParams(), DefaultPolicy())
	ok, needsRehash, err := current.Verify("correct-horse-battery-staple", verifier)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, needsRehash)
}

func TestVerify_MalformedVerifierIsMismatchNotFatal(t *testing.T) {
	h := NewArgon2Hasher(DefaultParams(), DefaultPolicy())

	ok, needsRehash, err := h.Verify("whatever", "not-a-verifier")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, needsRehash)
}

func TestHash_RejectsPolicyViolation(t *testing.T) {
	h := NewArgon2Hasher(DefaultParams(), DefaultPolicy())

	_, err := h.Hash("short")
	require.Error(t, err)
}

func TestHash_RejectsCommonPassword(t *testing.T) {
	h := NewArgon2Hasher(DefaultParams(), DefaultPolicy())

	_, err := h.Hash("password")
	require.Error(t, err)
}
