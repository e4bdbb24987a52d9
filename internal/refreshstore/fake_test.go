package refreshstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/authcore/internal/corerr"
)

func TestRotate_HappyPath(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()
	principalID := uuid.New()

	plaintext, _, err := store.Issue(ctx, principalID, nil, time.Hour)
	require.NoError(t, err)

	newPlaintext, rec, err := store.Rotate(ctx, plaintext, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, newPlaintext)
	assert.Equal(t, principalID, rec.PrincipalID)
}

// S4: reuse of an already-rotated token is theft, and the legitimate
// client's newest token is revoked as a side effect.
func TestRotate_ReuseTriggersTheftAndFamilyRevocation(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()
	principalID := uuid.New()

	r0, _, err := store.Issue(ctx, principalID, nil, time.Hour)
	require.NoError(t, err)

	r1, _, err := store.Rotate(ctx, r0, time.Hour)
	require.NoError(t, err)

	// Attacker replays r0. The returned record must still identify the
	// owning principal so the caller can audit-log who was targeted.
	_, rec, err := store.Rotate(ctx, r0, time.Hour)
	require.Error(t, err)
	var coreErr *corerr.Error
	require.True(t, errors.As(err, &coreErr))
	assert.Equal(t, corerr.KindTheftDetected, coreErr.Kind)
	assert.Equal(t, principalID, rec.PrincipalID)

	// Legitimate client's r1 is now also revoked.
	_, _, err = store.Rotate(ctx, r1, time.Hour)
	require.Error(t, err)
	require.True(t, errors.As(err, &coreErr))
	assert.Equal(t, corerr.KindTheftDetected, coreErr.Kind)
}

func TestRotate_UnknownTokenIsUnauthorized(t *testing.T) {
	store := NewFakeStore()
	_, _, err := store.Rotate(context.Background(), "not-a-real-token", time.Hour)
	require.Error(t, err)
	var coreErr *corerr.Error
	require.True(t, errors.As(err, &coreErr))
	assert.Equal(t, corerr.KindUnauthorized, coreErr.Kind)
}

// Property 5: at any moment, at most one member of a family is non-revoked.
func TestProperty_ConcurrentRotationExactlyOneWinner(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()
	principalID := uuid.New()

	plaintext, _, err := store.Issue(ctx, principalID, nil, time.Hour)
	require.NoError(t, err)

	const attempts = 20
	var wg sync.WaitGroup
	successes := make(chan string, attempts)
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			newToken, _, err := store.Rotate(ctx, plaintext, time.Hour)
			if err == nil {
				successes <- newToken
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	assert.Equal(t, 1, count, "exactly one concurrent rotation should succeed")
}

func TestRevokeAllForPrincipal_IsIdempotent(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()
	principalID := uuid.New()

	_, _, err := store.Issue(ctx, principalID, nil, time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.RevokeAllForPrincipal(ctx, principalID, "sign_out_all"))
	require.NoError(t, store.RevokeAllForPrincipal(ctx, principalID, "sign_out_all"))
}
