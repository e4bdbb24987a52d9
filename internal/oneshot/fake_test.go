package oneshot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/authcore/internal/model"
)

func TestConsume_HappyPath(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()
	principalID := uuid.New()

	plaintext, err := store.Issue(ctx, principalID, model.PurposePasswordReset, time.Hour)
	require.NoError(t, err)

	got, err := store.Consume(ctx, plaintext, model.PurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, principalID, got)
}

func TestConsume_WrongPurposeIsInvalid(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()
	principalID := uuid.New()

	plaintext, err := store.Issue(ctx, principalID, model.PurposePasswordReset, time.Hour)
	require.NoError(t, err)

	_, err = store.Consume(ctx, plaintext, model.PurposeEmailVerification)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestConsume_SecondAttemptIsAlreadyUsed(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()
	principalID := uuid.New()

	plaintext, err := store.Issue(ctx, principalID, model.PurposePasswordReset, time.Hour)
	require.NoError(t, err)

	_, err = store.Consume(ctx, plaintext, model.PurposePasswordReset)
	require.NoError(t, err)

	_, err = store.Consume(ctx, plaintext, model.PurposePasswordReset)
	assert.ErrorIs(t, err, ErrAlreadyUsed)
}

func TestConsume_ExpiredToken(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()
	principalID := uuid.New()

	plaintext, err := store.Issue(ctx, principalID, model.PurposePasswordReset, -time.Minute)
	require.NoError(t, err)

	_, err = store.Consume(ctx, plaintext, model.PurposePasswordReset)
	assert.ErrorIs(t, err, ErrExpired)
}

// Property 6 / boundary: concurrent consumption of the same token results
// in exactly one success.
func TestProperty_ConcurrentConsumptionExactlyOneSuccess(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()
	principalID := uuid.New()

	plaintext, err := store.Issue(ctx, principalID, model.PurposePasswordReset, time.Hour)
	require.NoError(t, err)

	const attempts = 25
	var wg sync.WaitGroup
	var successCount int
	var mu sync.Mutex
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			if _, err := store.Consume(ctx, plaintext, model.PurposePasswordReset); err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successCount)
}

func TestRevokeOutstanding_MakesPriorTokenUnusable(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()
	principalID := uuid.New()

	plaintext, err := store.Issue(ctx, principalID, model.PurposePasswordReset, time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.RevokeOutstanding(ctx, principalID, model.PurposePasswordReset))

	_, err = store.Consume(ctx, plaintext, model.PurposePasswordReset)
	assert.ErrorIs(t, err, ErrAlreadyUsed)
}
