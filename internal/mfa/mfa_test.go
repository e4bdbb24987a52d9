package mfa_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/authcore/internal/mfa"
	"github.com/taskforge/authcore/internal/storage"
)

func TestBeginEnrollment_PersistsSecretAndBackupCodes(t *testing.T) {
	svc := mfa.New("authcore-test", storage.NewFakeMFAStore())

	enrollment, err := svc.BeginEnrollment(t.Context(), uuid.New(), "alice@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.Secret)
	assert.Len(t, enrollment.BackupCodes, 10)
	assert.Len(t, enrollment.BackupHashes, 10)
	assert.NotEmpty(t, enrollment.QRCode)
}

func TestConfirmEnrollment_RequiresValidCode(t *testing.T) {
	svc := mfa.New("authcore-test", storage.NewFakeMFAStore())
	principalID := uuid.New()

	enrollment, err := svc.BeginEnrollment(t.Context(), principalID, "bob@example.com")
	require.NoError(t, err)

	err = svc.ConfirmEnrollment(t.Context(), principalID, "000000")
	require.Error(t, err)

	enabled, err := svc.Enabled(t.Context(), principalID)
	require.NoError(t, err)
	assert.False(t, enabled)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmEnrollment(t.Context(), principalID, code))

	enabled, err = svc.Enabled(t.Context(), principalID)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestVerify_AcceptsTOTPOrUnusedBackupCodeOnce(t *testing.T) {
	svc := mfa.New("authcore-test", storage.NewFakeMFAStore())
	principalID := uuid.New()

	enrollment, err := svc.BeginEnrollment(t.Context(), principalID, "carol@example.com")
	require.NoError(t, err)
	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmEnrollment(t.Context(), principalID, code))

	backupCode := enrollment.BackupCodes[0]
	require.NoError(t, svc.Verify(t.Context(), principalID, backupCode))

	// A consumed backup code cannot be replayed.
	err = svc.Verify(t.Context(), principalID, backupCode)
	require.Error(t, err)
}

func TestVerify_NoOpWhenNotEnrolled(t *testing.T) {
	svc := mfa.New("authcore-test", storage.NewFakeMFAStore())
	require.NoError(t, svc.Verify(t.Context(), uuid.New(), ""))
}
