package tokencodec

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/authcore/internal/model"
)

func testConfig() Config {
	return Config{
		Secret:             []byte("0123456789abcdef0123456789abcdef"),
		Issuer:             "authcore-test",
		Audience:           "authcore-clients",
		AccessTokenTTL:     15 * time.Minute,
		ClockSkewTolerance: 0,
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	codec, err := New(testConfig())
	require.NoError(t, err)

	principalID := uuid.New()
	token, err := codec.Issue(principalID, model.RoleMember, model.TierPro)
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)

	got, err := claims.PrincipalID()
	require.NoError(t, err)
	assert.Equal(t, principalID, got)
	assert.Equal(t, model.RoleMember, claims.Role)
	assert.Equal(t, model.TierPro, claims.Tier)
}

func TestVerify_RejectsExpiredAtBoundary(t *testing.T) {
	cfg := testConfig()
	codec, err := New(cfg)
	require.NoError(t, err)

	now := time.Now()
	claims := Claims{
		Role: model.RoleMember,
		Tier: model.TierFree,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now), // expires exactly now
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(cfg.Secret)
	require.NoError(t, err)

	_, err = codec.Verify(signed)
	assert.Error(t, err)
}

func TestVerify_RejectsWrongAudience(t *testing.T) {
	codec, err := New(testConfig())
	require.NoError(t, err)

	other := testConfig()
	other.Audience = "someone-else"
	otherCodec, err := New(other)
	require.NoError(t, err)

	token, err := otherCodec.Issue(uuid.New(), model.RoleMember, model.TierFree)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.Error(t, err)
}

func TestVerify_RejectsTamperedSignature(t *testing.T) {
	codec, err := New(testConfig())
	require.NoError(t, err)

	token, err := codec.Issue(uuid.New(), model.RoleMember, model.TierFree)
	require.NoError(t, err)

	_, err = codec.Verify(token + "tampered")
	assert.Error(t, err)
}
