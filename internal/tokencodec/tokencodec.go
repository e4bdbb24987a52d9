// Package tokencodec implements signing and verification of the
// short-lived access token. Adapted from the prior service's JWTProvider
// (internal/auth/token.go), which signed with RS256 and a PEM key pair;
// here the signing method is HS256 over a shared secret because the
// configuration surface (`jwt_secret: bytes >= 32`) is symmetric, not a
// key pair (see DESIGN.md). Verification is pure and stateless — no I/O.
package tokencodec

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/taskforge/authcore/internal/corerr"
	"github.com/taskforge/authcore/internal/model"
)

// Claims are the required access-token claims: sub, role, tier, iat, exp,
// iss, aud.
type Claims struct {
	Role string     `json:"role"`
	Tier model.Tier `json:"tier"`
	jwt.RegisteredClaims
}

// PrincipalID extracts and parses the sub claim.
func (c Claims) PrincipalID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Config carries the process-wide immutable signing parameters.
type Config struct {
	Secret             []byte
	Issuer             string
	Audience           string
	AccessTokenTTL     time.Duration
	ClockSkewTolerance time.Duration
}

// Codec issues and verifies access tokens. Safe for concurrent use; it
// holds no mutable state after construction.
type Codec struct {
	cfg Config
}

func New(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < 32 {
		return nil, fmt.Errorf("tokencodec: secret must be at least 32 bytes")
	}
	return &Codec{cfg: cfg}, nil
}

// Issue signs a fresh access token for the given principal identity, role,
// and tier.
func (c *Codec) Issue(principalID uuid.UUID, role string, tier model.Tier) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		Tier: tier,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.AccessTokenTTL)),
			Issuer:    c.cfg.Issuer,
			Audience:  jwt.ClaimStrings{c.cfg.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.cfg.Secret)
	if err != nil {
		return "", corerr.Internal(fmt.Errorf("sign access token: %w", err))
	}
	return signed, nil
}

// Verify checks signature, expiration (strict: a token presented exactly
// at exp is rejected), issuer, and audience. It never touches storage.
func (c *Codec) Verify(tokenString string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.cfg.Issuer),
		jwt.WithAudience(c.cfg.Audience),
		jwt.WithLeeway(c.cfg.ClockSkewTolerance),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.cfg.Secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, corerr.Unauthorized
	}
	if _, parseErr := claims.PrincipalID(); parseErr != nil {
		return Claims{}, corerr.Unauthorized
	}
	if !claims.Tier.Valid() {
		return Claims{}, corerr.Unauthorized
	}
	return claims, nil
}
