package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshTokenRecord is a persisted refresh-token row. The
// plaintext token is never part of this type — only its hash.
type RefreshTokenRecord struct {
	ID          uuid.UUID
	PrincipalID uuid.UUID
	TokenHash   string
	ParentID    *uuid.UUID
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Revoked     bool
	RevokedAt   *time.Time
	RevokedReason string
	LastUsedAt  *time.Time
}

// OneShotPurpose tags what a one-shot token is for.
type OneShotPurpose string

const (
	PurposePasswordReset   OneShotPurpose = "reset"
	PurposeEmailVerification OneShotPurpose = "verification"
)

// OneShotTokenRecord is a persisted one-shot-token row.
type OneShotTokenRecord struct {
	ID          uuid.UUID
	PrincipalID uuid.UUID
	TokenHash   string
	Purpose     OneShotPurpose
	IssuedAt    time.Time
	ExpiresAt   time.Time
	ConsumedAt  *time.Time
}
