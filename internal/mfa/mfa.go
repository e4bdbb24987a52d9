// Package mfa implements the TOTP + backup-code second factor gated
// between password verification and token issuance during sign-in. It
// does not change the decision engine; a principal with MFA enabled
// simply must clear this gate before credential.Service issues tokens.
package mfa

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image/png"
	"math/big"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/google/uuid"

	"github.com/taskforge/authcore/internal/corerr"
)

// backupCodeAlphabet excludes I, O, 0, 1 to avoid visual confusion when a
// principal transcribes a recovery code by hand.
const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Enrollment is the material generated by BeginEnrollment: a secret
// pending confirmation and a set of backup codes shown to the principal
// exactly once, in the clear.
type Enrollment struct {
	Secret       string
	QRCode       []byte
	BackupCodes  []string
	BackupHashes []string
}

// Store persists MFA secrets and backup-code hashes, scoped separately
// from PrincipalRepository because most principals never enroll.
type Store interface {
	SaveSecret(ctx context.Context, principalID uuid.UUID, secret string) error
	Enable(ctx context.Context, principalID uuid.UUID) error
	Secret(ctx context.Context, principalID uuid.UUID) (secret string, enabled bool, err error)
	ReplaceBackupCodes(ctx context.Context, principalID uuid.UUID, hashes []string) error
	ConsumeBackupCode(ctx context.Context, principalID uuid.UUID, hash string) (bool, error)
}

// Service issues and validates TOTP secrets and backup codes.
type Service struct {
	issuer string
	store  Store
}

func New(issuer string, store Store) *Service {
	return &Service{issuer: issuer, store: store}
}

// BeginEnrollment generates a new (unconfirmed) TOTP secret and a batch of
// ten backup codes, persisting the secret and the backup-code hashes with
// MFA still disabled — the principal must prove control of the secret via
// ConfirmEnrollment before it is marked enabled.
func (s *Service) BeginEnrollment(ctx context.Context, principalID uuid.UUID, accountName string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: s.issuer, AccountName: accountName})
	if err != nil {
		return nil, corerr.Internal(fmt.Errorf("generate totp key: %w", err))
	}

	qr, err := qrPNG(key)
	if err != nil {
		return nil, corerr.Internal(fmt.Errorf("render qr code: %w", err))
	}

	codes, err := generateBackupCodes(10)
	if err != nil {
		return nil, corerr.Internal(fmt.Errorf("generate backup codes: %w", err))
	}

	if err := s.store.SaveSecret(ctx, principalID, key.Secret()); err != nil {
		return nil, err
	}

	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = hashBackupCode(c)
	}
	if err := s.store.ReplaceBackupCodes(ctx, principalID, hashes); err != nil {
		return nil, err
	}

	return &Enrollment{Secret: key.Secret(), QRCode: qr, BackupCodes: codes, BackupHashes: hashes}, nil
}

// ConfirmEnrollment validates the caller's code against the pending
// secret and, on success, flips it to enabled. The backup codes were
// already persisted (as hashes) by BeginEnrollment; a code is never
// accepted as a valid second factor until Enabled() is true, so an
// attacker who somehow learned a pending backup code still can't sign in
// with it.
func (s *Service) ConfirmEnrollment(ctx context.Context, principalID uuid.UUID, code string) error {
	secret, _, err := s.store.Secret(ctx, principalID)
	if err != nil {
		return err
	}
	if !totp.Validate(code, secret) {
		return corerr.Unauthorized
	}
	return s.store.Enable(ctx, principalID)
}

// Verify checks a caller-supplied code during sign-in against either the
// live TOTP secret or, failing that, an unused backup code — consuming the
// backup code on success so it cannot be replayed.
func (s *Service) Verify(ctx context.Context, principalID uuid.UUID, code string) error {
	secret, enabled, err := s.store.Secret(ctx, principalID)
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}
	if totp.Validate(code, secret) {
		return nil
	}

	ok, err := s.store.ConsumeBackupCode(ctx, principalID, hashBackupCode(code))
	if err != nil {
		return err
	}
	if !ok {
		return corerr.Unauthorized
	}
	return nil
}

// Enabled reports whether a principal has completed MFA enrollment.
func (s *Service) Enabled(ctx context.Context, principalID uuid.UUID) (bool, error) {
	_, enabled, err := s.store.Secret(ctx, principalID)
	return enabled, err
}

func qrPNG(key *otp.Key) ([]byte, error) {
	img, err := key.Image(200, 200)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func generateBackupCodes(count int) ([]string, error) {
	codes := make([]string, count)
	for i := range codes {
		raw := make([]byte, 8)
		for j := range raw {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(backupCodeAlphabet))))
			if err != nil {
				return nil, err
			}
			raw[j] = backupCodeAlphabet[n.Int64()]
		}
		codes[i] = string(raw[:4]) + "-" + string(raw[4:])
	}
	return codes, nil
}

// hashBackupCode stores only a digest: like refreshstore/oneshot tokens,
// backup codes are bearer secrets and must never land in the database in
// recoverable form.
func hashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
