// Package credential implements the credential service composing
// password hashing, token issuance, refresh-token rotation, and one-shot
// tokens into the sign-up/sign-in/refresh/sign-out/reset/verify use
// cases. Adapted from the prior service's AuthService (internal/auth/service.go)
// — same method-per-use-case shape, same "silence is golden"
// enumeration-prevention idiom for sign-in and password-reset-request —
// generalized from a tenant-scoped concrete struct onto
// interfaces (storage.PrincipalRepository, refreshstore.Store,
// oneshot.Store) so it is unit-testable with the fakes
package credential

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/authcore/internal/audit"
	"github.com/taskforge/authcore/internal/corerr"
	"github.com/taskforge/authcore/internal/mfa"
	"github.com/taskforge/authcore/internal/model"
	"github.com/taskforge/authcore/internal/oneshot"
	"github.com/taskforge/authcore/internal/password"
	"github.com/taskforge/authcore/internal/principal"
	"github.com/taskforge/authcore/internal/refreshstore"
	"github.com/taskforge/authcore/internal/storage"
	"github.com/taskforge/authcore/internal/tokencodec"
)

// TTLs bundles the durations the credential service needs for issuing
// access tokens, refresh tokens, and one-shot tokens.
type TTLs struct {
	AccessToken   time.Duration
	RefreshToken  time.Duration
	OneShotReset  time.Duration
	OneShotVerify time.Duration
}

// Service composes password hashing, token issuance, refresh-token
// rotation, and one-shot tokens into the credential lifecycle.
type Service struct {
	principals  storage.PrincipalRepository
	hasher      password.Hasher
	codec       *tokencodec.Codec
	resolver    *principal.Resolver
	refresh     refreshstore.Store
	oneshots    oneshot.Store
	mfaSvc      *mfa.Service
	auditSink   *audit.QueuedSink
	ttls        TTLs
	defaultRole string
	defaultTier model.Tier
}

func New(
	principals storage.PrincipalRepository,
	hasher password.Hasher,
	codec *tokencodec.Codec,
	resolver *principal.Resolver,
	refresh refreshstore.Store,
	oneshots oneshot.Store,
	auditSink *audit.QueuedSink,
	ttls TTLs,
) *Service {
	return &Service{
		principals:  principals,
		hasher:      hasher,
		codec:       codec,
		resolver:    resolver,
		refresh:     refresh,
		oneshots:    oneshots,
		auditSink:   auditSink,
		ttls:        ttls,
		defaultRole: model.RoleMember,
		defaultTier: model.TierFree,
	}
}

// WithMFA attaches the optional second-factor gate. A Service with no MFA
// service never challenges for a code, regardless of per-principal
// enrollment state — used by tests that don't exercise MFA.
func (s *Service) WithMFA(svc *mfa.Service) *Service {
	s.mfaSvc = svc
	return s
}

// dummyVerifier is a fixed, never-matching Argon2id verifier run against
// unknown or unresolvable principals so the hasher's cost is paid the
// same way regardless of whether the principal exists.
const dummyVerifier = "$argon2id$v=19$m=65536,t=3,p=2$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

func (s *Service) emit(kind audit.EventKind, principalID *uuid.UUID, payload map[string]any) {
	if s.auditSink == nil {
		return
	}
	s.auditSink.Emit(audit.Record{
		Kind:        kind,
		PrincipalID: principalID,
		At:          time.Now(),
		Payload:     payload,
	})
}

// SignUp enforces uniqueness of handle and contact, hashes the password
// via the password hasher, creates the principal with the default role and free tier, and
// issues an email-verification one-shot token.
func (s *Service) SignUp(ctx context.Context, handle, contact, plaintextPassword string) (model.Principal, error) {
	verifier, err := s.hasher.Hash(plaintextPassword)
	if err != nil {
		return model.Principal{}, err
	}

	p, err := s.principals.Create(ctx, handle, contact, verifier, s.defaultRole, s.defaultTier)
	if err != nil {
		return model.Principal{}, err
	}

	if _, err := s.oneshots.Issue(ctx, p.ID, model.PurposeEmailVerification, s.ttls.OneShotVerify); err != nil {
		return model.Principal{}, corerr.Internal(err)
	}

	return p, nil
}

// SignInResult is the credential pair returned by SignIn and Refresh.
type SignInResult struct {
	AccessToken      string
	RefreshPlaintext string
	Principal        model.Principal
}

// SignIn resolves the principal by handle or contact, verifies the
// password, optionally triggers a silent rehash, and issues fresh
// access/refresh tokens. Every failure path — unknown principal, bad
// password, inactive account — returns the identical corerr.Unauthorized
// value with no distinguishing detail, preventing enumeration.
func (s *Service) SignIn(ctx context.Context, identifier, plaintextPassword, mfaCode string) (SignInResult, error) {
	p, err := s.principals.GetByHandleOrContact(ctx, identifier)
	if err != nil {
		// Run the hasher against a fixed dummy verifier so the unknown-
		// principal path costs the same as a real verification attempt.
		_, _, _ = s.hasher.Verify(plaintextPassword, dummyVerifier)
		s.emit(audit.EventSignInFailed, nil, map[string]any{"reason": "unknown_principal"})
		return SignInResult{}, corerr.Unauthorized
	}

	verifier, verifierErr := s.principals.PasswordVerifier(ctx, p.ID)
	if verifierErr != nil {
		verifier = dummyVerifier
	}

	ok, needsRehash, err := s.hasher.Verify(plaintextPassword, verifier)
	if err != nil {
		return SignInResult{}, corerr.Internal(err)
	}
	if !ok {
		s.emit(audit.EventSignInFailed, &p.ID, map[string]any{"reason": "bad_password"})
		return SignInResult{}, corerr.Unauthorized
	}

	if !p.Active || verifierErr != nil {
		s.emit(audit.EventSignInFailed, &p.ID, map[string]any{"reason": "inactive"})
		return SignInResult{}, corerr.Unauthorized
	}

	if needsRehash {
		if rehashed, err := s.hasher.Hash(plaintextPassword); err == nil {
			_ = s.principals.UpdatePasswordVerifier(ctx, p.ID, rehashed)
		}
	}

	if s.mfaSvc != nil {
		enabled, err := s.mfaSvc.Enabled(ctx, p.ID)
		if err != nil {
			return SignInResult{}, corerr.Internal(err)
		}
		if enabled {
			if err := s.mfaSvc.Verify(ctx, p.ID, mfaCode); err != nil {
				s.emit(audit.EventSignInFailed, &p.ID, map[string]any{"reason": "mfa_rejected"})
				return SignInResult{}, corerr.Unauthorized
			}
		}
	}

	access, err := s.codec.Issue(p.ID, p.Role, p.Tier)
	if err != nil {
		return SignInResult{}, err
	}
	refreshPlaintext, _, err := s.refresh.Issue(ctx, p.ID, nil, s.ttls.RefreshToken)
	if err != nil {
		return SignInResult{}, corerr.Internal(err)
	}

	s.emit(audit.EventSignInSuccess, &p.ID, nil)
	return SignInResult{AccessToken: access, RefreshPlaintext: refreshPlaintext, Principal: p}, nil
}

// Refresh rotates the refresh token via the refresh store and re-issues an access token
// using the *freshly loaded* role and tier — the principal row is read
// straight from the principal repository (bypassing the resolver's cache)
// so role/tier changes take effect on refresh without forcing re-login. On theft, it returns unauthorized and relies on
// the refresh store's family-revocation side effect.
func (s *Service) Refresh(ctx context.Context, refreshPlaintext string) (SignInResult, error) {
	newRefresh, record, err := s.refresh.Rotate(ctx, refreshPlaintext, s.ttls.RefreshToken)
	if err != nil {
		if cerr, ok := err.(*corerr.Error); ok && cerr.Kind == corerr.KindTheftDetected {
			s.emit(audit.EventRefreshTheft, &record.PrincipalID, nil)
		}
		return SignInResult{}, corerr.Unauthorized
	}

	p, err := s.principals.GetByID(ctx, record.PrincipalID)
	if err != nil {
		return SignInResult{}, corerr.Unauthorized
	}
	if !p.Active {
		return SignInResult{}, corerr.Unauthorized
	}

	access, err := s.codec.Issue(p.ID, p.Role, p.Tier)
	if err != nil {
		return SignInResult{}, err
	}

	s.emit(audit.EventRefreshRotated, &p.ID, nil)
	return SignInResult{AccessToken: access, RefreshPlaintext: newRefresh, Principal: p}, nil
}

// SignOut revokes every token in the presented refresh token's family.
// A family has at most one live token, so for the current token this ends
// just that one session; presenting an already-rotated token of the family
// also revokes its live successor. Already-issued access tokens
// remain valid until their own expiration, a deliberate trade-off against
// not tracking access-token state server-side.
func (s *Service) SignOut(ctx context.Context, refreshPlaintext string) error {
	if err := s.refresh.RevokeFamilyByToken(ctx, refreshPlaintext, "signed_out"); err != nil {
		return corerr.Internal(err)
	}
	s.emit(audit.EventSignOut, nil, nil)
	return nil
}

// SignOutAll revokes every refresh-token family for the principal. A
// second call for the same principal is a no-op.
func (s *Service) SignOutAll(ctx context.Context, principalID uuid.UUID) error {
	if err := s.refresh.RevokeAllForPrincipal(ctx, principalID, "signed_out_all"); err != nil {
		return corerr.Internal(err)
	}
	if s.resolver != nil {
		s.resolver.Invalidate(ctx, principalID)
	}
	s.emit(audit.EventSignOutAll, &principalID, nil)
	return nil
}

// RequestPasswordReset always returns success regardless of whether
// contact exists, per spec's enumeration-prevention requirement.
func (s *Service) RequestPasswordReset(ctx context.Context, contact string) error {
	p, err := s.principals.GetByHandleOrContact(ctx, contact)
	if err != nil {
		return nil // silence is golden: pretend success
	}

	if err := s.oneshots.RevokeOutstanding(ctx, p.ID, model.PurposePasswordReset); err != nil {
		return corerr.Internal(err)
	}
	if _, err := s.oneshots.Issue(ctx, p.ID, model.PurposePasswordReset, s.ttls.OneShotReset); err != nil {
		return corerr.Internal(err)
	}
	return nil
}

// CompletePasswordReset consumes the reset token, updates the verifier,
// and revokes every refresh-token family — password change means
// presumed compromise, so the revocation is mandatory.
func (s *Service) CompletePasswordReset(ctx context.Context, resetPlaintext, newPassword string) error {
	principalID, err := s.oneshots.Consume(ctx, resetPlaintext, model.PurposePasswordReset)
	if err != nil {
		return corerr.Unauthorized
	}

	verifier, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.principals.UpdatePasswordVerifier(ctx, principalID, verifier); err != nil {
		return err
	}
	if err := s.refresh.RevokeAllForPrincipal(ctx, principalID, "password_reset"); err != nil {
		return corerr.Internal(err)
	}
	if s.resolver != nil {
		s.resolver.Invalidate(ctx, principalID)
	}

	s.emit(audit.EventPasswordResetDone, &principalID, nil)
	return nil
}

// VerifyEmail consumes a verification one-shot token and sets the
// verified flag.
func (s *Service) VerifyEmail(ctx context.Context, verifyPlaintext string) error {
	principalID, err := s.oneshots.Consume(ctx, verifyPlaintext, model.PurposeEmailVerification)
	if err != nil {
		return corerr.Unauthorized
	}
	if err := s.principals.SetVerified(ctx, principalID); err != nil {
		return err
	}
	if s.resolver != nil {
		s.resolver.Invalidate(ctx, principalID)
	}
	return nil
}

// ChangePassword verifies the current password, hashes the new one, and
// revokes every refresh-token family (same rationale as password reset).
func (s *Service) ChangePassword(ctx context.Context, principalID uuid.UUID, current, newPassword string) error {
	verifier, err := s.principals.PasswordVerifier(ctx, principalID)
	if err != nil {
		return corerr.Unauthorized
	}

	ok, _, err := s.hasher.Verify(current, verifier)
	if err != nil {
		return corerr.Internal(err)
	}
	if !ok {
		return corerr.Unauthorized
	}

	newVerifier, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.principals.UpdatePasswordVerifier(ctx, principalID, newVerifier); err != nil {
		return err
	}
	if err := s.refresh.RevokeAllForPrincipal(ctx, principalID, "password_changed"); err != nil {
		return corerr.Internal(err)
	}
	if s.resolver != nil {
		s.resolver.Invalidate(ctx, principalID)
	}

	s.emit(audit.EventPasswordChanged, &principalID, nil)
	return nil
}
