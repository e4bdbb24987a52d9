package refreshstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/authcore/internal/corerr"
	"github.com/taskforge/authcore/internal/model"
)

// FakeStore is an in-memory Store used by tests that exercise the
// rotation and reuse-detection logic without a live database.
// It honors the same atomicity contract as PostgresStore under a single
// mutex, which is sufficient to test the decision logic even though it is
// not representative of cross-process concurrency.
type FakeStore struct {
	mu      sync.Mutex
	byHash  map[string]*model.RefreshTokenRecord
	parent  map[uuid.UUID]*uuid.UUID
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		byHash: make(map[string]*model.RefreshTokenRecord),
		parent: make(map[uuid.UUID]*uuid.UUID),
	}
}

func (f *FakeStore) Issue(_ context.Context, principalID uuid.UUID, parent *uuid.UUID, ttl time.Duration) (string, model.RefreshTokenRecord, error) {
	plaintext, err := GenerateToken()
	if err != nil {
		return "", model.RefreshTokenRecord{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	rec := model.RefreshTokenRecord{
		ID:          uuid.New(),
		PrincipalID: principalID,
		TokenHash:   HashToken(plaintext),
		ParentID:    parent,
		IssuedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(ttl),
	}
	f.byHash[rec.TokenHash] = &rec
	f.parent[rec.ID] = parent
	return plaintext, rec, nil
}

func (f *FakeStore) Rotate(_ context.Context, plaintext string, ttl time.Duration) (string, model.RefreshTokenRecord, error) {
	hash := HashToken(plaintext)

	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.byHash[hash]
	if !ok {
		return "", model.RefreshTokenRecord{}, corerr.Unauthorized
	}

	if rec.Revoked {
		f.revokeFamilyLocked(rec.ID, "theft_detected")
		return "", *rec, corerr.TheftDetected
	}

	if time.Now().After(rec.ExpiresAt) {
		return "", model.RefreshTokenRecord{}, corerr.Unauthorized
	}

	now := time.Now()
	rec.Revoked = true
	rec.RevokedReason = "rotated"
	rec.RevokedAt = &now

	newPlaintext, err := GenerateToken()
	if err != nil {
		return "", model.RefreshTokenRecord{}, err
	}
	parentID := rec.ID
	newRec := model.RefreshTokenRecord{
		ID:          uuid.New(),
		PrincipalID: rec.PrincipalID,
		TokenHash:   HashToken(newPlaintext),
		ParentID:    &parentID,
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
	}
	f.byHash[newRec.TokenHash] = &newRec
	f.parent[newRec.ID] = &parentID
	return newPlaintext, newRec, nil
}

func (f *FakeStore) RevokeFamilyByToken(_ context.Context, plaintext string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.byHash[HashToken(plaintext)]
	if !ok {
		return nil
	}
	f.revokeFamilyLocked(rec.ID, reason)
	return nil
}

func (f *FakeStore) RevokeAllForPrincipal(_ context.Context, principalID uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	for _, rec := range f.byHash {
		if rec.PrincipalID == principalID && !rec.Revoked {
			rec.Revoked = true
			rec.RevokedReason = reason
			rec.RevokedAt = &now
		}
	}
	return nil
}

func (f *FakeStore) RevokeExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	now := time.Now()
	for hash, rec := range f.byHash {
		if now.After(rec.ExpiresAt) {
			delete(f.byHash, hash)
			delete(f.parent, rec.ID)
			n++
		}
	}
	return n, nil
}

// revokeFamilyLocked walks to the family root then revokes every
// descendant, mirroring PostgresStore.revokeFamily's recursive-CTE
// semantics. Caller must hold f.mu.
func (f *FakeStore) revokeFamilyLocked(id uuid.UUID, reason string) {
	root := id
	for {
		parent := f.parent[root]
		if parent == nil {
			break
		}
		root = *parent
	}

	now := time.Now()
	for _, rec := range f.byHash {
		if f.isDescendantOf(rec.ID, root) && !rec.Revoked {
			rec.Revoked = true
			rec.RevokedReason = reason
			rec.RevokedAt = &now
		}
	}
}

func (f *FakeStore) isDescendantOf(id, root uuid.UUID) bool {
	cur := id
	for {
		if cur == root {
			return true
		}
		parent := f.parent[cur]
		if parent == nil {
			return false
		}
		cur = *parent
	}
}

var _ Store = (*FakeStore)(nil)
