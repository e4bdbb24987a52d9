package oneshot

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/authcore/internal/model"
	"github.com/taskforge/authcore/internal/refreshstore"
)

type fakeRecord struct {
	principalID uuid.UUID
	purpose     model.OneShotPurpose
	expiresAt   time.Time
	consumed    bool
}

// FakeStore is an in-memory Store for tests exercising the credential service without a
// live database.
type FakeStore struct {
	mu      sync.Mutex
	byHash  map[string]*fakeRecord
}

func NewFakeStore() *FakeStore {
	return &FakeStore{byHash: make(map[string]*fakeRecord)}
}

func (f *FakeStore) Issue(_ context.Context, principalID uuid.UUID, purpose model.OneShotPurpose, ttl time.Duration) (string, error) {
	plaintext, err := refreshstore.GenerateToken()
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.byHash[refreshstore.HashToken(plaintext)] = &fakeRecord{
		principalID: principalID,
		purpose:     purpose,
		expiresAt:   time.Now().Add(ttl),
	}
	return plaintext, nil
}

func (f *FakeStore) Consume(_ context.Context, plaintext string, purpose model.OneShotPurpose) (uuid.UUID, error) {
	hash := refreshstore.HashToken(plaintext)

	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.byHash[hash]
	if !ok || rec.purpose != purpose {
		return uuid.Nil, ErrInvalid
	}
	if time.Now().After(rec.expiresAt) {
		return uuid.Nil, ErrExpired
	}
	if rec.consumed {
		return uuid.Nil, ErrAlreadyUsed
	}
	rec.consumed = true
	return rec.principalID, nil
}

func (f *FakeStore) RevokeOutstanding(_ context.Context, principalID uuid.UUID, purpose model.OneShotPurpose) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rec := range f.byHash {
		if rec.principalID == principalID && rec.purpose == purpose && !rec.consumed && time.Now().Before(rec.expiresAt) {
			rec.consumed = true
		}
	}
	return nil
}

var _ Store = (*FakeStore)(nil)
