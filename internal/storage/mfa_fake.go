package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// FakeMFAStore is an in-memory mfa.Store used by credential service tests.
type FakeMFAStore struct {
	mu      sync.Mutex
	secrets map[uuid.UUID]string
	enabled map[uuid.UUID]bool
	codes   map[uuid.UUID]map[string]struct{}
}

func NewFakeMFAStore() *FakeMFAStore {
	return &FakeMFAStore{
		secrets: make(map[uuid.UUID]string),
		enabled: make(map[uuid.UUID]bool),
		codes:   make(map[uuid.UUID]map[string]struct{}),
	}
}

func (s *FakeMFAStore) SaveSecret(_ context.Context, principalID uuid.UUID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[principalID] = secret
	s.enabled[principalID] = false
	return nil
}

func (s *FakeMFAStore) Enable(_ context.Context, principalID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled[principalID] = true
	return nil
}

func (s *FakeMFAStore) Secret(_ context.Context, principalID uuid.UUID) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	secret, ok := s.secrets[principalID]
	if !ok {
		return "", false, nil
	}
	return secret, s.enabled[principalID], nil
}

func (s *FakeMFAStore) ReplaceBackupCodes(_ context.Context, principalID uuid.UUID, hashes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		set[h] = struct{}{}
	}
	s.codes[principalID] = set
	return nil
}

func (s *FakeMFAStore) ConsumeBackupCode(_ context.Context, principalID uuid.UUID, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.codes[principalID]
	if !ok {
		return false, nil
	}
	if _, ok := set[hash]; !ok {
		return false, nil
	}
	delete(set, hash)
	return true, nil
}
