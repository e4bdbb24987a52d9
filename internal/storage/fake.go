package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/taskforge/authcore/internal/corerr"
	"github.com/taskforge/authcore/internal/model"
)

// FakePrincipalRepository is an in-memory PrincipalRepository for tests
// exercising the credential service and principal resolver without a live database.
type FakePrincipalRepository struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]*model.Principal
	verifiers  map[uuid.UUID]string
}

func NewFakePrincipalRepository() *FakePrincipalRepository {
	return &FakePrincipalRepository{
		byID:      make(map[uuid.UUID]*model.Principal),
		verifiers: make(map[uuid.UUID]string),
	}
}

func (f *FakePrincipalRepository) Create(_ context.Context, handle, contact, passwordVerifier string, role string, tier model.Tier) (model.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.byID {
		if p.Handle == handle || p.Contact == contact {
			return model.Principal{}, corerr.Conflict("handle or contact already registered")
		}
	}

	p := model.Principal{
		ID:      uuid.New(),
		Handle:  handle,
		Contact: contact,
		Active:  true,
		Role:    role,
		Tier:    tier,
	}
	f.byID[p.ID] = &p
	f.verifiers[p.ID] = passwordVerifier
	return p, nil
}

func (f *FakePrincipalRepository) GetByID(_ context.Context, id uuid.UUID) (model.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.byID[id]
	if !ok {
		return model.Principal{}, corerr.Unauthorized
	}
	return *p, nil
}

func (f *FakePrincipalRepository) GetByHandleOrContact(_ context.Context, identifier string) (model.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.byID {
		if p.Handle == identifier || p.Contact == identifier {
			return *p, nil
		}
	}
	return model.Principal{}, corerr.Unauthorized
}

func (f *FakePrincipalRepository) PasswordVerifier(_ context.Context, id uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.verifiers[id]
	if !ok {
		return "", corerr.Unauthorized
	}
	return v, nil
}

func (f *FakePrincipalRepository) UpdatePasswordVerifier(_ context.Context, id uuid.UUID, verifier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.byID[id]; !ok {
		return corerr.Unauthorized
	}
	f.verifiers[id] = verifier
	return nil
}

func (f *FakePrincipalRepository) SetVerified(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.byID[id]
	if !ok {
		return corerr.Unauthorized
	}
	p.Verified = true
	return nil
}

func (f *FakePrincipalRepository) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.byID[id]
	if !ok {
		return corerr.Unauthorized
	}
	p.Active = active
	return nil
}

func (f *FakePrincipalRepository) SetRole(_ context.Context, id uuid.UUID, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.byID[id]
	if !ok {
		return corerr.Unauthorized
	}
	p.Role = role
	return nil
}

func (f *FakePrincipalRepository) SetTier(_ context.Context, id uuid.UUID, tier model.Tier) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.byID[id]
	if !ok {
		return corerr.Unauthorized
	}
	p.Tier = tier
	return nil
}

var _ PrincipalRepository = (*FakePrincipalRepository)(nil)
