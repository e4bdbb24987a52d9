// Package pcache implements the bounded-TTL principal cache the token
// resolver uses to avoid a per-request database round-trip. The cache must
// never extend the effective lifetime of a role/tier/active-flag change
// beyond its TTL; callers invalidate explicitly on sign-out-all, role
// assignment, tier change, and account deactivation, or accept the
// bounded staleness.
package pcache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/authcore/internal/model"
)

// Cache is the contract the principal resolver depends on.
type Cache interface {
	Get(ctx context.Context, principalID uuid.UUID) (model.Principal, bool)
	Set(ctx context.Context, principal model.Principal)
	Invalidate(ctx context.Context, principalID uuid.UUID)
}

type entry struct {
	principal model.Principal
	expiresAt time.Time
}

// InProcess is the default Cache: a mutex-guarded map with a fixed TTL,
// the "≤1 second" ceiling by default. Sized for a single process;
// collaborators running multiple instances should use the Redis-backed
// implementation instead so invalidation is visible cluster-wide.
type InProcess struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[uuid.UUID]entry
}

func NewInProcess(ttl time.Duration) *InProcess {
	return &InProcess{
		ttl:     ttl,
		entries: make(map[uuid.UUID]entry),
	}
}

func (c *InProcess) Get(_ context.Context, principalID uuid.UUID) (model.Principal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[principalID]
	if !ok || time.Now().After(e.expiresAt) {
		return model.Principal{}, false
	}
	return e.principal, true
}

func (c *InProcess) Set(_ context.Context, principal model.Principal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[principal.ID] = entry{
		principal: principal,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *InProcess) Invalidate(_ context.Context, principalID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, principalID)
}

var _ Cache = (*InProcess)(nil)
