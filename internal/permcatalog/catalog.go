// Package permcatalog is the static, hot-swappable mapping from role name
// to permission set and from tier name to privilege. It
// generalizes a fixed role-weight table (rbac.go) into
// data-driven catalog that can be reseeded at runtime without a restart.
package permcatalog

import (
	"sync/atomic"

	"github.com/taskforge/authcore/internal/model"
)

// Catalog holds the two pure mappings the decision engine consults. It is
// never mutated in place; reloads build a new Catalog and swap it in.
type Catalog struct {
	roles map[string]model.Role
	tiers map[model.Tier]model.Privilege

	// featureRequirements declares which (resource, action) pairs at or
	// above a scope require a named feature.
	featureRequirements []FeatureRequirement
}

// FeatureRequirement ties a resource/action/minimum-scope combination to a
// required feature flag.
type FeatureRequirement struct {
	Resource string
	Action   model.Action
	MinScope model.Scope
	Feature  string
}

// Store is the process-wide holder for the active Catalog, swapped
// atomically on Reload so in-flight decisions never observe a torn view.
type Store struct {
	ptr atomic.Pointer[Catalog]
}

func NewStore(initial *Catalog) *Store {
	s := &Store{}
	s.ptr.Store(initial)
	return s
}

// Reload atomically replaces the active catalog.
func (s *Store) Reload(c *Catalog) {
	s.ptr.Store(c)
}

// Current returns the active catalog.
func (s *Store) Current() *Catalog {
	return s.ptr.Load()
}

// New builds a Catalog from explicit role and tier maps. Callers typically
// start from Seed() and layer custom roles on top.
func New(roles map[string]model.Role, tiers map[model.Tier]model.Privilege, reqs []FeatureRequirement) *Catalog {
	return &Catalog{roles: roles, tiers: tiers, featureRequirements: reqs}
}

// PermissionsFor returns the permission set for a role name. The returned
// slice is a pure lookup result; an unknown role yields an empty set, not
// an error — the decision engine treats that as role_insufficient.
func (c *Catalog) PermissionsFor(role string) []model.Permission {
	r, ok := c.roles[role]
	if !ok {
		return nil
	}
	return r.Permissions
}

// Role returns the full role record, for callers that need DisplayName or
// Active beyond the permission set.
func (c *Catalog) Role(name string) (model.Role, bool) {
	r, ok := c.roles[name]
	return r, ok
}

// PrivilegeFor returns the privilege bundle for a tier. Unknown tiers
// return an empty privilege. The token codec rejects access tokens whose
// tier claim is unknown; the tier loaded from storage is not re-validated.
func (c *Catalog) PrivilegeFor(tier model.Tier) model.Privilege {
	return c.tiers[tier]
}

// RequiredFeature returns the feature flag gating (resource, action) at the
// given scope, if any. Only the requirement with the highest MinScope at or
// below scope applies.
func (c *Catalog) RequiredFeature(resource string, action model.Action, scope model.Scope) (string, bool) {
	var best *FeatureRequirement
	for i := range c.featureRequirements {
		req := &c.featureRequirements[i]
		if req.Resource != resource {
			continue
		}
		if !action.AtLeast(req.Action) {
			continue
		}
		if !scope.AtLeast(req.MinScope) {
			continue
		}
		if best == nil || req.MinScope.AtLeast(best.MinScope) {
			best = req
		}
	}
	if best == nil {
		return "", false
	}
	return best.Feature, true
}

// WithRole returns a copy of the catalog with the given role upserted,
// used by the administrator-mutable custom-role path. The
// original catalog is left untouched; callers pass the result to
// Store.Reload.
func (c *Catalog) WithRole(r model.Role) *Catalog {
	next := make(map[string]model.Role, len(c.roles)+1)
	for k, v := range c.roles {
		next[k] = v
	}
	next[r.Name] = r
	return &Catalog{roles: next, tiers: c.tiers, featureRequirements: c.featureRequirements}
}
