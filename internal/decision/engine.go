// Package decision implements the authorization decision engine: a
// pure, synchronous function of (principal, resource, action, target) that
// never performs I/O and never suspends.
package decision

import (
	"github.com/taskforge/authcore/internal/model"
	"github.com/taskforge/authcore/internal/permcatalog"
)

// Engine evaluates decide() against a catalog snapshot. It holds no
// mutable state of its own beyond the catalog reference it was built with.
type Engine struct {
	catalog *permcatalog.Catalog
}

func New(catalog *permcatalog.Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Decide runs the authorization algorithm against a single catalog
// snapshot. target is nil for list/create operations that have no
// concrete row to check against.
func (e *Engine) Decide(principal model.Principal, resource string, action model.Action, target *model.Target) model.Decision {
	// 1. Short-circuit deny.
	if !principal.Active {
		return model.Deny(model.DenialInactive)
	}

	privilege := e.catalog.PrivilegeFor(principal.Tier)

	// 2. Administrator bypass.
	if principal.Role == model.RoleAdministrator {
		return model.Allow(model.ScopeGlobal, privilege)
	}

	// 3. Permission lookup: filter to matching resource with action >= requested.
	candidates := e.catalog.PermissionsFor(principal.Role)
	var bestScope model.Scope
	found := false
	for _, p := range candidates {
		if !matchesResource(p.Resource, resource) {
			continue
		}
		if !p.Action.AtLeast(action) {
			continue
		}
		// 4. Scope selection: keep the maximal scope among matches.
		if !found || p.Scope.AtLeast(bestScope) {
			bestScope = p.Scope
			found = true
		}
	}
	if !found {
		return model.Deny(model.DenialRoleInsufficient)
	}

	// 5. Target compatibility check. A nil target (list/create) has nothing
	// to check scope reach against, so instead degrade bestScope to what
	// the principal can actually reach: a team/organization scope granted
	// by role is meaningless without a corresponding membership.
	if target != nil {
		if !covers(bestScope, principal, *target) {
			return model.Deny(model.DenialScopeExcludesTarget)
		}
	} else {
		bestScope = reachableScope(bestScope, principal)
	}

	// 6. Tier feature gating.
	if feature, ok := e.catalog.RequiredFeature(resource, action, bestScope); ok {
		if !privilege.HasFeature(feature) {
			return model.DenyTier(requiredTierFor(feature, e.catalog))
		}
	}

	// 7/8. Attach privilege, allow.
	return model.Allow(bestScope, privilege)
}

// matchesResource treats "*" in the catalog as matching every resource
// (the reserved administrator role's only permission, defensive against
// future non-bypass callers).
func matchesResource(permResource, requested string) bool {
	return permResource == "*" || permResource == requested
}

// covers applies the target-compatibility rules against the requested scope.
func covers(scope model.Scope, principal model.Principal, target model.Target) bool {
	switch scope {
	case model.ScopeGlobal:
		return true
	case model.ScopeOrganization:
		return principal.OwnsOrganization(target.OrganizationID)
	case model.ScopeTeam:
		return principal.OwnsTeam(target.TeamID) || target.OwnerID == principal.ID
	case model.ScopeOwn:
		return target.OwnerID == principal.ID
	default:
		return false
	}
}

// reachableScope degrades a role-granted scope to the widest scope the
// principal can actually reach given their memberships, for the no-target
// (list/create) path where there is no specific team or organization to
// check against. A team-scope grant is only meaningful for a principal who
// belongs to at least one team; same for organization scope one level up.
func reachableScope(scope model.Scope, principal model.Principal) model.Scope {
	switch scope {
	case model.ScopeOrganization:
		if len(principal.OrgMemberships) == 0 {
			return reachableScope(model.ScopeTeam, principal)
		}
		return scope
	case model.ScopeTeam:
		if len(principal.TeamMemberships) == 0 {
			return model.ScopeOwn
		}
		return scope
	default:
		return scope
	}
}

// requiredTierFor finds the lowest tier that grants the named feature, for
// the tier_insufficient { required_tier } denial payload. Falls
// back to the enterprise tier if no tier in the catalog's known order
// grants it, since that is the only sound upper bound available.
func requiredTierFor(feature string, catalog *permcatalog.Catalog) model.Tier {
	for _, t := range []model.Tier{model.TierFree, model.TierPro, model.TierEnterprise} {
		if catalog.PrivilegeFor(t).HasFeature(feature) {
			return t
		}
	}
	return model.TierEnterprise
}
