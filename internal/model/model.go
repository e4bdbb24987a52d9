// Package model defines the shared data-model value types used across the
// credential and decision core: Principal, Role, Tier, Permission, Scope,
// Action, and their total orders.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Action is one of the four operation kinds a permission can grant,
// ordered read < write < delete < admin for implication purposes.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
	ActionAdmin  Action = "admin"
)

var actionRank = map[Action]int{
	ActionRead:   0,
	ActionWrite:  1,
	ActionDelete: 2,
	ActionAdmin:  3,
}

// AtLeast reports whether a is at least as privileged as other under the
// action order (admin implies write implies read, etc).
func (a Action) AtLeast(other Action) bool {
	return actionRank[a] >= actionRank[other]
}

func (a Action) Valid() bool {
	_, ok := actionRank[a]
	return ok
}

// Scope is the breadth of data a permission grants access to, ordered
// own < team < organization < global.
type Scope string

const (
	ScopeOwn          Scope = "own"
	ScopeTeam         Scope = "team"
	ScopeOrganization Scope = "organization"
	ScopeGlobal       Scope = "global"
)

var scopeRank = map[Scope]int{
	ScopeOwn:          0,
	ScopeTeam:         1,
	ScopeOrganization: 2,
	ScopeGlobal:       3,
}

// AtLeast reports whether s is at least as broad as other under the scope
// order.
func (s Scope) AtLeast(other Scope) bool {
	return scopeRank[s] >= scopeRank[other]
}

func (s Scope) Valid() bool {
	_, ok := scopeRank[s]
	return ok
}

// Permission is a single (resource, action, scope) grant.
type Permission struct {
	Resource string
	Action   Action
	Scope    Scope
}

// Role is a named collection of permissions. The two reserved
// roles are RoleAdministrator and RoleMember; their names must never
// change once seeded.
type Role struct {
	Name        string
	DisplayName string
	Active      bool
	Permissions []Permission
}

const (
	RoleAdministrator = "administrator"
	RoleMember        = "member"
)

// Tier is the subscription tier name, drawn from a fixed total order
// free < pro < enterprise.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

var tierRank = map[Tier]int{
	TierFree:       0,
	TierPro:        1,
	TierEnterprise: 2,
}

func (t Tier) AtLeast(other Tier) bool {
	return tierRank[t] >= tierRank[other]
}

func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

// UnlimitedQuota is the sentinel ceiling meaning "no enforced limit".
const UnlimitedQuota = -1

// Privilege is the tier-derived bundle of quotas and features attached to
// an Allowed decision.
type Privilege struct {
	Tier     Tier
	Quotas   map[string]int // resource -> ceiling, UnlimitedQuota for no cap
	Features map[string]bool
}

// HasFeature reports whether the privilege grants the named feature.
func (p Privilege) HasFeature(feature string) bool {
	return p.Features[feature]
}

// Quota returns the ceiling for a resource, and whether one was declared at
// all (absence is treated as "no declared ceiling", not zero).
func (p Privilege) Quota(resource string) (int, bool) {
	q, ok := p.Quotas[resource]
	return q, ok
}

// TeamMembership ties a principal to a team with a team-local role.
type TeamMembership struct {
	TeamID uuid.UUID
	Role   string
}

// OrgMembership ties a principal to an organization with an org-local role.
type OrgMembership struct {
	OrganizationID uuid.UUID
	Role           string
}

// Principal is the authenticated actor.
type Principal struct {
	ID       uuid.UUID
	Handle   string
	Contact  string
	Active   bool
	Verified bool
	Role     string
	Tier     Tier

	TeamMemberships []TeamMembership
	OrgMemberships  []OrgMembership

	CreatedAt time.Time
}

// OwnsTeam reports whether the principal belongs to the given team.
func (p Principal) OwnsTeam(teamID uuid.UUID) bool {
	for _, m := range p.TeamMemberships {
		if m.TeamID == teamID {
			return true
		}
	}
	return false
}

// OwnsOrganization reports whether the principal belongs to the given
// organization.
func (p Principal) OwnsOrganization(orgID uuid.UUID) bool {
	for _, m := range p.OrgMemberships {
		if m.OrganizationID == orgID {
			return true
		}
	}
	return false
}

// Target describes the resource instance a decision is being made about,
// when one is available. A list/create operation with
// no concrete row passes no Target.
type Target struct {
	OwnerID        uuid.UUID
	TeamID         uuid.UUID
	OrganizationID uuid.UUID
}
