package decision

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/authcore/internal/model"
	"github.com/taskforge/authcore/internal/permcatalog"
)

func newTestEngine() *Engine {
	return New(permcatalog.Seed())
}

func freeUser(memberships ...model.TeamMembership) model.Principal {
	return model.Principal{
		ID:              uuid.New(),
		Active:          true,
		Role:            model.RoleMember,
		Tier:            model.TierFree,
		TeamMemberships: memberships,
	}
}

func TestDecide_S1_FreeTierListsOwnTasks(t *testing.T) {
	p := freeUser()
	d := newTestEngine().Decide(p, "tasks", model.ActionRead, nil)

	require.True(t, d.Allowed())
	assert.Equal(t, model.ScopeOwn, d.Scope)
	assert.Equal(t, 100, d.Privilege.Quotas["tasks"])
}

func TestDecide_S2_ProTierReadsTeammateTask(t *testing.T) {
	teamID := uuid.New()
	p := model.Principal{
		ID:              uuid.New(),
		Active:          true,
		Role:            model.RoleMember,
		Tier:            model.TierPro,
		TeamMemberships: []model.TeamMembership{{TeamID: teamID}},
	}
	target := &model.Target{TeamID: teamID, OwnerID: uuid.New()}

	d := newTestEngine().Decide(p, "tasks", model.ActionRead, target)

	require.True(t, d.Allowed())
	assert.Equal(t, model.ScopeTeam, d.Scope)
	assert.True(t, d.Privilege.HasFeature("team_feature"))
	assert.True(t, d.Privilege.HasFeature("advanced_analytics"))
}

// A pro-tier member who belongs to a team keeps team scope on a list
// operation — the clamp only degrades scope for principals with no
// membership to back it, it doesn't flatten every no-target decision to own.
func TestDecide_ListScopeKeepsTeamWithMembership(t *testing.T) {
	p := model.Principal{
		ID:              uuid.New(),
		Active:          true,
		Role:            model.RoleMember,
		Tier:            model.TierPro,
		TeamMemberships: []model.TeamMembership{{TeamID: uuid.New()}},
	}
	d := newTestEngine().Decide(p, "tasks", model.ActionRead, nil)

	require.True(t, d.Allowed())
	assert.Equal(t, model.ScopeTeam, d.Scope)
}

// Organization scope degrades two steps when a principal has neither
// organization nor team memberships to back it.
func TestDecide_ListScopeDegradesOrganizationToOwn(t *testing.T) {
	p := freeUser()
	d := newTestEngine().Decide(p, "organizations", model.ActionRead, nil)

	require.True(t, d.Allowed())
	assert.Equal(t, model.ScopeOwn, d.Scope)
}

func TestDecide_S3_FreeTierCannotCreateTeam(t *testing.T) {
	p := freeUser()
	d := newTestEngine().Decide(p, "teams", model.ActionWrite, nil)

	require.False(t, d.Allowed())
	assert.Equal(t, model.DenialTierInsufficient, d.Reason)
	assert.Equal(t, model.TierPro, d.RequiredTier)
}

func TestDecide_S6_AdministratorBypass(t *testing.T) {
	p := model.Principal{ID: uuid.New(), Active: true, Role: model.RoleAdministrator, Tier: model.TierEnterprise}
	target := &model.Target{OwnerID: uuid.New()}

	d := newTestEngine().Decide(p, "tasks", model.ActionRead, target)

	require.True(t, d.Allowed())
	assert.Equal(t, model.ScopeGlobal, d.Scope)
}

func TestDecide_InactiveAlwaysDenied(t *testing.T) {
	p := model.Principal{ID: uuid.New(), Active: false, Role: model.RoleAdministrator, Tier: model.TierEnterprise}
	d := newTestEngine().Decide(p, "tasks", model.ActionRead, nil)

	require.False(t, d.Allowed())
	assert.Equal(t, model.DenialInactive, d.Reason)
}

func TestDecide_ScopeExcludesTarget(t *testing.T) {
	p := freeUser()
	target := &model.Target{OwnerID: uuid.New()} // belongs to someone else

	d := newTestEngine().Decide(p, "tasks", model.ActionRead, target)

	require.False(t, d.Allowed())
	assert.Equal(t, model.DenialScopeExcludesTarget, d.Reason)
}

// Property 1: action monotonicity. If a higher action is allowed, every
// lower action on the same resource/target is allowed too.
func TestProperty_ActionMonotonicity(t *testing.T) {
	teamID := uuid.New()
	p := model.Principal{
		ID:              uuid.New(),
		Active:          true,
		Role:            model.RoleMember,
		Tier:            model.TierPro,
		TeamMemberships: []model.TeamMembership{{TeamID: teamID}},
	}
	target := &model.Target{TeamID: teamID}
	engine := newTestEngine()

	actions := []model.Action{model.ActionRead, model.ActionWrite, model.ActionDelete, model.ActionAdmin}
	for i := len(actions) - 1; i > 0; i-- {
		higher := engine.Decide(p, "tasks", actions[i], target)
		if higher.Allowed() {
			lower := engine.Decide(p, "tasks", actions[i-1], target)
			assert.Truef(t, lower.Allowed(), "action %s allowed but %s denied", actions[i], actions[i-1])
		}
	}
}

// Property 4: inactive principals are always denied, regardless of role.
func TestProperty_InactiveAlwaysDeniedRegardlessOfRole(t *testing.T) {
	engine := newTestEngine()
	for _, role := range []string{model.RoleAdministrator, model.RoleMember} {
		p := model.Principal{ID: uuid.New(), Active: false, Role: role, Tier: model.TierEnterprise}
		d := engine.Decide(p, "tasks", model.ActionRead, nil)
		assert.False(t, d.Allowed())
		assert.Equal(t, model.DenialInactive, d.Reason)
	}
}
