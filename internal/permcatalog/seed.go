package permcatalog

import "github.com/taskforge/authcore/internal/model"

// Seed builds the catalog's initial, reserved-role and reserved-tier
// contents. The two reserved role names must never change:
// administrator and member.
func Seed() *Catalog {
	roles := map[string]model.Role{
		model.RoleAdministrator: {
			Name:        model.RoleAdministrator,
			DisplayName: "Administrator",
			Active:      true,
			Permissions: []model.Permission{
				{Resource: "*", Action: model.ActionAdmin, Scope: model.ScopeGlobal},
			},
		},
		model.RoleMember: {
			Name:        model.RoleMember,
			DisplayName: "Member",
			Active:      true,
			Permissions: []model.Permission{
				{Resource: "tasks", Action: model.ActionAdmin, Scope: model.ScopeOwn},
				{Resource: "tasks", Action: model.ActionWrite, Scope: model.ScopeTeam},
				{Resource: "tasks", Action: model.ActionRead, Scope: model.ScopeTeam},
				{Resource: "teams", Action: model.ActionWrite, Scope: model.ScopeTeam},
				{Resource: "teams", Action: model.ActionRead, Scope: model.ScopeTeam},
				{Resource: "organizations", Action: model.ActionRead, Scope: model.ScopeOrganization},
				{Resource: "analytics", Action: model.ActionRead, Scope: model.ScopeTeam},
				{Resource: "users", Action: model.ActionRead, Scope: model.ScopeOwn},
				{Resource: "users", Action: model.ActionWrite, Scope: model.ScopeOwn},
			},
		},
	}

	tiers := map[model.Tier]model.Privilege{
		model.TierFree: {
			Tier: model.TierFree,
			Quotas: map[string]int{
				"tasks":             100,
				"teams":             0,
				"members_per_team":  0,
			},
			Features: map[string]bool{},
		},
		model.TierPro: {
			Tier: model.TierPro,
			Quotas: map[string]int{
				"tasks":             10000,
				"teams":             5,
				"members_per_team":  10,
			},
			Features: map[string]bool{
				"team_feature":        true,
				"data_export":         true,
				"advanced_analytics":  true,
			},
		},
		model.TierEnterprise: {
			Tier: model.TierEnterprise,
			Quotas: map[string]int{
				"tasks":             model.UnlimitedQuota,
				"teams":             model.UnlimitedQuota,
				"members_per_team":  model.UnlimitedQuota,
			},
			Features: map[string]bool{
				"team_feature":       true,
				"data_export":        true,
				"advanced_analytics": true,
			},
		},
	}

	reqs := []FeatureRequirement{
		{Resource: "teams", Action: model.ActionRead, MinScope: model.ScopeOwn, Feature: "team_feature"},
		{Resource: "teams", Action: model.ActionWrite, MinScope: model.ScopeOwn, Feature: "team_feature"},
		{Resource: "analytics", Action: model.ActionRead, MinScope: model.ScopeTeam, Feature: "advanced_analytics"},
	}

	return New(roles, tiers, reqs)
}
