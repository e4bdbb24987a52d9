package model

// DenialReason is the enumerated cause of a Denied decision.
type DenialReason string

const (
	DenialRoleInsufficient    DenialReason = "role_insufficient"
	DenialScopeExcludesTarget DenialReason = "scope_excludes_target"
	DenialTierInsufficient    DenialReason = "tier_insufficient"
	DenialInactive            DenialReason = "inactive"
	DenialFeatureDisabled     DenialReason = "feature_disabled"
)

// Decision is the value the decision engine returns: either Allowed or
// Denied, never both. Use Decision.Allowed() to discriminate.
type Decision struct {
	allowed bool

	Scope     Scope
	Privilege Privilege

	Reason       DenialReason
	RequiredTier Tier
	Feature      string
}

// Allowed reports whether the decision grants the operation.
func (d Decision) Allowed() bool {
	return d.allowed
}

func Allow(scope Scope, privilege Privilege) Decision {
	return Decision{allowed: true, Scope: scope, Privilege: privilege}
}

func Deny(reason DenialReason) Decision {
	return Decision{allowed: false, Reason: reason}
}

func DenyTier(requiredTier Tier) Decision {
	return Decision{allowed: false, Reason: DenialTierInsufficient, RequiredTier: requiredTier}
}

func DenyFeature(feature string) Decision {
	return Decision{allowed: false, Reason: DenialFeatureDisabled, Feature: feature}
}
