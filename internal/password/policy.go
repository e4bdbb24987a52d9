package password

import (
	"strings"
	"unicode"

	"github.com/taskforge/authcore/internal/corerr"
)

// Policy is the configurable password-acceptance rule set. Enforced at hash time, never at verify time —
// verify only needs to check against the stored verifier.
type Policy struct {
	MinLength         int
	MaxLength         int
	RequireUpper      bool
	RequireLower      bool
	RequireDigit      bool
	RequireSpecial    bool
	CommonListEnabled bool
	commonPasswords   map[string]struct{}
}

// DefaultPolicy mirrors common collaborator defaults: 8-72 characters (72
// is argon2's practical ceiling for predictable memory use), no character
// class requirements beyond length, common-list checking on.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:         8,
		MaxLength:         72,
		RequireUpper:      false,
		RequireLower:      false,
		RequireDigit:      false,
		RequireSpecial:    false,
		CommonListEnabled: true,
		commonPasswords:   defaultCommonPasswords,
	}
}

// WithCommonList returns a copy of p using the given denylist instead of
// the built-in one.
func (p Policy) WithCommonList(list []string) Policy {
	set := make(map[string]struct{}, len(list))
	for _, w := range list {
		set[strings.ToLower(w)] = struct{}{}
	}
	p.commonPasswords = set
	return p
}

// Validate rejects non-conforming passwords with a validation error; it
// never silently truncates.
func (p Policy) Validate(candidate string) error {
	if len(candidate) < p.MinLength {
		return corerr.Validation("password", "too_short")
	}
	if p.MaxLength > 0 && len(candidate) > p.MaxLength {
		return corerr.Validation("password", "too_long")
	}
	if p.RequireUpper && !containsFunc(candidate, unicode.IsUpper) {
		return corerr.Validation("password", "missing_uppercase")
	}
	if p.RequireLower && !containsFunc(candidate, unicode.IsLower) {
		return corerr.Validation("password", "missing_lowercase")
	}
	if p.RequireDigit && !containsFunc(candidate, unicode.IsDigit) {
		return corerr.Validation("password", "missing_digit")
	}
	if p.RequireSpecial && !containsFunc(candidate, isSpecial) {
		return corerr.Validation("password", "missing_special_character")
	}
	if p.CommonListEnabled {
		if _, common := p.commonPasswords[strings.ToLower(candidate)]; common {
			return corerr.Validation("password", "too_common")
		}
	}
	return nil
}

func containsFunc(s string, f func(rune) bool) bool {
	for _, r := range s {
		if f(r) {
			return true
		}
	}
	return false
}

func isSpecial(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
}

// defaultCommonPasswords is a minimal seed list, not a production
// breach-corpus; collaborators load a real denylist via WithCommonList.
var defaultCommonPasswords = map[string]struct{}{
	"password":  {},
	"12345678":  {},
	"qwerty123": {},
	"letmein11": {},
	"admin1234": {},
}
