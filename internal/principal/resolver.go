// Package principal implements resolving a verified access token into
// the authoritative Principal value the decision engine operates on.
package principal

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskforge/authcore/internal/corerr"
	"github.com/taskforge/authcore/internal/model"
	"github.com/taskforge/authcore/internal/pcache"
	"github.com/taskforge/authcore/internal/storage"
	"github.com/taskforge/authcore/internal/tokencodec"
)

// Resolver implements `resolve(access_token) -> principal`.
type Resolver struct {
	codec      *tokencodec.Codec
	principals storage.PrincipalRepository
	cache      pcache.Cache
}

func New(codec *tokencodec.Codec, principals storage.PrincipalRepository, cache pcache.Cache) *Resolver {
	return &Resolver{codec: codec, principals: principals, cache: cache}
}

// Resolve verifies the token, then loads the authoritative principal row
// (cache permitting). It returns corerr.Unauthorized uniformly whether the
// token is malformed, expired, or the account no longer exists/is
// inactive — those are indistinguishable to a caller by design.
func (r *Resolver) Resolve(ctx context.Context, accessToken string) (model.Principal, error) {
	claims, err := r.codec.Verify(accessToken)
	if err != nil {
		return model.Principal{}, corerr.Unauthorized
	}

	principalID, err := claims.PrincipalID()
	if err != nil {
		return model.Principal{}, corerr.Unauthorized
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, principalID); ok {
			if !cached.Active {
				return model.Principal{}, corerr.Unauthorized
			}
			return cached, nil
		}
	}

	p, err := r.principals.GetByID(ctx, principalID)
	if err != nil {
		return model.Principal{}, corerr.Unauthorized
	}

	if r.cache != nil {
		r.cache.Set(ctx, p)
	}

	if !p.Active {
		return model.Principal{}, corerr.Unauthorized
	}
	return p, nil
}

// Invalidate drops any cached entry for principalID. Credential-service
// operations that change role, tier, active flag, or trigger sign-out-all
// must call this so the cache never extends the effective lifetime of the
// change beyond its TTL.
func (r *Resolver) Invalidate(ctx context.Context, principalID uuid.UUID) {
	if r.cache != nil {
		r.cache.Invalidate(ctx, principalID)
	}
}
