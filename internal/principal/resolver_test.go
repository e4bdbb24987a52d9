package principal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/authcore/internal/model"
	"github.com/taskforge/authcore/internal/pcache"
	"github.com/taskforge/authcore/internal/storage"
	"github.com/taskforge/authcore/internal/tokencodec"
)

func newTestResolver(t *testing.T, cache pcache.Cache) (*Resolver, storage.PrincipalRepository, *tokencodec.Codec) {
	t.Helper()

	principals := storage.NewFakePrincipalRepository()
	codec, err := tokencodec.New(tokencodec.Config{
		Secret:         []byte("0123456789abcdef0123456789abcdef"),
		Issuer:         "authcore-test",
		Audience:       "authcore-clients",
		AccessTokenTTL: 15 * time.Minute,
	})
	require.NoError(t, err)

	return New(codec, principals, cache), principals, codec
}

func TestResolve_ValidTokenReturnsPrincipal(t *testing.T) {
	resolver, principals, codec := newTestResolver(t, nil)

	p, err := principals.Create(t.Context(), "hank", "hank@example.com", "verifier", model.RoleMember, model.TierFree)
	require.NoError(t, err)

	token, err := codec.Issue(p.ID, p.Role, p.Tier)
	require.NoError(t, err)

	resolved, err := resolver.Resolve(t.Context(), token)
	require.NoError(t, err)
	assert.Equal(t, p.ID, resolved.ID)
}

func TestResolve_RejectsMalformedToken(t *testing.T) {
	resolver, _, _ := newTestResolver(t, nil)
	_, err := resolver.Resolve(t.Context(), "not-a-jwt")
	require.Error(t, err)
}

func TestResolve_RejectsInactivePrincipal(t *testing.T) {
	resolver, principals, codec := newTestResolver(t, nil)

	p, err := principals.Create(t.Context(), "ivan", "ivan@example.com", "verifier", model.RoleMember, model.TierFree)
	require.NoError(t, err)
	require.NoError(t, principals.SetActive(t.Context(), p.ID, false))

	token, err := codec.Issue(p.ID, p.Role, p.Tier)
	require.NoError(t, err)

	_, err = resolver.Resolve(t.Context(), token)
	require.Error(t, err)
}

// The cache must not extend the lifetime of a change past its TTL: an
// explicit Invalidate forces the next Resolve to reload the row.
func TestResolve_InvalidateForcesReload(t *testing.T) {
	cache := pcache.NewInProcess(time.Minute)
	resolver, principals, codec := newTestResolver(t, cache)

	p, err := principals.Create(t.Context(), "jill", "jill@example.com", "verifier", model.RoleMember, model.TierFree)
	require.NoError(t, err)
	token, err := codec.Issue(p.ID, p.Role, p.Tier)
	require.NoError(t, err)

	first, err := resolver.Resolve(t.Context(), token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, first.Role)

	require.NoError(t, principals.SetRole(t.Context(), p.ID, model.RoleAdministrator))

	// Still cached: the stale role is returned until invalidation.
	stale, err := resolver.Resolve(t.Context(), token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, stale.Role)

	resolver.Invalidate(t.Context(), p.ID)

	fresh, err := resolver.Resolve(t.Context(), token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdministrator, fresh.Role)
}
