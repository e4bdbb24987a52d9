package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/taskforge/authcore/internal/principal"
)

// AuthMiddleware validates the bearer access token via the principal resolver and
// injects the resolved principal into the request context. Adapted from
// the prior service's AuthMiddleware (internal/api/middleware/auth.go), dropping
// the tenant-header cross-check — this core has no tenant header concept
// — and resolving through principal.Resolver instead of a bare token
// provider, so role/tier changes surfaced by the cache TTL take effect.
func AuthMiddleware(resolver *principal.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			p, err := resolver.Resolve(r.Context(), parts[1])
			if err != nil {
				slog.WarnContext(r.Context(), "access token rejected", "ip", r.RemoteAddr)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			SetSentryUser(r.Context(), p.ID.String(), p.Contact, r.RemoteAddr)
			SetSentryPrincipalContext(r.Context(), p.Role, string(p.Tier))

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
