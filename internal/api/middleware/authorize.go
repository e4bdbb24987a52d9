package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/taskforge/authcore/internal/decision"
	"github.com/taskforge/authcore/internal/model"
)

// RequireDecision invokes the authorization decision engine for (resource, action) against the
// request's principal and writes a 403 with the Denied reason if the
// decision engine refuses. Generalizes the prior service's RBACMiddleware
// (a fixed role-weight comparison) into a call through the full
// decision engine, since this core's authorization axis is role × tier ×
// scope rather than a single role hierarchy. It attaches no target — list
// and collection-level routes have none — so handlers that need a
// per-row check call engine.Decide directly with a model.Target.
func RequireDecision(engine *decision.Engine, resource string, action model.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			d := engine.Decide(p, resource, action, nil)
			if !d.Allowed() {
				writeDecisionDenied(w, d)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeDecisionDenied writes the same 403 body as api.WriteDecisionDenied.
func writeDecisionDenied(w http.ResponseWriter, d model.Decision) {
	detail := map[string]any{"reason": d.Reason}
	if d.RequiredTier != "" {
		detail["required_tier"] = d.RequiredTier
	}
	if d.Feature != "" {
		detail["feature"] = d.Feature
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": "forbidden", "detail": detail})
}
