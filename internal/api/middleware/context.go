package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskforge/authcore/internal/model"
)

type contextKey string

const principalContextKey contextKey = "principal"

// WithPrincipal stores the resolved principal on the request context.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFrom retrieves the principal stored by AuthMiddleware.
func PrincipalFrom(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(model.Principal)
	return p, ok
}

// MustPrincipalID panics if no principal is on the context — used only in
// handlers that sit behind AuthMiddleware, where its absence is a wiring
// bug, not a client error.
func MustPrincipalID(ctx context.Context) uuid.UUID {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		panic("middleware: principal missing from context; AuthMiddleware not installed")
	}
	return p.ID
}
