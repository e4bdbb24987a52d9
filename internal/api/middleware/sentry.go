package middleware

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// SetSentryPrincipalContext tags the Sentry scope with the authorization
// attributes of the resolved principal, so a panic or captured audit event
// can be triaged by role/tier without joining back to the database.
func SetSentryPrincipalContext(ctx context.Context, role string, tier string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("principal_role", role)
		scope.SetTag("principal_tier", tier)
	})
}

// SetSentryUser adds user context to the Sentry scope.
func SetSentryUser(ctx context.Context, userID string, email string, ip string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{ID: userID, Email: email, IPAddress: ip})
	})
}
