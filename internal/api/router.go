package api

import (
	"log/slog"
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	customMiddleware "github.com/taskforge/authcore/internal/api/middleware"
	"github.com/taskforge/authcore/internal/credential"
	"github.com/taskforge/authcore/internal/decision"
	"github.com/taskforge/authcore/internal/mfa"
	"github.com/taskforge/authcore/internal/model"
	"github.com/taskforge/authcore/internal/principal"
)

// Server bundles the chi router with its collaborators, following the
// teacher's Server struct (internal/api/router.go) generalized from a
// single-tenant AuthService to this core's Service/Resolver/Engine triple.
type Server struct {
	Router *chi.Mux
	Logger *slog.Logger
}

// NewServer wires the middleware stack and route table: core chi
// middleware, Sentry, structured request logging, panic recovery, per-IP
// rate limiting, then public auth routes and an authenticated group behind
// AuthMiddleware (+ CSRF).
func NewServer(
	credentials *credential.Service,
	mfaSvc *mfa.Service,
	resolver *principal.Resolver,
	engine *decision.Engine,
) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true})
	r.Use(sentryHandler.Handle)

	r.Use(customMiddleware.RequestLogger)
	r.Use(customMiddleware.PanicRecovery)

	limiter := customMiddleware.NewKeyedRateLimiter(5, 10)
	r.Use(limiter.PerIP)

	authHandler := NewAuthHandler(credentials, mfaSvc)
	requireAuth := customMiddleware.AuthMiddleware(resolver)

	r.Get("/healthz", healthHandler)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.With(limiter.PerEndpoint("signin")).Post("/signin", authHandler.SignIn)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/signout", authHandler.SignOut)
		r.With(limiter.PerEndpoint("password-reset-request")).Post("/password/reset-request", authHandler.RequestPasswordReset)
		r.Post("/password/reset-complete", authHandler.CompletePasswordReset)
		r.With(limiter.PerEndpoint("email-verify-resend")).Post("/email/verify", authHandler.VerifyEmail)
		r.Post("/mfa/verify", authHandler.VerifyMFA)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(customMiddleware.CSRFMiddleware)

			r.Post("/signout-all", authHandler.SignOutAll)
			r.Post("/password/change", authHandler.ChangePassword)
			r.Post("/mfa/setup", authHandler.SetupMFA)
			r.Post("/mfa/activate", authHandler.ActivateMFA)
		})
	})

	// /v1/me demonstrates a protected route: AuthMiddleware resolves the
	// caller, then RequireDecision checks the authorization engine before
	// the handler runs. A concrete deployment adds its resource routes
	// the same way.
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(customMiddleware.RequireDecision(engine, "users", model.ActionRead))
		r.Get("/v1/me", meHandler)
	})

	return &Server{Router: r, Logger: slog.Default()}
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := customMiddleware.PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     p.ID,
		"handle": p.Handle,
		"role":   p.Role,
		"tier":   p.Tier,
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
