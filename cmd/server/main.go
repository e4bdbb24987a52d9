// Command server runs the HTTP process exposing the authorization and
// credential routes. Adapted from the prior service's cmd/api/main.go:
// load config, init Sentry, connect Postgres, build the dependency graph,
// serve with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskforge/authcore/internal/api"
	"github.com/taskforge/authcore/internal/audit"
	"github.com/taskforge/authcore/internal/config"
	"github.com/taskforge/authcore/internal/credential"
	"github.com/taskforge/authcore/internal/decision"
	"github.com/taskforge/authcore/internal/mfa"
	"github.com/taskforge/authcore/internal/model"
	"github.com/taskforge/authcore/internal/oneshot"
	"github.com/taskforge/authcore/internal/password"
	"github.com/taskforge/authcore/internal/pcache"
	"github.com/taskforge/authcore/internal/permcatalog"
	"github.com/taskforge/authcore/internal/principal"
	"github.com/taskforge/authcore/internal/refreshstore"
	"github.com/taskforge/authcore/internal/storage"
	"github.com/taskforge/authcore/internal/tokencodec"
	"github.com/taskforge/authcore/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config load failed:", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg.App.Environment)
	log.Info("application_startup", "env", cfg.App.Environment)

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			TracesSampleRate: 1.0,
			Environment:      cfg.App.Environment,
		}); err != nil {
			log.Error("sentry_init_failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		log.Error("database_url_parse_failed", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error("database_pool_create_failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Error("database_ping_failed", "error", err)
		os.Exit(1)
	}
	log.Info("database_connected")

	if len(cfg.Token.JWTSecret) < 32 {
		log.Error("jwt_secret_too_short", "details", "must be at least 32 bytes")
		os.Exit(1)
	}

	codec, err := tokencodec.New(tokencodec.Config{
		Secret:             []byte(cfg.Token.JWTSecret),
		Issuer:             cfg.Token.Issuer,
		Audience:           cfg.Token.Audience,
		AccessTokenTTL:     cfg.Token.AccessTokenTTL,
		ClockSkewTolerance: cfg.Token.ClockSkewTolerance,
	})
	if err != nil {
		log.Error("token_codec_init_failed", "error", err)
		os.Exit(1)
	}

	policy := password.DefaultPolicy()
	policy.MinLength = cfg.Password.MinLength
	policy.MaxLength = cfg.Password.MaxLength
	policy.CommonListEnabled = cfg.Password.CommonListEnabled

	hasher := password.NewArgon2Hasher(
		password.Params{
			MemoryKiB:   uint32(cfg.Password.Argon2MemoryKiB),
			TimeCost:    uint32(cfg.Password.Argon2TimeCost),
			Parallelism: uint8(cfg.Password.Argon2Parallelism),
			KeyLength:   32,
			SaltLength:  16,
		},
		policy,
	)

	principals := storage.NewPostgresPrincipalRepository(pool)
	roles := storage.NewPostgresRoleRepository(pool)
	mfaStore := storage.NewPostgresMFAStore(pool)

	var cache pcache.Cache
	if cfg.Cache.Addr != "" {
		redisCache, err := pcache.NewRedis(pcache.RedisConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		}, time.Second)
		if err != nil {
			log.Warn("redis_cache_unavailable", "error", err, "details", "falling back to in-process cache")
			cache = pcache.NewInProcess(time.Second)
		} else {
			cache = redisCache
		}
	} else {
		cache = pcache.NewInProcess(time.Second)
	}

	resolver := principal.New(codec, principals, cache)
	refreshStore := refreshstore.NewPostgresStore(pool)
	oneshots := oneshot.NewPostgresStore(pool)
	mfaSvc := mfa.New(cfg.MFA.Issuer, mfaStore)

	var auditSink audit.Sink = audit.NewSlogSink(log)
	auditSink = audit.NewSentrySink(auditSink)
	queuedAudit := audit.NewQueuedSink(auditSink, 1024)
	defer queuedAudit.Close()

	credentials := credential.New(principals, hasher, codec, resolver, refreshStore, oneshots, queuedAudit, credential.TTLs{
		AccessToken:   cfg.Token.AccessTokenTTL,
		RefreshToken:  cfg.Token.RefreshTokenTTL,
		OneShotReset:  cfg.Token.OneShotResetTTL,
		OneShotVerify: cfg.Token.OneShotVerifyTTL,
	}).WithMFA(mfaSvc)

	catalogStore := permcatalog.NewStore(permcatalog.Seed())
	if customRoles, err := roles.LoadAll(ctx); err != nil {
		log.Warn("custom_role_load_failed", "error", err)
	} else {
		catalog := catalogStore.Current()
		for _, role := range customRoles {
			if role.Name == model.RoleAdministrator || role.Name == model.RoleMember {
				continue
			}
			catalog = catalog.WithRole(role)
		}
		catalogStore.Reload(catalog)
	}

	engine := decision.New(catalogStore.Current())

	server := api.NewServer(credentials, mfaSvc, resolver, engine)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      server.Router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server_listening", "port", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("server_startup_failed", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		log.Info("shutdown_signal_received", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful_shutdown_failed", "error", err)
			_ = srv.Close()
		}
		log.Info("server_shutdown_complete")
	}
}

