package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront/internal/auth/credentials"
	"storefront/internal/auth/device"
	"storefront/internal/auth/mode"
	"storefront/internal/auth/models"
	"storefront/internal/auth/service"
	"storefront/internal/auth/session"
	jwttoken "storefront/internal/jwt_token"
	"storefront/internal/platform/config"
	"storefront/internal/platform/httpserver"
	"storefront/internal/platform/logger"
	"storefront/internal/platform/metrics"
	"storefront/internal/platform/middleware"
	"storefront/internal/ratelimit/service/authlockout"
	"storefront/internal/transport/graphql"
	httptransport "storefront/internal/transport/http"
	"storefront/pkg/platform/audit/publisher"
)

// main wires the stores, the auth service and both protocol bindings, then
// runs the HTTP server until SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server exited")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.close()

	m := metrics.New()

	auditPublisher := publisher.NewPublisher(infra.auditStore, auditOptions(cfg, log)...)
	defer auditPublisher.Close()

	tokens, err := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	modes := mode.New(cfg.Auth.InitialMode)

	lockout, err := authlockout.New(infra.lockoutStore, authlockout.Config{
		MaxAttempts:  cfg.Lockout.MaxAttempts,
		Window:       cfg.Lockout.Window,
		LockDuration: cfg.Lockout.Duration,
	}, authlockout.WithLogger(log), authlockout.WithAuditPublisher(auditPublisher))
	if err != nil {
		return err
	}

	authService, err := service.New(infra.users, credentials.NewBcryptHasher(cfg.Auth.BcryptCost), tokens, modes,
		service.WithLogger(log),
		service.WithLoginLimiter(lockout),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	if cfg.Admin.Username != "" {
		created, err := authService.SeedAdmin(ctx, models.RegisterRequest{
			Username: cfg.Admin.Username,
			Email:    cfg.Admin.Email,
			Password: cfg.Admin.Password,
		})
		if err != nil {
			return err
		}
		log.Info("admin account checked", "username", cfg.Admin.Username, "created", created)
	}

	sessions := session.NewManager(infra.sessionStore, device.NewService(cfg.Auth.DeviceBinding),
		session.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure},
		cfg.Session.TTL, log)
	authn := middleware.NewAuthenticator(modes, jwttoken.NewJWTServiceAdapter(tokens), authService, sessions, log,
		middleware.WithModeEpochBinding(cfg.Auth.BindModeEpoch),
		middleware.WithResolutionRecorder(m),
	)

	gql, err := graphql.NewHandler(authService, log)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Authenticator:  authn,
		Latency:        m,
		RequestTimeout: cfg.RequestTimeout,
		Auth:           httptransport.NewAuthHandler(authService, log),
		GraphQL:        gql,
		HealthChecks:   infra.healthChecks(),
	})
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting storefront",
		"addr", cfg.Addr,
		"mode", cfg.Auth.InitialMode,
		"environment", cfg.Environment,
		"redis", infra.redis != nil,
		"database", infra.pool != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(gctx, srv, cfg.ShutdownTimeout)
	})
	if infra.sessionCleaner != nil {
		g.Go(func() error {
			cleanExpiredSessions(gctx, infra.sessionCleaner, cfg.Session.CleanupInterval, log)
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func auditOptions(cfg config.Server, log *slog.Logger) []publisher.Option {
	opts := []publisher.Option{publisher.WithLogger(log)}
	if cfg.Audit.Buffer > 0 {
		opts = append(opts, publisher.WithAsyncBuffer(cfg.Audit.Buffer))
	}
	return opts
}

type sessionCleaner interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

func cleanExpiredSessions(ctx context.Context, cleaner sessionCleaner, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := cleaner.DeleteExpiredSessions(ctx, now)
			if err != nil {
				log.Warn("session cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				log.Debug("expired sessions removed", "count", removed)
			}
		}
	}
}
