package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twmb/franz-go/pkg/kgo"

	"storefront/internal/auth/service"
	sessionstore "storefront/internal/auth/store/session"
	userstore "storefront/internal/auth/store/user"
	"storefront/internal/platform/config"
	"storefront/internal/platform/postgres"
	"storefront/internal/platform/redis"
	authlockoutsvc "storefront/internal/ratelimit/service/authlockout"
	authlockoutstore "storefront/internal/ratelimit/store/authlockout"
	httptransport "storefront/internal/transport/http"
	audit "storefront/pkg/platform/audit"
	auditkafka "storefront/pkg/platform/audit/store/kafka"
	auditmemory "storefront/pkg/platform/audit/store/memory"
	auditpostgres "storefront/pkg/platform/audit/store/postgres"
)

const (
	auditTopicPartitions  = 3
	auditTopicReplication = 1
)

// infra holds the backing stores. Each falls back to its in-memory variant
// when the corresponding URL is not configured.
type infra struct {
	redis   *redis.Client
	pool    *pgxpool.Pool
	auditDB *sql.DB
	kafka   *kgo.Client

	users          service.UserStore
	sessionStore   sessionstore.Store
	sessionCleaner sessionCleaner
	lockoutStore   authlockoutsvc.Store
	auditStore     audit.Store
}

func openInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (_ *infra, err error) {
	in := &infra{}
	defer func() {
		if err != nil {
			in.close()
		}
	}()

	if in.redis, err = redis.New(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	if in.redis != nil {
		in.sessionStore = sessionstore.NewRedis(in.redis.Client)
		in.lockoutStore = authlockoutstore.NewRedis(in.redis.Client)
	} else {
		log.Warn("REDIS_URL not set, sessions and lockouts are kept in memory")
		memSessions := sessionstore.New()
		in.sessionStore = memSessions
		in.sessionCleaner = memSessions
		in.lockoutStore = authlockoutstore.New()
	}

	if in.pool, err = postgres.New(ctx, cfg.Database); err != nil {
		return nil, err
	}
	if in.pool != nil {
		users := userstore.NewPostgres(in.pool)
		if err = users.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		in.users = users
	} else {
		log.Warn("DATABASE_URL not set, users are kept in memory")
		in.users = userstore.New()
	}

	if in.auditStore, err = in.openAudit(ctx, cfg.Audit); err != nil {
		return nil, err
	}
	return in, nil
}

func (in *infra) openAudit(ctx context.Context, cfg config.AuditConfig) (audit.Store, error) {
	var stores audit.Fanout
	if cfg.DatabaseURL != "" {
		db, err := auditpostgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		in.auditDB = db
		store := auditpostgres.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	if len(cfg.KafkaBrokers) > 0 {
		client, err := auditkafka.NewClient(cfg.KafkaBrokers, cfg.Topic)
		if err != nil {
			return nil, err
		}
		in.kafka = client
		if err := auditkafka.EnsureTopic(ctx, client, cfg.Topic, auditTopicPartitions, auditTopicReplication); err != nil {
			return nil, err
		}
		stores = append(stores, auditkafka.New(client, cfg.Topic))
	}
	if len(stores) == 0 {
		return auditmemory.NewInMemoryStore(), nil
	}
	return stores, nil
}

func (in *infra) healthChecks() map[string]httptransport.HealthChecker {
	checks := map[string]httptransport.HealthChecker{}
	if in.redis != nil {
		checks["redis"] = func(r *http.Request) error { return in.redis.Health(r.Context()) }
	}
	if in.pool != nil {
		checks["postgres"] = func(r *http.Request) error { return in.pool.Ping(r.Context()) }
	}
	if in.auditDB != nil {
		checks["audit_db"] = func(r *http.Request) error { return in.auditDB.PingContext(r.Context()) }
	}
	return checks
}

func (in *infra) close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.auditDB != nil {
		_ = in.auditDB.Close()
	}
	if in.pool != nil {
		in.pool.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
}
