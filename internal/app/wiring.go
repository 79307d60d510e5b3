package app

import (
	"admin-service/internal/admission"
	"admin-service/internal/audit"
	"admin-service/internal/auth"
	"admin-service/internal/config"
	"admin-service/internal/http"
	"admin-service/internal/repository"
	"admin-service/internal/repository/memory"
	"admin-service/internal/repository/mongodb"
	"admin-service/internal/repository/postgres"
	"admin-service/pkg/logger"
	"admin-service/pkg/metrics"
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 5 * time.Second

// InitializeService wires up all dependencies and returns a configured Service
func InitializeService(ctx context.Context, cfg *config.Config, log logger.Logger) (*Service, error) {
	m := metrics.New()

	store, sink, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		config: cfg,
		log:    log,
		store:  store,
	}

	admissionStore, err := svc.openAdmission(ctx)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	svc.audit = audit.NewLogger(sink, log)

	resolver := auth.NewResolver(store.Principals, store.Memberships, store.AccessTokens, auth.ResolverConfig{
		Aggregation:        cfg.Auth.Aggregation,
		AllowManagerDelete: cfg.Auth.AllowManagerToDel,
		HonorValidity:      cfg.Auth.HonorAccessTokenValidity,
	}, log)
	issuer := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL, cfg.App.Version, resolver,
		auth.WithIssuerMetrics(m),
		auth.WithIssuerLogger(log),
	)
	verifier := auth.NewVerifier(issuer, resolver, log, m)

	svc.server = http.NewServer(&http.ServerDependencies{
		Config:          cfg,
		Logger:          log,
		Metrics:         m,
		Store:           store,
		Issuer:          issuer,
		AuthMiddleware:  auth.NewMiddleware(verifier, auth.WithAudit(svc.audit)),
		AdmissionPolicy: admission.NewPolicy(admissionStore, int64(cfg.RateLimit.Ceiling), log, m),
		AuditLogger:     svc.audit,
	})

	return svc, nil
}

// openStore connects the configured backend. Audit events go to the
// auth_events table on postgres and to the log elsewhere.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, audit.Sink, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := postgres.New(&cfg.Database)
		if err != nil {
			return repository.Store{}, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if cfg.Database.RunMigrations {
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return repository.Store{}, nil, err
			}
			log.Info(ctx, "database migrations applied")
		}
		log.Info(ctx, "database connection established")
		return db.Store(), audit.NewPostgresSink(db.Pool), nil

	case config.StoreDriverMongo:
		db, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return repository.Store{}, nil, err
		}
		log.Info(ctx, "mongo connection established", "database", cfg.Mongo.Database)
		return db.Store(), audit.NewLogSink(log), nil

	case config.StoreDriverMemory:
		log.Warn(ctx, "using in-memory store, data is lost on restart")
		return memory.NewStore(), audit.NewLogSink(log), nil
	}

	return repository.Store{}, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func (s *Service) openAdmission(ctx context.Context) (admission.Store, error) {
	cfg := s.config
	switch cfg.RateLimit.Backend {
	case config.RateLimitBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		s.redis = client
		s.log.Info(ctx, "admission counters shared through redis", "addr", cfg.Redis.Addr)
		return admission.NewRedisStore(client, cfg.RateLimit.Window), nil

	default:
		s.gate = admission.NewGate(cfg.RateLimit.Window)
		return s.gate.Store(), nil
	}
}
