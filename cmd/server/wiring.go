package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"speechact/internal/backend"
	"speechact/internal/intent/handler"
	intentmetrics "speechact/internal/intent/metrics"
	"speechact/internal/intent/ports"
	"speechact/internal/intent/service"
	"speechact/internal/intent/store"
	jwttoken "speechact/internal/jwt_token"
	"speechact/internal/platform/config"
	"speechact/internal/platform/kafka"
	"speechact/internal/platform/postgres"
	platformredis "speechact/internal/platform/redis"
	audit "speechact/pkg/platform/audit"
	"speechact/pkg/platform/audit/outbox"
	"speechact/pkg/platform/audit/publisher"
	auditmemory "speechact/pkg/platform/audit/store/memory"
	auditpg "speechact/pkg/platform/audit/store/postgres"
	authmw "speechact/pkg/platform/middleware/auth"
	request "speechact/pkg/platform/middleware/request"
	"speechact/pkg/requestcontext"
)

// infra holds the process-wide connections and background workers.
type infra struct {
	db       *sql.DB
	redis    *platformredis.Client
	producer *kafka.Producer

	pending     ports.PendingStore
	pendingKind string
	auditStore  audit.Store
	auditKind   string
	publisher   *publisher.Publisher

	workers []func(ctx context.Context) error
}

func buildInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	in := &infra{}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		in.redis = redisClient
		in.pending = store.NewRedis(redisClient.Client)
		in.pendingKind = "redis"
	} else {
		mem := store.NewInMemory()
		in.pending = mem
		in.pendingKind = "memory"
		in.workers = append(in.workers, func(ctx context.Context) error {
			return sweep(ctx, cfg.Pending.SweepInterval, mem.DeleteExpired, log)
		})
	}

	db, err := postgres.Open(ctx, cfg.Audit.DatabaseURL)
	if err != nil {
		in.Close(log)
		return nil, fmt.Errorf("connect audit database: %w", err)
	}
	if db != nil {
		in.db = db
		pgStore := auditpg.New(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			in.Close(log)
			return nil, err
		}
		in.auditStore = pgStore
		in.auditKind = "postgres"

		if len(cfg.Audit.KafkaBrokers) > 0 {
			producer, err := kafka.NewProducer(kafka.Config{
				Brokers: cfg.Audit.KafkaBrokers,
				Topic:   cfg.Audit.KafkaTopic,
			})
			if err != nil {
				in.Close(log)
				return nil, fmt.Errorf("connect kafka: %w", err)
			}
			in.producer = producer
			if err := producer.EnsureTopic(ctx, 1, 1); err != nil {
				log.Warn("could not ensure audit topic", "topic", producer.Topic(), "error", err)
			}
			relay := outbox.New(pgStore, producer,
				outbox.WithDB(db),
				outbox.WithInterval(cfg.Audit.RelayInterval),
				outbox.WithLogger(log),
			)
			in.workers = append(in.workers, relay.Run)
		}
	} else {
		in.auditStore = auditmemory.NewInMemoryStore()
		in.auditKind = "memory"
	}

	in.publisher = publisher.NewPublisher(in.auditStore,
		publisher.WithAsyncBuffer(cfg.Audit.AsyncBuffer),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics()),
	)
	return in, nil
}

// Close drains the audit publisher and releases connections. Safe on a
// partially built infra.
func (in *infra) Close(log *slog.Logger) {
	if in.publisher != nil {
		in.publisher.Close()
	}
	if in.producer != nil {
		in.producer.Close()
	}
	if in.db != nil {
		if err := in.db.Close(); err != nil {
			log.Warn("closing audit database failed", "error", err)
		}
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			log.Warn("closing redis failed", "error", err)
		}
	}
}

type app struct {
	intents     *handler.Handler
	health      *handler.HealthHandler
	audit       *handler.AuditHandler
	validator   authmw.JWTValidator
	onAuthError authmw.FailureHook
}

func buildApp(cfg config.Server, in *infra, log *slog.Logger) (*app, error) {
	resolver, err := buildResolver(cfg)
	if err != nil {
		return nil, err
	}

	backendClient := backend.NewClient(cfg.Backend.URL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithLogger(log),
	)

	svc := service.New(resolver, backendClient,
		service.WithLogger(log),
		service.WithAuditPublisher(in.publisher),
		service.WithMetrics(intentmetrics.New()),
		service.WithPendingStore(in.pending),
		service.WithPendingTTL(cfg.Pending.TTL),
	)

	a := &app{
		intents: handler.New(svc, log),
		health:  handler.NewHealthHandler(backendClient, log),
	}
	if cfg.AdminToken != "" {
		a.audit = handler.NewAuditHandler(in.publisher, cfg.AdminToken, log)
	}
	if cfg.Auth.Enabled() {
		jwtService := jwttoken.NewJWTService(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
		a.validator = jwttoken.NewJWTServiceAdapter(jwtService)
		a.onAuthError = authFailureHook(in.publisher)
	}
	return a, nil
}

// authFailureHook records rejected bearer tokens as security events. The
// client IP and user agent are the only identity an unauthenticated caller has.
func authFailureHook(pub ports.AuditPublisher) authmw.FailureHook {
	return func(ctx context.Context, reason string) {
		event := audit.Event{
			Category:  audit.EventAuthFailed.Category(),
			Timestamp: requestcontext.Now(ctx),
			Action:    string(audit.EventAuthFailed),
			Decision:  audit.DecisionRejected,
			Reason:    reason,
			RequestID: request.GetRequestID(ctx),
		}
		_ = pub.Emit(ctx, event.WithRequestMetadata(ctx))
	}
}

// buildResolver prefers the configured roster and falls back to name hashing.
func buildResolver(cfg config.Server) (ports.ChildResolver, error) {
	if cfg.ChildrenFile == "" {
		return backend.NewHashResolver(), nil
	}
	r, err := backend.LoadDirectoryResolver(cfg.ChildrenFile)
	if err != nil {
		return nil, fmt.Errorf("load children roster: %w", err)
	}
	return r, nil
}
