package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/apiclient"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/session"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/noop"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// sessionStorage — backend сессионных данных: scope на сессию и очистка устаревших.
type sessionStorage interface {
	session.Storage
	domain.StaleEntryPurger
}

// runtimeDependencies — всё, что Run собирает до старта серверов.
type runtimeDependencies struct {
	api            *apiclient.Client
	sessions       *session.Registry
	storage        sessionStorage
	producer       *kafka.Producer
	storageChecker healthcheck.Checker
	closeFn        func() error
}

// initRuntimeDependencies создает клиент API, хранилище сессий, Kafka producer
// и реестр сессий; сторы, включая каталог, создаются на сессию.
// Ошибка Kafka не фатальна, ошибки API и хранилища фатальны.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry, m *metrics.Metrics) (*runtimeDependencies, error) {
	api, err := apiclient.New(cfg.APIBase,
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithLogger(logger.WithField("component", "api-client")),
		apiclient.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	deps := &runtimeDependencies{api: api}
	var closers []func() error

	switch strings.ToLower(strings.TrimSpace(cfg.StorageDriver)) {
	case "", StorageDriverMemory:
		deps.storage = memory.NewKeyValueStore()
		logger.Info("using in-memory session storage")
	case StorageDriverNone:
		deps.storage = noop.Storage{}
		logger.Warn("session storage disabled, carts are kept in memory only")
	case StorageDriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, errors.New("postgres storage driver requires STOREFRONT_POSTGRES_DSN")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN,
			postgres.WithMaxConns(cfg.PostgresMaxConns),
			postgres.WithConnMaxLifetime(cfg.PostgresConnMaxLifetime),
		)
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		deps.storage = postgres.NewKeyValueStore(store, logger.WithField("component", "postgres-kv"))
		deps.storageChecker = healthcheck.NewPingChecker("storage", store.Ping)
		closers = append(closers, store.Close)
		logger.WithField("max_conns", store.Pool().MaxOpenConns).Info("using postgres session storage")
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err == nil {
		deps.producer = producer
	}

	opts := []session.Option{
		session.WithLogger(logger.WithField("component", "session-registry")),
		session.WithMetrics(m),
		session.WithCartDebounce(cfg.CartDebounce),
		session.WithFallbackUserID(cfg.CartUserID),
	}
	if deps.producer != nil {
		opts = append(opts, session.WithPublisher(deps.producer, cfg.KafkaTopic))
	}
	deps.sessions = session.NewRegistry(deps.storage, api, opts...)

	deps.closeFn = func() error {
		closeKafka(deps.producer, logger)
		var errs []error
		for _, closeFn := range closers {
			errs = append(errs, closeFn())
		}
		return errors.Join(errs...)
	}
	return deps, nil
}
