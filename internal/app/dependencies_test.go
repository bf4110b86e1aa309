package app

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/apiclient"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/noop"
)

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

func testMetrics() *metrics.Metrics {
	return metrics.NewWithRegisterer(prometheus.NewRegistry())
}

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), Config{
		APIBase:       "http://127.0.0.1:1",
		StorageDriver: StorageDriverMemory,
	}, quietLogger(), testMetrics())
	require.NoError(t, err)
	defer func() { require.NoError(t, deps.closeFn()) }()

	require.NotNil(t, deps.api)
	require.NotNil(t, deps.sessions)
	require.IsType(t, &memory.KeyValueStore{}, deps.storage)
	require.Nil(t, deps.storageChecker, "memory storage has nothing to ping")
	require.Nil(t, deps.producer)

	sess := deps.sessions.Open(context.Background(), "s1")
	require.NotNil(t, sess.Cart)
	require.NotNil(t, sess.Catalog)
	require.NoError(t, deps.sessions.Shutdown(context.Background()))
}

func TestInitRuntimeDependencies_EmptyDriverDefaultsToMemory(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), Config{
		APIBase: "http://127.0.0.1:1",
	}, quietLogger(), testMetrics())
	require.NoError(t, err)
	require.IsType(t, &memory.KeyValueStore{}, deps.storage)
}

func TestInitRuntimeDependencies_NoneDriver(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), Config{
		APIBase:       "http://127.0.0.1:1",
		StorageDriver: " NONE ",
	}, quietLogger(), testMetrics())
	require.NoError(t, err)
	require.Equal(t, noop.Storage{}, deps.storage)
}

func TestInitRuntimeDependencies_RequiresAPIBase(t *testing.T) {
	t.Setenv(apiclient.EnvAPIBase, "")

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverMemory,
	}, quietLogger(), testMetrics())
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestInitRuntimeDependencies_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		APIBase:       "http://127.0.0.1:1",
		StorageDriver: StorageDriverPostgres,
	}, quietLogger(), testMetrics())
	if err == nil {
		t.Fatal("expected error when postgres driver is selected without DSN")
	}
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		APIBase:       "http://127.0.0.1:1",
		StorageDriver: "sqlite",
	}, quietLogger(), testMetrics())
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected unsupported storage driver error, got %v", err)
	}
}
