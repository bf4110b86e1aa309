package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

type fakeMigrator struct {
	upSteps   []int
	downSteps []int
	version   int64
	err       error
}

func (f *fakeMigrator) MigrateUp(_ context.Context, steps int) error {
	f.upSteps = append(f.upSteps, steps)
	return f.err
}

func (f *fakeMigrator) MigrateDown(_ context.Context, steps int) error {
	f.downSteps = append(f.downSteps, steps)
	return f.err
}

func (f *fakeMigrator) MigrationStatus(context.Context) (int64, int, error) {
	return f.version, int(f.version), nil
}

func TestRun_Directions(t *testing.T) {
	m := &fakeMigrator{version: 1}
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), m, " UP ", 0, &out))
	require.Equal(t, []int{0}, m.upSteps)
	require.Contains(t, out.String(), "migrate up ok: version=1 applied=1")

	out.Reset()
	require.NoError(t, run(context.Background(), m, "down", 0, &out))
	require.Equal(t, []int{1}, m.downSteps, "down rolls back one migration by default")
	require.Contains(t, out.String(), "migrate down ok")

	out.Reset()
	require.NoError(t, run(context.Background(), m, "status", 0, &out))
	require.Equal(t, "migration status: version=1 applied=1\n", out.String())
}

func TestRun_Errors(t *testing.T) {
	err := run(context.Background(), &fakeMigrator{}, "sideways", 0, &bytes.Buffer{})
	require.ErrorContains(t, err, "unsupported direction")

	boom := errors.New("lock timeout")
	err = run(context.Background(), &fakeMigrator{err: boom}, "up", 0, &bytes.Buffer{})
	require.ErrorIs(t, err, boom)
}

func TestRun_Postgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("STOREFRONT_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("postgres dsn is not available")
	}

	store, err := postgres.Open(context.Background(), dsn)
	if err != nil {
		t.Skipf("postgres is not available: %v", err)
	}
	defer store.Close()

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), store, "up", 0, &out))
	require.NoError(t, run(context.Background(), store, "status", 0, &out))
}

func TestMainMissingDSNExits(t *testing.T) {
	if os.Getenv("MIGRATE_TEST_EXIT") == "1" {
		os.Args = []string{"migrate", "-direction=status", "-dsn="}
		_ = os.Unsetenv(envPostgresDSN)
		main()
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestMainMissingDSNExits")
	cmd.Env = append(os.Environ(), "MIGRATE_TEST_EXIT=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with error")
	}
	if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() == 0 {
		t.Fatalf("expected non-zero exit code, got %v", err)
	}
}
