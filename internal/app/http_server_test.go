package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("failed to get %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestStartMetricsServer_Endpoints(t *testing.T) {
	logger := log.WithField("test", "http")
	port := findFreePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("upstream-api", healthcheck.NewOptionalChecker("upstream-api", func(context.Context) error {
		return errors.New("connection refused")
	}))
	srv := startMetricsServer(ctx, fmt.Sprintf(":%d", port), logger, healthHandler)
	if srv == nil {
		t.Fatal("startMetricsServer should not return nil")
	}

	// Даём время на запуск
	time.Sleep(100 * time.Millisecond)

	status, body := get(t, fmt.Sprintf("http://localhost:%d/metrics", port))
	if status != http.StatusOK || len(body) == 0 {
		t.Errorf("expected non-empty 200 for /metrics, got %d", status)
	}

	// Упавший upstream только деградирует витрину.
	if status, _ := get(t, fmt.Sprintf("http://localhost:%d/healthz", port)); status != http.StatusOK {
		t.Errorf("expected status 200 for /healthz, got %d", status)
	}

	if status, body := get(t, fmt.Sprintf("http://localhost:%d/livez", port)); status != http.StatusOK || body != "ok" {
		t.Errorf("expected 200 ok from /livez, got %d %q", status, body)
	}

	if status, body := get(t, fmt.Sprintf("http://localhost:%d/readyz", port)); status != http.StatusOK || body != "ready" {
		t.Errorf("expected 200 ready from /readyz, got %d %q", status, body)
	}
}

func TestStartMetricsServer_NotReadyWhenStorageDown(t *testing.T) {
	logger := log.WithField("test", "http-storage-down")
	port := findFreePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", healthcheck.NewPingChecker("storage", func(context.Context) error {
		return errors.New("pool closed")
	}))
	startMetricsServer(ctx, fmt.Sprintf(":%d", port), logger, healthHandler)
	time.Sleep(100 * time.Millisecond)

	if status, _ := get(t, fmt.Sprintf("http://localhost:%d/healthz", port)); status != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 for /healthz, got %d", status)
	}
	if status, _ := get(t, fmt.Sprintf("http://localhost:%d/readyz", port)); status != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 for /readyz, got %d", status)
	}
}

func TestStartMetricsServer_Shutdown(t *testing.T) {
	logger := log.WithField("test", "http-shutdown")
	port := findFreePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	startMetricsServer(ctx, fmt.Sprintf(":%d", port), logger, healthcheck.NewHandler(version.GetVersion()))
	time.Sleep(100 * time.Millisecond)

	url := fmt.Sprintf("http://localhost:%d/livez", port)
	get(t, url)

	cancel()
	time.Sleep(200 * time.Millisecond)

	if _, err := http.Get(url); err == nil {
		t.Error("server should be stopped after context cancellation")
	}
}

func TestShutdownHTTP_NilServer(_ *testing.T) {
	// Не должно паниковать
	shutdownHTTP(nil, log.WithField("test", "http-nil"))
}

func TestShutdownHTTP_WithServer(t *testing.T) {
	logger := log.WithField("test", "http-shutdown-func")
	port := findFreePort(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/cart", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: time.Second}
	go func() {
		_ = srv.ListenAndServe()
	}()
	time.Sleep(100 * time.Millisecond)

	url := fmt.Sprintf("http://localhost:%d/cart", port)
	get(t, url)

	shutdownHTTP(srv, logger)
	time.Sleep(100 * time.Millisecond)

	if _, err := http.Get(url); err == nil {
		t.Error("server should be stopped after shutdownHTTP")
	}
}

// findFreePort находит свободный порт для тестов
func findFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}
