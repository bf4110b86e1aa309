package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/sessioncleanup"
	"github.com/vladislavdragonenkov/storefront/internal/storage/cookie"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Run поднимает API витрины, сервер метрик и фоновую очистку сессий
// и блокируется до отмены ctx или ошибки HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	m := metrics.New()

	deps, err := initRuntimeDependencies(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.closeFn(); err != nil {
			logger.WithError(err).Warn("failed to close dependencies")
		}
	}()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("upstream-api", healthcheck.NewOptionalChecker("upstream-api", deps.api.Ping))
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	workersDone := startCleanupWorkers(workerCtx, cfg, deps, m, logger)

	cookieOpts := cookie.DefaultOptions()
	cookieOpts.Secure = cfg.CookieSecure
	api := httpapi.NewServer(deps.api, deps.sessions,
		httpapi.WithLogger(logger.WithField("component", "http-api")),
		httpapi.WithCookieOptions(cookieOpts),
		httpapi.WithPageSize(cfg.PageSize),
	)
	srv := &http.Server{
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		stopWorkers()
		<-workersDone
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("storefront API listening on %s", lis.Addr())
		errCh <- srv.Serve(lis)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping storefront API")
		shutdownHTTP(srv, logger)
		runErr = ctx.Err()
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	stopWorkers()
	<-workersDone
	flushSessions(deps, cfg.ShutdownTimeout, logger)
	shutdownHTTP(metricsSrv, logger)
	return runErr
}

// startCleanupWorkers запускает выгрузку неактивных сессий из памяти и удаление
// устаревших данных из хранилища. Канал закрывается после остановки обоих.
func startCleanupWorkers(ctx context.Context, cfg Config, deps *runtimeDependencies, m *metrics.Metrics, logger *log.Entry) <-chan struct{} {
	common := []sessioncleanup.Option{
		sessioncleanup.WithMetrics(m),
		sessioncleanup.WithInterval(cfg.SessionCleanupInterval),
		sessioncleanup.WithBatchSize(cfg.SessionCleanupBatchSize),
	}
	idle := sessioncleanup.NewWorker([]domain.StaleEntryPurger{deps.sessions}, append(common,
		sessioncleanup.WithTTL(cfg.SessionIdleTimeout),
		sessioncleanup.WithLogger(logger.WithField("component", "session-idle-cleanup")),
	)...)
	stale := sessioncleanup.NewWorker([]domain.StaleEntryPurger{deps.storage}, append(common,
		sessioncleanup.WithTTL(cfg.SessionTTL),
		sessioncleanup.WithLogger(logger.WithField("component", "session-storage-cleanup")),
	)...)

	var wg sync.WaitGroup
	for _, w := range []*sessioncleanup.Worker{idle, stale} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// flushSessions сохраняет отложенные корзины перед выходом.
func flushSessions(deps *runtimeDependencies, timeout time.Duration, logger *log.Entry) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := deps.sessions.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("failed to flush carts on shutdown")
		return
	}
	logger.WithField("sessions", deps.sessions.Len()).Info("pending carts flushed")
}

// startMetricsServer запускает HTTP-обработчики /metrics и health probes.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("metrics available at %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
