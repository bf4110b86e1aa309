package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/apiclient"
	"github.com/vladislavdragonenkov/storefront/internal/app"
)

const (
	envAPIBase                 = apiclient.EnvAPIBase
	envHTTPAddr                = "STOREFRONT_HTTP_ADDR"
	envMetricsAddr             = "STOREFRONT_METRICS_ADDR"
	envRequestTimeout          = "STOREFRONT_REQUEST_TIMEOUT"
	envStorageDriver           = "STOREFRONT_STORAGE_DRIVER"
	envPostgresDSN             = "STOREFRONT_POSTGRES_DSN"
	envPostgresAutoMigrate     = "STOREFRONT_POSTGRES_AUTO_MIGRATE"
	envPostgresMaxConns        = "STOREFRONT_POSTGRES_MAX_CONNS"
	envPostgresConnLifetime    = "STOREFRONT_POSTGRES_CONN_MAX_LIFETIME"
	envKafkaBrokers            = "STOREFRONT_KAFKA_BROKERS"
	envKafkaTopic              = "STOREFRONT_KAFKA_TOPIC"
	envCartDebounce            = "STOREFRONT_CART_DEBOUNCE"
	envCartUserID              = "STOREFRONT_CART_USER_ID"
	envCookieSecure            = "STOREFRONT_COOKIE_SECURE"
	envPageSize                = "STOREFRONT_PAGE_SIZE"
	envSessionIdleTimeout      = "STOREFRONT_SESSION_IDLE_TIMEOUT"
	envSessionTTL              = "STOREFRONT_SESSION_TTL"
	envSessionCleanupInterval  = "STOREFRONT_SESSION_CLEANUP_INTERVAL"
	envSessionCleanupBatchSize = "STOREFRONT_SESSION_CLEANUP_BATCH_SIZE"
	envLogLevel                = "STOREFRONT_LOG_LEVEL"
)

type envLookup func(string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(lookup envLookup) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	if raw, ok := lookup(envLogLevel); ok && strings.TrimSpace(raw) != "" {
		level, err := log.ParseLevel(strings.TrimSpace(raw))
		if err != nil {
			log.WithError(err).Warnf("invalid %s, using info", envLogLevel)
			return
		}
		log.SetLevel(level)
	}
}

// readConfigFromEnv накладывает переменные окружения на DefaultConfig.
// Некорректные значения не роняют запуск: поле остаётся по умолчанию, а причина уходит в warnings.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseBool(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", key, err))
			return
		}
		*dst = parsed
	}
	integer := func(key string, dst *int, validate func(int) bool, msg string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseInt(v, validate, msg)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", key, err))
			return
		}
		*dst = parsed
	}
	duration := func(key string, dst *time.Duration, validate func(time.Duration) bool, msg string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseDuration(v, validate, msg)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", key, err))
			return
		}
		*dst = parsed
	}

	positive := func(v int) bool { return v > 0 }
	positiveDuration := func(v time.Duration) bool { return v > 0 }

	str(envAPIBase, &cfg.APIBase)
	str(envHTTPAddr, &cfg.HTTPAddr)
	str(envMetricsAddr, &cfg.MetricsAddr)
	str(envStorageDriver, &cfg.StorageDriver)
	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	str(envPostgresDSN, &cfg.PostgresDSN)
	str(envKafkaBrokers, &cfg.KafkaBrokers)
	str(envKafkaTopic, &cfg.KafkaTopic)

	boolean(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)
	boolean(envCookieSecure, &cfg.CookieSecure)

	integer(envPostgresMaxConns, &cfg.PostgresMaxConns, positive, "must be > 0")
	integer(envCartUserID, &cfg.CartUserID, positive, "must be > 0")
	integer(envPageSize, &cfg.PageSize, positive, "must be > 0")
	integer(envSessionCleanupBatchSize, &cfg.SessionCleanupBatchSize, positive, "must be > 0")

	duration(envRequestTimeout, &cfg.RequestTimeout, positiveDuration, "must be > 0")
	duration(envPostgresConnLifetime, &cfg.PostgresConnMaxLifetime, positiveDuration, "must be > 0")
	duration(envCartDebounce, &cfg.CartDebounce, func(v time.Duration) bool { return v >= 0 }, "must be >= 0")
	duration(envSessionIdleTimeout, &cfg.SessionIdleTimeout, positiveDuration, "must be > 0")
	duration(envSessionTTL, &cfg.SessionTTL, positiveDuration, "must be > 0")
	duration(envSessionCleanupInterval, &cfg.SessionCleanupInterval, positiveDuration, "must be > 0")

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, validate func(int) bool, msg string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q: %w", raw, err)
	}
	if validate != nil && !validate(value) {
		return 0, fmt.Errorf("invalid value %d: %s", value, msg)
	}
	return value, nil
}

func parseDuration(raw string, validate func(time.Duration) bool, msg string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q: %w", raw, err)
	}
	if validate != nil && !validate(value) {
		return 0, fmt.Errorf("invalid duration %s: %s", value, msg)
	}
	return value, nil
}

func main() {
	// .env необязателен: в контейнере переменные приходят из окружения.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("failed to load .env file")
	}

	setupLogger(os.LookupEnv)
	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warnf("ignoring invalid environment value, using default: %s", warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
	}).Info("starting storefront")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("storefront exited with error")
	}

	log.Info("storefront stopped")
}
