package app

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/pagination"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	"github.com/vladislavdragonenkov/storefront/internal/store/cart"
)

// Поддерживаемые backend-ы хранилища сессий.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"

	// StorageDriverNone не сохраняет данные сессий между перезапусками.
	StorageDriverNone = "none"
)

// Config описывает настройки запуска витрины.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	// APIBase — базовый URL upstream API; пустой означает переменную окружения STOREFRONT_API_BASE.
	APIBase        string
	RequestTimeout time.Duration

	StorageDriver           string
	PostgresDSN             string
	PostgresAutoMigrate     bool
	PostgresMaxConns        int
	PostgresConnMaxLifetime time.Duration

	// KafkaBrokers — список брокеров через запятую; пустой отключает события корзины.
	KafkaBrokers string
	KafkaTopic   string

	CartDebounce time.Duration
	// CartUserID — userId для синхронизации корзины, когда токен его не содержит.
	CartUserID   int
	CookieSecure bool
	PageSize     int

	// SessionIdleTimeout — через сколько неактивная сессия выгружается из памяти.
	SessionIdleTimeout time.Duration
	// SessionTTL — через сколько без записей данные сессии удаляются из хранилища.
	SessionTTL              time.Duration
	SessionCleanupInterval  time.Duration
	SessionCleanupBatchSize int

	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает настройки для локального запуска с in-memory хранилищем.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                ":8080",
		MetricsAddr:             ":9090",
		RequestTimeout:          10 * time.Second,
		StorageDriver:           StorageDriverMemory,
		PostgresAutoMigrate:     true,
		PostgresMaxConns:        postgres.DefaultMaxConns,
		PostgresConnMaxLifetime: postgres.DefaultConnMaxLifetime,
		KafkaTopic:              kafka.TopicCartEvents,
		CartDebounce:            cart.DefaultDebounce,
		CartUserID:              1,
		CookieSecure:            true,
		PageSize:                pagination.DefaultPageSize,
		SessionIdleTimeout:      30 * time.Minute,
		SessionTTL:              7 * 24 * time.Hour,
		SessionCleanupInterval:  10 * time.Minute,
		SessionCleanupBatchSize: 500,
		ShutdownTimeout:         10 * time.Second,
	}
}
