package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Значения label "result" для каталога.
const (
	CatalogFetched      = "fetched"
	CatalogDeduplicated = "deduplicated"
	CatalogSkipped      = "skipped"
	CatalogFailed       = "failed"
)

// Значения label "outcome"/"result" для запросов и синхронизации.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics собирает метрики клиентского слоя витрины.
// Все методы безопасно вызывать на nil-получателе: метрики опциональны для сторов.
type Metrics struct {
	// Запросы к API
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// Каталог
	catalogFetches *prometheus.CounterVec

	// Корзина
	cartPersists prometheus.Counter
	cartSyncs    *prometheus.CounterVec

	// Сессии витрины
	activeSessions prometheus.Gauge

	// Очистка устаревших сессий
	cleanupRuns    *prometheus.CounterVec
	cleanupDeleted prometheus.Counter
}

// New создаёт метрики в DefaultRegisterer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer создаёт метрики в переданном реестре; повторная регистрация
// возвращает уже существующие коллекторы.
func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		requestsTotal: register(registerer, "storefront_api_requests_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_api_requests_total",
			Help: "Total number of upstream API requests grouped by endpoint and outcome.",
		}, []string{"endpoint", "outcome"})),
		requestDuration: register(registerer, "storefront_api_request_duration_seconds", prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_api_request_duration_seconds",
			Help:    "Duration of upstream API requests in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"endpoint"})),
		catalogFetches: register(registerer, "storefront_catalog_fetches_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_catalog_fetches_total",
			Help: "Catalog fetch calls grouped by result (fetched, deduplicated, skipped, failed).",
		}, []string{"result"})),
		cartPersists: register(registerer, "storefront_cart_persists_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_cart_persists_total",
			Help: "Total number of cart snapshots written to persistent storage.",
		})),
		cartSyncs: register(registerer, "storefront_cart_syncs_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_syncs_total",
			Help: "Remote cart synchronizations grouped by result.",
		}, []string{"result"})),
		activeSessions: register(registerer, "storefront_active_sessions", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_active_sessions",
			Help: "Number of storefront sessions held in memory.",
		})),
		cleanupRuns: register(registerer, "storefront_session_cleanup_runs_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_session_cleanup_runs_total",
			Help: "Total number of stale session cleanup runs grouped by result.",
		}, []string{"result"})),
		cleanupDeleted: register(registerer, "storefront_session_cleanup_deleted_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_session_cleanup_deleted_total",
			Help: "Total number of stale session entries removed by the cleanup worker.",
		})),
	}
}

func register[T prometheus.Collector](registerer prometheus.Registerer, name string, collector T) T {
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(T)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", name))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector %q: %v", name, err))
	}
	return collector
}

// ObserveRequest фиксирует завершённый запрос к API.
func (m *Metrics) ObserveRequest(endpoint string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordCatalogFetch увеличивает счётчик вызовов каталога с данным результатом.
func (m *Metrics) RecordCatalogFetch(result string) {
	if m == nil {
		return
	}
	m.catalogFetches.WithLabelValues(result).Inc()
}

// RecordCartPersist увеличивает счётчик сохранённых снимков корзины.
func (m *Metrics) RecordCartPersist() {
	if m == nil {
		return
	}
	m.cartPersists.Inc()
}

// RecordCartSync фиксирует результат удалённой синхронизации корзины.
func (m *Metrics) RecordCartSync(err error) {
	if m == nil {
		return
	}
	result := OutcomeSuccess
	if err != nil {
		result = OutcomeFailure
	}
	m.cartSyncs.WithLabelValues(result).Inc()
}

// SessionOpened увеличивает число активных сессий.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionClosed уменьшает число активных сессий.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

// RecordCleanup фиксирует итог прогона очистки устаревших сессий.
func (m *Metrics) RecordCleanup(deleted int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.cleanupRuns.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	m.cleanupRuns.WithLabelValues(OutcomeSuccess).Inc()
	if deleted > 0 {
		m.cleanupDeleted.Add(float64(deleted))
	}
}
