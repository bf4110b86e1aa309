package sessioncleanup

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	defaultInterval  = 10 * time.Minute
	defaultTTL       = 7 * 24 * time.Hour
	defaultBatchSize = 500
)

// Options задает параметры воркера очистки сессий.
type Options struct {
	Logger    *log.Entry
	Metrics   *metrics.Metrics
	Interval  time.Duration
	TTL       time.Duration
	BatchSize int
	Now       func() time.Time
}

// Option настраивает Worker.
type Option func(*Options)

// WithLogger задает logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics подключает prometheus-метрики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithInterval задает интервал между циклами очистки.
func WithInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.Interval = interval
	}
}

// WithTTL задает срок, после которого неактивная сессия считается устаревшей.
func WithTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.TTL = ttl
	}
}

// WithBatchSize задает размер batch для одного удаления.
func WithBatchSize(batchSize int) Option {
	return func(opts *Options) {
		opts.BatchSize = batchSize
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(opts *Options) {
		opts.Now = now
	}
}

// Worker периодически удаляет данные сессий, к которым давно не обращались:
// снимки корзин, токены и избранное в хранилище, а также сессии в памяти.
type Worker struct {
	purgers   []domain.StaleEntryPurger
	logger    *log.Entry
	metrics   *metrics.Metrics
	interval  time.Duration
	ttl       time.Duration
	batchSize int
	now       func() time.Time
}

// NewWorker создает воркер очистки; nil-пургеры пропускаются.
func NewWorker(purgers []domain.StaleEntryPurger, options ...Option) *Worker {
	opts := Options{
		Interval:  defaultInterval,
		TTL:       defaultTTL,
		BatchSize: defaultBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "session-cleanup-worker")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	active := make([]domain.StaleEntryPurger, 0, len(purgers))
	for _, p := range purgers {
		if p != nil {
			active = append(active, p)
		}
	}

	return &Worker{
		purgers:   active,
		logger:    logger,
		metrics:   opts.Metrics,
		interval:  opts.Interval,
		ttl:       opts.TTL,
		batchSize: opts.BatchSize,
		now:       opts.Now,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if len(w.purgers) == 0 {
		w.logger.Warn("session cleanup worker is disabled: nothing to purge")
		return
	}

	w.cleanup(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	deleted, err := w.DeleteStale(ctx, w.now().UTC().Add(-w.ttl))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		w.metrics.RecordCleanup(deleted, err)
		w.logger.WithError(err).Warn("session cleanup run failed")
		return
	}

	w.metrics.RecordCleanup(deleted, nil)
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("session cleanup completed")
	}
}

// DeleteStale удаляет всё, что не обновлялось с момента before, порциями batchSize.
// Ошибка одного пургера не мешает остальным, ошибки объединяются.
func (w *Worker) DeleteStale(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = w.now().UTC().Add(-w.ttl)
	}

	var (
		total int
		errs  []error
	)
	for _, purger := range w.purgers {
		deleted, err := w.drain(ctx, purger, before)
		total += deleted
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return total, err
			}
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

func (w *Worker) drain(ctx context.Context, purger domain.StaleEntryPurger, before time.Time) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := purger.DeleteStale(ctx, before, w.batchSize)
		if err != nil {
			return total, err
		}
		total += deleted

		if deleted < w.batchSize {
			return total, nil
		}
	}
}
