package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const opTimeout = 3 * time.Second

// KeyValueStore — долговременное хранилище снимков корзины и токенов в таблице kv_entries.
type KeyValueStore struct {
	db     *sql.DB
	logger *log.Entry
}

// NewKeyValueStore создаёт PostgreSQL-реализацию хранилища.
func NewKeyValueStore(store *Store, logger *log.Entry) *KeyValueStore {
	if logger == nil {
		logger = log.WithField("component", "postgres-kv")
	}
	return &KeyValueStore{db: store.DB(), logger: logger}
}

// Scope возвращает хранилище, ограниченное пространством имён (сессией).
func (s *KeyValueStore) Scope(namespace string) domain.KeyValueStore {
	return &scopedStore{parent: s, namespace: namespace}
}

// DeleteScope удаляет все записи пространства имён.
func (s *KeyValueStore) DeleteScope(ctx context.Context, namespace string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE scope = $1`, namespace); err != nil {
		return err
	}
	return nil
}

// DeleteStale удаляет не более limit записей, не обновлявшихся с момента before.
func (s *KeyValueStore) DeleteStale(ctx context.Context, before time.Time, limit int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM kv_entries
		WHERE (scope, key) IN (
			SELECT scope, key FROM kv_entries
			WHERE updated_at <= $1
			ORDER BY updated_at
			LIMIT $2
		)
	`, before, limit)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *KeyValueStore) get(ctx context.Context, namespace, key string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM kv_entries WHERE scope = $1 AND key = $2
	`, namespace, key).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.WithError(err).WithFields(log.Fields{"scope": namespace, "key": key}).Warn("kv get failed")
		}
		return "", false
	}
	return value, true
}

func (s *KeyValueStore) set(ctx context.Context, namespace, key, value string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (scope, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (scope, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, namespace, key, value); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{"scope": namespace, "key": key}).Warn("kv set failed")
	}
}

func (s *KeyValueStore) remove(ctx context.Context, namespace, key string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM kv_entries WHERE scope = $1 AND key = $2
	`, namespace, key); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{"scope": namespace, "key": key}).Warn("kv remove failed")
	}
}

type scopedStore struct {
	parent    *KeyValueStore
	namespace string
}

func (s *scopedStore) Get(ctx context.Context, key string) (string, bool) {
	return s.parent.get(ctx, s.namespace, key)
}

func (s *scopedStore) Set(ctx context.Context, key, value string) {
	s.parent.set(ctx, s.namespace, key, value)
}

func (s *scopedStore) Remove(ctx context.Context, key string) {
	s.parent.remove(ctx, s.namespace, key)
}

var _ domain.KeyValueStore = (*scopedStore)(nil)
var _ domain.StaleEntryPurger = (*KeyValueStore)(nil)
