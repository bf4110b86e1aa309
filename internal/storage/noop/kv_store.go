// Package noop содержит null-object хранилище для неинтерактивных контекстов:
// серверный рендер анонимных страниц, сборка, тесты.
package noop

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type keyValueStore struct{}

// NewKeyValueStore возвращает хранилище, которое ничего не сохраняет.
func NewKeyValueStore() domain.KeyValueStore {
	return keyValueStore{}
}

func (keyValueStore) Get(context.Context, string) (string, bool) { return "", false }

func (keyValueStore) Set(context.Context, string, string) {}

func (keyValueStore) Remove(context.Context, string) {}

// Storage — backend сессий без персистентности (драйвер "none"):
// корзина и избранное живут только в памяти процесса.
type Storage struct{}

// Scope возвращает null-object хранилище для любого пространства имён.
func (Storage) Scope(string) domain.KeyValueStore { return keyValueStore{} }

// DeleteStale ничего не удаляет.
func (Storage) DeleteStale(context.Context, time.Time, int) (int, error) { return 0, nil }

var (
	_ domain.KeyValueStore    = keyValueStore{}
	_ domain.StaleEntryPurger = Storage{}
)
