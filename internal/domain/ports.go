package domain

import (
	"context"
	"time"
)

// Ключи постоянного хранилища. Сторы используют независимые ключи и не координируются.
const (
	StorageKeyCart      = "cart"
	StorageKeyAuthToken = "auth-token"
	StorageKeyFavorites = "favorites"
)

// KeyValueStore — постоянное key-value хранилище клиентской стороны.
// Реализации никогда не паникуют и не возвращают ошибки: сбои логируются,
// Get в этом случае сообщает об отсутствии значения.
type KeyValueStore interface {
	// Get возвращает значение и признак его наличия.
	Get(ctx context.Context, key string) (string, bool)
	// Set сохраняет значение под ключом.
	Set(ctx context.Context, key, value string)
	// Remove удаляет ключ, отсутствие ключа не ошибка.
	Remove(ctx context.Context, key string)
}

// Navigator уводит пользователя на другую страницу (роутер UI, redirect в HTTP).
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc адаптирует функцию к Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Credentials — логин и пароль для POST /auth/login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// StaleEntryPurger удаляет сессионные данные, не обновлявшиеся с момента before.
// За один вызов удаляется не более limit записей.
type StaleEntryPurger interface {
	DeleteStale(ctx context.Context, before time.Time, limit int) (int, error)
}
