package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConfiguration — не задан обязательный параметр (базовый URL API). Фатально, не ретраится.
	ErrConfiguration = errors.New("configuration error: api base url is required")
	// ErrNetwork — транспортная ошибка, ответ от сервера не получен.
	ErrNetwork = errors.New("network error: please check your connection")
	// ErrHTTP — сервер ответил статусом вне 2xx.
	ErrHTTP = errors.New("http error")
	// ErrInvalidRequest — запрос не удалось собрать (тело, URL); до сети дело не дошло.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidCredentials — логин отклонён с 401.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrServerUnavailable — ошибка 5xx при логине.
	ErrServerUnavailable = errors.New("server error, please try again later")
	// ErrAuthFailed — прочие ошибки аутентификации.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrNoToken — API ответил без токена.
	ErrNoToken = errors.New("no token received from api")
	// ErrPersistenceRead — повреждённые данные в хранилище; наружу не пробрасывается.
	ErrPersistenceRead = errors.New("persisted data is malformed")
	// ErrSync — ошибка удалённой синхронизации корзины; только логируется.
	ErrSync = errors.New("cart sync failed")
	// ErrProductNotFound — товара нет в текущем списке каталога.
	ErrProductNotFound = errors.New("product not found")
)

// RequestError описывает неуспешный запрос к API.
// Status == 0 означает, что ответ не был получен. Kind, если задан,
// заменяет классификацию по статусу (ErrInvalidRequest для локальных ошибок).
type RequestError struct {
	Method  string
	URL     string
	Status  int
	Message string
	Kind    error
	Err     error
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Message)
}

// Unwrap отдаёт классификацию (Kind, иначе ErrNetwork/ErrHTTP) и исходную причину, если она есть.
func (e *RequestError) Unwrap() []error {
	kind := e.Kind
	switch {
	case kind != nil:
	case e.Status == 0:
		kind = ErrNetwork
	default:
		kind = ErrHTTP
	}
	if e.Err != nil {
		return []error{kind, e.Err}
	}
	return []error{kind}
}

// StatusCode извлекает HTTP-статус из цепочки ошибок, 0 — если статуса нет.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return 0
}

// IsNetwork проверяет, является ли ошибка транспортной.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsServerError проверяет, что ошибка пришла со статусом 5xx.
func IsServerError(err error) bool {
	status := StatusCode(err)
	return status >= http.StatusInternalServerError && status <= 599
}
