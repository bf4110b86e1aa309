// Package auth хранит токен пользователя сессии и классифицирует ошибки входа.
package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/apiclient"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/store/observer"
)

// LoginPath — страница входа, куда уводит Logout.
const LoginPath = "/account"

// LoginAPI — endpoint аутентификации (обычно *apiclient.Client).
type LoginAPI interface {
	Login(ctx context.Context, credentials domain.Credentials) (apiclient.LoginResponse, error)
}

// Session — снимок состояния авторизации.
type Session struct {
	Token           string
	IsAuthenticated bool
}

// Option настраивает Store.
type Option func(*Store)

// WithLogger задает logger стора.
func WithLogger(logger *log.Entry) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store — состояние авторизации одной сессии. Токен в памяти и в хранилище
// меняются вместе на каждом переходе.
type Store struct {
	kv     domain.KeyValueStore
	api    LoginAPI
	nav    domain.Navigator
	logger *log.Entry

	mu    sync.Mutex
	token string

	observers observer.List[Session]
}

// NewStore создает стор авторизации. nav может быть nil: тогда Logout никуда не уводит.
func NewStore(kv domain.KeyValueStore, api LoginAPI, nav domain.Navigator, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		api:    api,
		nav:    nav,
		logger: log.WithField("component", "auth-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorise запоминает токен и сохраняет его. Пустой токен равносилен выходу без навигации.
func (s *Store) Authorise(ctx context.Context, token string) {
	s.mu.Lock()
	s.token = token
	if token == "" {
		s.kv.Remove(ctx, domain.StorageKeyAuthToken)
	} else {
		s.kv.Set(ctx, domain.StorageKeyAuthToken, token)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.observers.Notify(snapshot)
}

// Logout очищает токен в памяти и в хранилище и уводит на страницу входа.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.kv.Remove(ctx, domain.StorageKeyAuthToken)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.observers.Notify(snapshot)
	if s.nav != nil {
		s.nav.Navigate(LoginPath)
	}
}

// Initialize поднимает токен из хранилища, если он там есть. Повторные вызовы безопасны.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	token, ok := s.kv.Get(ctx, domain.StorageKeyAuthToken)
	if !ok || token == "" || token == s.token {
		s.mu.Unlock()
		return
	}
	s.token = token
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.observers.Notify(snapshot)
}

// LoginWithAPI выполняет вход и при успехе вызывает Authorise до возврата токена.
// Ошибки классифицируются, см. Error.
func (s *Store) LoginWithAPI(ctx context.Context, credentials domain.Credentials) (string, error) {
	resp, err := s.api.Login(ctx, credentials)
	if err != nil {
		classified := classify(err)
		s.logger.WithError(err).WithField("username", credentials.Username).Warn("login failed")
		return "", classified
	}
	if resp.Token == "" {
		s.logger.WithField("username", credentials.Username).Warn("login response has no token")
		return "", &Error{Kind: domain.ErrAuthFailed, Cause: domain.ErrNoToken}
	}

	s.Authorise(ctx, resp.Token)
	s.logger.WithField("username", credentials.Username).Info("user logged in")
	return resp.Token, nil
}

// Token возвращает текущий токен или пустую строку.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// IsAuthenticated сообщает, есть ли токен.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// Snapshot возвращает текущее состояние.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe подписывает fn на вход и выход.
func (s *Store) Subscribe(fn func(Session)) func() {
	return s.observers.Subscribe(fn)
}

func (s *Store) snapshotLocked() Session {
	return Session{Token: s.token, IsAuthenticated: s.token != ""}
}

// Error — классифицированная ошибка входа. Kind — один из sentinel-ов domain.
type Error struct {
	Kind  error
	Cause error
	// Upstream — сообщение API, если оно было.
	Upstream string
}

func (e *Error) Error() string {
	if e.Upstream != "" && errors.Is(e.Kind, domain.ErrAuthFailed) {
		return e.Kind.Error() + ": " + e.Upstream
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func classify(err error) error {
	var reqErr *domain.RequestError
	upstream := err.Error()
	if errors.As(err, &reqErr) && reqErr.Message != "" {
		upstream = reqErr.Message
	}

	switch status := domain.StatusCode(err); {
	case domain.IsNetwork(err):
		return &Error{Kind: domain.ErrNetwork, Cause: err}
	case status == http.StatusUnauthorized:
		return &Error{Kind: domain.ErrInvalidCredentials, Cause: err}
	case domain.IsServerError(err):
		return &Error{Kind: domain.ErrServerUnavailable, Cause: err}
	default:
		return &Error{Kind: domain.ErrAuthFailed, Cause: err, Upstream: upstream}
	}
}
