// Package cookie реализует KeyValueStore поверх HTTP-cookie одного запроса:
// значения читаются из запроса, записи уходят в Set-Cookie ответа.
package cookie

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultMaxAge — срок жизни cookie токена.
const DefaultMaxAge = 7 * 24 * time.Hour

// Options задаёт атрибуты выставляемых cookie.
type Options struct {
	MaxAge   time.Duration
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// DefaultOptions: 7 дней, SameSite=Lax, Secure, HttpOnly, Path=/.
func DefaultOptions() Options {
	return Options{
		MaxAge:   DefaultMaxAge,
		Path:     "/",
		Secure:   true,
		HTTPOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// KeyValueStore привязан к паре запрос/ответ и не переживает запрос.
type KeyValueStore struct {
	req  *http.Request
	w    http.ResponseWriter
	opts Options

	mu sync.Mutex
	// overlay хранит записи текущего запроса, чтобы Get после Set видел новое значение.
	overlay map[string]*string
	logger  *log.Entry
}

// NewKeyValueStore создаёт хранилище для текущего запроса.
func NewKeyValueStore(w http.ResponseWriter, req *http.Request, opts Options, logger *log.Entry) *KeyValueStore {
	if logger == nil {
		logger = log.WithField("component", "cookie-store")
	}
	return &KeyValueStore{
		req:     req,
		w:       w,
		opts:    opts,
		overlay: make(map[string]*string),
		logger:  logger,
	}
}

func (s *KeyValueStore) Get(_ context.Context, key string) (string, bool) {
	s.mu.Lock()
	if value, ok := s.overlay[key]; ok {
		s.mu.Unlock()
		if value == nil {
			return "", false
		}
		return *value, true
	}
	s.mu.Unlock()

	if s.req == nil {
		return "", false
	}
	c, err := s.req.Cookie(key)
	if err != nil {
		return "", false
	}
	value, err := url.QueryUnescape(c.Value)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("malformed cookie value ignored")
		return "", false
	}
	return value, true
}

func (s *KeyValueStore) Set(_ context.Context, key, value string) {
	s.mu.Lock()
	v := value
	s.overlay[key] = &v
	s.mu.Unlock()

	s.write(&http.Cookie{
		Name:   key,
		Value:  url.QueryEscape(value),
		MaxAge: int(s.opts.MaxAge / time.Second),
	})
}

func (s *KeyValueStore) Remove(_ context.Context, key string) {
	s.mu.Lock()
	s.overlay[key] = nil
	s.mu.Unlock()

	s.write(&http.Cookie{
		Name:    key,
		Value:   "",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
}

func (s *KeyValueStore) write(c *http.Cookie) {
	if s.w == nil {
		return
	}
	c.Path = s.opts.Path
	c.Domain = s.opts.Domain
	c.Secure = s.opts.Secure
	c.HttpOnly = s.opts.HTTPOnly
	c.SameSite = s.opts.SameSite
	http.SetCookie(s.w, c)
}

var _ domain.KeyValueStore = (*KeyValueStore)(nil)
