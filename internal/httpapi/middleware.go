package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/session"
	"github.com/vladislavdragonenkov/storefront/internal/storage/cookie"
)

// SessionCookie — имя cookie с id сессии витрины.
const SessionCookie = "sid"

type sessionContextKey struct{}

// requestSession — сессия витрины и cookie текущего запроса.
type requestSession struct {
	*session.Session
	cookies *cookie.KeyValueStore
}

func sessionFrom(ctx context.Context) *requestSession {
	sess, _ := ctx.Value(sessionContextKey{}).(*requestSession)
	return sess
}

func requestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			}).Info("http request served")
		})
	}
}

// withSession находит или заводит сессию по cookie sid. Если сессия не знает
// токена, а в cookie auth-token он есть, токен переносится в сессию.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     s.cookies.Path,
				Domain:   s.cookies.Domain,
				MaxAge:   int(s.cookies.MaxAge / time.Second),
				Secure:   s.cookies.Secure,
				HttpOnly: true,
				SameSite: s.cookies.SameSite,
			})
		}

		sess := s.sessions.Open(ctx, id)
		cookies := cookie.NewKeyValueStore(w, r, s.cookies, s.logger.WithField("component", "cookie-store"))
		if !sess.Auth.IsAuthenticated() {
			if token, ok := cookies.Get(ctx, domain.StorageKeyAuthToken); ok && token != "" {
				sess.Auth.Authorise(ctx, token)
			}
		}

		ctx = context.WithValue(ctx, sessionContextKey{}, &requestSession{Session: sess, cookies: cookies})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth пропускает запрос, только если guard разрешает странице page
// текущее состояние авторизации; иначе 401 с адресом перехода.
func (s *Server) requireAuth(page string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessionFrom(r.Context())
			if redirect, ok := s.guard.Redirect(page, sess.Auth.IsAuthenticated()); ok {
				writeJSON(w, http.StatusUnauthorized, errorResponse{
					ErrorPage: domain.ErrorPageFor(http.StatusUnauthorized, "Sign in to continue"),
					Redirect:  redirect,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
