// Package httpapi — JSON API витрины для браузера поверх сторов сессии и каталога.
package httpapi

import (
	"context"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/pagination"
	"github.com/vladislavdragonenkov/storefront/internal/session"
	"github.com/vladislavdragonenkov/storefront/internal/storage/cookie"
	"github.com/vladislavdragonenkov/storefront/internal/store/auth"
	"github.com/vladislavdragonenkov/storefront/internal/store/filters"
)

// CartPagePath — страница корзины; по ней guard решает, пускать ли к API корзины.
const CartPagePath = "/cart"

// Products ищет товар по id независимо от текущего списка каталога (обычно *apiclient.Client).
type Products interface {
	Product(ctx context.Context, id int) (domain.Product, error)
}

// Sessions открывает сессию витрины по id (обычно *session.Registry).
type Sessions interface {
	Open(ctx context.Context, id string) *session.Session
}

// Option настраивает Server.
type Option func(*Server)

// WithLogger задает logger сервера.
func WithLogger(logger *log.Entry) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCookieOptions задает атрибуты cookie sid и auth-token.
func WithCookieOptions(opts cookie.Options) Option {
	return func(s *Server) {
		s.cookies = opts
	}
}

// WithPageSize задает размер страницы витрины.
func WithPageSize(size int) Option {
	return func(s *Server) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithCategories задает категории витрины.
func WithCategories(categories []string) Option {
	return func(s *Server) {
		if len(categories) > 0 {
			s.categories = slices.Clone(categories)
		}
	}
}

// WithGuard подменяет правила доступа к страницам.
func WithGuard(guard *auth.Guard) Option {
	return func(s *Server) {
		if guard != nil {
			s.guard = guard
		}
	}
}

// Server обслуживает /api/* витрины.
type Server struct {
	products   Products
	sessions   Sessions
	guard      *auth.Guard
	cookies    cookie.Options
	logger     *log.Entry
	pageSize   int
	categories []string
}

// NewServer создает сервер поверх источника товаров и реестра сессий.
// Каталог, который видит посетитель, берётся из его сессии.
func NewServer(products Products, sessions Sessions, opts ...Option) *Server {
	s := &Server{
		products:   products,
		sessions:   sessions,
		guard:      auth.NewGuard(),
		cookies:    cookie.DefaultOptions(),
		logger:     log.WithField("component", "http-api"),
		pageSize:   pagination.DefaultPageSize,
		categories: slices.Clone(filters.DefaultCategories),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router собирает chi-роутер со всеми маршрутами API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(s.logger), middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/products/{id}/reviews", s.handleReview)

		api.Group(func(sess chi.Router) {
			sess.Use(s.withSession)

			sess.Get("/shop", s.handleShop)
			sess.Post("/shop/filters", s.handleUpdateFilters)

			sess.Get("/guard", s.handleGuard)
			sess.Post("/auth/login", s.handleLogin)
			sess.Post("/auth/logout", s.handleLogout)
			sess.Get("/auth/session", s.handleSession)

			sess.Get("/favorites", s.handleFavorites)
			sess.Post("/favorites/{id}", s.handleToggleFavorite)

			sess.Get("/notification", s.handleNotification)
			sess.Delete("/notification", s.handleDismissNotification)

			sess.Group(func(protected chi.Router) {
				protected.Use(s.requireAuth(CartPagePath))
				protected.Get("/cart", s.handleCart)
				protected.Delete("/cart", s.handleClearCart)
				protected.Post("/cart/toggle", s.handleToggleCart)
				protected.Post("/cart/items", s.handleAddToCart)
				protected.Patch("/cart/items/{id}", s.handleUpdateQuantity)
				protected.Delete("/cart/items/{id}", s.handleRemoveFromCart)
			})
		})
	})

	return r
}
