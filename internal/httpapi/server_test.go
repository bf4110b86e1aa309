package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/apiclient"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/session"
	"github.com/vladislavdragonenkov/storefront/internal/storage/cookie"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/store/auth"
	"github.com/vladislavdragonenkov/storefront/internal/store/notification"
)

var fixtureProducts = []domain.Product{
	{ID: 1, Title: "Fjallraven Backpack", Price: 109.95, Category: "men's clothing"},
	{ID: 2, Title: "Slim Fit T-Shirt", Price: 22.3, Category: "men's clothing"},
	{ID: 5, Title: "Dragon Bracelet", Price: 695, Category: "jewelery"},
	{ID: 9, Title: "WD 2TB Elements", Price: 64, Category: "electronics"},
	{ID: 10, Title: "SanDisk SSD PLUS 1TB", Price: 109, Category: "electronics"},
}

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

func signedToken(t *testing.T, userID int, username string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"user": username,
	}).SignedString([]byte("upstream-secret"))
	require.NoError(t, err)
	return token
}

func upstream(t *testing.T) http.Handler {
	t.Helper()
	token := signedToken(t, 2, "mor_2314")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(fixtureProducts)
	})
	mux.HandleFunc("GET /products/category/{category}", func(w http.ResponseWriter, r *http.Request) {
		var out []domain.Product
		for _, p := range fixtureProducts {
			if p.Category == r.PathValue("category") {
				out = append(out, p)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("GET /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		for _, p := range fixtureProducts {
			if p.ID == id {
				_ = json.NewEncoder(w).Encode(p)
				return
			}
		}
		http.Error(w, "product not found", http.StatusNotFound)
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds domain.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Username != "mor_2314" || creds.Password != "83r5^_" {
			http.Error(w, "username or password is incorrect", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(apiclient.LoginResponse{Token: token})
	})
	mux.HandleFunc("POST /carts", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":11}`))
	})
	return mux
}

type harness struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newHarness(t *testing.T, api http.Handler, opts ...Option) *harness {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(srv.URL, apiclient.WithLogger(quietLogger()))
	require.NoError(t, err)

	registry := session.NewRegistry(memory.NewKeyValueStore(), client,
		session.WithLogger(quietLogger()),
		session.WithCartDebounce(time.Hour),
	)
	t.Cleanup(func() {
		require.NoError(t, registry.Shutdown(context.Background()))
	})

	cookieOpts := cookie.DefaultOptions()
	cookieOpts.Secure = false
	opts = append([]Option{WithLogger(quietLogger()), WithCookieOptions(cookieOpts)}, opts...)
	server := NewServer(client, registry, opts...)

	return &harness{t: t, handler: server.Router(), cookies: make(map[string]*http.Cookie)}
}

// visitor возвращает клиента того же сервера с пустыми cookie, то есть новую сессию.
func (h *harness) visitor() *harness {
	return &harness{t: h.t, handler: h.handler, cookies: make(map[string]*http.Cookie)}
}

func (h *harness) login() {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/auth/login", domain.Credentials{Username: "mor_2314", Password: "83r5^_"})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	for _, c := range h.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(h.cookies, c.Name)
			continue
		}
		h.cookies[c.Name] = c
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func productIDs(products []domain.Product) []int {
	ids := make([]int, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestShop_FiltersFromQuery(t *testing.T) {
	h := newHarness(t, upstream(t))

	rec := h.do(http.MethodGet, "/api/shop?sortBy=price-desc&category=electronics&priceRange=0,200", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[shopResponse](t, rec)
	require.Equal(t, []int{10, 9}, productIDs(resp.Products))
	require.Equal(t, "category=electronics&sortBy=price-desc", resp.Query)
	require.Equal(t, domain.SortPriceDesc, resp.Filters.SortBy)
	require.Equal(t, []string{"jewelery", "electronics", "clothing"}, resp.Categories)
}

func TestShop_Paginates(t *testing.T) {
	h := newHarness(t, upstream(t), WithPageSize(2))

	resp := decode[shopResponse](t, h.do(http.MethodGet, "/api/shop?sortBy=price-asc&page=2", nil))
	require.Equal(t, 2, resp.Page)
	require.Equal(t, 2, resp.TotalPages)
	require.Equal(t, 4, resp.Total, "the bracelet is outside the default price range")
	require.Equal(t, []int{10, 1}, productIDs(resp.Products))

	resp = decode[shopResponse](t, h.do(http.MethodGet, "/api/shop?page=42", nil))
	require.Equal(t, 1, resp.Page)
}

func TestShop_UpstreamFailure(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	rec := h.do(http.MethodGet, "/api/shop", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	resp := decode[errorResponse](t, rec)
	require.Equal(t, http.StatusBadGateway, resp.Status)
	require.NotEmpty(t, resp.Message)
}

func TestShop_UpstreamFailureKeepsCachedProducts(t *testing.T) {
	var failing atomic.Bool
	api := upstream(t)
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		api.ServeHTTP(w, r)
	}))
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shop", nil).Code)

	failing.Store(true)
	rec := h.do(http.MethodGet, "/api/shop?category=electronics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[shopResponse](t, rec)
	require.Equal(t, productsUnavailable, resp.Error)
	require.NotContains(t, rec.Body.String(), "http://")
	require.NotContains(t, rec.Body.String(), "/products")
	require.Equal(t, []int{1, 2, 9, 10}, productIDs(resp.Products), "the previous listing stays on screen")
}

func TestShop_SessionsHaveIndependentCatalogs(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	api := upstream(t)
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/products/category/electronics" {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
		}
		api.ServeHTTP(w, r)
	}))

	slow, fast, late := h.visitor(), h.visitor(), h.visitor()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		rec := httptest.NewRecorder()
		slow.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shop?category=electronics", nil))
		done <- rec
	}()
	<-started

	const jewelery = "/api/shop?category=jewelery&priceRange=0,1000"
	resp := decode[shopResponse](t, fast.do(http.MethodGet, jewelery, nil))
	require.Equal(t, []int{5}, productIDs(resp.Products))

	close(release)
	var slowRec *httptest.ResponseRecorder
	select {
	case slowRec = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("electronics request did not finish")
	}
	require.Equal(t, []int{9, 10}, productIDs(decode[shopResponse](t, slowRec).Products))

	resp = decode[shopResponse](t, fast.do(http.MethodGet, jewelery, nil))
	require.Equal(t, []int{5}, productIDs(resp.Products))

	resp = decode[shopResponse](t, late.do(http.MethodGet, jewelery, nil))
	require.Equal(t, []int{5}, productIDs(resp.Products))
}

func TestUpdateFilters_ReturnsCanonicalQuery(t *testing.T) {
	h := newHarness(t, upstream(t))

	rec := h.do(http.MethodPost, "/api/shop/filters?category=electronics", domain.Filters{
		Search:     "ssd",
		Category:   "electronics",
		SortBy:     "random",
		PriceRange: domain.DefaultPriceRange(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[shopResponse](t, rec)
	require.Equal(t, "category=electronics&search=ssd", resp.Query)
	require.Equal(t, domain.SortNone, resp.Filters.SortBy)
	require.Equal(t, []int{10}, productIDs(resp.Products))
}

func TestCart_RequiresAuthentication(t *testing.T) {
	h := newHarness(t, upstream(t))

	rec := h.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	resp := decode[errorResponse](t, rec)
	require.Equal(t, auth.LoginPath, resp.Redirect)
	require.Contains(t, h.cookies, SessionCookie)
}

func TestLoginCartLogoutFlow(t *testing.T) {
	h := newHarness(t, upstream(t))
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shop", nil).Code)

	rec := h.do(http.MethodPost, "/api/auth/login", domain.Credentials{Username: "mor_2314", Password: "83r5^_"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[sessionResponse](t, rec)
	require.True(t, login.Authenticated)
	require.Equal(t, 2, login.UserID)
	require.Equal(t, "mor_2314", login.Username)
	require.Equal(t, auth.HomePath, login.Redirect)
	require.Contains(t, h.cookies, domain.StorageKeyAuthToken)

	cartResp := decode[cartResponse](t, h.do(http.MethodPost, "/api/cart/items", map[string]int{"productId": 1, "quantity": 2}))
	require.Equal(t, 2, cartResp.TotalQuantity)
	require.Equal(t, "219.90", cartResp.TotalPrice)

	cartResp = decode[cartResponse](t, h.do(http.MethodPost, "/api/cart/items", map[string]int{"productId": 1}))
	require.Equal(t, 1, cartResp.ItemCount)
	require.Equal(t, 3, cartResp.Items[0].Quantity)

	rec = h.do(http.MethodPost, "/api/cart/items", map[string]int{"productId": 999})
	require.Equal(t, http.StatusNotFound, rec.Code)

	cartResp = decode[cartResponse](t, h.do(http.MethodPost, "/api/cart/toggle", nil))
	require.True(t, cartResp.IsOpen)

	cartResp = decode[cartResponse](t, h.do(http.MethodPatch, "/api/cart/items/1", map[string]int{"quantity": 0}))
	require.Empty(t, cartResp.Items)
	require.Equal(t, "0.00", cartResp.TotalPrice)

	rec = h.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logout := decode[sessionResponse](t, rec)
	require.False(t, logout.Authenticated)
	require.Equal(t, auth.LoginPath, logout.Redirect)
	require.NotContains(t, h.cookies, domain.StorageKeyAuthToken)

	require.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/cart", nil).Code)
}

func TestCart_AddProductWithoutBrowsing(t *testing.T) {
	h := newHarness(t, upstream(t))
	h.login()

	rec := h.do(http.MethodPost, "/api/cart/items", map[string]int{"productId": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[cartResponse](t, rec)
	require.Equal(t, 1, resp.TotalQuantity)
	require.Equal(t, "Fjallraven Backpack", resp.Items[0].Product.Title)
}

func TestCart_AddProductOutsideCurrentListing(t *testing.T) {
	h := newHarness(t, upstream(t))
	h.login()

	shop := decode[shopResponse](t, h.do(http.MethodGet, "/api/shop?category=electronics", nil))
	require.Equal(t, []int{9, 10}, productIDs(shop.Products))

	rec := h.do(http.MethodPost, "/api/cart/items", map[string]int{"productId": 1, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "219.90", decode[cartResponse](t, rec).TotalPrice)

	rec = h.do(http.MethodPost, "/api/cart/items", map[string]int{"productId": 9})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 3, decode[cartResponse](t, rec).TotalQuantity)
}

func TestCart_AddProductUpstreamDown(t *testing.T) {
	var failing atomic.Bool
	api := upstream(t)
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() && strings.HasPrefix(r.URL.Path, "/products/") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		api.ServeHTTP(w, r)
	}))
	h.login()
	failing.Store(true)

	rec := h.do(http.MethodPost, "/api/cart/items", map[string]int{"productId": 1})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, productsUnavailable, decode[errorResponse](t, rec).Message)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newHarness(t, upstream(t))

	rec := h.do(http.MethodPost, "/api/auth/login", domain.Credentials{Username: "mor_2314", Password: "wrong-password"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, domain.ErrInvalidCredentials.Error(), decode[errorResponse](t, rec).Message)
	require.NotContains(t, h.cookies, domain.StorageKeyAuthToken)
}

func TestLogin_ValidatesFields(t *testing.T) {
	h := newHarness(t, upstream(t))

	rec := h.do(http.MethodPost, "/api/auth/login", domain.Credentials{Password: "123"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decode[errorResponse](t, rec)
	require.Equal(t, "Username is required", resp.Errors["username"])
	require.Equal(t, "Password must be at least 6 characters", resp.Errors["password"])
}

func TestSession_RestoredFromAuthCookie(t *testing.T) {
	h := newHarness(t, upstream(t))
	h.cookies[domain.StorageKeyAuthToken] = &http.Cookie{Name: domain.StorageKeyAuthToken, Value: signedToken(t, 4, "kevinryan")}

	resp := decode[sessionResponse](t, h.do(http.MethodGet, "/api/auth/session", nil))
	require.True(t, resp.Authenticated)
	require.Equal(t, 4, resp.UserID)

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/cart", nil).Code)
}

func TestGuard(t *testing.T) {
	h := newHarness(t, upstream(t))

	var resp struct {
		Allowed  bool   `json:"allowed"`
		Redirect string `json:"redirect"`
	}
	rec := h.do(http.MethodGet, "/api/guard?path=/checkout", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Allowed)
	require.Equal(t, auth.LoginPath, resp.Redirect)

	rec = h.do(http.MethodGet, "/api/guard?path=/account", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Allowed)
}

func TestFavorites_Toggle(t *testing.T) {
	h := newHarness(t, upstream(t))
	h.do(http.MethodGet, "/api/shop", nil)

	resp := decode[favoritesResponse](t, h.do(http.MethodPost, "/api/favorites/9", nil))
	require.NotNil(t, resp.Favorite)
	require.True(t, *resp.Favorite)
	require.Equal(t, []int{9}, productIDs(resp.Items))

	resp = decode[favoritesResponse](t, h.do(http.MethodGet, "/api/favorites", nil))
	require.Equal(t, []int{9}, productIDs(resp.Items))

	resp = decode[favoritesResponse](t, h.do(http.MethodPost, "/api/favorites/9", nil))
	require.False(t, *resp.Favorite)
	require.Empty(t, resp.Items)

	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/favorites/abc", nil).Code)
}

func TestNotification_AfterAddToCart(t *testing.T) {
	h := newHarness(t, upstream(t))

	hidden := decode[notification.State](t, h.do(http.MethodGet, "/api/notification", nil))
	require.False(t, hidden.Visible)

	h.login()
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/cart/items", map[string]int{"productId": 9}).Code)

	got := decode[notification.State](t, h.do(http.MethodGet, "/api/notification", nil))
	require.True(t, got.Visible)
	require.Equal(t, notification.TypeSuccess, got.Type)
	require.Equal(t, "WD 2TB Elements added to cart", got.Message)
	require.Equal(t, &notification.Button{Text: "Open cart", Action: CartPagePath}, got.Button)

	got = decode[notification.State](t, h.do(http.MethodDelete, "/api/notification", nil))
	require.False(t, got.Visible)
	require.Empty(t, got.Message)
}

func TestNotification_FavoriteToggle(t *testing.T) {
	h := newHarness(t, upstream(t))

	h.do(http.MethodPost, "/api/favorites/5", nil)
	got := decode[notification.State](t, h.do(http.MethodGet, "/api/notification", nil))
	require.Equal(t, "Dragon Bracelet added to favorites", got.Message)

	h.do(http.MethodPost, "/api/favorites/5", nil)
	got = decode[notification.State](t, h.do(http.MethodGet, "/api/notification", nil))
	require.Equal(t, "Dragon Bracelet removed from favorites", got.Message)
}

func TestReview_Validation(t *testing.T) {
	h := newHarness(t, upstream(t))

	rec := h.do(http.MethodPost, "/api/products/1/reviews", map[string]any{
		"name":    "A",
		"email":   "not-an-email",
		"message": "short",
		"rating":  7,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[errorResponse](t, rec)
	require.Len(t, resp.Errors, 4)

	rec = h.do(http.MethodPost, "/api/products/1/reviews", map[string]any{
		"name":    "Анна",
		"email":   "anna@example.com",
		"message": "Great backpack, fits a laptop.",
		"rating":  5,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestNotFound(t *testing.T) {
	h := newHarness(t, upstream(t))

	rec := h.do(http.MethodGet, "/api/unknown", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "404 Error", decode[errorResponse](t, rec).Title)
}
