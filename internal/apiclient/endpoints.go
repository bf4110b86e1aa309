package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// LoginResponse — ответ POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
}

// CartProduct — строка корзины в формате API.
type CartProduct struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// CartSyncRequest — тело POST /carts.
type CartSyncRequest struct {
	UserID   int           `json:"userId"`
	Date     string        `json:"date"`
	Products []CartProduct `json:"products"`
}

// NewCartSyncRequest собирает тело синхронизации из снимка корзины.
func NewCartSyncRequest(userID int, snapshot domain.CartSnapshot, now time.Time) CartSyncRequest {
	products := make([]CartProduct, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		products = append(products, CartProduct{ProductID: item.Product.ID, Quantity: item.Quantity})
	}
	return CartSyncRequest{
		UserID:   userID,
		Date:     now.UTC().Format(time.DateOnly),
		Products: products,
	}
}

// Products возвращает весь каталог: GET /products.
func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	products, err := Do[[]domain.Product](ctx, c, "/products", RequestOptions{Endpoint: "GET /products"})
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	return products, nil
}

// Product возвращает один товар: GET /products/{id}. 404 и пустой ответ
// (так API отвечает на неизвестный id) дают domain.ErrProductNotFound.
func (c *Client) Product(ctx context.Context, id int) (domain.Product, error) {
	product, err := Do[domain.Product](ctx, c, "/products/"+strconv.Itoa(id), RequestOptions{Endpoint: "GET /products/{id}"})
	if domain.StatusCode(err) == http.StatusNotFound || (err == nil && product.ID == 0) {
		return domain.Product{}, fmt.Errorf("fetch product %d: %w", id, errors.Join(domain.ErrProductNotFound, err))
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("fetch product %d: %w", id, err)
	}
	return product, nil
}

// ProductsByCategory возвращает товары категории: GET /products/category/{category}.
func (c *Client) ProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	products, err := Do[[]domain.Product](ctx, c, "/products/category/"+url.PathEscape(category), RequestOptions{
		Endpoint: "GET /products/category/{category}",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch products of category %q: %w", category, err)
	}
	return products, nil
}

// Categories возвращает список категорий: GET /products/categories.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	categories, err := Do[[]string](ctx, c, "/products/categories", RequestOptions{Endpoint: "GET /products/categories"})
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	return categories, nil
}

// Login выполняет POST /auth/login. Ошибки не классифицируются: это задача стора авторизации.
func (c *Client) Login(ctx context.Context, credentials domain.Credentials) (LoginResponse, error) {
	return Do[LoginResponse](ctx, c, "/auth/login", RequestOptions{
		Method:   http.MethodPost,
		Body:     credentials,
		Endpoint: "POST /auth/login",
	})
}

// SyncCart отправляет снимок корзины: POST /carts.
func (c *Client) SyncCart(ctx context.Context, req CartSyncRequest) error {
	_, err := Do[struct{}](ctx, c, "/carts", RequestOptions{
		Method:   http.MethodPost,
		Body:     req,
		Endpoint: "POST /carts",
	})
	if err != nil {
		return fmt.Errorf("sync cart: %w", err)
	}
	return nil
}

// Ping проверяет доступность API для health checks.
func (c *Client) Ping(ctx context.Context) error {
	_, err := Do[[]domain.Product](ctx, c, "/products", RequestOptions{
		Query:    url.Values{"limit": []string{"1"}},
		Endpoint: "GET /products (ping)",
	})
	return err
}
