package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/store/cart"
)

type cartResponse struct {
	Items         []domain.CartItem `json:"items"`
	IsOpen        bool              `json:"isOpen"`
	ItemCount     int               `json:"itemCount"`
	TotalQuantity int               `json:"totalQuantity"`
	TotalPrice    string            `json:"totalPrice"`
}

func newCartResponse(c *cart.Store) cartResponse {
	snapshot := c.Snapshot()
	items := snapshot.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return cartResponse{
		Items:         items,
		IsOpen:        snapshot.IsOpen,
		ItemCount:     len(items),
		TotalQuantity: snapshot.TotalQuantity(),
		TotalPrice:    snapshot.TotalPrice().StringFixed(2),
	}
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newCartResponse(sessionFrom(r.Context()).Cart))
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int `json:"productId"`
		Quantity  int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid cart item payload")
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "quantity must not be negative")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, ok := s.lookupProduct(w, r, req.ProductID)
	if !ok {
		return
	}

	sess := sessionFrom(r.Context())
	sess.Cart.AddToCart(product, req.Quantity)
	notifyAddedToCart(sess, product.Title)
	writeJSON(w, http.StatusOK, newCartResponse(sess.Cart))
}

func (s *Server) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid quantity payload")
		return
	}

	c := sessionFrom(r.Context()).Cart
	c.UpdateQuantity(id, req.Quantity)
	writeJSON(w, http.StatusOK, newCartResponse(c))
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	c := sessionFrom(r.Context()).Cart
	c.RemoveFromCart(id)
	writeJSON(w, http.StatusOK, newCartResponse(c))
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	c := sessionFrom(r.Context()).Cart
	c.ClearCart()
	writeJSON(w, http.StatusOK, newCartResponse(c))
}

func (s *Server) handleToggleCart(w http.ResponseWriter, r *http.Request) {
	c := sessionFrom(r.Context()).Cart
	c.ToggleCart()
	writeJSON(w, http.StatusOK, newCartResponse(c))
}

// lookupProduct берёт товар из каталога сессии, а если его там нет, запрашивает API:
// добавить в корзину можно и товар вне текущего списка.
func (s *Server) lookupProduct(w http.ResponseWriter, r *http.Request, id int) (domain.Product, bool) {
	if product, err := sessionFrom(r.Context()).Catalog.ProductByID(id); err == nil {
		return product, true
	}

	product, err := s.products.Product(r.Context(), id)
	switch {
	case err == nil:
		return product, true
	case errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "Product not found")
	default:
		s.logger.WithError(err).WithField("product_id", id).Warn("product lookup failed")
		writeError(w, http.StatusBadGateway, productsUnavailable)
	}
	return domain.Product{}, false
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	return id, true
}
