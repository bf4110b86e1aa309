package httpapi

import (
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/validation"
)

type favoritesResponse struct {
	Items    []domain.Product `json:"items"`
	Favorite *bool            `json:"favorite,omitempty"`
}

func favoriteItems(sess *requestSession) []domain.Product {
	items := sess.Favorites.Items()
	if items == nil {
		items = []domain.Product{}
	}
	return items
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, favoritesResponse{Items: favoriteItems(sessionFrom(r.Context()))})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	product, ok := s.lookupProduct(w, r, id)
	if !ok {
		return
	}

	sess := sessionFrom(r.Context())
	favorite := sess.Favorites.Toggle(r.Context(), product)
	notifyFavorite(sess, product.Title, favorite)
	writeJSON(w, http.StatusOK, favoritesResponse{Items: favoriteItems(sess), Favorite: &favorite})
}

// handleReview только проверяет форму отзыва: хранение отзывов вне витрины.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	var review validation.Review
	if err := decodeJSON(r, &review); err != nil {
		writeError(w, http.StatusBadRequest, "invalid review payload")
		return
	}

	if errs := validation.ValidateReview(review); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			ErrorPage: domain.ErrorPageFor(http.StatusUnprocessableEntity, "Check the highlighted fields"),
			Errors:    errs,
		})
		return
	}

	s.logger.WithField("product_id", id).WithField("rating", review.Rating).Info("product review accepted")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
