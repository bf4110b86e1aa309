package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// errorResponse — тело ошибки: страница ошибки плюс необязательный переход и ошибки полей.
type errorResponse struct {
	domain.ErrorPage
	Redirect string            `json:"redirect,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{ErrorPage: domain.ErrorPageFor(status, msg)})
}
