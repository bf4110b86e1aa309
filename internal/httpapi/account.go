package httpapi

import (
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/store/auth"
	"github.com/vladislavdragonenkov/storefront/internal/validation"
)

var usernameField = validation.Config{
	Rules:    validation.Rules{Required: true, MaxLength: 50},
	Messages: validation.Messages{Required: "Username is required", MaxLength: "Username is too long"},
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        int    `json:"userId,omitempty"`
	Username      string `json:"username,omitempty"`
	Redirect      string `json:"redirect,omitempty"`
}

func newSessionResponse(sess *requestSession) sessionResponse {
	resp := sessionResponse{Authenticated: sess.Auth.IsAuthenticated()}
	if claims, err := sess.Auth.Claims(); err == nil {
		resp.UserID = claims.UserID
		resp.Username = claims.Username
	}
	return resp
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var credentials domain.Credentials
	if err := decodeJSON(r, &credentials); err != nil {
		writeError(w, http.StatusBadRequest, "invalid credentials payload")
		return
	}

	fieldErrors := make(map[string]string)
	if msg := validation.Validate(credentials.Username, usernameField); msg != "" {
		fieldErrors["username"] = msg
	}
	if msg := validation.Validate(credentials.Password, validation.Password); msg != "" {
		fieldErrors["password"] = msg
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			ErrorPage: domain.ErrorPageFor(http.StatusUnprocessableEntity, "Check the highlighted fields"),
			Errors:    fieldErrors,
		})
		return
	}

	sess := sessionFrom(r.Context())
	token, err := sess.Auth.LoginWithAPI(r.Context(), credentials)
	if err != nil {
		s.logger.WithError(err).WithField("session_id", sess.ID).Info("login rejected")
		writeError(w, loginStatus(err), err.Error())
		return
	}
	sess.cookies.Set(r.Context(), domain.StorageKeyAuthToken, token)

	resp := newSessionResponse(sess)
	if redirect, ok := s.guard.Redirect(auth.LoginPath, true); ok {
		resp.Redirect = redirect
	}
	writeJSON(w, http.StatusOK, resp)
}

func loginStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrServerUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.Auth.Logout(r.Context())
	sess.cookies.Remove(r.Context(), domain.StorageKeyAuthToken)

	resp := newSessionResponse(sess)
	resp.Redirect, _ = sess.TakeRedirect()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSessionResponse(sessionFrom(r.Context())))
}

// handleGuard сообщает UI, можно ли открыть страницу ?path= в текущей сессии.
func (s *Server) handleGuard(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "/"
	}
	redirect, blocked := s.guard.Redirect(path, sessionFrom(r.Context()).Auth.IsAuthenticated())
	writeJSON(w, http.StatusOK, map[string]any{
		"path":     path,
		"allowed":  !blocked,
		"redirect": redirect,
	})
}
