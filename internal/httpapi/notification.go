package httpapi

import (
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/store/notification"
)

func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r.Context()).Notifications.Snapshot())
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	n := sessionFrom(r.Context()).Notifications
	n.Hide()
	writeJSON(w, http.StatusOK, n.Snapshot())
}

func notifyAddedToCart(sess *requestSession, title string) {
	sess.Notifications.Notify(notification.Params{
		Message: title + " added to cart",
		Type:    notification.TypeSuccess,
		Button:  &notification.Button{Text: "Open cart", Action: CartPagePath},
	})
}

func notifyFavorite(sess *requestSession, title string, added bool) {
	msg := title + " removed from favorites"
	if added {
		msg = title + " added to favorites"
	}
	sess.Notifications.Notify(notification.Params{Message: msg, Type: notification.TypeInfo})
}
