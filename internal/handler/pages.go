package handler

import (
	"errors"
	"net/http"

	"github.com/roadside-ops/mission-log/backend/internal/session"
)

// Index sends the visitor to the page of their role.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	sess, err := h.currentSession(r)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			h.logInternalServerError(r, err)
		}
		http.Redirect(w, r, "/login.html", http.StatusFound)
		return
	}

	if sess.Identity.IsAdmin() {
		http.Redirect(w, r, "/admin.html", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/driver.html", http.StatusFound)
}
