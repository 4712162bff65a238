package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/roadside-ops/mission-log/backend/internal/metrics"
	"github.com/roadside-ops/mission-log/backend/internal/session"
)

type loginResponse struct {
	Role     domain.Role `json:"role"`
	FullName string      `json:"fullName"`
}

type authCheckResponse struct {
	Authenticated bool        `json:"authenticated"`
	Role          domain.Role `json:"role,omitempty"`
	FullName      string      `json:"fullName,omitempty"`
	Username      string      `json:"username,omitempty"`
}

func (h *Handler) sessionCookie(value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     h.config.Session.CookieName,
		Value:    value,
		Expires:  expires,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	}

	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}

	return cookie
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginInput
	if err := h.readJSON(w, r, &req); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_input").Inc()
		h.badRequest(w, r, err)
		return
	}

	user, err := h.auth.Authenticate(r.Context(), req)
	if err != nil {
		var validationErr *domain.ValidationError
		switch {
		case errors.As(err, &validationErr):
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_input").Inc()
		case errors.Is(err, domain.ErrInvalidCredentials):
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		default:
			metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		}
		h.serviceError(w, r, err)
		return
	}

	token, sess, err := h.sessions.Create(r.Context(), user.Identity())
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		h.internalServerError(w, r, err)
		return
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	http.SetCookie(w, h.sessionCookie(token, sess.ExpiresAt))

	h.successResponse(w, r, "login successful", loginResponse{
		Role:     user.Role,
		FullName: user.FullName,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.config.Session.CookieName); err == nil {
		if err := h.sessions.Destroy(r.Context(), cookie.Value); err != nil {
			h.internalServerError(w, r, err)
			return
		}
	}

	http.SetCookie(w, h.sessionCookie("", time.Now().Add(-time.Hour)))

	h.successResponse(w, r, "logout successful", nil)
}

func (h *Handler) AuthCheck(w http.ResponseWriter, r *http.Request) {
	sess, err := h.currentSession(r)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			h.internalServerError(w, r, err)
			return
		}
		h.successResponse(w, r, "not authenticated", authCheckResponse{Authenticated: false})
		return
	}

	h.successResponse(w, r, "authenticated", authCheckResponse{
		Authenticated: true,
		Role:          sess.Identity.Role,
		FullName:      sess.Identity.FullName,
		Username:      sess.Identity.Username,
	})
}
