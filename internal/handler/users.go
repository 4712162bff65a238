package handler

import (
	"net/http"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
)

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), identityFrom(r))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "users retrieved", users)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserInput
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user, err := h.users.Create(r.Context(), identityFrom(r), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.createdResponse(w, r, "user created", user)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	var req domain.UpdateUserInput
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user, err := h.users.Update(r.Context(), identityFrom(r), id, req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "user updated", user)
}

func (h *Handler) ResetUserPassword(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	var req domain.ResetPasswordInput
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.users.ResetPassword(r.Context(), identityFrom(r), id, req); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "password changed", nil)
}
