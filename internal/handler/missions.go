package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
)

func (h *Handler) CreateMission(w http.ResponseWriter, r *http.Request) {
	var req domain.MissionInput
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	mission, err := h.missions.Create(r.Context(), identityFrom(r), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.createdResponse(w, r, "mission submitted", mission)
}

func (h *Handler) ListMissions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.MissionFilter{
		Search:      query.Get("search"),
		StartDate:   query.Get("startDate"),
		EndDate:     query.Get("endDate"),
		ServiceType: query.Get("serviceType"),
	}

	missions, err := h.missions.List(r.Context(), identityFrom(r), filter)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "missions retrieved", missions)
}

func (h *Handler) GetMission(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	mission, err := h.missions.Get(r.Context(), identityFrom(r), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "mission retrieved", mission)
}

func (h *Handler) UpdateMission(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	var req domain.MissionInput
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	mission, err := h.missions.Update(r.Context(), identityFrom(r), id, req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "mission updated", mission)
}

func (h *Handler) DeleteMission(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	if err := h.missions.Delete(r.Context(), identityFrom(r), id); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "mission deleted", nil)
}

func (h *Handler) ExportMissionsCSV(w http.ResponseWriter, r *http.Request) {
	// rendered in memory first so a failure can still be answered with JSON
	var buf bytes.Buffer
	if err := h.missions.ExportCSV(r.Context(), identityFrom(r), &buf); err != nil {
		h.serviceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=missions_%d.csv", time.Now().UnixMilli()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logInternalServerError(r, err)
	}
}
