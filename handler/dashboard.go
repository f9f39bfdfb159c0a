package handler

import (
	"net/http"

	"github.com/stevemurr/franchise-admin/model"
	"github.com/stevemurr/franchise-admin/schema"
)

func (h *Handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	stats, err := s.Dashboard().Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) updateDashboardStats(w http.ResponseWriter, r *http.Request) {
	doc, err := readJSON(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := schema.ValidatePatch(model.KindDashboardStats, doc); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "schema validation failed: "+err.Error())
		return
	}
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	stats, err := s.Dashboard().UpdateStats(r.Context(), model.Patch(doc))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) dashboardRevenue(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	rows, err := s.Dashboard().Revenue(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) dashboardActivity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	activity, err := s.Dashboard().Activity(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}
