package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadconvert/leadconvert/internal/pkg/httputil"
	"github.com/leadconvert/leadconvert/internal/service/analytics"
	"github.com/leadconvert/leadconvert/internal/service/lead"
)

// HandleCaptureLead stores a visitor's email against a lead magnet. 201 for
// a new lead, 200 when the address was already captured.
//
//	POST /api/leads
func (h *Handlers) HandleCaptureLead(w http.ResponseWriter, r *http.Request) {
	var in lead.CaptureInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	l, created, err := h.leads.Capture(r.Context(), in)
	if err != nil {
		h.leadError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]interface{}{
		"success": true,
		"created": created,
		"lead":    l,
	})
}

//	GET /api/leads/{id}
func (h *Handlers) HandleGetLead(w http.ResponseWriter, r *http.Request) {
	l, err := h.leads.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, lead.ErrNotFound) {
		respondError(w, http.StatusNotFound, "lead not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, l)
}

// HandleLeadEngagement scores one lead.
//
//	GET /api/leads/{id}/engagement
func (h *Handlers) HandleLeadEngagement(w http.ResponseWriter, r *http.Request) {
	e, err := h.analytics.LeadEngagement(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, analytics.ErrNotFound) {
		respondError(w, http.StatusNotFound, "lead not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

//	GET /api/lead-magnets/{id}/metrics
func (h *Handlers) HandleLeadMagnetMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.analytics.LeadMagnetMetrics(r.Context(), chi.URLParam(r, "id"), h.now())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if m == nil {
		respondError(w, http.StatusNotFound, "no leads for this lead magnet")
		return
	}
	respondJSON(w, http.StatusOK, m)
}

type pageViewRequest struct {
	LeadMagnetID string `json:"leadMagnetId"`
}

// HandlePageView counts a landing page view.
//
//	POST /api/pageView
func (h *Handlers) HandlePageView(w http.ResponseWriter, r *http.Request) {
	var req pageViewRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	h.recordPageView(w, r, req.LeadMagnetID)
}

//	POST /api/lead-magnet/{id}/page-view
func (h *Handlers) HandleLeadMagnetPageView(w http.ResponseWriter, r *http.Request) {
	h.recordPageView(w, r, chi.URLParam(r, "id"))
}

func (h *Handlers) recordPageView(w http.ResponseWriter, r *http.Request, leadMagnetID string) {
	views, err := h.leads.RecordPageView(r.Context(), leadMagnetID)
	if err != nil {
		h.leadError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"pageViews": views,
	})
}

func (h *Handlers) leadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lead.ErrInvalidEmail), errors.Is(err, lead.ErrMissingLeadMagnet):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, lead.ErrLeadMagnetNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}
