package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadconvert/leadconvert/internal/pkg/httputil"
	"github.com/leadconvert/leadconvert/internal/service/campaign"
)

func (h *Handlers) HandleListCampaigns(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, 50, 200)
	items, total, err := h.campaigns.List(r.Context(), campaign.ListFilter{
		Status:       r.URL.Query().Get("status"),
		LeadMagnetID: r.URL.Query().Get("leadMagnetId"),
		Limit:        p.Limit,
		Offset:       p.Offset,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, NewPaginatedResponse(items, p, total))
}

func (h *Handlers) HandleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.campaigns.Get(r.Context(), id)
	if errors.Is(err, campaign.ErrNotFound) {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	recipients, err := h.campaigns.Recipients(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"campaign":   c,
		"recipients": recipients,
	})
}
