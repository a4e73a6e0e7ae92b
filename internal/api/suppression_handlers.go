package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/leadconvert/leadconvert/internal/domain"
	"github.com/leadconvert/leadconvert/internal/pkg/httputil"
	"github.com/leadconvert/leadconvert/internal/service/suppression"
)

type suppressRequest struct {
	Email string `json:"email"`
}

// HandleSuppressionCount reports the size of the suppression list.
//
//	GET /api/suppressions/count
func (h *Handlers) HandleSuppressionCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.suppressions.Count(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"count": n})
}

//	GET /api/suppressions/{email}
func (h *Handlers) HandleCheckSuppression(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}
	hit, err := h.suppressions.IsSuppressed(r.Context(), email)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"email":      domain.NormalizeEmail(email),
		"suppressed": hit,
	})
}

// HandleAddSuppression puts an address on the list by hand. Adding an
// address that is already listed keeps the original entry.
//
//	POST /api/suppressions
func (h *Handlers) HandleAddSuppression(w http.ResponseWriter, r *http.Request) {
	var req suppressRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	err := h.suppressions.Suppress(r.Context(), req.Email, domain.ReasonManual, domain.SourceManual, "")
	if errors.Is(err, suppression.ErrEmailMissing) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"email":   domain.NormalizeEmail(req.Email),
	})
}

//	DELETE /api/suppressions/{email}
func (h *Handlers) HandleRemoveSuppression(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}
	err := h.suppressions.Remove(r.Context(), email)
	switch {
	case errors.Is(err, suppression.ErrNotFound):
		respondError(w, http.StatusNotFound, "address is not suppressed")
	case errors.Is(err, suppression.ErrEmailMissing):
		respondError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		httputil.InternalError(w, err)
	default:
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

func emailParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil || email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return "", false
	}
	return email, true
}
