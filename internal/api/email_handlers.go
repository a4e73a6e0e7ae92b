package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/leadconvert/leadconvert/internal/esp/sendgrid"
	"github.com/leadconvert/leadconvert/internal/pkg/httputil"
	"github.com/leadconvert/leadconvert/internal/pkg/logger"
	"github.com/leadconvert/leadconvert/internal/service/campaign"
)

// HandleSend creates and dispatches a campaign.
//
//	POST /api/email/send
func (h *Handlers) HandleSend(w http.ResponseWriter, r *http.Request) {
	var in campaign.SendInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	res, err := h.campaigns.Send(r.Context(), in)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, res)
	case errors.Is(err, campaign.ErrMissingRecipients),
		errors.Is(err, campaign.ErrMissingSubject),
		errors.Is(err, campaign.ErrMissingContent),
		errors.Is(err, campaign.ErrInvalidContent),
		errors.Is(err, campaign.ErrAllSuppressed):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, campaign.ErrDispatchFailed):
		logger.Error("api: send dispatch failed", "error", err)
		respondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, campaign.ErrNotConfigured):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}

// HandleWebhook ingests a SendGrid event batch. The raw body is archived
// before verification so rejected deliveries can still be inspected.
//
//	POST /api/email/webhook
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := httputil.ReadBody(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	requestID := middleware.GetReqID(r.Context())
	if requestID == "" {
		requestID = uuid.New().String()
	}
	if err := h.archiver.Store(r.Context(), requestID, body, h.now()); err != nil {
		logger.Warn("api: archive webhook body", "request_id", requestID, "error", err)
	}

	if err := h.verifier.VerifyRequest(r, body); err != nil {
		logger.Warn("api: webhook rejected", "request_id", requestID, "error", err)
		respondError(w, http.StatusUnauthorized, "invalid webhook signature")
		return
	}

	events, err := sendgrid.ParseEvents(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep := h.ingestor.Ingest(r.Context(), events)
	// Only a batch where nothing landed is worth a provider retry.
	if rep.Errors > 0 && rep.Errors == rep.Received {
		respondError(w, http.StatusInternalServerError, "failed to process webhook events")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"report":  rep,
	})
}

// HandleWebhookTest acknowledges a batch without applying it.
//
//	POST /api/email/webhook-test
func (h *Handlers) HandleWebhookTest(w http.ResponseWriter, r *http.Request) {
	body, err := httputil.ReadBody(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	events, err := sendgrid.ParseEvents(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Info("api: test webhook received", "events", len(events))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "Webhook received",
		"timestamp": h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"events":    len(events),
	})
}

// HandleCampaignMetrics returns counters and rates for one campaign. An
// unknown id yields zeros.
//
//	GET /api/email/metrics/{messageId}
func (h *Handlers) HandleCampaignMetrics(w http.ResponseWriter, r *http.Request) {
	view, err := h.analytics.CampaignMetrics(r.Context(), chi.URLParam(r, "messageId"))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}
