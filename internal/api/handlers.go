// Package api exposes the campaign, webhook, analytics and lead capture
// endpoints over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/leadconvert/leadconvert/internal/archive"
	"github.com/leadconvert/leadconvert/internal/domain"
	"github.com/leadconvert/leadconvert/internal/esp/sendgrid"
	"github.com/leadconvert/leadconvert/internal/pkg/httputil"
	"github.com/leadconvert/leadconvert/internal/service/analytics"
	"github.com/leadconvert/leadconvert/internal/service/campaign"
	"github.com/leadconvert/leadconvert/internal/service/lead"
	"github.com/leadconvert/leadconvert/internal/service/webhook"
)

// CampaignService is the subset of campaign.Service the handlers use.
type CampaignService interface {
	Send(ctx context.Context, in campaign.SendInput) (*campaign.SendResult, error)
	Get(ctx context.Context, id string) (*domain.Campaign, error)
	List(ctx context.Context, f campaign.ListFilter) ([]domain.Campaign, int, error)
	Recipients(ctx context.Context, id string) ([]domain.Recipient, error)
}

// EventIngestor applies a parsed webhook batch.
type EventIngestor interface {
	Ingest(ctx context.Context, events []sendgrid.Event) webhook.Report
}

// SignatureVerifier authenticates a webhook request against its raw body.
type SignatureVerifier interface {
	VerifyRequest(r *http.Request, payload []byte) error
}

// AnalyticsService is the subset of analytics.Service the handlers use.
type AnalyticsService interface {
	CampaignMetrics(ctx context.Context, campaignID string) (*analytics.MetricsView, error)
	LeadEngagement(ctx context.Context, leadID string) (*analytics.LeadEngagement, error)
	LeadMagnetMetrics(ctx context.Context, leadMagnetID string, now time.Time) (*analytics.LeadMagnetMetrics, error)
}

// LeadService is the subset of lead.Service the handlers use.
type LeadService interface {
	Get(ctx context.Context, id string) (*domain.Lead, error)
	Capture(ctx context.Context, in lead.CaptureInput) (*domain.Lead, bool, error)
	RecordPageView(ctx context.Context, leadMagnetID string) (int64, error)
}

// SuppressionService is the admin surface of the suppression list.
type SuppressionService interface {
	IsSuppressed(ctx context.Context, email string) (bool, error)
	Suppress(ctx context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource, campaignID string) error
	Remove(ctx context.Context, email string) error
	Count(ctx context.Context) (int, error)
}

// Deps are the services behind the handlers. Archiver and Health may be nil.
type Deps struct {
	Campaigns    CampaignService
	Ingestor     EventIngestor
	Verifier     SignatureVerifier
	Archiver     archive.Archiver
	Analytics    AnalyticsService
	Leads        LeadService
	Suppressions SuppressionService
	Health       *HealthChecker
}

// Handlers contains all HTTP handlers
type Handlers struct {
	campaigns    CampaignService
	ingestor     EventIngestor
	verifier     SignatureVerifier
	archiver     archive.Archiver
	analytics    AnalyticsService
	leads        LeadService
	suppressions SuppressionService
	health       *HealthChecker
	now          func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(d Deps) *Handlers {
	if d.Archiver == nil {
		d.Archiver = archive.Noop{}
	}
	if d.Health == nil {
		d.Health = NewHealthChecker(nil, nil)
	}
	return &Handlers{
		campaigns:    d.Campaigns,
		ingestor:     d.Ingestor,
		verifier:     d.Verifier,
		archiver:     d.Archiver,
		analytics:    d.Analytics,
		leads:        d.Leads,
		suppressions: d.Suppressions,
		health:       d.Health,
		now:          time.Now,
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	httputil.JSON(w, status, data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	httputil.Error(w, status, message)
}
