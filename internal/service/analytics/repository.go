package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/leadconvert/leadconvert/internal/domain"
)

// ErrNotFound is returned when the subject of a query does not exist.
var ErrNotFound = errors.New("not found")

// DailyCount is one (UTC day, event type) aggregate from the event log.
type DailyCount struct {
	Day   time.Time
	Type  domain.EventType
	Count int64
}

// CampaignSummary is the slice of a campaign the metrics view needs.
type CampaignSummary struct {
	Status         domain.CampaignStatus
	RecipientCount int
}

// RecipientCounts tallies recipient rows.
type RecipientCounts struct {
	Total     int64
	Delivered int64 // status sent, opened or clicked
	Sent      int64 // sent_at set
	Opened    int64 // opened_at set
	Clicked   int64 // clicked_at set
}

// Repository is the read-only data access contract.
type Repository interface {
	// Metrics returns the rows that exist for campaignIDs.
	Metrics(ctx context.Context, campaignIDs []string) ([]domain.Metrics, error)

	// CampaignSummary returns ErrNotFound when the campaign doesn't exist.
	CampaignSummary(ctx context.Context, campaignID string) (*CampaignSummary, error)

	// DailyEventCounts groups events of campaignIDs at or after since by UTC
	// day and type.
	DailyEventCounts(ctx context.Context, campaignIDs []string, since time.Time) ([]DailyCount, error)

	// LeadRecipientCounts tallies the recipient rows of one lead. Returns
	// ErrNotFound when the lead doesn't exist.
	LeadRecipientCounts(ctx context.Context, leadID string) (*RecipientCounts, error)

	// LeadMagnetLeadCount returns the number of leads a lead magnet captured.
	LeadMagnetLeadCount(ctx context.Context, leadMagnetID string) (int, error)

	// LeadMagnetCampaigns returns the ids of campaigns that have at least one
	// recipient among the lead magnet's leads.
	LeadMagnetCampaigns(ctx context.Context, leadMagnetID string) ([]string, error)

	// LeadMagnetRecipientCounts tallies recipient rows of the lead magnet's
	// leads across all campaigns.
	LeadMagnetRecipientCounts(ctx context.Context, leadMagnetID string) (*RecipientCounts, error)
}
