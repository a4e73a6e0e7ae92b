package campaign

import (
	"context"
	"time"

	"github.com/leadconvert/leadconvert/internal/domain"
)

// Repository defines the data access contract for campaigns and their
// recipients. Implementations must be safe for concurrent use.
type Repository interface {
	// CreateWithMetrics inserts the campaign and its zeroed metrics row in
	// one transaction.
	CreateWithMetrics(ctx context.Context, c *domain.Campaign) error

	// Get returns ErrNotFound if the campaign doesn't exist.
	Get(ctx context.Context, id string) (*domain.Campaign, error)

	// List returns campaigns ordered by created_at DESC and the total count.
	List(ctx context.Context, filter ListFilter) ([]domain.Campaign, int, error)

	// InsertRecipients adds one pending recipient per lead, skipping leads
	// already attached to the campaign. Returns the number of rows inserted.
	InsertRecipients(ctx context.Context, campaignID string, leads []domain.Lead, senderName string) (int, error)

	// ListRecipients returns the recipient rows of a campaign.
	ListRecipients(ctx context.Context, campaignID string) ([]domain.Recipient, error)

	// UpdateStatus moves the campaign to status `to` only when its current
	// status is one of `from`. Returns ErrInvalidTransition when the campaign
	// exists in another status and ErrNotFound when it doesn't exist.
	UpdateStatus(ctx context.Context, id string, from []domain.CampaignStatus, to domain.CampaignStatus) error

	// MarkSent moves the campaign to sent and its pending recipients to sent
	// in one transaction, stamping sent_at only where it is NULL. Returns the
	// number of recipients moved; a second call moves none.
	MarkSent(ctx context.Context, id string, at time.Time) (int, error)

	// SetProviderMessageID records the ESP's id for the dispatch.
	SetProviderMessageID(ctx context.Context, id, providerMessageID string) error

	// FindByProviderMessageID returns the campaign id dispatched under
	// providerMessageID, or ErrNotFound.
	FindByProviderMessageID(ctx context.Context, providerMessageID string) (string, error)
}

// ListFilter controls pagination and filtering for campaign lists.
type ListFilter struct {
	Status       string
	LeadMagnetID string
	Limit        int
	Offset       int
}
