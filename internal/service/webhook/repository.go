package webhook

import (
	"context"
	"errors"

	"github.com/leadconvert/leadconvert/internal/domain"
)

// ErrRecipientNotFound is returned by RecipientStore.FindRecipient.
var ErrRecipientNotFound = errors.New("recipient not found")

// EventStore is the append-only event log.
type EventStore interface {
	// Append inserts the event unless its ExternalID already exists.
	// inserted is false for a duplicate.
	Append(ctx context.Context, e *domain.EmailEvent) (inserted bool, err error)
}

// RecipientStore reads and updates recipient rows.
type RecipientStore interface {
	// FindRecipient looks up by campaign and normalized email.
	FindRecipient(ctx context.Context, campaignID, email string) (*domain.Recipient, error)

	// UpdateEngagement writes r's status, flags and timestamps only when the
	// stored status still equals prev. Existing timestamps are kept.
	// ok is false when another writer changed the row first.
	UpdateEngagement(ctx context.Context, r *domain.Recipient, prev domain.RecipientStatus) (ok bool, err error)
}

// MetricsStore increments campaign counters.
type MetricsStore interface {
	// Increment adds one to field, creating the row if needed.
	Increment(ctx context.Context, campaignID string, field domain.MetricField) error
}

// Suppressor records bounce/unsubscribe suppressions.
type Suppressor interface {
	SuppressEvent(ctx context.Context, t domain.EventType, email, campaignID string) error
}

// CampaignAdvancer moves a campaign from sent to delivered.
type CampaignAdvancer interface {
	AdvanceDelivered(ctx context.Context, campaignID string) (bool, error)
}

// Stores is the write set for one event.
type Stores struct {
	Events     EventStore
	Recipients RecipientStore
	Metrics    MetricsStore
	Suppressor Suppressor
}

// Transactor runs fn with stores bound to a single transaction. A non-nil
// error from fn rolls every write back.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// direct runs fn against fixed stores without a transaction.
type direct Stores

func (d direct) InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	return fn(ctx, Stores(d))
}

// CampaignLookup maps the provider message id that prefixes sg_message_id
// back to a campaign. Unknown ids yield "" and no error.
type CampaignLookup interface {
	CampaignForProviderMessage(ctx context.Context, providerMessageID string) (string, error)
}
