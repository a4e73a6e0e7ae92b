package domain

import "time"

// SuppressionReason enumerates why an address was suppressed.
type SuppressionReason string

const (
	ReasonBounce      SuppressionReason = "bounce"
	ReasonDropped     SuppressionReason = "dropped"
	ReasonUnsubscribe SuppressionReason = "unsubscribe"
	ReasonManual      SuppressionReason = "manual"
)

// SuppressionSource indicates where the suppression signal originated.
type SuppressionSource string

const (
	SourceWebhook SuppressionSource = "esp_webhook"
	SourceManual  SuppressionSource = "manual"
)

// Suppression is one entry on the do-not-send list.
type Suppression struct {
	Email      string            `json:"email" db:"email"`
	Reason     SuppressionReason `json:"reason" db:"reason"`
	Source     SuppressionSource `json:"source" db:"source"`
	CampaignID string            `json:"campaign_id,omitempty" db:"campaign_id"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// SuppressionReasonFor maps a provider event to a suppression reason.
func SuppressionReasonFor(t EventType) SuppressionReason {
	switch t {
	case EventDropped:
		return ReasonDropped
	case EventUnsubscribe:
		return ReasonUnsubscribe
	default:
		return ReasonBounce
	}
}
