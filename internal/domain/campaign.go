package domain

import (
	"time"
)

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignQueued    CampaignStatus = "queued"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
	CampaignDelivered CampaignStatus = "delivered"
	CampaignFailed    CampaignStatus = "failed"
)

// campaignTransitions lists the forward moves allowed out of each state.
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignQueued:  {CampaignSending, CampaignSent, CampaignFailed},
	CampaignSending: {CampaignSent, CampaignFailed},
	CampaignSent:    {CampaignDelivered},
}

// Campaign is one outbound send operation with its own content and metrics.
type Campaign struct {
	ID                string         `json:"id" db:"id"`
	Name              string         `json:"name" db:"name"`
	Subject           string         `json:"subject" db:"subject"`
	HTMLContent       string         `json:"content" db:"html_content"`
	SenderName        string         `json:"sender_name" db:"sender_name"`
	LeadMagnetID      *string        `json:"lead_magnet_id,omitempty" db:"lead_magnet_id"`
	Status            CampaignStatus `json:"status" db:"status"`
	RecipientCount    int            `json:"recipient_count" db:"recipient_count"`
	ProviderMessageID string         `json:"provider_message_id,omitempty" db:"provider_message_id"`
	SentAt            *time.Time     `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether no further transitions leave s.
func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignDelivered || s == CampaignFailed
}

// CanTransition reports whether a campaign may move from one status to
// another. Staying in the same status is always allowed so that repeated
// commands stay idempotent.
func CanTransition(from, to CampaignStatus) bool {
	if from == to {
		return true
	}
	for _, next := range campaignTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PredecessorsOf returns every status from which to is reachable in one step,
// the allowed source set of a conditional status update.
func PredecessorsOf(to CampaignStatus) []CampaignStatus {
	var out []CampaignStatus
	for _, from := range []CampaignStatus{CampaignQueued, CampaignSending, CampaignSent, CampaignDelivered, CampaignFailed} {
		if from != to && CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}
