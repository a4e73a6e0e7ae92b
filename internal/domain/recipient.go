package domain

import "time"

// RecipientStatus enumerates the per-lead delivery/engagement states.
type RecipientStatus string

const (
	RecipientPending      RecipientStatus = "pending"
	RecipientSent         RecipientStatus = "sent"
	RecipientOpened       RecipientStatus = "opened"
	RecipientClicked      RecipientStatus = "clicked"
	RecipientBounced      RecipientStatus = "bounced"
	RecipientUnsubscribed RecipientStatus = "unsubscribed"
	RecipientFailed       RecipientStatus = "failed"
)

// LadderRank returns the position of s on the engagement ladder
// (pending < sent < opened < clicked). Statuses off the ladder rank 0.
func (s RecipientStatus) LadderRank() int {
	switch s {
	case RecipientSent:
		return 1
	case RecipientOpened:
		return 2
	case RecipientClicked:
		return 3
	default:
		return 0
	}
}

// Delivered reports whether the recipient reached at least "sent".
func (s RecipientStatus) Delivered() bool {
	return s.LadderRank() >= RecipientSent.LadderRank()
}

// Recipient joins a Campaign and a Lead. At most one row exists per
// (CampaignID, LeadID).
type Recipient struct {
	ID           string          `json:"id" db:"id"`
	CampaignID   string          `json:"campaign_id" db:"campaign_id"`
	LeadID       string          `json:"lead_id" db:"lead_id"`
	Email        string          `json:"email" db:"email"`
	SenderName   string          `json:"sender_name" db:"sender_name"`
	Status       RecipientStatus `json:"status" db:"status"`
	Bounced      bool            `json:"bounced" db:"bounced"`
	Unsubscribed bool            `json:"unsubscribed" db:"unsubscribed"`
	SentAt       *time.Time      `json:"sent_at,omitempty" db:"sent_at"`
	OpenedAt     *time.Time      `json:"opened_at,omitempty" db:"opened_at"`
	ClickedAt    *time.Time      `json:"clicked_at,omitempty" db:"clicked_at"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Apply folds a provider event into the recipient and reports whether
// anything changed. The engagement ladder only moves forward: bounces and
// unsubscribes set their flags without demoting a recipient that already
// reached "sent" or beyond, and earlier timestamps are never overwritten.
func (r *Recipient) Apply(t EventType, at time.Time) bool {
	changed := false
	stamp := func(dst **time.Time) {
		if *dst == nil {
			ts := at
			*dst = &ts
			changed = true
		}
	}
	promote := func(to RecipientStatus) {
		if to.LadderRank() > r.Status.LadderRank() {
			r.Status = to
			changed = true
		}
	}

	switch t {
	case EventDelivered:
		stamp(&r.SentAt)
		if r.Status == RecipientPending {
			promote(RecipientSent)
		}
	case EventOpen:
		stamp(&r.OpenedAt)
		promote(RecipientOpened)
	case EventClick:
		stamp(&r.ClickedAt)
		promote(RecipientClicked)
	case EventBounce, EventDropped:
		if !r.Bounced {
			r.Bounced = true
			changed = true
		}
		if r.Status == RecipientPending {
			r.Status = RecipientFailed
			changed = true
		}
	case EventUnsubscribe:
		if !r.Unsubscribed {
			r.Unsubscribed = true
			changed = true
		}
		if r.Status == RecipientPending {
			r.Status = RecipientUnsubscribed
			changed = true
		}
	}
	return changed
}
