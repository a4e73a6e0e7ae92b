package domain

import "time"

// EventType enumerates provider delivery and engagement events.
type EventType string

const (
	EventSend        EventType = "send"
	EventProcessed   EventType = "processed"
	EventDeferred    EventType = "deferred"
	EventDelivered   EventType = "delivered"
	EventOpen        EventType = "open"
	EventClick       EventType = "click"
	EventBounce      EventType = "bounce"
	EventDropped     EventType = "dropped"
	EventUnsubscribe EventType = "unsubscribe"
	EventSpamReport  EventType = "spamreport"
)

// MetricField returns the counter an event increments, if any.
func (t EventType) MetricField() (MetricField, bool) {
	switch t {
	case EventDelivered:
		return MetricSends, true
	case EventOpen:
		return MetricOpens, true
	case EventClick:
		return MetricClicks, true
	case EventBounce, EventDropped:
		return MetricBounces, true
	case EventUnsubscribe:
		return MetricUnsubscribes, true
	}
	return "", false
}

// Suppresses reports whether the event should put the address on the
// suppression list.
func (t EventType) Suppresses() bool {
	return t == EventBounce || t == EventDropped || t == EventUnsubscribe
}

// EmailEvent is an immutable record of one raw provider event that was
// correlated to a campaign. ExternalID is the dedup key.
type EmailEvent struct {
	ID         string    `json:"id" db:"id"`
	ExternalID string    `json:"external_id" db:"external_id"`
	CampaignID string    `json:"campaign_id" db:"campaign_id"`
	Email      string    `json:"email" db:"email"`
	Type       EventType `json:"event_type" db:"event_type"`
	URL        string    `json:"url,omitempty" db:"url"`
	UserAgent  string    `json:"user_agent,omitempty" db:"user_agent"`
	IP         string    `json:"ip,omitempty" db:"ip"`
	Reason     string    `json:"reason,omitempty" db:"reason"`
	Timestamp  time.Time `json:"timestamp" db:"event_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
