package domain

import "time"

// ESPType identifies the email service provider used for sending.
type ESPType string

const (
	ESPSendGrid ESPType = "sendgrid"
	ESPSES      ESPType = "ses"
)

// TrackingSettings toggles provider-side engagement tracking.
type TrackingSettings struct {
	Open        bool `json:"open"`
	Click       bool `json:"click"`
	Unsubscribe bool `json:"unsubscribe"`
}

// OutboundMessage is the fully rendered campaign message handed to a gateway.
// CampaignID travels with every personalization as provider custom metadata so
// webhook events can be correlated back.
type OutboundMessage struct {
	CampaignID string           `json:"campaign_id"`
	To         []string         `json:"to"`
	FromEmail  string           `json:"from_email"`
	FromName   string           `json:"from_name"`
	Subject    string           `json:"subject"`
	HTML       string           `json:"html"`
	Text       string           `json:"text"`
	Tracking   TrackingSettings `json:"tracking"`
}

// DispatchResult is returned by a gateway after the provider accepted a message.
type DispatchResult struct {
	MessageID string    `json:"message_id"`
	ESPType   ESPType   `json:"esp_type"`
	Accepted  int       `json:"accepted"`
	SentAt    time.Time `json:"sent_at"`
}
