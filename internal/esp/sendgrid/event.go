package sendgrid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/leadconvert/leadconvert/internal/pkg/logger"
)

// Event is one entry of an event webhook batch. SendGrid flattens custom
// args to the top level; they are also accepted nested under customArgs or
// custom_args.
type Event struct {
	Email       string            `json:"email"`
	Timestamp   int64             `json:"timestamp"`
	Event       string            `json:"event"`
	SGEventID   string            `json:"sg_event_id,omitempty"`
	SGMessageID string            `json:"sg_message_id,omitempty"`
	URL         string            `json:"url,omitempty"`
	UserAgent   string            `json:"useragent,omitempty"`
	IP          string            `json:"ip,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	BounceType  string            `json:"type,omitempty"`
	CampaignID  string            `json:"campaignId,omitempty"`
	CustomArgs  map[string]string `json:"customArgs,omitempty"`
}

// UnmarshalJSON tolerates fractional timestamps, snake_case campaign ids and
// non-string custom arg values.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Email       string                     `json:"email"`
		Timestamp   json.Number                `json:"timestamp"`
		Event       string                     `json:"event"`
		SGEventID   string                     `json:"sg_event_id"`
		SGMessageID string                     `json:"sg_message_id"`
		URL         string                     `json:"url"`
		UserAgent   string                     `json:"useragent"`
		IP          string                     `json:"ip"`
		Reason      string                     `json:"reason"`
		BounceType  string                     `json:"type"`
		CampaignID  json.RawMessage            `json:"campaignId"`
		CampaignIDs json.RawMessage            `json:"campaign_id"`
		CustomArgs  map[string]json.RawMessage `json:"customArgs"`
		CustomArgsS map[string]json.RawMessage `json:"custom_args"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	*e = Event{
		Email:       strings.TrimSpace(raw.Email),
		Event:       strings.ToLower(strings.TrimSpace(raw.Event)),
		SGEventID:   raw.SGEventID,
		SGMessageID: raw.SGMessageID,
		URL:         raw.URL,
		UserAgent:   raw.UserAgent,
		IP:          raw.IP,
		Reason:      raw.Reason,
		BounceType:  raw.BounceType,
	}

	if raw.Timestamp != "" {
		if n, err := raw.Timestamp.Int64(); err == nil {
			e.Timestamp = n
		} else if f, err := raw.Timestamp.Float64(); err == nil {
			e.Timestamp = int64(f)
		} else {
			return fmt.Errorf("sendgrid: bad timestamp %q", raw.Timestamp)
		}
	}

	e.CampaignID = scalar(raw.CampaignID)
	if e.CampaignID == "" {
		e.CampaignID = scalar(raw.CampaignIDs)
	}

	args := raw.CustomArgs
	if args == nil {
		args = raw.CustomArgsS
	}
	if len(args) > 0 {
		e.CustomArgs = make(map[string]string, len(args))
		for k, v := range args {
			e.CustomArgs[k] = scalar(v)
		}
	}
	return nil
}

// scalar renders a JSON string or number as a plain string.
func scalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

// Time converts the unix timestamp, falling back to now when absent.
func (e Event) Time() time.Time {
	if e.Timestamp <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(e.Timestamp, 0).UTC()
}

// TaggedCampaignID returns the campaign id carried in custom args.
func (e Event) TaggedCampaignID() string {
	if id := e.CustomArgs["campaignId"]; id != "" {
		return id
	}
	if id := e.CustomArgs["campaign_id"]; id != "" {
		return id
	}
	return e.CampaignID
}

// HasCampaignTag reports whether the event carries any campaign tag, valid
// or not.
func (e Event) HasCampaignTag() bool { return e.TaggedCampaignID() != "" }

// ParseEvents decodes a webhook body. SendGrid always posts an array; a
// single object is accepted for manual testing. An element that fails to
// decode is logged and kept as a zero Event so the ingestor counts it as
// malformed; only a body that is not a JSON array or object is an error.
func ParseEvents(body []byte) ([]Event, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("sendgrid: empty webhook body")
	}
	if body[0] == '{' {
		var ev Event
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, fmt.Errorf("sendgrid: decode event: %w", err)
		}
		return []Event{ev}, nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("sendgrid: decode events: %w", err)
	}
	events := make([]Event, len(raws))
	for i, raw := range raws {
		if err := json.Unmarshal(raw, &events[i]); err != nil {
			logger.Warn("sendgrid: undecodable webhook event", "index", i, "error", err)
			events[i] = Event{}
		}
	}
	return events, nil
}
