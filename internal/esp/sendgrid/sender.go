// Package sendgrid adapts the SendGrid v3 Mail Send API and its signed
// event webhook.
package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/leadconvert/leadconvert/internal/domain"
	"github.com/leadconvert/leadconvert/internal/pkg/httpretry"
	"github.com/leadconvert/leadconvert/internal/pkg/logger"
)

const (
	DefaultBaseURL = "https://api.sendgrid.com/v3"
	// MaxPersonalizations is the per-request limit of the Mail Send API.
	MaxPersonalizations = 1000
)

// ErrNoAPIKey is returned when the sender has no credentials.
var ErrNoAPIKey = errors.New("sendgrid: API key not configured")

// Options configures a Sender.
type Options struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	HTTPClient httpretry.HTTPDoer
}

// Sender delivers campaign messages through SendGrid. Each address gets its
// own personalization so recipients never see each other.
type Sender struct {
	apiKey  string
	baseURL string
	client  httpretry.HTTPDoer
}

// NewSender creates a SendGrid sender. Retries are off unless MaxRetries > 0.
func NewSender(opts Options) *Sender {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	doer := opts.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.MaxRetries > 0 {
		doer = httpretry.New(doer, httpretry.Options{MaxRetries: opts.MaxRetries})
	}
	return &Sender{apiKey: opts.APIKey, baseURL: base, client: doer}
}

func (s *Sender) Name() string { return string(domain.ESPSendGrid) }

// Send posts msg to /mail/send, splitting into chunks of
// MaxPersonalizations. Any rejected chunk fails the whole call.
func (s *Sender) Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.DispatchResult, error) {
	if s.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if len(msg.To) == 0 {
		return nil, errors.New("sendgrid: no recipients")
	}

	var first string
	accepted := 0
	for start := 0; start < len(msg.To); start += MaxPersonalizations {
		end := start + MaxPersonalizations
		if end > len(msg.To) {
			end = len(msg.To)
		}
		id, err := s.post(ctx, buildPayload(msg, msg.To[start:end]))
		if err != nil {
			if accepted > 0 {
				logger.Warn("sendgrid: chunk rejected after partial acceptance",
					"campaign_id", msg.CampaignID, "accepted", accepted, "total", len(msg.To))
			}
			return nil, err
		}
		if first == "" {
			first = id
		}
		accepted += end - start
	}

	logger.Info("sendgrid: sent", "campaign_id", msg.CampaignID, "recipients", accepted, "message_id", first)
	return &domain.DispatchResult{
		MessageID: first,
		ESPType:   domain.ESPSendGrid,
		Accepted:  accepted,
		SentAt:    time.Now().UTC(),
	}, nil
}

func buildPayload(msg *domain.OutboundMessage, to []string) map[string]interface{} {
	personalizations := make([]map[string]interface{}, len(to))
	for i, addr := range to {
		personalizations[i] = map[string]interface{}{
			"to":          []map[string]string{{"email": addr}},
			"custom_args": map[string]string{"campaignId": msg.CampaignID},
		}
	}

	content := []map[string]string{{"type": "text/html", "value": msg.HTML}}
	if msg.Text != "" {
		content = []map[string]string{
			{"type": "text/plain", "value": msg.Text},
			{"type": "text/html", "value": msg.HTML},
		}
	}

	from := map[string]string{"email": msg.FromEmail}
	if msg.FromName != "" {
		from["name"] = msg.FromName
	}

	return map[string]interface{}{
		"personalizations": personalizations,
		"from":             from,
		"subject":          msg.Subject,
		"content":          content,
		"tracking_settings": map[string]interface{}{
			"click_tracking":        map[string]bool{"enable": msg.Tracking.Click, "enable_text": msg.Tracking.Click},
			"open_tracking":         map[string]bool{"enable": msg.Tracking.Open},
			"subscription_tracking": map[string]bool{"enable": msg.Tracking.Unsubscribe},
		},
	}
}

func (s *Sender) post(ctx context.Context, payload map[string]interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("sendgrid: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/mail/send", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("sendgrid: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sendgrid: send: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 400 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	id := resp.Header.Get("X-Message-Id")
	if id == "" {
		id = uuid.New().String()
	}
	return id, nil
}

// APIError is a non-2xx response from SendGrid.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sendgrid: error %d: %s", e.StatusCode, e.Body)
}
