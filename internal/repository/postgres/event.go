package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/leadconvert/leadconvert/internal/domain"
)

// EventRepo implements webhook.EventStore.
type EventRepo struct{ db Querier }

// NewEventRepo creates a Postgres-backed event log.
func NewEventRepo(db Querier) *EventRepo { return &EventRepo{db: db} }

// Append reports inserted=false when external_id was already logged.
func (r *EventRepo) Append(ctx context.Context, e *domain.EmailEvent) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO email_events (id, external_id, campaign_id, email, event_type,
		                          url, user_agent, ip, reason, event_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (external_id) DO NOTHING
	`, e.ID, e.ExternalID, e.CampaignID, e.Email, e.Type,
		e.URL, e.UserAgent, e.IP, e.Reason, e.Timestamp)
	if err != nil {
		return false, fmt.Errorf("append event: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MetricsRepo implements webhook.MetricsStore.
type MetricsRepo struct{ db Querier }

// NewMetricsRepo creates a Postgres-backed metrics store.
func NewMetricsRepo(db Querier) *MetricsRepo { return &MetricsRepo{db: db} }

var metricColumns = map[domain.MetricField]string{
	domain.MetricSends:        "sends",
	domain.MetricOpens:        "opens",
	domain.MetricClicks:       "clicks",
	domain.MetricBounces:      "bounces",
	domain.MetricUnsubscribes: "unsubscribes",
}

// Increment adds one to a counter, creating the row on first use. Unknown
// campaigns are a no-op.
func (r *MetricsRepo) Increment(ctx context.Context, campaignID string, field domain.MetricField) error {
	col, ok := metricColumns[field]
	if !ok {
		return fmt.Errorf("increment metrics: unknown field %q", field)
	}
	if !isUUID(campaignID) {
		return nil
	}
	q := strings.NewReplacer("{col}", col).Replace(`
		INSERT INTO email_metrics (campaign_id, {col})
		SELECT id, 1 FROM email_campaigns WHERE id = $1
		ON CONFLICT (campaign_id) DO UPDATE
		SET {col} = email_metrics.{col} + 1, updated_at = NOW()
	`)
	if _, err := r.db.ExecContext(ctx, q, campaignID); err != nil {
		return fmt.Errorf("increment %s: %w", col, err)
	}
	return nil
}
