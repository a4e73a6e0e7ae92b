package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/leadconvert/leadconvert/internal/domain"
	"github.com/leadconvert/leadconvert/internal/service/analytics"
)

// AnalyticsRepo implements analytics.Repository. Read only.
type AnalyticsRepo struct{ db *sql.DB }

// NewAnalyticsRepo creates a Postgres-backed analytics repository.
func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{db: db} }

func (r *AnalyticsRepo) Metrics(ctx context.Context, campaignIDs []string) ([]domain.Metrics, error) {
	ids := uuidsOnly(campaignIDs)
	if len(ids) == 0 {
		return []domain.Metrics{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT campaign_id, sends, opens, clicks, bounces, unsubscribes, created_at, updated_at
		FROM email_metrics
		WHERE campaign_id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	out := []domain.Metrics{}
	for rows.Next() {
		var m domain.Metrics
		if err := rows.Scan(&m.CampaignID, &m.Sends, &m.Opens, &m.Clicks, &m.Bounces,
			&m.Unsubscribes, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan metrics: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *AnalyticsRepo) CampaignSummary(ctx context.Context, campaignID string) (*analytics.CampaignSummary, error) {
	if !isUUID(campaignID) {
		return nil, analytics.ErrNotFound
	}
	s := &analytics.CampaignSummary{}
	err := r.db.QueryRowContext(ctx,
		`SELECT status, recipient_count FROM email_campaigns WHERE id = $1`, campaignID).
		Scan(&s.Status, &s.RecipientCount)
	if err == sql.ErrNoRows {
		return nil, analytics.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("campaign summary: %w", err)
	}
	return s, nil
}

func (r *AnalyticsRepo) DailyEventCounts(ctx context.Context, campaignIDs []string, since time.Time) ([]analytics.DailyCount, error) {
	ids := uuidsOnly(campaignIDs)
	if len(ids) == 0 {
		return []analytics.DailyCount{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT date_trunc('day', event_at AT TIME ZONE 'UTC') AS day, event_type, COUNT(*)
		FROM email_events
		WHERE campaign_id = ANY($1) AND event_at >= $2
		GROUP BY 1, 2
		ORDER BY 1
	`, pq.Array(ids), since)
	if err != nil {
		return nil, fmt.Errorf("query daily events: %w", err)
	}
	defer rows.Close()

	out := []analytics.DailyCount{}
	for rows.Next() {
		var c analytics.DailyCount
		if err := rows.Scan(&c.Day, &c.Type, &c.Count); err != nil {
			return nil, fmt.Errorf("scan daily events: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// recipientTallies is the shared projection for RecipientCounts.
const recipientTallies = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE r.status IN ('sent', 'opened', 'clicked')),
		       COUNT(r.sent_at), COUNT(r.opened_at), COUNT(r.clicked_at)`

func scanTallies(s rowScanner) (*analytics.RecipientCounts, error) {
	c := &analytics.RecipientCounts{}
	if err := s.Scan(&c.Total, &c.Delivered, &c.Sent, &c.Opened, &c.Clicked); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *AnalyticsRepo) LeadRecipientCounts(ctx context.Context, leadID string) (*analytics.RecipientCounts, error) {
	if !isUUID(leadID) {
		return nil, analytics.ErrNotFound
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1)`, leadID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check lead: %w", err)
	}
	if !exists {
		return nil, analytics.ErrNotFound
	}
	c, err := scanTallies(r.db.QueryRowContext(ctx,
		recipientTallies+` FROM email_recipients r WHERE r.lead_id = $1`, leadID))
	if err != nil {
		return nil, fmt.Errorf("lead recipient counts: %w", err)
	}
	return c, nil
}

func (r *AnalyticsRepo) LeadMagnetLeadCount(ctx context.Context, leadMagnetID string) (int, error) {
	if !isUUID(leadMagnetID) {
		return 0, nil
	}
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leads WHERE lead_magnet_id = $1`, leadMagnetID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}

func (r *AnalyticsRepo) LeadMagnetCampaigns(ctx context.Context, leadMagnetID string) ([]string, error) {
	if !isUUID(leadMagnetID) {
		return []string{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT r.campaign_id
		FROM email_recipients r
		JOIN leads l ON l.id = r.lead_id
		WHERE l.lead_magnet_id = $1
	`, leadMagnetID)
	if err != nil {
		return nil, fmt.Errorf("lead magnet campaigns: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan campaign id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *AnalyticsRepo) LeadMagnetRecipientCounts(ctx context.Context, leadMagnetID string) (*analytics.RecipientCounts, error) {
	if !isUUID(leadMagnetID) {
		return &analytics.RecipientCounts{}, nil
	}
	c, err := scanTallies(r.db.QueryRowContext(ctx, recipientTallies+`
		FROM email_recipients r
		JOIN leads l ON l.id = r.lead_id
		WHERE l.lead_magnet_id = $1`, leadMagnetID))
	if err != nil {
		return nil, fmt.Errorf("lead magnet recipient counts: %w", err)
	}
	return c, nil
}
