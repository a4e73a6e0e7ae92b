package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leadconvert/leadconvert/internal/domain"
)

// DefaultDays is the trailing window the dashboards chart.
const DefaultDays = 7

// Service implements the read-side queries.
type Service struct {
	repo Repository
}

// NewService creates an analytics service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// MetricsView is the per-campaign metrics response. All counters default to
// zero; callers treat zeros as "not yet delivered".
type MetricsView struct {
	MessageID    string  `json:"messageId"`
	Sends        int64   `json:"sends"`
	Opens        int64   `json:"opens"`
	Clicks       int64   `json:"clicks"`
	Bounces      int64   `json:"bounces"`
	Unsubscribes int64   `json:"unsubscribes"`
	Total        int     `json:"total"`
	Status       string  `json:"status,omitempty"`
	OpenRate     float64 `json:"openRate"`
	ClickRate    float64 `json:"clickRate"`
}

// CampaignMetrics returns the metrics view of one campaign. An unknown
// campaign yields an all-zero view, never an error.
func (s *Service) CampaignMetrics(ctx context.Context, campaignID string) (*MetricsView, error) {
	view := &MetricsView{MessageID: campaignID}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return view, nil
	}

	rows, err := s.repo.Metrics(ctx, []string{campaignID})
	if err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}
	var m domain.Metrics
	for _, r := range rows {
		m.Add(r)
	}
	view.Sends, view.Opens, view.Clicks = m.Sends, m.Opens, m.Clicks
	view.Bounces, view.Unsubscribes = m.Bounces, m.Unsubscribes
	view.OpenRate, view.ClickRate = m.OpenRate(), m.ClickRate()

	sum, err := s.repo.CampaignSummary(ctx, campaignID)
	switch {
	case err == nil:
		view.Status = string(sum.Status)
		view.Total = sum.RecipientCount
	case errors.Is(err, ErrNotFound):
	default:
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	return view, nil
}

// SumMetrics adds up the metrics of campaignIDs. Missing rows count as zero.
func (s *Service) SumMetrics(ctx context.Context, campaignIDs []string) (domain.Metrics, error) {
	var total domain.Metrics
	if len(campaignIDs) == 0 {
		return total, nil
	}
	rows, err := s.repo.Metrics(ctx, campaignIDs)
	if err != nil {
		return total, fmt.Errorf("load metrics: %w", err)
	}
	for _, r := range rows {
		total.Add(r)
	}
	return total, nil
}

// DailyBucket is one UTC day of event counts.
type DailyBucket struct {
	Date   string `json:"date"`
	Label  string `json:"label"`
	Sends  int64  `json:"sends"`
	Opens  int64  `json:"opens"`
	Clicks int64  `json:"clicks"`
}

// DailyStats returns days buckets ending with the UTC day of now, oldest
// first. send and delivered events both count as sends.
func (s *Service) DailyStats(ctx context.Context, campaignIDs []string, days int, now time.Time) ([]DailyBucket, error) {
	if days <= 0 {
		days = DefaultDays
	}
	today := truncateDay(now)
	start := today.AddDate(0, 0, -(days - 1))

	buckets := make([]DailyBucket, days)
	index := make(map[string]int, days)
	for i := range buckets {
		d := start.AddDate(0, 0, i)
		key := d.Format("2006-01-02")
		buckets[i] = DailyBucket{Date: key, Label: d.Format("Mon")}
		index[key] = i
	}
	if len(campaignIDs) == 0 {
		return buckets, nil
	}

	counts, err := s.repo.DailyEventCounts(ctx, campaignIDs, start)
	if err != nil {
		return nil, fmt.Errorf("load daily events: %w", err)
	}
	for _, c := range counts {
		i, ok := index[truncateDay(c.Day).Format("2006-01-02")]
		if !ok {
			continue
		}
		switch c.Type {
		case domain.EventSend, domain.EventDelivered:
			buckets[i].Sends += c.Count
		case domain.EventOpen:
			buckets[i].Opens += c.Count
		case domain.EventClick:
			buckets[i].Clicks += c.Count
		}
	}
	return buckets, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LeadEngagement is the per-lead engagement score.
type LeadEngagement struct {
	LeadID string `json:"leadId"`
	Sends  int64  `json:"sends"`
	Opens  int64  `json:"opens"`
	Clicks int64  `json:"clicks"`
	Score  int    `json:"score"`
	Class  Class  `json:"class"`
}

// LeadEngagement scores one lead from its recipient rows.
func (s *Service) LeadEngagement(ctx context.Context, leadID string) (*LeadEngagement, error) {
	c, err := s.repo.LeadRecipientCounts(ctx, leadID)
	if err != nil {
		return nil, err
	}
	score := Score(c.Sent, c.Opened, c.Clicked)
	return &LeadEngagement{
		LeadID: leadID,
		Sends:  c.Sent,
		Opens:  c.Opened,
		Clicks: c.Clicked,
		Score:  score,
		Class:  Classify(score),
	}, nil
}

// LeadMagnetMetrics is the rollup across every campaign that reached a
// lead magnet's leads.
type LeadMagnetMetrics struct {
	LeadMagnetID string        `json:"leadMagnetId"`
	Leads        int           `json:"leads"`
	Campaigns    int           `json:"campaigns"`
	TotalEmails  int64         `json:"totalEmails"`
	Delivered    int64         `json:"delivered"`
	Sends        int64         `json:"sends"`
	Opens        int64         `json:"opens"`
	Clicks       int64         `json:"clicks"`
	Bounces      int64         `json:"bounces"`
	Unsubscribes int64         `json:"unsubscribes"`
	OpenRate     float64       `json:"openRate"`
	ClickRate    float64       `json:"clickRate"`
	Daily        []DailyBucket `json:"daily"`
}

// LeadMagnetMetrics returns nil without error when the lead magnet has no
// leads.
func (s *Service) LeadMagnetMetrics(ctx context.Context, leadMagnetID string, now time.Time) (*LeadMagnetMetrics, error) {
	leads, err := s.repo.LeadMagnetLeadCount(ctx, leadMagnetID)
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}
	if leads == 0 {
		return nil, nil
	}

	ids, err := s.repo.LeadMagnetCampaigns(ctx, leadMagnetID)
	if err != nil {
		return nil, fmt.Errorf("load campaigns: %w", err)
	}
	m, err := s.SumMetrics(ctx, ids)
	if err != nil {
		return nil, err
	}
	rc, err := s.repo.LeadMagnetRecipientCounts(ctx, leadMagnetID)
	if err != nil {
		return nil, fmt.Errorf("count recipients: %w", err)
	}
	daily, err := s.DailyStats(ctx, ids, DefaultDays, now)
	if err != nil {
		return nil, err
	}

	return &LeadMagnetMetrics{
		LeadMagnetID: leadMagnetID,
		Leads:        leads,
		Campaigns:    len(ids),
		TotalEmails:  rc.Total,
		Delivered:    rc.Delivered,
		Sends:        m.Sends,
		Opens:        m.Opens,
		Clicks:       m.Clicks,
		Bounces:      m.Bounces,
		Unsubscribes: m.Unsubscribes,
		OpenRate:     m.OpenRate(),
		ClickRate:    m.ClickRate(),
		Daily:        daily,
	}, nil
}
