package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadconvert/leadconvert/internal/domain"
)

type fakeRepo struct {
	metrics    map[string]domain.Metrics
	campaigns  map[string]CampaignSummary
	daily      []DailyCount
	since      time.Time
	leads      map[string]RecipientCounts
	magnetLead map[string]int
	magnetCamp map[string][]string
	magnetRC   map[string]RecipientCounts
}

func (f *fakeRepo) Metrics(_ context.Context, ids []string) ([]domain.Metrics, error) {
	var out []domain.Metrics
	for _, id := range ids {
		if m, ok := f.metrics[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepo) CampaignSummary(_ context.Context, id string) (*CampaignSummary, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (f *fakeRepo) DailyEventCounts(_ context.Context, _ []string, since time.Time) ([]DailyCount, error) {
	f.since = since
	return f.daily, nil
}

func (f *fakeRepo) LeadRecipientCounts(_ context.Context, id string) (*RecipientCounts, error) {
	c, ok := f.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (f *fakeRepo) LeadMagnetLeadCount(_ context.Context, id string) (int, error) {
	return f.magnetLead[id], nil
}

func (f *fakeRepo) LeadMagnetCampaigns(_ context.Context, id string) ([]string, error) {
	return f.magnetCamp[id], nil
}

func (f *fakeRepo) LeadMagnetRecipientCounts(_ context.Context, id string) (*RecipientCounts, error) {
	c := f.magnetRC[id]
	return &c, nil
}

func TestScore(t *testing.T) {
	assert.Equal(t, 100, Score(10, 5, 3), "clamped from 110")
	assert.Equal(t, 0, Score(0, 5, 3))
	assert.Equal(t, 50, Score(10, 5, 0))
	assert.Equal(t, 33, Score(3, 1, 0))

	assert.Equal(t, ClassActive, Classify(100))
	assert.Equal(t, ClassActive, Classify(71))
	assert.Equal(t, ClassModerate, Classify(70))
	assert.Equal(t, ClassModerate, Classify(31))
	assert.Equal(t, ClassCold, Classify(30))
	assert.Equal(t, ClassCold, Classify(0))
}

func TestCampaignMetrics(t *testing.T) {
	svc := NewService(&fakeRepo{
		metrics:   map[string]domain.Metrics{"c1": {CampaignID: "c1", Sends: 10, Opens: 5, Clicks: 3, Bounces: 1}},
		campaigns: map[string]CampaignSummary{"c1": {Status: domain.CampaignDelivered, RecipientCount: 12}},
	})

	v, err := svc.CampaignMetrics(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), v.Sends)
	assert.Equal(t, int64(1), v.Bounces)
	assert.Equal(t, 50.0, v.OpenRate)
	assert.Equal(t, 60.0, v.ClickRate)
	assert.Equal(t, "delivered", v.Status)
	assert.Equal(t, 12, v.Total)
}

func TestCampaignMetrics_ZeroDefaults(t *testing.T) {
	svc := NewService(&fakeRepo{})
	v, err := svc.CampaignMetrics(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, MetricsView{MessageID: "unknown"}, *v)
}

func TestSumMetrics_MissingRowsAreZero(t *testing.T) {
	svc := NewService(&fakeRepo{metrics: map[string]domain.Metrics{
		"a": {Sends: 2, Opens: 1},
		"b": {Sends: 3, Clicks: 1, Unsubscribes: 1},
	}})
	m, err := svc.SumMetrics(context.Background(), []string{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), m.Sends)
	assert.Equal(t, int64(1), m.Opens)
	assert.Equal(t, int64(1), m.Clicks)
	assert.Equal(t, int64(1), m.Unsubscribes)
}

func TestDailyStats(t *testing.T) {
	now := time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC) // a Wednesday
	repo := &fakeRepo{daily: []DailyCount{
		{Day: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), Type: domain.EventDelivered, Count: 4},
		{Day: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), Type: domain.EventSend, Count: 1},
		{Day: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), Type: domain.EventOpen, Count: 2},
		{Day: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), Type: domain.EventClick, Count: 1},
		{Day: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), Type: domain.EventBounce, Count: 9},
		{Day: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Type: domain.EventOpen, Count: 100},
	}}
	svc := NewService(repo)

	buckets, err := svc.DailyStats(context.Background(), []string{"c1"}, 7, now)
	require.NoError(t, err)
	require.Len(t, buckets, 7)

	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), repo.since)
	assert.Equal(t, "2026-03-05", buckets[0].Date)
	assert.Equal(t, "Thu", buckets[0].Label)
	assert.Equal(t, int64(5), buckets[0].Sends)
	assert.Equal(t, "Wed", buckets[6].Label)
	assert.Equal(t, int64(2), buckets[6].Opens)
	assert.Equal(t, int64(1), buckets[6].Clicks)

	var opens int64
	for _, b := range buckets {
		opens += b.Opens
	}
	assert.Equal(t, int64(2), opens, "events outside the window are ignored")
}

func TestDailyStats_NoCampaigns(t *testing.T) {
	buckets, err := NewService(&fakeRepo{}).DailyStats(context.Background(), nil, 0, time.Now())
	require.NoError(t, err)
	assert.Len(t, buckets, DefaultDays)
}

func TestLeadEngagement(t *testing.T) {
	svc := NewService(&fakeRepo{leads: map[string]RecipientCounts{
		"l1": {Sent: 10, Opened: 5, Clicked: 3},
		"l2": {},
	}})

	e, err := svc.LeadEngagement(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, 100, e.Score)
	assert.Equal(t, ClassActive, e.Class)

	e, err = svc.LeadEngagement(context.Background(), "l2")
	require.NoError(t, err)
	assert.Equal(t, 0, e.Score)
	assert.Equal(t, ClassCold, e.Class)

	_, err = svc.LeadEngagement(context.Background(), "nobody")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLeadMagnetMetrics(t *testing.T) {
	now := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	svc := NewService(&fakeRepo{
		magnetLead: map[string]int{"lm1": 3},
		magnetCamp: map[string][]string{"lm1": {"c1", "c2"}},
		magnetRC:   map[string]RecipientCounts{"lm1": {Total: 4, Delivered: 3}},
		metrics: map[string]domain.Metrics{
			"c1": {Sends: 2, Opens: 1},
			"c2": {Sends: 2, Opens: 1, Clicks: 1},
		},
	})

	lm, err := svc.LeadMagnetMetrics(context.Background(), "lm1", now)
	require.NoError(t, err)
	require.NotNil(t, lm)
	assert.Equal(t, 3, lm.Leads)
	assert.Equal(t, 2, lm.Campaigns)
	assert.Equal(t, int64(4), lm.TotalEmails)
	assert.Equal(t, int64(3), lm.Delivered)
	assert.Equal(t, int64(4), lm.Sends)
	assert.Equal(t, 50.0, lm.OpenRate)
	assert.Equal(t, 50.0, lm.ClickRate)
	assert.Len(t, lm.Daily, 7)

	none, err := svc.LeadMagnetMetrics(context.Background(), "empty", now)
	require.NoError(t, err)
	assert.Nil(t, none)
}
