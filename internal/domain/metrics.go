package domain

import (
	"math"
	"time"
)

// MetricField names one of the aggregate counters on a campaign.
type MetricField string

const (
	MetricSends        MetricField = "sends"
	MetricOpens        MetricField = "opens"
	MetricClicks       MetricField = "clicks"
	MetricBounces      MetricField = "bounces"
	MetricUnsubscribes MetricField = "unsubscribes"
)

// Metrics holds the running counters for one campaign. Counters only grow.
type Metrics struct {
	CampaignID   string    `json:"campaign_id" db:"campaign_id"`
	Sends        int64     `json:"sends" db:"sends"`
	Opens        int64     `json:"opens" db:"opens"`
	Clicks       int64     `json:"clicks" db:"clicks"`
	Bounces      int64     `json:"bounces" db:"bounces"`
	Unsubscribes int64     `json:"unsubscribes" db:"unsubscribes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Add accumulates other into m. Campaign id and timestamps are left alone.
func (m *Metrics) Add(other Metrics) {
	m.Sends += other.Sends
	m.Opens += other.Opens
	m.Clicks += other.Clicks
	m.Bounces += other.Bounces
	m.Unsubscribes += other.Unsubscribes
}

// Increment bumps a single counter by one.
func (m *Metrics) Increment(f MetricField) {
	switch f {
	case MetricSends:
		m.Sends++
	case MetricOpens:
		m.Opens++
	case MetricClicks:
		m.Clicks++
	case MetricBounces:
		m.Bounces++
	case MetricUnsubscribes:
		m.Unsubscribes++
	}
}

// OpenRate is opens/sends as a percentage rounded to one decimal.
func (m Metrics) OpenRate() float64 { return Rate(m.Opens, m.Sends) }

// ClickRate is clicks/opens as a percentage rounded to one decimal.
func (m Metrics) ClickRate() float64 { return Rate(m.Clicks, m.Opens) }

// Rate returns part/whole*100 rounded to one decimal, or 0 when whole is 0.
func Rate(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return RoundRate(float64(part) / float64(whole) * 100)
}

// RoundRate rounds x to one decimal place.
func RoundRate(x float64) float64 {
	return math.Round(x*10) / 10
}
