package domain

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to CampaignStatus
		want     bool
	}{
		{CampaignQueued, CampaignSending, true},
		{CampaignQueued, CampaignSent, true},
		{CampaignSending, CampaignSent, true},
		{CampaignSending, CampaignFailed, true},
		{CampaignSent, CampaignDelivered, true},
		{CampaignSent, CampaignSent, true},
		{CampaignSent, CampaignSending, false},
		{CampaignDelivered, CampaignSent, false},
		{CampaignFailed, CampaignSending, false},
		{CampaignDelivered, CampaignFailed, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestPredecessorsOf(t *testing.T) {
	got := PredecessorsOf(CampaignSent)
	if len(got) != 2 || got[0] != CampaignQueued || got[1] != CampaignSending {
		t.Fatalf("PredecessorsOf(sent) = %v", got)
	}
	if got := PredecessorsOf(CampaignQueued); len(got) != 0 {
		t.Fatalf("nothing leads back to queued, got %v", got)
	}
}

func TestCampaignStatusIsTerminal(t *testing.T) {
	for _, s := range []CampaignStatus{CampaignQueued, CampaignSending, CampaignSent} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []CampaignStatus{CampaignDelivered, CampaignFailed} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestRecipientApply_Ladder(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := Recipient{Status: RecipientPending}

	if !r.Apply(EventDelivered, t0) || r.Status != RecipientSent || r.SentAt == nil {
		t.Fatalf("delivered should promote to sent, got %+v", r)
	}
	if !r.Apply(EventOpen, t0.Add(time.Minute)) || r.Status != RecipientOpened {
		t.Fatalf("open should promote to opened, got %s", r.Status)
	}
	if !r.Apply(EventClick, t0.Add(2*time.Minute)) || r.Status != RecipientClicked {
		t.Fatalf("click should promote to clicked, got %s", r.Status)
	}

	// A late open neither demotes nor restamps.
	opened := *r.OpenedAt
	if r.Apply(EventOpen, t0.Add(time.Hour)) {
		t.Fatal("repeated open should be a no-op")
	}
	if r.Status != RecipientClicked || !r.OpenedAt.Equal(opened) {
		t.Fatalf("late open changed state: %+v", r)
	}
}

func TestRecipientApply_LateBounceKeepsEngagement(t *testing.T) {
	now := time.Now()
	r := Recipient{Status: RecipientOpened}
	if !r.Apply(EventBounce, now) {
		t.Fatal("bounce should set the bounced flag")
	}
	if r.Status != RecipientOpened || !r.Bounced {
		t.Fatalf("got status=%s bounced=%v", r.Status, r.Bounced)
	}
}

func TestRecipientApply_PendingBounceAndUnsubscribe(t *testing.T) {
	now := time.Now()
	b := Recipient{Status: RecipientPending}
	b.Apply(EventDropped, now)
	if b.Status != RecipientFailed || !b.Bounced {
		t.Fatalf("dropped on pending: %+v", b)
	}

	u := Recipient{Status: RecipientPending}
	u.Apply(EventUnsubscribe, now)
	if u.Status != RecipientUnsubscribed || !u.Unsubscribed {
		t.Fatalf("unsubscribe on pending: %+v", u)
	}

	// Real engagement after a failure still climbs the ladder.
	b.Apply(EventClick, now)
	if b.Status != RecipientClicked {
		t.Fatalf("click after failure: %s", b.Status)
	}
}

func TestMetricsRates(t *testing.T) {
	m := Metrics{Sends: 10, Opens: 5, Clicks: 3}
	if got := m.OpenRate(); got != 50.0 {
		t.Errorf("OpenRate = %v, want 50.0", got)
	}
	if got := m.ClickRate(); got != 60.0 {
		t.Errorf("ClickRate = %v, want 60.0", got)
	}
	if got := (Metrics{}).OpenRate(); got != 0 {
		t.Errorf("OpenRate with zero sends = %v", got)
	}
	if got := Rate(1, 3); got != 33.3 {
		t.Errorf("Rate(1,3) = %v, want 33.3", got)
	}
}

func TestEventMetricField(t *testing.T) {
	cases := map[EventType]MetricField{
		EventDelivered:   MetricSends,
		EventOpen:        MetricOpens,
		EventClick:       MetricClicks,
		EventBounce:      MetricBounces,
		EventDropped:     MetricBounces,
		EventUnsubscribe: MetricUnsubscribes,
	}
	for ev, want := range cases {
		got, ok := ev.MetricField()
		if !ok || got != want {
			t.Errorf("%s.MetricField() = %s,%v want %s", ev, got, ok, want)
		}
	}
	if _, ok := EventProcessed.MetricField(); ok {
		t.Error("processed events should not touch metrics")
	}
}
