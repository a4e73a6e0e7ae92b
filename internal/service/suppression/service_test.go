package suppression

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/leadconvert/leadconvert/internal/domain"
)

// mockRepo is an in-memory repository for testing.
type mockRepo struct {
	mu    sync.RWMutex
	store map[string]*domain.Suppression
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[string]*domain.Suppression)}
}

func (m *mockRepo) IsSuppressed(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.store[email]
	return ok, nil
}

func (m *mockRepo) Suppress(_ context.Context, s *domain.Suppression) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.store[s.Email]; exists {
		return nil
	}
	m.store[s.Email] = s
	return nil
}

func (m *mockRepo) SuppressedAmong(_ context.Context, emails []string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool)
	for _, e := range emails {
		if _, ok := m.store[e]; ok {
			out[e] = true
		}
	}
	return out, nil
}

func (m *mockRepo) Remove(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[email]; !ok {
		return ErrNotFound
	}
	delete(m.store, email)
	return nil
}

func (m *mockRepo) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

func TestSuppress_AddsEmailToList(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	if err := svc.Suppress(ctx, "BOUNCE@example.com", domain.ReasonBounce, domain.SourceWebhook, "camp-001"); err != nil {
		t.Fatalf("Suppress: %v", err)
	}

	ok, err := svc.IsSuppressed(ctx, " bounce@example.com")
	if err != nil {
		t.Fatalf("IsSuppressed: %v", err)
	}
	if !ok {
		t.Error("expected email to be suppressed after Suppress()")
	}
}

func TestSuppress_Idempotent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.Suppress(ctx, "dup@example.com", domain.ReasonUnsubscribe, domain.SourceWebhook, ""); err != nil {
			t.Fatalf("Suppress #%d: %v", i, err)
		}
	}

	count, _ := svc.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 suppression, got %d", count)
	}
}

func TestSuppress_EmptyEmail_Fails(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.Suppress(context.Background(), "  ", domain.ReasonManual, domain.SourceManual, ""); !errors.Is(err, ErrEmailMissing) {
		t.Fatalf("expected ErrEmailMissing, got %v", err)
	}
}

func TestSuppressEvent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	cases := []struct {
		event  domain.EventType
		email  string
		reason domain.SuppressionReason
	}{
		{domain.EventBounce, "b@x.com", domain.ReasonBounce},
		{domain.EventDropped, "d@x.com", domain.ReasonDropped},
		{domain.EventUnsubscribe, "u@x.com", domain.ReasonUnsubscribe},
	}
	for _, tc := range cases {
		if err := svc.SuppressEvent(ctx, tc.event, tc.email, "c1"); err != nil {
			t.Fatalf("SuppressEvent(%s): %v", tc.event, err)
		}
		got := repo.store[tc.email]
		if got == nil || got.Reason != tc.reason || got.Source != domain.SourceWebhook {
			t.Errorf("%s: unexpected entry %+v", tc.event, got)
		}
	}

	if err := svc.SuppressEvent(ctx, domain.EventOpen, "o@x.com", "c1"); err != nil {
		t.Fatalf("SuppressEvent(open): %v", err)
	}
	if _, ok := repo.store["o@x.com"]; ok {
		t.Error("open must not suppress")
	}
}

func TestFilter(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()
	_ = svc.Suppress(ctx, "gone@x.com", domain.ReasonBounce, domain.SourceWebhook, "")

	allowed, n, err := svc.Filter(ctx, []string{"a@x.com", "GONE@x.com", "b@x.com"})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if n != 1 {
		t.Errorf("suppressed = %d, want 1", n)
	}
	if len(allowed) != 2 || allowed[0] != "a@x.com" || allowed[1] != "b@x.com" {
		t.Errorf("allowed = %v", allowed)
	}
}

func TestRemove(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()
	_ = svc.Suppress(ctx, "x@x.com", domain.ReasonManual, domain.SourceManual, "")

	if err := svc.Remove(ctx, "X@x.com"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := svc.Remove(ctx, "x@x.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove: got %v, want ErrNotFound", err)
	}
}
