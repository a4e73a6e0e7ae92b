package suppression

import (
	"context"
	"fmt"

	"github.com/leadconvert/leadconvert/internal/domain"
)

// Service implements suppression business logic. It is safe for concurrent use.
type Service struct {
	repo Repository
}

// NewService creates a suppression service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// IsSuppressed checks whether an email address should be blocked from sending.
func (s *Service) IsSuppressed(ctx context.Context, email string) (bool, error) {
	return s.repo.IsSuppressed(ctx, domain.NormalizeEmail(email))
}

// Suppress adds an email to the list. Idempotent: an existing entry keeps its
// original reason and timestamp.
func (s *Service) Suppress(ctx context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource, campaignID string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return ErrEmailMissing
	}
	return s.repo.Suppress(ctx, &domain.Suppression{
		Email:      email,
		Reason:     reason,
		Source:     source,
		CampaignID: campaignID,
	})
}

// SuppressEvent records the suppression implied by a provider event.
// Events that do not suppress are ignored.
func (s *Service) SuppressEvent(ctx context.Context, t domain.EventType, email, campaignID string) error {
	if !t.Suppresses() {
		return nil
	}
	return s.Suppress(ctx, email, domain.SuppressionReasonFor(t), domain.SourceWebhook, campaignID)
}

// Filter drops suppressed addresses from emails, preserving order.
func (s *Service) Filter(ctx context.Context, emails []string) ([]string, int, error) {
	if len(emails) == 0 {
		return emails, 0, nil
	}
	normalized := make([]string, len(emails))
	for i, e := range emails {
		normalized[i] = domain.NormalizeEmail(e)
	}
	hit, err := s.repo.SuppressedAmong(ctx, normalized)
	if err != nil {
		return nil, 0, fmt.Errorf("check suppression list: %w", err)
	}
	allowed := make([]string, 0, len(emails))
	for i, e := range emails {
		if hit[normalized[i]] {
			continue
		}
		allowed = append(allowed, e)
	}
	return allowed, len(emails) - len(allowed), nil
}

// Remove deletes a suppression entry.
func (s *Service) Remove(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return ErrEmailMissing
	}
	return s.repo.Remove(ctx, email)
}

// Count returns the number of suppressed addresses.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
