package lead

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leadconvert/leadconvert/internal/domain"
	"github.com/leadconvert/leadconvert/internal/pkg/logger"
)

// Service implements lead resolution and capture.
type Service struct {
	repo Repository
}

// NewService creates a lead service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Resolve maps target addresses to existing leads. Addresses without a lead
// are dropped silently; zero matches is not an error.
func (s *Service) Resolve(ctx context.Context, emails []string, leadMagnetID string) ([]domain.Lead, error) {
	addrs := domain.NormalizeEmails(emails)
	if len(addrs) == 0 {
		return nil, nil
	}
	leads, err := s.repo.FindByEmails(ctx, addrs, strings.TrimSpace(leadMagnetID))
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}
	if dropped := len(addrs) - len(leads); dropped > 0 {
		logger.Debug("lead: unmatched recipient addresses", "requested", len(addrs), "matched", len(leads))
	}
	return leads, nil
}

// Get returns a single lead.
func (s *Service) Get(ctx context.Context, id string) (*domain.Lead, error) {
	return s.repo.Get(ctx, id)
}

// CaptureInput is the visitor capture form.
type CaptureInput struct {
	LeadMagnetID string `json:"leadMagnetId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
}

// Capture stores a lead for the visitor. A repeat capture of the same
// address on the same lead magnet returns the existing lead.
func (s *Service) Capture(ctx context.Context, in CaptureInput) (*domain.Lead, bool, error) {
	magnetID := strings.TrimSpace(in.LeadMagnetID)
	if magnetID == "" {
		return nil, false, ErrMissingLeadMagnet
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	if _, err := s.repo.GetLeadMagnet(ctx, magnetID); err != nil {
		return nil, false, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = addr.Name
	}
	l := &domain.Lead{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        domain.NormalizeEmail(addr.Address),
		LeadMagnetID: magnetID,
		CreatedAt:    time.Now().UTC(),
	}
	stored, created, err := s.repo.Create(ctx, l)
	if err != nil {
		return nil, false, fmt.Errorf("capture lead: %w", err)
	}
	if created {
		logger.Info("lead: captured", "lead_id", stored.ID, "lead_magnet_id", magnetID, "email", stored.Email)
	}
	return stored, created, nil
}

// RecordPageView increments the lead magnet's view counter. Every call
// counts.
func (s *Service) RecordPageView(ctx context.Context, leadMagnetID string) (int64, error) {
	leadMagnetID = strings.TrimSpace(leadMagnetID)
	if leadMagnetID == "" {
		return 0, ErrMissingLeadMagnet
	}
	return s.repo.IncrementPageViews(ctx, leadMagnetID)
}
