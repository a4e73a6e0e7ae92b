package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leadconvert/leadconvert/internal/domain"
	"github.com/leadconvert/leadconvert/internal/mailing"
	"github.com/leadconvert/leadconvert/internal/pkg/logger"
	"github.com/leadconvert/leadconvert/internal/service/sending"
)

// Resolver maps target addresses to existing leads.
type Resolver interface {
	Resolve(ctx context.Context, emails []string, leadMagnetID string) ([]domain.Lead, error)
}

// Locker serializes critical sections across instances.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Config holds the send-path policy knobs.
type Config struct {
	FromEmail         string
	DefaultSenderName string
	// CountUnmatchedRecipients makes RecipientCount include raw addresses
	// that matched no lead. Otherwise only resolved leads are counted.
	CountUnmatchedRecipients bool
	// SkipSuppressed removes suppressed addresses before dispatch.
	SkipSuppressed bool
	// MarkFailedOnDispatchError moves the campaign to failed when the
	// gateway rejects the send. Otherwise it stays in sending.
	MarkFailedOnDispatchError bool
	DispatchTimeout           time.Duration
}

// Deps are the collaborators of the service. Suppressor and Locker are
// optional.
type Deps struct {
	Repo       Repository
	Resolver   Resolver
	Gateway    sending.Gateway
	Renderer   sending.Renderer
	Suppressor sending.SuppressionChecker
	Locker     Locker
}

// Service implements campaign business logic. All public methods are safe
// for concurrent use if the collaborators are.
type Service struct {
	repo       Repository
	resolver   Resolver
	gateway    sending.Gateway
	renderer   sending.Renderer
	suppressor sending.SuppressionChecker
	locker     Locker
	cfg        Config
	now        func() time.Time
}

// NewService wires a campaign service.
func NewService(d Deps, cfg Config) *Service {
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 30 * time.Second
	}
	if d.Renderer == nil {
		d.Renderer = mailing.NewRenderer()
	}
	return &Service{
		repo:       d.Repo,
		resolver:   d.Resolver,
		gateway:    d.Gateway,
		renderer:   d.Renderer,
		suppressor: d.Suppressor,
		locker:     d.Locker,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, id)
}

// List returns campaigns matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Campaign, int, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, f)
}

// Recipients returns the recipient rows of a campaign.
func (s *Service) Recipients(ctx context.Context, id string) ([]domain.Recipient, error) {
	return s.repo.ListRecipients(ctx, id)
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	Subject        string
	Content        string
	SenderName     string
	LeadMagnetID   string
	RecipientCount int
}

// CreateCampaign validates and persists a campaign in queued status together
// with its zeroed metrics row.
func (s *Service) CreateCampaign(ctx context.Context, in CreateInput) (*domain.Campaign, error) {
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return nil, ErrMissingSubject
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrMissingContent
	}
	if err := s.renderer.Validate(in.Content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}

	now := s.now()
	c := &domain.Campaign{
		ID:             uuid.New().String(),
		Name:           subject,
		Subject:        subject,
		HTMLContent:    in.Content,
		SenderName:     s.senderName(in.SenderName),
		Status:         domain.CampaignQueued,
		RecipientCount: in.RecipientCount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if id := strings.TrimSpace(in.LeadMagnetID); id != "" {
		c.LeadMagnetID = &id
	}

	if err := s.repo.CreateWithMetrics(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	return c, nil
}

// FanOutRecipients attaches one pending recipient per lead. Leads already
// attached are skipped, so repeating the call is harmless.
func (s *Service) FanOutRecipients(ctx context.Context, c *domain.Campaign, leads []domain.Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}
	n, err := s.repo.InsertRecipients(ctx, c.ID, leads, c.SenderName)
	if err != nil {
		return 0, fmt.Errorf("fan out recipients: %w", err)
	}
	return n, nil
}

// MarkSent moves the campaign and its pending recipients to sent. The
// repository transaction is idempotent; the lock keeps a retry from racing
// an in-flight call.
func (s *Service) MarkSent(ctx context.Context, campaignID string) error {
	run := func(ctx context.Context) error {
		n, err := s.repo.MarkSent(ctx, campaignID, s.now())
		if err != nil {
			return err
		}
		logger.Debug("campaign: marked sent", "campaign_id", campaignID, "recipients", n)
		return nil
	}
	if s.locker == nil {
		return run(ctx)
	}
	return s.locker.WithLock(ctx, "campaign:mark-sent:"+campaignID, run)
}

// Dispatch renders the campaign and hands it to the gateway for the given
// addresses. Gateway errors are wrapped in ErrDispatchFailed and leave the
// campaign status untouched.
func (s *Service) Dispatch(ctx context.Context, c *domain.Campaign, addresses []string) (*domain.DispatchResult, error) {
	if s.gateway == nil {
		return nil, ErrNotConfigured
	}
	if len(addresses) == 0 {
		return nil, ErrMissingRecipients
	}

	html, text, err := s.renderer.Render(c.HTMLContent, map[string]interface{}{
		"subject":     c.Subject,
		"sender_name": c.SenderName,
		"campaign_id": c.ID,
		"year":        s.now().Year(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}

	msg := &domain.OutboundMessage{
		CampaignID: c.ID,
		To:         addresses,
		FromEmail:  s.cfg.FromEmail,
		FromName:   c.SenderName,
		Subject:    c.Subject,
		HTML:       html,
		Text:       text,
		Tracking:   domain.TrackingSettings{Open: true, Click: true, Unsubscribe: true},
	}

	dctx, cancel := context.WithTimeout(ctx, s.cfg.DispatchTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.gateway.Send(dctx, msg)
	if err != nil {
		logger.Error("campaign: dispatch failed",
			"campaign_id", c.ID, "provider", s.gateway.Name(), "recipients", len(addresses), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	logger.Info("campaign: dispatched",
		"campaign_id", c.ID, "provider", s.gateway.Name(), "recipients", len(addresses),
		"provider_message_id", res.MessageID, "duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// SendInput is a send-campaign request.
type SendInput struct {
	Recipients   []string `json:"recipients"`
	Subject      string   `json:"subject"`
	Content      string   `json:"content"`
	LeadMagnetID string   `json:"leadMagnetId,omitempty"`
	SenderName   string   `json:"senderName,omitempty"`
}

// SendResult reports a completed send. MessageID is the campaign id, which
// is also the key for metrics lookups.
type SendResult struct {
	Success           bool   `json:"success"`
	MessageID         string `json:"messageId"`
	RecipientCount    int    `json:"recipientCount"`
	ProviderMessageID string `json:"providerMessageId,omitempty"`
}

// Send runs the whole campaign flow: create, resolve, fan out, dispatch,
// mark sent. Every raw address is dispatched to, whether or not it matched
// a lead.
func (s *Service) Send(ctx context.Context, in SendInput) (*SendResult, error) {
	addrs := domain.NormalizeEmails(in.Recipients)
	if len(addrs) == 0 {
		return nil, ErrMissingRecipients
	}
	if strings.TrimSpace(in.Subject) == "" {
		return nil, ErrMissingSubject
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrMissingContent
	}
	if s.gateway == nil {
		return nil, ErrNotConfigured
	}

	leads, err := s.resolver.Resolve(ctx, addrs, in.LeadMagnetID)
	if err != nil {
		return nil, err
	}

	count := len(leads)
	if s.cfg.CountUnmatchedRecipients {
		count = len(addrs)
	}

	c, err := s.CreateCampaign(ctx, CreateInput{
		Subject:        in.Subject,
		Content:        in.Content,
		SenderName:     in.SenderName,
		LeadMagnetID:   in.LeadMagnetID,
		RecipientCount: count,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.FanOutRecipients(ctx, c, leads); err != nil {
		return nil, err
	}

	if err := s.transition(ctx, c, domain.CampaignSending); err != nil {
		return nil, err
	}

	targets := addrs
	if s.cfg.SkipSuppressed && s.suppressor != nil {
		allowed, skipped, err := s.suppressor.Filter(ctx, addrs)
		if err != nil {
			return nil, err
		}
		if skipped > 0 {
			logger.Info("campaign: skipped suppressed recipients", "campaign_id", c.ID, "skipped", skipped)
		}
		if len(allowed) == 0 {
			s.fail(ctx, c)
			return nil, ErrAllSuppressed
		}
		targets = allowed
	}

	res, err := s.Dispatch(ctx, c, targets)
	if err != nil {
		if s.cfg.MarkFailedOnDispatchError && errors.Is(err, ErrDispatchFailed) {
			s.fail(ctx, c)
		}
		return nil, err
	}

	if res.MessageID != "" {
		if err := s.repo.SetProviderMessageID(ctx, c.ID, res.MessageID); err != nil {
			logger.Warn("campaign: record provider message id", "campaign_id", c.ID, "error", err)
		}
	}
	if err := s.MarkSent(ctx, c.ID); err != nil {
		return nil, fmt.Errorf("mark sent: %w", err)
	}

	return &SendResult{
		Success:           true,
		MessageID:         c.ID,
		RecipientCount:    count,
		ProviderMessageID: res.MessageID,
	}, nil
}

// CampaignForProviderMessage maps an ESP message id back to its campaign.
// An unknown id yields "" and no error.
func (s *Service) CampaignForProviderMessage(ctx context.Context, providerMessageID string) (string, error) {
	if providerMessageID == "" {
		return "", nil
	}
	id, err := s.repo.FindByProviderMessageID(ctx, providerMessageID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return id, err
}

// AdvanceDelivered moves a sent campaign to delivered. Campaigns in any
// other status are left alone.
func (s *Service) AdvanceDelivered(ctx context.Context, campaignID string) (bool, error) {
	err := s.repo.UpdateStatus(ctx, campaignID, domain.PredecessorsOf(domain.CampaignDelivered), domain.CampaignDelivered)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrInvalidTransition):
		return false, nil
	default:
		return false, err
	}
}

func (s *Service) transition(ctx context.Context, c *domain.Campaign, to domain.CampaignStatus) error {
	if !domain.CanTransition(c.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}
	if err := s.repo.UpdateStatus(ctx, c.ID, []domain.CampaignStatus{c.Status}, to); err != nil {
		return fmt.Errorf("transition to %s: %w", to, err)
	}
	c.Status = to
	return nil
}

func (s *Service) fail(ctx context.Context, c *domain.Campaign) {
	if c.Status.IsTerminal() {
		return
	}
	if err := s.transition(ctx, c, domain.CampaignFailed); err != nil {
		logger.Error("campaign: mark failed", "campaign_id", c.ID, "error", err)
	}
}

func (s *Service) senderName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return s.cfg.DefaultSenderName
}
