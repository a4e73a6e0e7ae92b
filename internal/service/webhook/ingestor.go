package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadconvert/leadconvert/internal/domain"
	"github.com/leadconvert/leadconvert/internal/esp/sendgrid"
	"github.com/leadconvert/leadconvert/internal/pkg/dedup"
	"github.com/leadconvert/leadconvert/internal/pkg/logger"
)

// maxUpdateAttempts bounds the optimistic recipient update loop.
const maxUpdateAttempts = 3

// Report summarizes one batch.
type Report struct {
	Received     int `json:"received"`
	Processed    int `json:"processed"`
	Duplicates   int `json:"duplicates"`
	Malformed    int `json:"malformed"`
	Uncorrelated int `json:"uncorrelated"`
	Unmatched    int `json:"unmatched"`
	Errors       int `json:"errors"`
}

// Deps are the stores the ingestor writes to. When Tx is set, each event's
// writes run through it and the individual stores are ignored. Suppressor,
// Campaigns, Lookup and Dedup are optional.
type Deps struct {
	Events     EventStore
	Recipients RecipientStore
	Metrics    MetricsStore
	Suppressor Suppressor
	Tx         Transactor
	Campaigns  CampaignAdvancer
	Lookup     CampaignLookup
	Dedup      dedup.Store
}

// Ingestor applies webhook batches. Safe for concurrent use; concurrent
// batches for the same campaign rely on row-level atomic increments and the
// optimistic recipient update.
type Ingestor struct {
	tx        Transactor
	campaigns CampaignAdvancer
	lookup    CampaignLookup
	dedup     dedup.Store
}

// NewIngestor wires an ingestor.
func NewIngestor(d Deps) *Ingestor {
	if d.Dedup == nil {
		d.Dedup = dedup.Nop{}
	}
	if d.Tx == nil {
		d.Tx = direct{Events: d.Events, Recipients: d.Recipients, Metrics: d.Metrics, Suppressor: d.Suppressor}
	}
	return &Ingestor{
		tx:        d.Tx,
		campaigns: d.Campaigns,
		lookup:    d.Lookup,
		dedup:     d.Dedup,
	}
}

// errDuplicate aborts an event whose row already exists.
var errDuplicate = errors.New("duplicate event")

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeDuplicate
	outcomeMalformed
	outcomeUncorrelated
	outcomeUnmatched
	outcomeError
)

// Ingest processes events sequentially in batch order.
func (in *Ingestor) Ingest(ctx context.Context, events []sendgrid.Event) Report {
	rep := Report{Received: len(events)}
	start := time.Now()

	for i, e := range events {
		if err := ctx.Err(); err != nil {
			rep.Errors += len(events) - i
			logger.Warn("webhook: batch cancelled", "remaining", len(events)-i, "error", err)
			break
		}
		switch in.process(ctx, e) {
		case outcomeProcessed:
			rep.Processed++
		case outcomeDuplicate:
			rep.Duplicates++
		case outcomeMalformed:
			rep.Malformed++
		case outcomeUncorrelated:
			rep.Uncorrelated++
		case outcomeUnmatched:
			rep.Processed++
			rep.Unmatched++
		case outcomeError:
			rep.Errors++
		}
	}

	logger.Info("webhook: batch processed",
		"received", rep.Received, "processed", rep.Processed, "duplicates", rep.Duplicates,
		"malformed", rep.Malformed, "uncorrelated", rep.Uncorrelated, "unmatched", rep.Unmatched,
		"errors", rep.Errors, "duration_ms", time.Since(start).Milliseconds())
	return rep
}

func eventType(raw string) domain.EventType {
	if raw == "group_unsubscribe" {
		return domain.EventUnsubscribe
	}
	return domain.EventType(raw)
}

func (in *Ingestor) process(ctx context.Context, e sendgrid.Event) outcome {
	if e.Event == "" || e.Email == "" {
		logger.Warn("webhook: malformed event skipped", "event", e.Event, "email", e.Email)
		return outcomeMalformed
	}
	typ := eventType(e.Event)
	email := domain.NormalizeEmail(e.Email)

	campaignID, derived := CampaignID(e)
	if campaignID == "" && !e.HasCampaignTag() && in.lookup != nil {
		if token := MessageToken(e); token != "" {
			id, err := in.lookup.CampaignForProviderMessage(ctx, token)
			if err != nil {
				logger.Error("webhook: look up provider message", "sg_message_id", e.SGMessageID, "error", err)
				return outcomeError
			}
			campaignID, derived = id, id != ""
		}
	}
	if campaignID == "" {
		logger.Warn("webhook: event without campaign id skipped", "event", e.Event, "email", email, "sg_message_id", e.SGMessageID)
		return outcomeUncorrelated
	}
	if derived {
		logger.Debug("webhook: campaign id derived from sg_message_id", "campaign_id", campaignID, "sg_message_id", e.SGMessageID)
	}

	key := DedupKey(e)
	fresh, err := in.dedup.Claim(ctx, key)
	if err != nil {
		// Redis trouble: fall through to the event table's unique key.
		logger.Warn("webhook: dedup claim failed", "key", key, "error", err)
		fresh = true
	}
	if !fresh {
		return outcomeDuplicate
	}

	at := e.Time()
	ev := &domain.EmailEvent{
		ID:         uuid.New().String(),
		ExternalID: key,
		CampaignID: campaignID,
		Email:      email,
		Type:       typ,
		URL:        e.URL,
		UserAgent:  e.UserAgent,
		IP:         e.IP,
		Reason:     e.Reason,
		Timestamp:  at,
	}
	var matched bool
	err = in.tx.InTx(ctx, func(ctx context.Context, st Stores) error {
		inserted, err := st.Events.Append(ctx, ev)
		if err != nil {
			return fmt.Errorf("append event: %w", err)
		}
		if !inserted {
			return errDuplicate
		}

		matched, err = applyRecipient(ctx, st.Recipients, campaignID, email, typ, at)
		if err != nil {
			return fmt.Errorf("update recipient: %w", err)
		}

		if field, ok := typ.MetricField(); ok {
			if err := st.Metrics.Increment(ctx, campaignID, field); err != nil {
				return fmt.Errorf("increment %s: %w", field, err)
			}
		}

		if typ.Suppresses() && st.Suppressor != nil {
			if err := st.Suppressor.SuppressEvent(ctx, typ, email, campaignID); err != nil {
				return fmt.Errorf("suppress: %w", err)
			}
		}
		return nil
	})
	if errors.Is(err, errDuplicate) {
		return outcomeDuplicate
	}
	if err != nil {
		// Nothing was committed; release the claim so a redelivery is applied.
		logger.Error("webhook: apply event", "campaign_id", campaignID, "email", email, "event", e.Event, "error", err)
		in.forget(ctx, key)
		return outcomeError
	}
	if !matched {
		logger.Warn("webhook: no recipient for event", "campaign_id", campaignID, "email", email, "event", e.Event)
	}

	if typ == domain.EventDelivered && in.campaigns != nil {
		if _, err := in.campaigns.AdvanceDelivered(ctx, campaignID); err != nil {
			logger.Warn("webhook: advance campaign to delivered", "campaign_id", campaignID, "error", err)
		}
	}

	if !matched {
		return outcomeUnmatched
	}
	return outcomeProcessed
}

// applyRecipient folds the event into the recipient row. matched is false
// when the campaign has no recipient for email.
func applyRecipient(ctx context.Context, recipients RecipientStore, campaignID, email string, typ domain.EventType, at time.Time) (bool, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		r, err := recipients.FindRecipient(ctx, campaignID, email)
		if errors.Is(err, ErrRecipientNotFound) {
			return false, nil
		}
		if err != nil {
			return true, err
		}
		prev := r.Status
		if !r.Apply(typ, at) {
			return true, nil
		}
		ok, err := recipients.UpdateEngagement(ctx, r, prev)
		if err != nil {
			return true, err
		}
		if ok {
			return true, nil
		}
	}
	return true, errors.New("recipient changed concurrently, giving up")
}

func (in *Ingestor) forget(ctx context.Context, key string) {
	if err := in.dedup.Forget(ctx, key); err != nil {
		logger.Warn("webhook: release dedup key", "key", key, "error", err)
	}
}
