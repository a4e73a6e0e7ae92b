package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leadconvert/leadconvert/internal/domain"
	"github.com/leadconvert/leadconvert/internal/service/webhook"
)

const recipientColumns = `id, campaign_id, lead_id, email, sender_name, status, bounced, unsubscribed,
		       sent_at, opened_at, clicked_at, created_at`

func scanRecipient(s rowScanner) (*domain.Recipient, error) {
	var (
		rec                       domain.Recipient
		sentAt, openedAt, clicked sql.NullTime
	)
	err := s.Scan(&rec.ID, &rec.CampaignID, &rec.LeadID, &rec.Email, &rec.SenderName, &rec.Status,
		&rec.Bounced, &rec.Unsubscribed, &sentAt, &openedAt, &clicked, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.SentAt = timePtr(sentAt)
	rec.OpenedAt = timePtr(openedAt)
	rec.ClickedAt = timePtr(clicked)
	return &rec, nil
}

// RecipientRepo implements webhook.RecipientStore.
type RecipientRepo struct{ db Querier }

// NewRecipientRepo creates a Postgres-backed recipient store.
func NewRecipientRepo(db Querier) *RecipientRepo { return &RecipientRepo{db: db} }

func (r *RecipientRepo) FindRecipient(ctx context.Context, campaignID, email string) (*domain.Recipient, error) {
	if !isUUID(campaignID) {
		return nil, webhook.ErrRecipientNotFound
	}
	rec, err := scanRecipient(r.db.QueryRowContext(ctx, `
		SELECT `+recipientColumns+`
		FROM email_recipients
		WHERE campaign_id = $1 AND email = $2
		ORDER BY created_at
		LIMIT 1
	`, campaignID, email))
	if err == sql.ErrNoRows {
		return nil, webhook.ErrRecipientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find recipient: %w", err)
	}
	return rec, nil
}

// UpdateEngagement writes rec only if the stored status still equals prev.
// Timestamps never move once set and flags never clear, so a lost race can
// only be retried, never regress the row.
func (r *RecipientRepo) UpdateEngagement(ctx context.Context, rec *domain.Recipient, prev domain.RecipientStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_recipients SET
			status       = $3,
			bounced      = bounced OR $4,
			unsubscribed = unsubscribed OR $5,
			sent_at      = COALESCE(sent_at, $6),
			opened_at    = COALESCE(opened_at, $7),
			clicked_at   = COALESCE(clicked_at, $8)
		WHERE id = $1 AND status = $2
	`, rec.ID, prev, rec.Status, rec.Bounced, rec.Unsubscribed,
		nullTime(rec.SentAt), nullTime(rec.OpenedAt), nullTime(rec.ClickedAt))
	if err != nil {
		return false, fmt.Errorf("update recipient engagement: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
