package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/leadconvert/leadconvert/internal/domain"
	"github.com/leadconvert/leadconvert/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignColumns = `id, name, subject, html_content, sender_name, lead_magnet_id,
		       status, recipient_count, provider_message_id, sent_at, created_at, updated_at`

func scanCampaign(s rowScanner) (*domain.Campaign, error) {
	var (
		c            domain.Campaign
		leadMagnetID sql.NullString
		providerID   sql.NullString
		sentAt       sql.NullTime
	)
	err := s.Scan(&c.ID, &c.Name, &c.Subject, &c.HTMLContent, &c.SenderName, &leadMagnetID,
		&c.Status, &c.RecipientCount, &providerID, &sentAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if leadMagnetID.Valid {
		c.LeadMagnetID = &leadMagnetID.String
	}
	c.ProviderMessageID = providerID.String
	c.SentAt = timePtr(sentAt)
	return &c, nil
}

func (r *CampaignRepo) CreateWithMetrics(ctx context.Context, c *domain.Campaign) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create campaign: %w", err)
	}
	defer rollback(tx)

	var leadMagnetID sql.NullString
	if c.LeadMagnetID != nil {
		leadMagnetID = sql.NullString{String: *c.LeadMagnetID, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO email_campaigns (id, name, subject, html_content, sender_name, lead_magnet_id,
		                             status, recipient_count, sent_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, c.ID, c.Name, c.Subject, c.HTMLContent, c.SenderName, leadMagnetID,
		c.Status, c.RecipientCount, nullTime(c.SentAt), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO email_metrics (campaign_id, created_at, updated_at)
		VALUES ($1, $2, $2)
	`, c.ID, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert campaign metrics: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepo) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	if !isUUID(id) {
		return nil, campaign.ErrNotFound
	}
	c, err := scanCampaign(r.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM email_campaigns WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) List(ctx context.Context, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := ` WHERE 1=1`
	var args []interface{}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.LeadMagnetID != "" {
		if !isUUID(f.LeadMagnetID) {
			return []domain.Campaign{}, 0, nil
		}
		args = append(args, f.LeadMagnetID)
		where += fmt.Sprintf(" AND lead_magnet_id = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	q := `SELECT ` + campaignColumns + ` FROM email_campaigns` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, q, append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	out := []domain.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *CampaignRepo) InsertRecipients(ctx context.Context, campaignID string, leads []domain.Lead, senderName string) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert recipients: %w", err)
	}
	defer rollback(tx)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO email_recipients (id, campaign_id, lead_id, email, sender_name, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		ON CONFLICT (campaign_id, lead_id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert recipient: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, l := range leads {
		res, err := stmt.ExecContext(ctx, uuid.New().String(), campaignID, l.ID, domain.NormalizeEmail(l.Email), senderName)
		if err != nil {
			return 0, fmt.Errorf("insert recipient %s: %w", l.ID, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert recipients: %w", err)
	}
	return inserted, nil
}

func (r *CampaignRepo) ListRecipients(ctx context.Context, campaignID string) ([]domain.Recipient, error) {
	if !isUUID(campaignID) {
		return []domain.Recipient{}, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recipientColumns+` FROM email_recipients WHERE campaign_id = $1 ORDER BY created_at, email`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	out := []domain.Recipient{}
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *CampaignRepo) UpdateStatus(ctx context.Context, id string, from []domain.CampaignStatus, to domain.CampaignStatus) error {
	if !isUUID(id) {
		return campaign.ErrNotFound
	}
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_campaigns SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`, id, to, pq.Array(allowed))
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	// Nothing matched: tell a missing campaign from a conflicting status.
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM email_campaigns WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check campaign: %w", err)
	}
	if !exists {
		return campaign.ErrNotFound
	}
	return campaign.ErrInvalidTransition
}

func (r *CampaignRepo) MarkSent(ctx context.Context, id string, at time.Time) (int, error) {
	if !isUUID(id) {
		return 0, campaign.ErrNotFound
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin mark sent: %w", err)
	}
	defer rollback(tx)

	var status domain.CampaignStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM email_campaigns WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, campaign.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock campaign: %w", err)
	}
	if status == domain.CampaignFailed {
		return 0, campaign.ErrInvalidTransition
	}

	if status == domain.CampaignQueued || status == domain.CampaignSending {
		_, err = tx.ExecContext(ctx, `
			UPDATE email_campaigns
			SET status = 'sent', sent_at = COALESCE(sent_at, $2), updated_at = NOW()
			WHERE id = $1
		`, id, at)
		if err != nil {
			return 0, fmt.Errorf("mark campaign sent: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE email_recipients
		SET status = 'sent', sent_at = COALESCE(sent_at, $2)
		WHERE campaign_id = $1 AND status = 'pending'
	`, id, at)
	if err != nil {
		return 0, fmt.Errorf("mark recipients sent: %w", err)
	}
	moved, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit mark sent: %w", err)
	}
	return int(moved), nil
}

func (r *CampaignRepo) SetProviderMessageID(ctx context.Context, id, providerMessageID string) error {
	if !isUUID(id) {
		return campaign.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_campaigns SET provider_message_id = $2, updated_at = NOW()
		WHERE id = $1
	`, id, providerMessageID)
	if err != nil {
		return fmt.Errorf("set provider message id: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) FindByProviderMessageID(ctx context.Context, providerMessageID string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM email_campaigns WHERE provider_message_id = $1
		ORDER BY created_at DESC LIMIT 1
	`, providerMessageID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", campaign.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find campaign by provider message id: %w", err)
	}
	return id, nil
}
