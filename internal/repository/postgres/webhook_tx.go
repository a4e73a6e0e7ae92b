package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leadconvert/leadconvert/internal/service/suppression"
	"github.com/leadconvert/leadconvert/internal/service/webhook"
)

// WebhookTx implements webhook.Transactor. The event row, recipient update,
// suppression and counter of one event commit together or not at all.
type WebhookTx struct{ db *sql.DB }

// NewWebhookTx creates a transactor over db.
func NewWebhookTx(db *sql.DB) *WebhookTx { return &WebhookTx{db: db} }

func (t *WebhookTx) InTx(ctx context.Context, fn func(ctx context.Context, s webhook.Stores) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin webhook event: %w", err)
	}
	defer rollback(tx)

	stores := webhook.Stores{
		Events:     NewEventRepo(tx),
		Recipients: NewRecipientRepo(tx),
		Metrics:    NewMetricsRepo(tx),
		Suppressor: suppression.NewService(NewSuppressionRepo(tx)),
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit webhook event: %w", err)
	}
	return nil
}
