package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadconvert/leadconvert/internal/domain"
	"github.com/leadconvert/leadconvert/internal/service/analytics"
	"github.com/leadconvert/leadconvert/internal/service/campaign"
	"github.com/leadconvert/leadconvert/internal/service/lead"
	"github.com/leadconvert/leadconvert/internal/service/suppression"
	"github.com/leadconvert/leadconvert/internal/service/webhook"
)

const (
	cid  = "9b2d7c1e-4f3a-4e8b-a6d5-0c1b2a3f4e5d"
	lmID = "1f0e2d3c-4b5a-4968-8776-a5b4c3d2e1f0"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestCampaignRepo_CreateWithMetrics(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO email_campaigns").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO email_metrics").
		WithArgs(cid, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewCampaignRepo(db).CreateWithMetrics(context.Background(), &domain.Campaign{
		ID: cid, Name: "Hi", Subject: "Hi", HTMLContent: "<p/>", Status: domain.CampaignQueued,
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
}

func TestCampaignRepo_CreateRollsBackOnMetricsFailure(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO email_campaigns").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO email_metrics").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := NewCampaignRepo(db).CreateWithMetrics(context.Background(), &domain.Campaign{ID: cid})
	require.ErrorIs(t, err, sql.ErrConnDone)
}

func TestCampaignRepo_GetNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM email_campaigns WHERE id = \\$1").
		WithArgs(cid).
		WillReturnError(sql.ErrNoRows)

	_, err := NewCampaignRepo(db).Get(context.Background(), cid)
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestCampaignRepo_GetMalformedIDSkipsQuery(t *testing.T) {
	db, _ := newMock(t)
	_, err := NewCampaignRepo(db).Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestCampaignRepo_Get(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	cols := []string{"id", "name", "subject", "html_content", "sender_name", "lead_magnet_id",
		"status", "recipient_count", "provider_message_id", "sent_at", "created_at", "updated_at"}
	mock.ExpectQuery("FROM email_campaigns").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(cid, "Hi", "Hi", "<p/>", "Acme", lmID, "sent", 3, "pm-1", now, now, now))

	c, err := NewCampaignRepo(db).Get(context.Background(), cid)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignSent, c.Status)
	assert.Equal(t, 3, c.RecipientCount)
	require.NotNil(t, c.LeadMagnetID)
	assert.Equal(t, lmID, *c.LeadMagnetID)
	require.NotNil(t, c.SentAt)
	assert.Equal(t, "pm-1", c.ProviderMessageID)
}

func TestCampaignRepo_ProviderMessageID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCampaignRepo(db)

	mock.ExpectExec("UPDATE email_campaigns SET provider_message_id = \\$2").
		WithArgs(cid, "pm-1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetProviderMessageID(context.Background(), cid, "pm-1"))

	mock.ExpectQuery("SELECT id FROM email_campaigns WHERE provider_message_id = \\$1").
		WithArgs("pm-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(cid))
	id, err := repo.FindByProviderMessageID(context.Background(), "pm-1")
	require.NoError(t, err)
	assert.Equal(t, cid, id)

	mock.ExpectQuery("WHERE provider_message_id").WithArgs("nope").WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByProviderMessageID(context.Background(), "nope")
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestCampaignRepo_InsertRecipientsCountsOnlyNewRows(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO email_recipients")
	prep.ExpectExec().WithArgs(sqlmock.AnyArg(), cid, "l1", "a@x.com", "Acme").
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(sqlmock.AnyArg(), cid, "l2", "b@x.com", "Acme").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	n, err := NewCampaignRepo(db).InsertRecipients(context.Background(), cid, []domain.Lead{
		{ID: "l1", Email: "a@x.com"}, {ID: "l2", Email: " B@x.com"},
	}, "Acme")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCampaignRepo_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("applied", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("UPDATE email_campaigns SET status").
			WithArgs(cid, domain.CampaignSending, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		err := NewCampaignRepo(db).UpdateStatus(ctx, cid, []domain.CampaignStatus{domain.CampaignQueued}, domain.CampaignSending)
		assert.NoError(t, err)
	})

	t.Run("conflict", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("UPDATE email_campaigns SET status").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").WithArgs(cid).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		err := NewCampaignRepo(db).UpdateStatus(ctx, cid, []domain.CampaignStatus{domain.CampaignSent}, domain.CampaignDelivered)
		assert.ErrorIs(t, err, campaign.ErrInvalidTransition)
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("UPDATE email_campaigns SET status").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		err := NewCampaignRepo(db).UpdateStatus(ctx, cid, []domain.CampaignStatus{domain.CampaignSent}, domain.CampaignDelivered)
		assert.ErrorIs(t, err, campaign.ErrNotFound)
	})
}

func TestCampaignRepo_MarkSent(t *testing.T) {
	db, mock := newMock(t)
	at := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM email_campaigns").WithArgs(cid).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("sending"))
	mock.ExpectExec("UPDATE email_campaigns").WithArgs(cid, at).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE email_recipients").WithArgs(cid, at).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	n, err := NewCampaignRepo(db).MarkSent(context.Background(), cid, at)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCampaignRepo_MarkSentAlreadySentOnlyTouchesRecipients(t *testing.T) {
	db, mock := newMock(t)
	at := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM email_campaigns").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("sent"))
	mock.ExpectExec("UPDATE email_recipients").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	n, err := NewCampaignRepo(db).MarkSent(context.Background(), cid, at)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCampaignRepo_MarkSentFailedCampaign(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM email_campaigns").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("failed"))
	mock.ExpectRollback()

	_, err := NewCampaignRepo(db).MarkSent(context.Background(), cid, time.Now())
	assert.ErrorIs(t, err, campaign.ErrInvalidTransition)
}

func TestRecipientRepo_FindNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM email_recipients").WithArgs(cid, "a@x.com").WillReturnError(sql.ErrNoRows)

	_, err := NewRecipientRepo(db).FindRecipient(context.Background(), cid, "a@x.com")
	assert.ErrorIs(t, err, webhook.ErrRecipientNotFound)
}

func TestRecipientRepo_UpdateEngagementIsConditional(t *testing.T) {
	db, mock := newMock(t)
	opened := time.Now()
	rec := &domain.Recipient{ID: "r1", Status: domain.RecipientOpened, OpenedAt: &opened}

	mock.ExpectExec("UPDATE email_recipients SET").
		WithArgs("r1", domain.RecipientSent, domain.RecipientOpened, false, false, nil, opened, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := NewRecipientRepo(db).UpdateEngagement(context.Background(), rec, domain.RecipientSent)
	require.NoError(t, err)
	assert.False(t, ok, "stale prev status must not apply")
}

func TestEventRepo_AppendDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)
	e := &domain.EmailEvent{ID: "e1", ExternalID: "sg-1", CampaignID: cid, Email: "a@x.com", Type: domain.EventOpen, Timestamp: time.Now()}

	mock.ExpectExec("ON CONFLICT \\(external_id\\) DO NOTHING").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("ON CONFLICT \\(external_id\\) DO NOTHING").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Append(context.Background(), e)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Append(context.Background(), e)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWebhookTx_CommitsEventWithCounter(t *testing.T) {
	db, mock := newMock(t)
	e := &domain.EmailEvent{ID: "e1", ExternalID: "sg-1", CampaignID: cid, Email: "a@x.com", Type: domain.EventOpen, Timestamp: time.Now()}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO email_events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET opens = email_metrics.opens \\+ 1").WithArgs(cid).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewWebhookTx(db).InTx(context.Background(), func(ctx context.Context, s webhook.Stores) error {
		if _, err := s.Events.Append(ctx, e); err != nil {
			return err
		}
		return s.Metrics.Increment(ctx, cid, domain.MetricOpens)
	})
	require.NoError(t, err)
}

func TestWebhookTx_FailedCounterRollsBackEvent(t *testing.T) {
	db, mock := newMock(t)
	e := &domain.EmailEvent{ID: "e1", ExternalID: "sg-1", CampaignID: cid, Email: "a@x.com", Type: domain.EventOpen, Timestamp: time.Now()}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO email_events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET opens").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := NewWebhookTx(db).InTx(context.Background(), func(ctx context.Context, s webhook.Stores) error {
		if _, err := s.Events.Append(ctx, e); err != nil {
			return err
		}
		return s.Metrics.Increment(ctx, cid, domain.MetricOpens)
	})
	require.ErrorIs(t, err, sql.ErrConnDone)
}

func TestMetricsRepo_IncrementUsesWhitelistedColumn(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("SET opens = email_metrics.opens \\+ 1").WithArgs(cid).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewMetricsRepo(db).Increment(context.Background(), cid, domain.MetricOpens))
	assert.Error(t, NewMetricsRepo(db).Increment(context.Background(), cid, domain.MetricField("opens; DROP TABLE")))
}

func TestLeadRepo_FindByEmailsUnscopedPicksOnePerAddress(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery("SELECT DISTINCT ON \\(email\\)").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "lead_magnet_id", "created_at"}).
			AddRow("l1", "Ann", "a@x.com", lmID, now))

	leads, err := NewLeadRepo(db).FindByEmails(context.Background(), []string{"a@x.com", "b@x.com"}, "")
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "l1", leads[0].ID)
}

func TestLeadRepo_CreateExisting(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery("INSERT INTO leads").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("FROM leads WHERE lead_magnet_id").WithArgs(lmID, "a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "lead_magnet_id", "created_at"}).
			AddRow("old", "Ann", "a@x.com", lmID, now))

	got, created, err := NewLeadRepo(db).Create(context.Background(), &domain.Lead{
		ID: "new", Email: "a@x.com", LeadMagnetID: lmID, CreatedAt: now,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "old", got.ID)
}

func TestLeadRepo_IncrementPageViews(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("UPDATE lead_magnets SET page_views").WithArgs(lmID).
		WillReturnRows(sqlmock.NewRows([]string{"page_views"}).AddRow(8))
	mock.ExpectQuery("UPDATE lead_magnets SET page_views").WithArgs(lmID).
		WillReturnError(sql.ErrNoRows)

	repo := NewLeadRepo(db)
	n, err := repo.IncrementPageViews(context.Background(), lmID)
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)

	_, err = repo.IncrementPageViews(context.Background(), lmID)
	assert.ErrorIs(t, err, lead.ErrLeadMagnetNotFound)
}

func TestSuppressionRepo(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSuppressionRepo(db)
	ctx := context.Background()

	mock.ExpectExec("ON CONFLICT \\(email\\) DO NOTHING").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.Suppress(ctx, &domain.Suppression{Email: "a@x.com", Reason: domain.ReasonBounce}))

	mock.ExpectQuery("SELECT email FROM suppressions").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("a@x.com"))
	got, err := repo.SuppressedAmong(ctx, []string{"a@x.com", "b@x.com"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a@x.com": true}, got)

	mock.ExpectExec("DELETE FROM suppressions").WithArgs("b@x.com").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Remove(ctx, "b@x.com"), suppression.ErrNotFound)
}

func TestAnalyticsRepo_MetricsSkipsMalformedIDs(t *testing.T) {
	db, _ := newMock(t)
	rows, err := NewAnalyticsRepo(db).Metrics(context.Background(), []string{"garbage"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAnalyticsRepo_LeadRecipientCounts(t *testing.T) {
	db, mock := newMock(t)
	leadID := "5a4b3c2d-1e0f-4a9b-8c7d-6e5f4a3b2c1d"

	mock.ExpectQuery("SELECT EXISTS").WithArgs(leadID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("FROM email_recipients r WHERE r.lead_id").WithArgs(leadID).
		WillReturnRows(sqlmock.NewRows([]string{"total", "delivered", "sent", "opened", "clicked"}).
			AddRow(4, 3, 3, 2, 1))

	c, err := NewAnalyticsRepo(db).LeadRecipientCounts(context.Background(), leadID)
	require.NoError(t, err)
	assert.Equal(t, analytics.RecipientCounts{Total: 4, Delivered: 3, Sent: 3, Opened: 2, Clicked: 1}, *c)
}

func TestAnalyticsRepo_LeadRecipientCountsMissingLead(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := NewAnalyticsRepo(db).LeadRecipientCounts(context.Background(), "5a4b3c2d-1e0f-4a9b-8c7d-6e5f4a3b2c1d")
	assert.ErrorIs(t, err, analytics.ErrNotFound)
}

func TestAnalyticsRepo_DailyEventCounts(t *testing.T) {
	db, mock := newMock(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM email_events").
		WillReturnRows(sqlmock.NewRows([]string{"day", "event_type", "count"}).
			AddRow(day, "open", 5).AddRow(day, "click", 2))

	got, err := NewAnalyticsRepo(db).DailyEventCounts(context.Background(), []string{cid}, day)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.EventOpen, got[0].Type)
	assert.EqualValues(t, 5, got[0].Count)
}
