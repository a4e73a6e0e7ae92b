package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/leadconvert/leadconvert/internal/domain"
	"github.com/leadconvert/leadconvert/internal/service/lead"
)

// LeadRepo implements lead.Repository against PostgreSQL.
type LeadRepo struct{ db *sql.DB }

// NewLeadRepo creates a Postgres-backed lead repository.
func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

func scanLead(s rowScanner) (*domain.Lead, error) {
	var l domain.Lead
	if err := s.Scan(&l.ID, &l.Name, &l.Email, &l.LeadMagnetID, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// FindByEmails returns at most one lead per address. Without a lead magnet
// scope the most recently captured lead wins.
func (r *LeadRepo) FindByEmails(ctx context.Context, emails []string, leadMagnetID string) ([]domain.Lead, error) {
	if len(emails) == 0 {
		return []domain.Lead{}, nil
	}
	var (
		rows *sql.Rows
		err  error
	)
	if leadMagnetID != "" {
		if !isUUID(leadMagnetID) {
			return []domain.Lead{}, nil
		}
		rows, err = r.db.QueryContext(ctx, `
			SELECT id, name, email, lead_magnet_id, created_at
			FROM leads
			WHERE email = ANY($1) AND lead_magnet_id = $2
			ORDER BY email
		`, pq.Array(emails), leadMagnetID)
	} else {
		rows, err = r.db.QueryContext(ctx, `
			SELECT DISTINCT ON (email) id, name, email, lead_magnet_id, created_at
			FROM leads
			WHERE email = ANY($1)
			ORDER BY email, created_at DESC
		`, pq.Array(emails))
	}
	if err != nil {
		return nil, fmt.Errorf("find leads by email: %w", err)
	}
	defer rows.Close()

	out := []domain.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *LeadRepo) FindByEmail(ctx context.Context, leadMagnetID, email string) (*domain.Lead, error) {
	if !isUUID(leadMagnetID) {
		return nil, lead.ErrNotFound
	}
	l, err := scanLead(r.db.QueryRowContext(ctx, `
		SELECT id, name, email, lead_magnet_id, created_at
		FROM leads WHERE lead_magnet_id = $1 AND email = $2
	`, leadMagnetID, email))
	if err == sql.ErrNoRows {
		return nil, lead.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return l, nil
}

func (r *LeadRepo) Get(ctx context.Context, id string) (*domain.Lead, error) {
	if !isUUID(id) {
		return nil, lead.ErrNotFound
	}
	l, err := scanLead(r.db.QueryRowContext(ctx,
		`SELECT id, name, email, lead_magnet_id, created_at FROM leads WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, lead.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

func (r *LeadRepo) Create(ctx context.Context, l *domain.Lead) (*domain.Lead, bool, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO leads (id, name, email, lead_magnet_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lead_magnet_id, email) DO NOTHING
		RETURNING created_at
	`, l.ID, l.Name, l.Email, l.LeadMagnetID, l.CreatedAt).Scan(&l.CreatedAt)
	if err == nil {
		return l, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("insert lead: %w", err)
	}
	existing, err := r.FindByEmail(ctx, l.LeadMagnetID, l.Email)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *LeadRepo) GetLeadMagnet(ctx context.Context, id string) (*domain.LeadMagnet, error) {
	if !isUUID(id) {
		return nil, lead.ErrLeadMagnetNotFound
	}
	m := &domain.LeadMagnet{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, slug, page_views, created_at
		FROM lead_magnets WHERE id = $1
	`, id).Scan(&m.ID, &m.UserID, &m.Name, &m.Slug, &m.PageViews, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, lead.ErrLeadMagnetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead magnet: %w", err)
	}
	return m, nil
}

func (r *LeadRepo) IncrementPageViews(ctx context.Context, leadMagnetID string) (int64, error) {
	if !isUUID(leadMagnetID) {
		return 0, lead.ErrLeadMagnetNotFound
	}
	var views int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE lead_magnets SET page_views = page_views + 1 WHERE id = $1 RETURNING page_views`,
		leadMagnetID).Scan(&views)
	if err == sql.ErrNoRows {
		return 0, lead.ErrLeadMagnetNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment page views: %w", err)
	}
	return views, nil
}
