package domain

import (
	"strings"
	"time"
)

// Lead is a contact captured by a lead magnet's capture form.
type Lead struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	LeadMagnetID string    `json:"lead_magnet_id" db:"lead_magnet_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// LeadMagnet is the interactive content piece that captures leads. Only the
// fields the campaign flow needs are modeled here.
type LeadMagnet struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	PageViews int64     `json:"page_views" db:"page_views"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NormalizeEmail lower-cases and trims an address so that lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeEmails normalizes and de-duplicates emails, dropping empty
// entries. Input order is preserved.
func NormalizeEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		n := NormalizeEmail(e)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
