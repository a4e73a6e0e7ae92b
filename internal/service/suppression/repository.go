package suppression

import (
	"context"

	"github.com/leadconvert/leadconvert/internal/domain"
)

// Repository defines the data access contract for the suppression list.
// Emails are passed already normalized.
type Repository interface {
	// Suppress adds an entry. An existing entry for the email is preserved.
	Suppress(ctx context.Context, s *domain.Suppression) error

	// IsSuppressed reports whether email is on the list.
	IsSuppressed(ctx context.Context, email string) (bool, error)

	// SuppressedAmong returns the subset of emails that are on the list.
	SuppressedAmong(ctx context.Context, emails []string) (map[string]bool, error)

	// Remove deletes an entry. Returns ErrNotFound if it doesn't exist.
	Remove(ctx context.Context, email string) error

	// Count returns the number of suppressed addresses.
	Count(ctx context.Context) (int, error)
}
