package lead

import (
	"context"

	"github.com/leadconvert/leadconvert/internal/domain"
)

// Repository defines the data access contract for leads and lead magnets.
// Emails are passed already normalized.
type Repository interface {
	// FindByEmails returns the leads whose email is in emails. When
	// leadMagnetID is non-empty only leads captured by it are returned.
	FindByEmails(ctx context.Context, emails []string, leadMagnetID string) ([]domain.Lead, error)

	// FindByEmail returns ErrNotFound when no lead matches.
	FindByEmail(ctx context.Context, leadMagnetID, email string) (*domain.Lead, error)

	// Get returns ErrNotFound when the lead doesn't exist.
	Get(ctx context.Context, id string) (*domain.Lead, error)

	// Create inserts a lead. If a lead with the same (lead magnet, email)
	// already exists, the existing row is returned and created is false.
	Create(ctx context.Context, l *domain.Lead) (stored *domain.Lead, created bool, err error)

	// GetLeadMagnet returns ErrLeadMagnetNotFound when it doesn't exist.
	GetLeadMagnet(ctx context.Context, id string) (*domain.LeadMagnet, error)

	// IncrementPageViews adds one view and returns the new total.
	// Returns ErrLeadMagnetNotFound when it doesn't exist.
	IncrementPageViews(ctx context.Context, leadMagnetID string) (int64, error)
}
