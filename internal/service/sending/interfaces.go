// Package sending defines the boundary between campaign logic and the
// transactional email provider.
//
// Each ESP adapter (SendGrid, SES) implements Gateway. The campaign service
// never talks HTTP or AWS directly.
package sending

import (
	"context"

	"github.com/leadconvert/leadconvert/internal/domain"
)

// Gateway delivers one rendered campaign message to all of its addressees.
// The call is all-or-nothing from the caller's perspective: partial provider
// acceptance is not modeled. Implementations must be safe for concurrent use.
type Gateway interface {
	Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.DispatchResult, error)
	Name() string
}

// SuppressionChecker performs a pre-send suppression check.
type SuppressionChecker interface {
	Filter(ctx context.Context, emails []string) (allowed []string, suppressed int, err error)
}

// Renderer turns campaign content into the HTML and text bodies sent to the
// provider.
type Renderer interface {
	Validate(content string) error
	Render(content string, bindings map[string]interface{}) (html, text string, err error)
}
