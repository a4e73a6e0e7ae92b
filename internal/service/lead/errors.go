package lead

import "errors"

// Sentinel errors for the lead service layer.
var (
	ErrNotFound           = errors.New("lead not found")
	ErrLeadMagnetNotFound = errors.New("lead magnet not found")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrMissingLeadMagnet  = errors.New("lead magnet id is required")
)
