package suppression

import "errors"

var (
	ErrNotFound     = errors.New("suppression entry not found")
	ErrEmailMissing = errors.New("email is required")
)
