package campaign

import "errors"

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound          = errors.New("campaign not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMissingSubject    = errors.New("subject is required")
	ErrMissingContent    = errors.New("content is required")
	ErrMissingRecipients = errors.New("at least one recipient is required")
	ErrInvalidContent    = errors.New("content is not a valid template")
	ErrAllSuppressed     = errors.New("every recipient is on the suppression list")
	ErrDispatchFailed    = errors.New("dispatch failed")
	ErrNotConfigured     = errors.New("email provider is not configured")
)
