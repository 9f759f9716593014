package publication

import "errors"

var (
	ErrInvalidIdentifier = errors.New("Invalid listing id")
	ErrInvalidStatus     = errors.New("Invalid publishing status: must be PUBLISHED or PENDING")
	ErrNotFound          = errors.New("Listing not found")
	ErrPersistence       = errors.New("Failed to persist publishing status")
)
