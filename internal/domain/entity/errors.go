package entity

import "errors"

// Error taxonomy shared by stores and usecases. Callers match with errors.Is;
// more specific errors wrap one of these.
var (
	ErrNotFound          = errors.New("not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrUnsupportedQuery  = errors.New("unsupported query")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")

	// ErrPreconditionFailed is returned by conditional writes whose expected
	// field values no longer match the stored document.
	ErrPreconditionFailed = errors.New("precondition failed")
)
