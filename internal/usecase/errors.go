package usecase

import "errors"

// Sentinel error kinds. Handlers map these to HTTP statuses with errors.Is;
// nothing anywhere matches on error text.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidState          = errors.New("invalid state")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrConflict              = errors.New("conflict")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
