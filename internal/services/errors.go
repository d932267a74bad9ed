package services

import "errors"

// Sentinel errors distinguish the failure classes handlers map to HTTP
// statuses. Wrap with fmt.Errorf("%w", ...) so callers can errors.Is.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrForbidden          = errors.New("operation not permitted")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicatePhone     = errors.New("phone number already registered")
)
