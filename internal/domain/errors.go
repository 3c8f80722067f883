package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map these onto user-visible messages; anything
// else is treated as an upstream failure and logged.
var (
	ErrValidation    = errors.New("validation error")
	ErrAuthorization = errors.New("authorization error")
	ErrNotFound      = errors.New("not found")
	ErrIntegrity     = errors.New("integrity error")
	ErrUpstream      = errors.New("upstream error")
	ErrConfiguration = errors.New("configuration error")
)

// Validationf wraps ErrValidation with a formatted user-facing hint.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// NotFoundf wraps ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Integrityf wraps ErrIntegrity.
func Integrityf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrIntegrity}, args...)...)
}
