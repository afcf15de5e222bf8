package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not_found")
	ErrConflict           = errors.New("conflict")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrValidation         = errors.New("validation")

	// ErrUnavailable marks a failure of the backing store. It is never a
	// statement about whether the looked-up row exists.
	ErrUnavailable = errors.New("unavailable")
)

var (
	ErrAlreadyConnected = fmt.Errorf("already_connected: %w", ErrConflict)
	ErrRequestExists    = fmt.Errorf("request_exists: %w", ErrConflict)

	// ErrExternalAccountExists is returned when a provider identity or a
	// user's link for that provider is already taken.
	ErrExternalAccountExists = fmt.Errorf("external_account_exists: %w", ErrConflict)
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}

// Unavailable wraps a store failure so callers can tell it apart from ErrNotFound.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
