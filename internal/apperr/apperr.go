// Package apperr holds the error taxonomy shared by the identity, session
// and request services and the stores behind them.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflict reports a duplicate email at registration.
	ErrConflict = errors.New("email already registered")
	// ErrInvalidCredentials is the only error a failed login produces.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotFound reports a missing row for a lookup or targeted mutation.
	ErrNotFound = errors.New("not found")
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fieldErr := range v {
		parts = append(parts, fieldErr.Field+": "+fieldErr.Message)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// Err returns nil when nothing was recorded.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// StoreError wraps a persistence failure. It is never retried here.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store wraps err as a StoreError unless it is nil or one of the sentinels
// above, which pass through untouched.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
