package shared

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// ValidationError reports malformed or out-of-range input. User correctable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a named field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RateLimitError signals that a counter window is exhausted for an action.
type RateLimitError struct {
	Action     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s", e.Action)
}

// IsRateLimited reports whether err is a RateLimitError.
func IsRateLimited(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// QueryBindingError marks a placeholder/parameter mismatch. Always a
// programming defect, never user input.
type QueryBindingError struct {
	Reason string
}

func (e *QueryBindingError) Error() string {
	return "query binding: " + e.Reason
}

// StorageError wraps database-layer failures so callers can tell bad input
// apart from infrastructure trouble.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// TransactionError reports a commit or rollback path failure. The whole
// operation is considered failed, partial results are not durable.
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction: %v", e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// UserSafeMessage maps any error to a short string safe to render. Raw
// exception text and internal identifiers never reach the response.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "Data tidak ditemukan"
	case errors.Is(err, ErrInvalidCredentials):
		return "Email atau password tidak valid"
	case errors.Is(err, ErrCSRFTokenMissing), errors.Is(err, ErrCSRFTokenMismatch):
		return "Sesi tidak valid, silakan muat ulang halaman"
	case IsValidation(err):
		var ve *ValidationError
		errors.As(err, &ve)
		if ve.Field != "" {
			return "Input tidak valid: " + ve.Field
		}
		return "Input tidak valid"
	case IsRateLimited(err):
		return "Terlalu banyak permintaan, coba lagi nanti"
	default:
		return "Terjadi kesalahan, silakan coba lagi"
	}
}
