package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Donor validation
	ErrDonorNotFound = errors.New("donor not found")
	ErrNameRequired  = errors.New("name is required")
	ErrNameTooLong   = errors.New("name exceeds maximum length of 50 characters")
	ErrGradeRequired = errors.New("grade is required")
	ErrGradeTooLong  = errors.New("grade exceeds maximum length of 20 characters")
	ErrInvalidAmount = errors.New("amount must be an integer")

	// Bulk ingestion
	ErrIngestionInProgress = errors.New("bulk ingestion already in progress")
	ErrNotCSVFile          = errors.New("only CSV files can be uploaded")
	ErrMalformedCSV        = errors.New("malformed CSV")

	// Viewers
	ErrTooManyViewers = errors.New("viewer limit reached")
	ErrViewerClosed   = errors.New("viewer connection closed")
	ErrSendBufferFull = errors.New("viewer send buffer full")

	// Request handling
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// IsValidation reports whether err is one of the donor field validation errors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrNameTooLong) ||
		errors.Is(err, ErrGradeRequired) ||
		errors.Is(err, ErrGradeTooLong) ||
		errors.Is(err, ErrInvalidAmount)
}

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewConflictError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "CONFLICT",
		StatusCode: 409,
	}
}

func NewValidationError(err error, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		StatusCode: 422,
		Details:    details,
	}
}

func NewRateLimitError() *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    "Too many requests. Please try again later.",
		Code:       "RATE_LIMITED",
		StatusCode: 429,
	}
}

// RowError reports which bulk row (1-based, header excluded) stopped an ingestion run.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// PersistenceError is returned when the record store rejects a write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist donor (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DeliveryError describes a failed send to one viewer. It is only ever logged.
type DeliveryError struct {
	ViewerID string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to viewer %s: %v", e.ViewerID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
