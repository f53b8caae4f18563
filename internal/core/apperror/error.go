// Package apperror defines the error type returned by every use case. The
// HTTP layer turns it into {code, message, details}; other errors become an
// opaque 500.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine readable codes, stable across releases.
const (
	CodeInternal   = "INTERNAL_ERROR"
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"

	CodeInvalidTransition      = "INVALID_STATUS_TRANSITION"
	CodeNotModifiable          = "QUOTE_NOT_MODIFIABLE"
	CodeNotImportable          = "QUOTE_NOT_IMPORTABLE"
	CodeVersionFrozen          = "VERSION_FROZEN"
	CodeImportFormat           = "DPGF_FORMAT_ERROR"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	CodeUnauthorized = "UNAUTHORIZED"
	CodeConflict     = "CONFLICT"
	CodeDuplicate    = "DUPLICATE_ENTRY"
	CodeIdempotency  = "IDEMPOTENCY_CONFLICT"
)

// AppError is a classified failure. Err keeps the cause for logs and is
// never serialized.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	Err        error          `json:"-"`
}

func newError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail sets one detail entry and returns e for chaining.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, 2)
	}
	e.Details[key] = value
	return e
}

// WithCause attaches the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// NewValidation reports bad input (400).
func NewValidation(message string) *AppError {
	return newError(http.StatusBadRequest, CodeValidation, message)
}

// NewImportFormat rejects a whole DPGF file (400).
func NewImportFormat(message string) *AppError {
	return newError(http.StatusBadRequest, CodeImportFormat, message)
}

// NewNotFound reports a missing row of the named entity (404).
func NewNotFound(entity string, id any) *AppError {
	return newError(http.StatusNotFound, CodeNotFound, entity+" introuvable").
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewBusinessRule refuses an operation the quote state forbids (422).
func NewBusinessRule(code, message string) *AppError {
	return newError(http.StatusUnprocessableEntity, code, message)
}

// NewInvalidTransition refuses a workflow move; both statuses go to details.
func NewInvalidTransition(current, target string) *AppError {
	return NewBusinessRule(CodeInvalidTransition,
		fmt.Sprintf("Transition de statut invalide: %s -> %s", current, target)).
		WithDetail("current_status", current).
		WithDetail("target_status", target)
}

// NewConcurrentModification reports a stale row version (409).
func NewConcurrentModification(entity string, id any) *AppError {
	return newError(http.StatusConflict, CodeConcurrentModification,
		"Modification concurrente, rechargez puis reessayez").
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewConflict reports a constraint violation other than uniqueness (409).
func NewConflict(message string) *AppError {
	return newError(http.StatusConflict, CodeConflict, message)
}

// NewDuplicate reports a unique constraint violation (409).
func NewDuplicate(entity, field, value string) *AppError {
	return newError(http.StatusConflict, CodeDuplicate,
		fmt.Sprintf("%s: %s %q existe deja", entity, field, value)).
		WithDetail("entity", entity).
		WithDetail("field", field).
		WithDetail("value", value)
}

// NewIdempotencyConflict reports a keyed request still being processed (409).
func NewIdempotencyConflict(key string) *AppError {
	return newError(http.StatusConflict, CodeIdempotency, "Requete deja en cours de traitement").
		WithDetail("idempotency_key", key)
}

// NewIdempotencyMismatch reports a key reused for a different request (409).
func NewIdempotencyMismatch(key string) *AppError {
	return newError(http.StatusConflict, CodeIdempotency, "Cle d'idempotence deja utilisee pour une autre requete").
		WithDetail("idempotency_key", key)
}

// NewUnauthorized rejects missing or invalid credentials (401).
func NewUnauthorized(message string) *AppError {
	return newError(http.StatusUnauthorized, CodeUnauthorized, message)
}

// NewInternal hides err behind a generic 500.
func NewInternal(err error) *AppError {
	return newError(http.StatusInternalServerError, CodeInternal, "Internal server error").WithCause(err)
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err's chain holds an AppError with code.
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

func IsNotFound(err error) bool   { return HasCode(err, CodeNotFound) }
func IsValidation(err error) bool { return HasCode(err, CodeValidation) }
