package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidTransition(t *testing.T) {
	err := NewInvalidTransition("draft", "accepted")

	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	assert.Equal(t, "draft", err.Details["current_status"])
	assert.Equal(t, "accepted", err.Details["target_status"])
	assert.True(t, HasCode(err, CodeInvalidTransition))
}

func TestAsAppError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("load quote: %w", NewNotFound("quote", "q-1"))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))

	_, ok = AsAppError(errors.New("plain"))
	assert.False(t, ok)
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Internal server error", err.Message)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIdempotencyErrors(t *testing.T) {
	inFlight := NewIdempotencyConflict("rev-1")
	reused := NewIdempotencyMismatch("rev-1")

	for _, err := range []*AppError{inFlight, reused} {
		assert.Equal(t, http.StatusConflict, err.HTTPStatus)
		assert.True(t, HasCode(err, CodeIdempotency))
		assert.Equal(t, "rev-1", err.Details["idempotency_key"])
	}
	assert.NotEqual(t, inFlight.Message, reused.Message)
}
