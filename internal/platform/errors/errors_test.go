package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := ValidationError("invalid input")

	assert.Equal(t, TypeValidation, err.Type)
	assert.Equal(t, "invalid input", err.Message)
	assert.Nil(t, err.Cause)
	assert.NotNil(t, err.Context)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
	assert.Contains(t, err.Error(), "validation")
	assert.Contains(t, err.Error(), "invalid input")
}

func TestUnauthorizedError(t *testing.T) {
	err := UnauthorizedError("session revoked")

	assert.Equal(t, TypeUnauthorized, err.Type)
	assert.Equal(t, "session revoked", err.Message)
	assert.Nil(t, err.Cause)
	assert.Equal(t, http.StatusUnauthorized, err.HTTPStatus())
	assert.Contains(t, err.Error(), "unauthorized")
	assert.Contains(t, err.Error(), "session revoked")
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("profile not found")

	assert.Equal(t, TypeNotFound, err.Type)
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus())
	assert.Contains(t, err.Error(), "not_found")
}

func TestInternalError(t *testing.T) {
	cause := fmt.Errorf("credential store unreadable")
	err := InternalError("failed to load credentials", cause)

	assert.Equal(t, TypeInternal, err.Type)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
	assert.Contains(t, err.Error(), "failed to load credentials")
	assert.Contains(t, err.Error(), "credential store unreadable")
}

func TestInternalErrorWithoutCause(t *testing.T) {
	err := InternalError("something went wrong", nil)

	assert.Nil(t, err.Cause)
	assert.NotContains(t, err.Error(), "<nil>")
}

func TestExternalError(t *testing.T) {
	cause := fmt.Errorf("identity api timeout")
	err := ExternalError("failed to call identity api", cause)

	assert.Equal(t, TypeExternal, err.Type)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus())
	assert.Contains(t, err.Error(), "external")
	assert.Contains(t, err.Error(), "identity api timeout")
}

func TestWithFieldChaining(t *testing.T) {
	err := ValidationError("invalid input").
		WithField("field", "heartbeat_interval").
		WithField("value", "5s")

	assert.Len(t, err.Context, 2)
	assert.Equal(t, "heartbeat_interval", err.Context["field"])
	assert.Equal(t, "5s", err.Context["value"])
}

func TestWithFieldNilMap(t *testing.T) {
	err := &Error{Type: TypeValidation, Message: "test", Context: nil}

	err = err.WithField("key", "value")

	assert.NotNil(t, err.Context)
	assert.Equal(t, "value", err.Context["key"])
}

func TestToResponse(t *testing.T) {
	err := UnauthorizedError("refresh rejected").
		WithField("trigger", "heartbeat")

	resp := err.ToResponse()

	assert.Equal(t, "refresh rejected", resp.Error)
	assert.Equal(t, TypeUnauthorized, resp.Type)
	assert.Equal(t, "heartbeat", resp.Context["trigger"])
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := InternalError("wrapped", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestErrorsAs(t *testing.T) {
	err := ValidationError("test")

	var target *Error
	require.True(t, errors.As(err, &target))
	assert.Equal(t, TypeValidation, target.Type)
}

func TestAsStructuredErrorWithStructuredError(t *testing.T) {
	original := ValidationError("original")
	assert.Equal(t, original, AsStructuredError(original))
}

func TestAsStructuredErrorWithStandardError(t *testing.T) {
	original := fmt.Errorf("standard error")
	result := AsStructuredError(original)

	require.NotNil(t, result)
	assert.Equal(t, TypeInternal, result.Type)
	assert.Equal(t, "internal server error", result.Message)
	assert.Equal(t, original, result.Cause)
}

func TestAsStructuredErrorWithNil(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))
}

func TestAsStructuredErrorWithWrappedStructuredError(t *testing.T) {
	original := NotFoundError("profile not found")
	wrapped := fmt.Errorf("wrapped: %w", original)

	result := AsStructuredError(wrapped)

	require.NotNil(t, result)
	assert.Equal(t, TypeNotFound, result.Type)
	assert.Equal(t, "profile not found", result.Message)
}

func TestHTTPStatusAllTypes(t *testing.T) {
	tests := []struct {
		name       string
		errorType  ErrorType
		wantStatus int
	}{
		{"validation", TypeValidation, http.StatusBadRequest},
		{"unauthorized", TypeUnauthorized, http.StatusUnauthorized},
		{"not_found", TypeNotFound, http.StatusNotFound},
		{"internal", TypeInternal, http.StatusInternalServerError},
		{"external", TypeExternal, http.StatusBadGateway},
		{"unknown", ErrorType("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &Error{Type: tt.errorType}
			assert.Equal(t, tt.wantStatus, err.HTTPStatus())
		})
	}
}
