package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewSystemError(ErrCodePersistenceFailure, "failed to insert chunks").WithCause(cause)

	assert.Equal(t, "failed to insert chunks: connection refused", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestRetryableClassification(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retryable bool
	}{
		{ErrCodeSourceFileMissing, false},
		{ErrCodeDuplicateDocument, false},
		{ErrCodeInvalidFileFormat, false},
		{ErrCodeEmbeddingUnavailable, true},
		{ErrCodePersistenceFailure, true},
		{ErrCodeRetrievalFailure, true},
		{ErrCodeInternalServer, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := NewBusinessError(tt.code, "msg")
			assert.Equal(t, tt.retryable, err.Retryable())
		})
	}
}

func TestHTTPCodeMapping(t *testing.T) {
	assert.Equal(t, http.StatusOK, NewBusinessError(ErrCodeDuplicateDocument, "exists").HTTPCode)
	assert.Equal(t, http.StatusNotFound, NewNotFoundError("document").HTTPCode)
	assert.Equal(t, http.StatusBadRequest, NewValidationError("bad input").HTTPCode)
	assert.Equal(t, http.StatusBadGateway, NewExternalError(ErrCodeEmbeddingUnavailable, "down").HTTPCode)
	assert.Equal(t, http.StatusInternalServerError, NewSystemError(ErrCodePersistenceFailure, "db").HTTPCode)
	assert.Equal(t, http.StatusRequestEntityTooLarge, NewBusinessError(ErrCodeFileTooLarge, "too big").HTTPCode)
}

func TestGetAppErrorWrapsForeignErrors(t *testing.T) {
	plain := errors.New("something broke")
	appErr := GetAppError(plain)

	require.NotNil(t, appErr)
	assert.Equal(t, ErrCodeInternalServer, appErr.Code)
	assert.Equal(t, plain, appErr.Cause)
}

func TestGetAppErrorThroughWrapping(t *testing.T) {
	inner := NewBusinessError(ErrCodeDuplicateDocument, "document already exists")
	wrapped := fmt.Errorf("ingest: %w", inner)

	appErr := GetAppError(wrapped)
	assert.Equal(t, ErrCodeDuplicateDocument, appErr.Code)
	assert.True(t, HasCode(wrapped, ErrCodeDuplicateDocument))
	assert.False(t, HasCode(wrapped, ErrCodeSourceFileMissing))
}

func TestIsAppError(t *testing.T) {
	assert.True(t, IsAppError(NewValidationError("x")))
	assert.False(t, IsAppError(errors.New("x")))
	assert.False(t, IsAppError(nil))
}

func TestNotFoundErrorMessage(t *testing.T) {
	err := NewNotFoundError("task")
	assert.Equal(t, "task not found", err.Message)
	assert.Equal(t, ErrCodeResourceNotFound, err.Code)
}
