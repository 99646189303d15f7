package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Render(t *testing.T) {
	tests := []struct {
		name       string
		apiError   *APIError
		wantStatus int
	}{
		{name: "bad request", apiError: ErrInvalidRequest, wantStatus: http.StatusBadRequest},
		{name: "not found", apiError: NotFoundError("state"), wantStatus: http.StatusNotFound},
		{name: "rate limit", apiError: ErrRateLimitExceeded, wantStatus: http.StatusTooManyRequests},
		{name: "unavailable", apiError: ErrServiceUnavailable, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			require.NoError(t, render.Render(w, r, tt.apiError))
			assert.Equal(t, tt.wantStatus, w.Code)

			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.apiError.ErrorCode, body.ErrorCode)
			assert.Equal(t, tt.apiError.Message, body.Message)
		})
	}
}

func TestMissingParameter(t *testing.T) {
	err := MissingParameter("state", "nationality")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "MISSING_PARAMETER", err.ErrorCode)
	details, ok := err.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, []ValidationError{
		{Field: "state", Message: "is required"},
		{Field: "nationality", Message: "is required"},
	}, details.Errors)
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("state")
	assert.Equal(t, "state not found", err.Error())
	assert.Equal(t, "state", err.Details)
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{{Field: "state", Message: "must be at most 64 characters"}})
	assert.Equal(t, "VALIDATION_FAILED", err.ErrorCode)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
}

func TestInvalidRequestWithError(t *testing.T) {
	err := InvalidRequestWithError(assert.AnError)
	assert.Equal(t, assert.AnError.Error(), err.Details)
	assert.Equal(t, "INVALID_REQUEST", err.ErrorCode)
}
