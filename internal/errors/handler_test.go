package errors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costcompare/internal/comparison"
	"costcompare/internal/dataprocessing"
	"costcompare/internal/infrastructure"
)

func newTestHandler(includeStack bool) (*ErrorHandler, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewErrorHandler(logger, includeStack), &buf
}

func decodeProblem(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestErrorHandler_ErrorToProblem(t *testing.T) {
	h, _ := newTestHandler(false)

	bothMissing := errors.Join(
		fmt.Errorf("%w: %q", comparison.ErrStateNotFound, "ZZ"),
		fmt.Errorf("%w: %q", comparison.ErrNationalityNotFound, "Atlantis"),
	)

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantType    string
		wantMissing []interface{}
	}{
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "api error",
			err:        MissingParameter("state"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "blank key",
			err:        fmt.Errorf("%w: state", comparison.ErrMissingKey),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:        "state not found",
			err:         fmt.Errorf("%w: %q", comparison.ErrStateNotFound, "ZZ"),
			wantStatus:  http.StatusNotFound,
			wantType:    TypeStateNotFound,
			wantMissing: []interface{}{"state"},
		},
		{
			name:        "nationality not found",
			err:         fmt.Errorf("%w: %q", comparison.ErrNationalityNotFound, "Atlantis"),
			wantStatus:  http.StatusNotFound,
			wantType:    TypeNationalityNotFound,
			wantMissing: []interface{}{"nationality"},
		},
		{
			name:        "both not found",
			err:         bothMissing,
			wantStatus:  http.StatusNotFound,
			wantType:    TypeKeysNotFound,
			wantMissing: []interface{}{"state", "nationality"},
		},
		{
			name:       "invalid cost",
			err:        fmt.Errorf("compare NY: %w", comparison.ErrInvalidCost),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeInvalidData,
		},
		{
			name:       "dataset not loaded",
			err:        comparison.ErrDatasetNotLoaded,
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeDataUnavailable,
		},
		{
			name:       "source unavailable",
			err:        &dataprocessing.SourceError{Source: "costs.csv", Err: errors.New("no such file")},
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeDataUnavailable,
		},
		{
			name:       "app storage error",
			err:        NewStorageError("history unavailable", errors.New("locked")),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeServiceDown,
		},
		{
			name:       "app not found",
			err:        NewNotFoundError("load"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/compare", nil)
			problem := h.ErrorToProblem(tt.err, r)

			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/compare", problem.Instance)

			if tt.wantMissing != nil {
				body, err := json.Marshal(problem)
				require.NoError(t, err)
				assert.Equal(t, tt.wantMissing, decodeProblem(t, body)["missing"])
			}
		})
	}
}

func TestErrorHandler_HandleError(t *testing.T) {
	h, logs := newTestHandler(false)

	r := httptest.NewRequest(http.MethodGet, "/api/compare?state=ZZ&nationality=Germany", nil)
	r = r.WithContext(infrastructure.WithTraceID(r.Context(), "trace-1"))
	w := httptest.NewRecorder()

	h.HandleError(w, r, fmt.Errorf("%w: %q", comparison.ErrStateNotFound, "ZZ"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeProblem(t, w.Body.Bytes())
	assert.Equal(t, TypeStateNotFound, body["type"])
	assert.Equal(t, "State Not Found", body["title"])
	assert.Equal(t, float64(http.StatusNotFound), body["status"])
	assert.Equal(t, "trace-1", body["trace_id"])
	assert.Contains(t, body["detail"], "ZZ")

	assert.Contains(t, logs.String(), `"level":"WARN"`)
	assert.Contains(t, logs.String(), "request failed")
}

func TestErrorHandler_HandleError_Nil(t *testing.T) {
	h, logs := newTestHandler(false)
	w := httptest.NewRecorder()

	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Empty(t, logs.String())
}

func TestErrorHandler_StackOnlyForServerErrors(t *testing.T) {
	h, _ := newTestHandler(true)

	w := httptest.NewRecorder()
	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"))
	assert.Contains(t, decodeProblem(t, w.Body.Bytes()), "stack")

	w = httptest.NewRecorder()
	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), ErrMissingParameter)
	assert.NotContains(t, decodeProblem(t, w.Body.Bytes()), "stack")
}

func TestRecoveryMiddleware(t *testing.T) {
	h, logs := newTestHandler(false)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something went wrong")
	})

	w := httptest.NewRecorder()
	RecoveryMiddleware(h)(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/states", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeProblem(t, w.Body.Bytes())
	assert.Equal(t, TypeInternal, body["type"])
	assert.NotContains(t, body, "panic")
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(false)

	w := httptest.NewRecorder()
	h.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "/nope", decodeProblem(t, w.Body.Bytes())["instance"])

	w = httptest.NewRecorder()
	h.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/compare", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, decodeProblem(t, w.Body.Bytes())["detail"], "DELETE")
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	p := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad", "", "").
		WithExtension("status", 999).
		WithExtension("error_code", "X")

	data, err := json.Marshal(p)
	require.NoError(t, err)

	body := decodeProblem(t, data)
	assert.Equal(t, float64(http.StatusBadRequest), body["status"], "extensions never override standard members")
	assert.Equal(t, "X", body["error_code"])
	assert.NotContains(t, body, "detail")
	assert.NotContains(t, body, "instance")

	var zero ProblemDetails
	zero.WithExtension("k", "v")
	assert.Equal(t, "v", zero.Extensions["k"])
}
