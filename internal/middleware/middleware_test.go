package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "costcompare/internal/errors"
	"costcompare/internal/infrastructure"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testErrorHandler() *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(discardLogger(), false)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

func TestRequestID(t *testing.T) {
	var seenReqID, seenTraceID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenReqID = GetReqID(r.Context())
		seenTraceID = infrastructure.GetTraceID(r.Context())
	}))

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Len(t, seenReqID, 36)
		assert.Equal(t, seenReqID, seenTraceID)
		assert.Equal(t, seenReqID, w.Header().Get(RequestIDHeader))
	})

	t.Run("keeps incoming id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, "abc-123", seenReqID)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})

	assert.Empty(t, GetReqID(context.Background()))
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestID(StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	r := httptest.NewRequest(http.MethodGet, "/api/states/ZZ/costs", nil)
	r.Header.Set(RequestIDHeader, "req-1")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "/api/states/ZZ/costs", entry["path"])
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, discardLogger(), testErrorHandler())
	handler := rl.Handler(okHandler())

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/states", nil))
		codes[i] = w.Code
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
			assert.Contains(t, w.Body.String(), apierrors.TypeRateLimit)
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestTimeout(t *testing.T) {
	t.Run("handler gives up", func(t *testing.T) {
		slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})
		w := httptest.NewRecorder()
		Timeout(10*time.Millisecond, discardLogger(), testErrorHandler())(slow).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Contains(t, w.Body.String(), apierrors.TypeTimeout)
	})

	t.Run("fast handler", func(t *testing.T) {
		w := httptest.NewRecorder()
		Timeout(time.Second, discardLogger(), testErrorHandler())(okHandler()).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestOTelMiddleware(t *testing.T) {
	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	m, err := NewOTelMiddleware(providers.Tracer, metrics)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(m.Handler)
	router.Get("/api/states/{state}/costs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/states/CA/costs", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, `route="/api/states/{state}/costs"`)
	assert.Contains(t, body, `status_code="418"`)

	_, err = NewOTelMiddleware(nil, metrics)
	assert.Error(t, err)
	_, err = NewOTelMiddleware(providers.Tracer, nil)
	assert.Error(t, err)
}

func TestGetRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1:1234", GetRealIP(r))

	r.Header.Set("X-Real-IP", "192.168.1.2")
	assert.Equal(t, "192.168.1.2", GetRealIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", GetRealIP(r))
}

type compareBody struct {
	State       string `json:"state" validate:"required,max=64,lookupkey"`
	Nationality string `json:"nationality" validate:"required,max=64,lookupkey"`
}

func TestValidator_DecodeJSON(t *testing.T) {
	v := NewValidator(discardLogger())

	tests := []struct {
		name       string
		body       string
		wantCode   string
		wantFields []string
	}{
		{name: "valid", body: `{"state":"CA","nationality":"Germany"}`},
		{name: "missing nationality", body: `{"state":"CA"}`, wantCode: "VALIDATION_FAILED", wantFields: []string{"nationality"}},
		{name: "blank state", body: `{"state":"  ","nationality":"Germany"}`, wantCode: "VALIDATION_FAILED", wantFields: []string{"state"}},
		{name: "control character", body: `{"state":"C\u0001A","nationality":"Germany"}`, wantCode: "VALIDATION_FAILED", wantFields: []string{"state"}},
		{name: "too long", body: `{"state":"` + strings.Repeat("x", 65) + `","nationality":"Germany"}`, wantCode: "VALIDATION_FAILED", wantFields: []string{"state"}},
		{name: "malformed json", body: `{"state":`, wantCode: "INVALID_REQUEST"},
		{name: "empty body", body: ``, wantCode: "INVALID_REQUEST"},
		{name: "unknown field", body: `{"state":"CA","nationality":"Germany","extra":1}`, wantCode: "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/compare", strings.NewReader(tt.body))
			var body compareBody
			err := v.DecodeJSON(r, &body)

			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, "CA", body.State)
				return
			}

			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

			if tt.wantFields != nil {
				details, ok := apiErr.Details.(apierrors.ValidationErrors)
				require.True(t, ok)
				var fields []string
				for _, e := range details.Errors {
					fields = append(fields, e.Field)
				}
				assert.Equal(t, tt.wantFields, fields)
			}
		})
	}
}

func TestContentTypeValidator(t *testing.T) {
	handler := ContentTypeValidator(testErrorHandler(), "application/json")(okHandler())

	r := httptest.NewRequest(http.MethodPost, "/api/compare", strings.NewReader("state=CA"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/api/compare", strings.NewReader("{}"))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/compare", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQueryParamValidator(t *testing.T) {
	v := NewQueryParamValidator(testErrorHandler())

	t.Run("ValidateInt", func(t *testing.T) {
		tests := []struct {
			query  string
			want   int
			wantOK bool
		}{
			{query: "", want: 20, wantOK: true},
			{query: "limit=5", want: 5, wantOK: true},
			{query: "limit=abc", wantOK: false},
			{query: "limit=0", wantOK: false},
			{query: "limit=1000", wantOK: false},
		}
		for _, tt := range tests {
			w := httptest.NewRecorder()
			got, ok := v.ValidateInt(w, httptest.NewRequest(http.MethodGet, "/api/loads?"+tt.query, nil), "limit", 1, 500, 20)
			assert.Equal(t, tt.wantOK, ok, tt.query)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		}
	})

	t.Run("RequireQuery", func(t *testing.T) {
		w := httptest.NewRecorder()
		values, ok := v.RequireQuery(w, httptest.NewRequest(http.MethodGet, "/api/compare?state=CA&nationality=%20", nil), "state", "nationality")
		assert.False(t, ok)
		assert.Nil(t, values)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"field":"nationality"`)
		assert.NotContains(t, w.Body.String(), `"field":"state"`)

		w = httptest.NewRecorder()
		values, ok = v.RequireQuery(w, httptest.NewRequest(http.MethodGet, "/api/compare?state=CA&nationality=Germany", nil), "state", "nationality")
		assert.True(t, ok)
		assert.Equal(t, []string{"CA", "Germany"}, values)
	})
}
