package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costcompare/internal/config"
	apierrors "costcompare/internal/errors"
	"costcompare/internal/shared/testutil"
)

const (
	salaryCSV = "Country,Salary\nGermany,60000\nIndia,500\n"
	costCSV   = "State,Cost\nCA,1000\nTX,1000\n"
	detailCSV = "case_id,state,isMetro,areaname,county,family_member_count,housing_cost,food_cost,transportation_cost,healthcare_cost,other_necessities_cost,childcare_cost,taxes\n" +
		"1,CA,TRUE,LA,LA County,1p0c,100,200,300,400,500,600,700\n"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := testutil.WriteReferenceData(t, map[string]string{
		testutil.SalaryFile: salaryCSV,
		testutil.CostFile:   costCSV,
		testutil.DetailFile: detailCSV,
	})

	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.RequestTimeout = 5 * time.Second
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Security.RateLimit.Enabled = false
	cfg.Data.Dir = dir
	cfg.Store.Path = filepath.Join(dir, "history", "loads.db")
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { a.release(context.Background()) })
	return a
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]interface{}
	if strings.Contains(w.Header().Get("Content-Type"), "json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestApplication_Compare(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	w, body := get(t, a.Router, "/api/compare?state=ca&nationality=germany")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ca", body["state"])
	assert.Equal(t, float64(60), body["ratio"])
	assert.Equal(t, true, body["affordable"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	breakdown, ok := body["cost_breakdown"].([]interface{})
	require.True(t, ok)
	assert.Len(t, breakdown, 7)

	w, body = get(t, a.Router, "/api/compare?state=CA&nationality=India")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["affordable"])
	assert.Equal(t, float64(500), body["shortfall"])

	w, body = get(t, a.Router, "/api/compare?state=ZZ&nationality=Atlantis")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierrors.TypeKeysNotFound, body["type"])
	assert.Equal(t, w.Header().Get("X-Request-ID"), body["trace_id"])
}

func TestApplication_Routes(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	w, body := get(t, a.Router, "/api/states")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"CA", "TX"}, body["data"])

	w, body = get(t, a.Router, "/api/countries")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"GERMANY", "INDIA"}, body["data"])

	w, body = get(t, a.Router, "/api/states/ca/costs")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["categories"], 7)

	w, body = get(t, a.Router, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Len(t, body["tables"], 3)

	w, body = get(t, a.Router, "/api/loads")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), body["count"])

	w, body = get(t, a.Router, "/api/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierrors.TypeNotFound, body["type"])

	w, _ = get(t, a.Router, "/api/compare?state=TX&nationality=India")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = get(t, a.Router, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "comparison_requests_total")
	assert.Contains(t, w.Body.String(), "pipeline_rows_total")
	assert.Contains(t, w.Body.String(), "runtime_goroutines")
}

func TestApplication_StoreDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Enabled = false
	a := newTestApp(t, cfg)

	assert.Nil(t, a.Store)
	w, _ := get(t, a.Router, "/api/loads")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestApplication_RateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1}
	a := newTestApp(t, cfg)

	w, _ := get(t, a.Router, "/api/states")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = get(t, a.Router, "/api/states")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestNew_MissingDataFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.Data.Dir, cfg.Data.CostFile)))

	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "invalid reference data")
	assert.Contains(t, err.Error(), "cost_of_living.csv does not exist")
}

func TestNew_StartupLogs(t *testing.T) {
	cfg := testConfig(t)
	logger, logs := testutil.NewTestLogger(t)

	a, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.release(context.Background()) })

	testutil.AssertLogged(t, logs, slog.LevelInfo, "Application starting")
	testutil.AssertLogged(t, logs, slog.LevelInfo, "Reference data files validated")
	r := testutil.AssertLogged(t, logs, slog.LevelInfo, "Load history store opened")
	assert.Equal(t, cfg.Store.Path, r.Attrs["path"])
	testutil.AssertNoErrors(t, logs)
}

func TestApplication_StartStop(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, a.Start(ctx, cancel))
	time.Sleep(50 * time.Millisecond)
	assert.NoError(t, a.Stop(context.Background()))
	assert.NoError(t, ctx.Err(), "a clean shutdown does not cancel the context")
}

func TestApplication_PanicHidesStackByDefault(t *testing.T) {
	cfg := testConfig(t)
	require.Equal(t, "production", cfg.Telemetry.Environment)
	a := newTestApp(t, cfg)
	a.Router.Get("/api/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	w, body := get(t, a.Router, "/api/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, body, "stack")
	assert.NotContains(t, body, "panic")
}
