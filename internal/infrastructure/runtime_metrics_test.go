package infrastructure

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRuntimeMetrics(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	rm, err := RegisterRuntimeMetrics(providers.Meter, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rm.Uptime(), time.Minute)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	for _, name := range []string{
		"runtime_goroutines",
		"runtime_heap_alloc_bytes",
		"runtime_memory_sys_bytes",
		"runtime_gc_cycles",
		"process_uptime_seconds",
	} {
		assert.Contains(t, string(body), name)
	}

	require.NoError(t, rm.Unregister())

	var nilMetrics *RuntimeMetrics
	assert.NoError(t, nilMetrics.Unregister())
}
