package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics reports Go runtime gauges on every metrics collection.
type RuntimeMetrics struct {
	started time.Time

	goroutines   metric.Int64ObservableGauge
	heapAlloc    metric.Int64ObservableGauge
	memorySys    metric.Int64ObservableGauge
	gcCount      metric.Int64ObservableCounter
	uptime       metric.Float64ObservableGauge
	registration metric.Registration
}

// RegisterRuntimeMetrics creates the runtime instruments on meter and
// registers the callback that samples them. Call Unregister on shutdown.
func RegisterRuntimeMetrics(meter metric.Meter, started time.Time) (*RuntimeMetrics, error) {
	rm := &RuntimeMetrics{started: started}
	var err error

	if rm.goroutines, err = meter.Int64ObservableGauge(
		"runtime_goroutines",
		metric.WithDescription("Number of live goroutines"),
	); err != nil {
		return nil, err
	}

	if rm.heapAlloc, err = meter.Int64ObservableGauge(
		"runtime_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	if rm.memorySys, err = meter.Int64ObservableGauge(
		"runtime_memory_sys_bytes",
		metric.WithDescription("Memory obtained from the OS"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	if rm.gcCount, err = meter.Int64ObservableCounter(
		"runtime_gc_cycles",
		metric.WithDescription("Completed garbage collection cycles"),
	); err != nil {
		return nil, err
	}

	if rm.uptime, err = meter.Float64ObservableGauge(
		"process_uptime_seconds",
		metric.WithDescription("Seconds since the service started"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	rm.registration, err = meter.RegisterCallback(rm.observe,
		rm.goroutines, rm.heapAlloc, rm.memorySys, rm.gcCount, rm.uptime)
	if err != nil {
		return nil, err
	}
	return rm, nil
}

func (rm *RuntimeMetrics) observe(_ context.Context, o metric.Observer) error {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	o.ObserveInt64(rm.goroutines, int64(runtime.NumGoroutine()))
	o.ObserveInt64(rm.heapAlloc, int64(ms.HeapAlloc))
	o.ObserveInt64(rm.memorySys, int64(ms.Sys))
	o.ObserveInt64(rm.gcCount, int64(ms.NumGC))
	o.ObserveFloat64(rm.uptime, time.Since(rm.started).Seconds())
	return nil
}

// Uptime returns the time elapsed since the service started.
func (rm *RuntimeMetrics) Uptime() time.Duration {
	return time.Since(rm.started)
}

// Unregister stops sampling. It is safe on a nil receiver.
func (rm *RuntimeMetrics) Unregister() error {
	if rm == nil || rm.registration == nil {
		return nil
	}
	return rm.registration.Unregister()
}
