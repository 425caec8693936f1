package signal

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type dispatcherMetrics struct {
	listenersInvoked metric.Int64Counter
	listenersFailed  metric.Int64Counter
	dispatchLatency  metric.Float64Histogram
}

func newDispatcherMetrics(provider metric.MeterProvider) (dispatcherMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	meter := provider.Meter("signals.signal.dispatcher")

	var (
		metrics dispatcherMetrics
		err     error
	)

	metrics.listenersInvoked, err = meter.Int64Counter(
		"signal.listeners.invoked",
		metric.WithDescription("Number of listener invocations completed successfully"),
		metric.WithUnit("{listener}"),
	)
	if err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create signal.listeners.invoked counter: %w", err)
	}

	metrics.listenersFailed, err = meter.Int64Counter(
		"signal.listeners.failed",
		metric.WithDescription("Number of listener invocations that returned an error or panicked"),
		metric.WithUnit("{listener}"),
	)
	if err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create signal.listeners.failed counter: %w", err)
	}

	metrics.dispatchLatency, err = meter.Float64Histogram(
		"signal.dispatch.latency",
		metric.WithDescription("Time taken per dispatch call including all listener execution"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create signal.dispatch.latency histogram: %w", err)
	}

	return metrics, nil
}
