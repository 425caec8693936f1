package signals

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/halcyonlabs/lib-signals/v2/signals/internal/nilcheck"
	"github.com/halcyonlabs/lib-signals/v2/signals/log"
)

type trackingContextKey struct{}

// Tracking bundles the telemetry components a caller wants downstream
// library code to use.
type Tracking struct {
	Logger log.Logger
	Tracer trace.Tracer
}

// ContextWithTracking returns a child context carrying the given tracking
// bundle. Nil components are tolerated and resolved to no-ops on extraction.
func ContextWithTracking(ctx context.Context, tracking Tracking) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, trackingContextKey{}, tracking)
}

// TrackingFromContext reports the tracking bundle carried by ctx, if any.
func TrackingFromContext(ctx context.Context) (Tracking, bool) {
	if ctx == nil {
		return Tracking{}, false
	}

	tracking, ok := ctx.Value(trackingContextKey{}).(Tracking)

	return tracking, ok
}

// NewTrackingFromContext extracts the tracking bundle from ctx.
//
// It follows the fail-safe principle: missing or nil components resolve to a
// no-op logger and a no-op tracer, so callers never need nil checks.
func NewTrackingFromContext(ctx context.Context) (log.Logger, trace.Tracer) {
	if ctx == nil {
		return log.NewNop(), noopTracer()
	}

	tracking, ok := ctx.Value(trackingContextKey{}).(Tracking)
	if !ok {
		return log.NewNop(), noopTracer()
	}

	logger := tracking.Logger
	if nilcheck.Interface(logger) {
		logger = log.NewNop()
	}

	tracer := tracking.Tracer
	if nilcheck.Interface(tracer) {
		tracer = noopTracer()
	}

	return logger, tracer
}

//nolint:ireturn
func noopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("signals.noop")
}
