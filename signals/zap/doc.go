// Package zap adapts go.uber.org/zap to the lib-signals log.Logger interface.
//
// Log entries emitted with a context carrying an active OpenTelemetry span are
// enriched with trace_id and span_id fields so they correlate with traces.
package zap
