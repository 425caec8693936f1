package signal

import (
	"go.opentelemetry.io/otel/metric"
)

// ErrorPolicy controls how the dispatcher reacts to a listener failure.
type ErrorPolicy int

const (
	// FailFast stops invoking subsequent listeners at the first failure and
	// propagates a *ListenerError. This is the default.
	FailFast ErrorPolicy = iota
	// ContinueOnError keeps invoking the remaining listeners and returns the
	// joined listener errors after the fan-out completes.
	ContinueOnError
)

// Config controls dispatcher error handling and metric behavior.
type Config struct {
	// ErrorPolicy selects the failure policy for listener errors.
	ErrorPolicy ErrorPolicy
	// MeterProvider overrides the default global meter provider when set.
	MeterProvider metric.MeterProvider
}

// DefaultConfig returns the baseline dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		ErrorPolicy:   FailFast,
		MeterProvider: nil,
	}
}

func (cfg *Config) normalize() {
	if cfg.ErrorPolicy != FailFast && cfg.ErrorPolicy != ContinueOnError {
		cfg.ErrorPolicy = FailFast
	}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithErrorPolicy selects the listener failure policy.
func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(dispatcher *Dispatcher) {
		dispatcher.cfg.ErrorPolicy = policy
	}
}

// WithMeterProvider overrides the meter provider used for dispatch metrics.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(dispatcher *Dispatcher) {
		dispatcher.cfg.MeterProvider = provider
	}
}
