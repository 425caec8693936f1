package signal

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	libSignals "github.com/halcyonlabs/lib-signals/v2/signals"
	"github.com/halcyonlabs/lib-signals/v2/signals/internal/nilcheck"
	libLog "github.com/halcyonlabs/lib-signals/v2/signals/log"
	libRuntime "github.com/halcyonlabs/lib-signals/v2/signals/runtime"
)

// Dispatcher performs synchronous, transaction-aware signal fan-out.
//
// Dispatch runs every matching listener on the calling goroutine, in
// registration order, and returns only after the last listener has completed.
// No goroutines, queues or deferred tasks are involved: a listener that
// blocks, blocks the caller.
type Dispatcher struct {
	registry *Registry
	logger   libLog.Logger
	tracer   trace.Tracer
	cfg      Config

	metrics dispatcherMetrics
}

// NewDispatcher creates a dispatcher bound to the given registry.
func NewDispatcher(
	registry *Registry,
	logger libLog.Logger,
	tracer trace.Tracer,
	opts ...Option,
) (*Dispatcher, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	if nilcheck.Interface(logger) {
		logger = libLog.NewNop()
	}

	if nilcheck.Interface(tracer) {
		tracer = noop.NewTracerProvider().Tracer("signals.noop")
	}

	dispatcher := &Dispatcher{
		registry: registry,
		logger:   logger,
		tracer:   tracer,
		cfg:      DefaultConfig(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(dispatcher)
		}
	}

	dispatcher.cfg.normalize()

	metrics, err := newDispatcherMetrics(dispatcher.cfg.MeterProvider)
	if err != nil {
		return nil, err
	}

	dispatcher.metrics = metrics

	return dispatcher, nil
}

// Registry returns the registry this dispatcher reads listeners from.
func (dispatcher *Dispatcher) Registry() *Registry {
	if dispatcher == nil {
		return nil
	}

	return dispatcher.registry
}

// Dispatch invokes every listener registered for name whose filter accepts
// subject, in registration order, on the calling goroutine.
//
// The tx handle is threaded through to each listener unchanged; the
// dispatcher never begins, commits or rolls back a transaction. Each listener
// is invoked at most once per call. Under the default fail-fast policy the
// first listener error (or panic, converted to an error) stops the remaining
// fan-out and is returned wrapped in a *ListenerError identifying the failing
// listener's ordinal position. The caller decides whether that error aborts
// its transaction.
func (dispatcher *Dispatcher) Dispatch(
	ctx context.Context,
	name Name,
	subject any,
	payload map[string]any,
	tx Tx,
) (Result, error) {
	if dispatcher == nil || dispatcher.registry == nil {
		return Result{}, ErrDispatcherRequired
	}

	if name == "" {
		return Result{}, ErrNameRequired
	}

	if ctx == nil {
		ctx = context.Background()
	}

	logger, tracer := dispatcher.tracking(ctx)

	start := time.Now().UTC()

	ctx, span := tracer.Start(ctx, "signal.dispatch")
	defer span.End()

	span.SetAttributes(attribute.String("signal.name", string(name)))

	matched := dispatcher.registry.ListenersFor(name, subject)
	if err := verifyRegistrationOrder(matched); err != nil {
		span.SetAttributes(attribute.Bool("signal.registry_inconsistent", true))

		return Result{Matched: len(matched)}, err
	}

	sig := &Signal{
		Name:       name,
		Subject:    subject,
		Payload:    payload,
		Tx:         tx,
		OccurredAt: start,
	}

	result := Result{Matched: len(matched)}

	var joined []error

	for ordinal, subscription := range matched {
		err := dispatcher.invoke(ctx, subscription, sig)
		result.Invoked++

		if err == nil {
			dispatcher.metrics.addInvoked(ctx, 1)
			continue
		}

		dispatcher.metrics.addFailed(ctx, 1)

		listenerErr := &ListenerError{
			Name:           name,
			Ordinal:        ordinal,
			SubscriptionID: subscription.id,
			Err:            err,
		}

		logger.Log(ctx, libLog.LevelError, "signal listener failed",
			libLog.String("signal", string(name)),
			libLog.Int("ordinal", ordinal),
			libLog.String("subscription_id", subscription.id.String()),
			libLog.Err(err),
		)

		if dispatcher.cfg.ErrorPolicy == FailFast {
			dispatcher.finish(ctx, span, result, start)

			return result, listenerErr
		}

		joined = append(joined, listenerErr)
	}

	dispatcher.finish(ctx, span, result, start)

	return result, errors.Join(joined...)
}

// invoke runs one listener, converting a panic in the listener body into an
// error so a misbehaving listener cannot unwind the caller's write path.
func (dispatcher *Dispatcher) invoke(ctx context.Context, subscription *Subscription, sig *Signal) (err error) {
	defer libRuntime.RecoverTo(&err, "signal", "invoke_listener")

	return subscription.listener.Handle(ctx, sig)
}

func (dispatcher *Dispatcher) finish(ctx context.Context, span trace.Span, result Result, start time.Time) {
	span.SetAttributes(
		attribute.Int("signal.dispatch.matched", result.Matched),
		attribute.Int("signal.dispatch.invoked", result.Invoked),
	)

	dispatcher.metrics.recordLatency(ctx, time.Since(start).Seconds())
}

// tracking prefers telemetry components supplied on the context (the
// caller's request-scoped logger and tracer) over the dispatcher's own.
func (dispatcher *Dispatcher) tracking(ctx context.Context) (libLog.Logger, trace.Tracer) {
	bundle, ok := libSignals.TrackingFromContext(ctx)
	if !ok {
		return dispatcher.logger, dispatcher.tracer
	}

	logger := bundle.Logger
	if nilcheck.Interface(logger) {
		logger = dispatcher.logger
	}

	tracer := bundle.Tracer
	if nilcheck.Interface(tracer) {
		tracer = dispatcher.tracer
	}

	return logger, tracer
}

// verifyRegistrationOrder checks the snapshot invariant: sequence numbers
// must be strictly increasing. A violation means the registry lock discipline
// was broken and the dispatch must not proceed.
func verifyRegistrationOrder(matched []*Subscription) error {
	for i := 1; i < len(matched); i++ {
		if matched[i].seq <= matched[i-1].seq {
			return ErrRegistryInconsistent
		}
	}

	return nil
}

func (metrics dispatcherMetrics) addInvoked(ctx context.Context, count int64) {
	if metrics.listenersInvoked == nil || count <= 0 {
		return
	}

	metrics.listenersInvoked.Add(ctx, count)
}

func (metrics dispatcherMetrics) addFailed(ctx context.Context, count int64) {
	if metrics.listenersFailed == nil || count <= 0 {
		return
	}

	metrics.listenersFailed.Add(ctx, count)
}

func (metrics dispatcherMetrics) recordLatency(ctx context.Context, latencySeconds float64) {
	if metrics.dispatchLatency == nil {
		return
	}

	metrics.dispatchLatency.Record(ctx, latencySeconds)
}
