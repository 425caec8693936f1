package lifecycle

import (
	"context"
	"fmt"

	"github.com/halcyonlabs/lib-signals/v2/signals/internal/nilcheck"
	libLog "github.com/halcyonlabs/lib-signals/v2/signals/log"
	"github.com/halcyonlabs/lib-signals/v2/signals/signal"
)

// PersistFunc performs the subject's own write inside the given transaction.
type PersistFunc func(ctx context.Context, tx signal.Tx) error

// Writer is the subject lifecycle host: it wraps a persistence write with the
// before-write and after-write signal dispatches, all inside the one
// transaction scope the caller owns.
type Writer struct {
	dispatcher *signal.Dispatcher
	boundary   Boundary
	logger     libLog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithLogger sets the writer's logger.
func WithLogger(logger libLog.Logger) WriterOption {
	return func(writer *Writer) {
		if nilcheck.Interface(logger) {
			return
		}

		writer.logger = logger
	}
}

// WithBoundary sets the transaction boundary used to resolve the ambient
// transaction. Defaults to ContextBoundary.
func WithBoundary(boundary Boundary) WriterOption {
	return func(writer *Writer) {
		if nilcheck.Interface(boundary) {
			return
		}

		writer.boundary = boundary
	}
}

// NewWriter creates a lifecycle writer bound to the given dispatcher.
func NewWriter(dispatcher *signal.Dispatcher, opts ...WriterOption) (*Writer, error) {
	if dispatcher == nil {
		return nil, ErrDispatcherRequired
	}

	writer := &Writer{
		dispatcher: dispatcher,
		boundary:   ContextBoundary{},
		logger:     libLog.NewNop(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(writer)
		}
	}

	return writer, nil
}

// Write runs the full lifecycle for one subject write:
//
//  1. dispatch the before-write signal (listeners may still mutate subject),
//  2. run persist with the ambient transaction,
//  3. dispatch the after-write signal inside the same transaction.
//
// Each step blocks the caller until it completes; a failure at any step
// fails fast and skips the remaining steps. The caller decides whether a
// returned error aborts its transaction — Write never rolls back.
func (writer *Writer) Write(
	ctx context.Context,
	subject any,
	payload map[string]any,
	persist PersistFunc,
) error {
	if writer == nil || writer.dispatcher == nil {
		return ErrDispatcherRequired
	}

	if subject == nil {
		return ErrSubjectRequired
	}

	if persist == nil {
		return ErrPersistFuncRequired
	}

	if ctx == nil {
		ctx = context.Background()
	}

	tx := writer.boundary.CurrentTx(ctx)

	if _, err := writer.dispatcher.Dispatch(ctx, signal.BeforeWrite, subject, payload, tx); err != nil {
		return fmt.Errorf("before-write dispatch: %w", err)
	}

	if err := persist(ctx, tx); err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	result, err := writer.dispatcher.Dispatch(ctx, signal.AfterWrite, subject, payload, tx)
	if err != nil {
		return fmt.Errorf("after-write dispatch: %w", err)
	}

	if writer.logger.Enabled(libLog.LevelDebug) {
		writer.logger.Log(ctx, libLog.LevelDebug, "subject write completed",
			libLog.Int("after_write_listeners", result.Invoked),
		)
	}

	return nil
}
