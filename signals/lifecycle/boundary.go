package lifecycle

import (
	"context"

	"github.com/halcyonlabs/lib-signals/v2/signals/signal"
)

// Boundary resolves the caller's ambient transaction handle.
//
// It reports the transaction the calling code is currently operating in, or
// nil when no transaction is active. Implementations must not begin a new
// transaction to satisfy the call.
type Boundary interface {
	CurrentTx(ctx context.Context) signal.Tx
}

type txContextKey struct{}

// ContextWithTx returns a child context carrying the given transaction
// handle. The handle is explicit context state scoped to the request, not a
// process-global ambient transaction.
func ContextWithTx(ctx context.Context, tx signal.Tx) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext reports the transaction handle carried by ctx, if any.
func TxFromContext(ctx context.Context) (signal.Tx, bool) {
	if ctx == nil {
		return nil, false
	}

	tx, ok := ctx.Value(txContextKey{}).(signal.Tx)
	if !ok || tx == nil {
		return nil, false
	}

	return tx, true
}

// ContextBoundary is a Boundary that resolves the transaction handle placed
// on the context with ContextWithTx.
type ContextBoundary struct{}

// CurrentTx implements Boundary.
func (ContextBoundary) CurrentTx(ctx context.Context) signal.Tx {
	tx, _ := TxFromContext(ctx)

	return tx
}
