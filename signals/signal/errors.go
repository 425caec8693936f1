package signal

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrListenerRequired     = errors.New("signal listener is required")
	ErrNameRequired         = errors.New("signal name is required")
	ErrRegistryRequired     = errors.New("signal registry is required")
	ErrDispatcherRequired   = errors.New("signal dispatcher is required")
	ErrRegistryInconsistent = errors.New("signal registry observed an inconsistent listener list")
)

// ListenerError reports a listener failure during dispatch. It identifies the
// failing listener by its ordinal position within the matched set and by its
// subscription id, and wraps the original cause.
type ListenerError struct {
	Name           Name
	Ordinal        int
	SubscriptionID uuid.UUID
	Err            error
}

// Error returns the formatted listener error string.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %d for signal %q failed: %v", e.Ordinal, e.Name, e.Err)
}

// Unwrap returns the wrapped cause.
func (e *ListenerError) Unwrap() error {
	return e.Err
}
