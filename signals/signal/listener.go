package signal

import "context"

// Listener receives dispatched signals.
//
// Returning an error stops the remaining fan-out for that dispatch call under
// the default fail-fast policy.
type Listener interface {
	Handle(ctx context.Context, sig *Signal) error
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(ctx context.Context, sig *Signal) error

// Handle implements Listener.
func (f ListenerFunc) Handle(ctx context.Context, sig *Signal) error {
	return f(ctx, sig)
}

// Filter restricts which subjects a listener cares about. A nil Filter
// matches every subject.
type Filter func(subject any) bool

// ForSubject returns a Filter accepting only subjects of type T.
func ForSubject[T any]() Filter {
	return func(subject any) bool {
		_, ok := subject.(T)

		return ok
	}
}

func (f Filter) matches(subject any) bool {
	if f == nil {
		return true
	}

	return f(subject)
}
