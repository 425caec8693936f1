package runtime

import (
	"fmt"
	"runtime/debug"
)

// PanicError wraps a recovered panic value together with the component and
// operation that recovered it.
type PanicError struct {
	Component string
	Operation string
	Value     any
	Stack     []byte
}

// Error returns the formatted panic description.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s.%s: %v", e.Component, e.Operation, e.Value)
}

// RecoverTo converts a panic on the current goroutine into a *PanicError
// assigned to errp. It must be called via defer:
//
//	defer runtime.RecoverTo(&err, "signal", "invoke_listener")
//
// When no panic occurred, errp is left untouched.
func RecoverTo(errp *error, component, operation string) {
	recovered := recover()
	if recovered == nil {
		return
	}

	if errp == nil {
		panic(recovered)
	}

	*errp = &PanicError{
		Component: component,
		Operation: operation,
		Value:     recovered,
		Stack:     debug.Stack(),
	}
}
