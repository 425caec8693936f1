// Package runtime provides execution-context introspection and panic
// recovery helpers.
//
// GoroutineID exposes the opaque identity of the current goroutine so callers
// can assert that a callback ran on the same goroutine as its trigger.
package runtime
