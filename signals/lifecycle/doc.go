// Package lifecycle hosts the write choreography around the signal
// dispatcher: dispatch before-write, persist, dispatch after-write, all
// against one caller-owned database transaction.
//
// The transaction handle is passed explicitly, either directly or through a
// Boundary resolved from the context; the package never begins, commits or
// rolls back the transaction.
package lifecycle
