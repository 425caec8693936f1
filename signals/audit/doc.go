// Package audit provides a ready-made signal listener that records an audit
// row for every dispatched signal, using the signal's own transaction handle.
//
// Because rows are written through the caller's transaction, the audit trail
// commits and rolls back as a unit with the caller's writes.
package audit
