// Package signal implements a synchronous, transaction-aware signal
// dispatcher for persistence lifecycle events.
//
// A subject about to be written raises named signals (BeforeWrite,
// AfterWrite) through a Dispatcher. Registered listeners run on the caller's
// own goroutine, in registration order, and receive the caller's ambient
// database transaction handle so their persistent side effects commit or roll
// back together with the caller's writes. The dispatcher never begins,
// commits or rolls back a transaction itself.
package signal
