package signal

import (
	"database/sql"
	"time"
)

// Name identifies a lifecycle point a subject raises signals at.
type Name string

// Lifecycle signal names raised around a persistence write. BeforeWrite runs
// before the subject's state is persisted (listeners may still observe and
// mutate the in-memory subject); AfterWrite runs after the write but still
// inside the same transaction.
const (
	BeforeWrite Name = "before-write"
	AfterWrite  Name = "after-write"
)

// Tx is the transactional handle threaded through every dispatch.
//
// It intentionally aliases *sql.Tx so listeners can perform writes directly
// inside the caller's transaction without adapter layers. The dispatcher only
// passes the handle through; ownership (begin/commit/rollback) stays with the
// caller.
type Tx = *sql.Tx

// Signal is the per-dispatch value handed to every listener: the signal name,
// the subject that raised it, an arbitrary payload, and the caller's
// transaction handle. A Signal is created fresh for each dispatch call and
// must not be retained after the listener returns.
type Signal struct {
	Name       Name
	Subject    any
	Payload    map[string]any
	Tx         Tx
	OccurredAt time.Time
}

// Result reports the outcome of one dispatch call.
type Result struct {
	// Matched is the number of registered listeners whose filter accepted
	// the subject.
	Matched int
	// Invoked is the number of listeners actually run. Under the fail-fast
	// policy this stops counting at the first failure.
	Invoked int
}
