package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	libSignals "github.com/halcyonlabs/lib-signals/v2/signals"
	"github.com/halcyonlabs/lib-signals/v2/signals/internal/nilcheck"
	libLog "github.com/halcyonlabs/lib-signals/v2/signals/log"
	"github.com/halcyonlabs/lib-signals/v2/signals/signal"
)

const (
	defaultTableName       = "signal_audit"
	maxSQLIdentifierLength = 63

	auditColumns = "id, signal_name, subject_type, subject_ref, payload, recorded_at"
)

var (
	ErrSignalRequired      = errors.New("audit signal is required")
	ErrTransactionRequired = errors.New("audit requires an active transaction handle")
	ErrInvalidTableName    = errors.New("invalid audit table name")

	identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// Referencer lets subjects expose a stable identifier for audit rows.
type Referencer interface {
	AuditRef() string
}

// Trail is a signal.Listener that inserts one audit row per dispatched
// signal through the signal's transaction handle.
type Trail struct {
	table  string
	logger libLog.Logger
}

var _ signal.Listener = (*Trail)(nil)

// Option configures a Trail.
type Option func(*Trail)

// WithTable overrides the audit table name.
func WithTable(table string) Option {
	return func(trail *Trail) {
		trail.table = table
	}
}

// WithLogger sets the trail's logger.
func WithLogger(logger libLog.Logger) Option {
	return func(trail *Trail) {
		if nilcheck.Interface(logger) {
			return
		}

		trail.logger = logger
	}
}

// NewTrail creates an audit trail listener.
func NewTrail(opts ...Option) (*Trail, error) {
	trail := &Trail{
		table:  defaultTableName,
		logger: libLog.NewNop(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(trail)
		}
	}

	trail.table = strings.TrimSpace(trail.table)

	if err := validateIdentifier(trail.table); err != nil {
		return nil, err
	}

	return trail, nil
}

// Handle implements signal.Listener. The insert runs on the signal's own
// transaction handle, so it is undone if the caller rolls back.
func (trail *Trail) Handle(ctx context.Context, sig *signal.Signal) error {
	if trail == nil {
		return ErrSignalRequired
	}

	if sig == nil {
		return ErrSignalRequired
	}

	if sig.Tx == nil {
		return ErrTransactionRequired
	}

	if ctx == nil {
		ctx = context.Background()
	}

	_, tracer := libSignals.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "audit.record_signal")
	defer span.End()

	payload, err := marshalPayload(sig.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	recordedAt := sig.OccurredAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	query := "INSERT INTO " + quoteIdentifier(trail.table) +
		" (" + auditColumns + ") VALUES ($1, $2, $3, $4, $5, $6)"

	_, err = sig.Tx.ExecContext(ctx, query,
		uuid.New(),
		string(sig.Name),
		subjectType(sig.Subject),
		subjectRef(sig.Subject),
		payload,
		recordedAt,
	)
	if err != nil {
		trail.logger.Log(ctx, libLog.LevelError, "failed to record audit row",
			libLog.String("signal", string(sig.Name)),
			libLog.Err(err),
		)

		return fmt.Errorf("insert audit row: %w", err)
	}

	return nil
}

// CountBySignal reports the number of audit rows recorded for one signal
// name. The querier may be a *sql.DB or a *sql.Tx; counting through the
// transaction that wrote the rows lets callers observe them before commit.
func (trail *Trail) CountBySignal(ctx context.Context, querier Querier, name signal.Name) (int64, error) {
	if trail == nil {
		return 0, ErrSignalRequired
	}

	if nilcheck.Interface(querier) {
		return 0, ErrTransactionRequired
	}

	if ctx == nil {
		ctx = context.Background()
	}

	query := "SELECT COUNT(*) FROM " + quoteIdentifier(trail.table) + " WHERE signal_name = $1"

	var count int64
	if err := querier.QueryRowContext(ctx, query, string(name)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit rows: %w", err)
	}

	return count, nil
}

// Querier is the minimal read surface shared by *sql.DB and *sql.Tx.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func marshalPayload(payload map[string]any) ([]byte, error) {
	if len(payload) == 0 {
		return []byte("{}"), nil
	}

	return json.Marshal(payload)
}

func subjectType(subject any) string {
	if subject == nil {
		return ""
	}

	return fmt.Sprintf("%T", subject)
}

func subjectRef(subject any) string {
	if referencer, ok := subject.(Referencer); ok {
		return referencer.AuditRef()
	}

	return ""
}

func validateIdentifier(identifier string) error {
	if identifier == "" || len(identifier) > maxSQLIdentifierLength {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, identifier)
	}

	if !identifierPattern.MatchString(identifier) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, identifier)
	}

	return nil
}

func quoteIdentifier(identifier string) string {
	return `"` + identifier + `"`
}
