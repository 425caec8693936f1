//go:build integration

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/halcyonlabs/lib-signals/v2/signals/lifecycle"
	libPostgres "github.com/halcyonlabs/lib-signals/v2/signals/postgres"
	"github.com/halcyonlabs/lib-signals/v2/signals/signal"
)

func setupPostgresContainer(t *testing.T) (string, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	return connStr, func() {
		require.NoError(t, container.Terminate(ctx))
	}
}

func setupFixture(t *testing.T, dsn string) (*libPostgres.Client, *Trail, *lifecycle.Writer) {
	t.Helper()

	client, err := libPostgres.New(libPostgres.Config{
		PrimaryDSN:     dsn,
		DatabaseName:   "testdb",
		MigrationsPath: "migrations",
	})
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { require.NoError(t, client.Close()) })

	trail, err := NewTrail()
	require.NoError(t, err)

	registry := signal.NewRegistry()

	dispatcher, err := signal.NewDispatcher(registry, nil, nil)
	require.NoError(t, err)

	_, err = registry.Register(signal.BeforeWrite, nil, trail)
	require.NoError(t, err)

	_, err = registry.Register(signal.AfterWrite, nil, trail)
	require.NoError(t, err)

	writer, err := lifecycle.NewWriter(dispatcher)
	require.NoError(t, err)

	return client, trail, writer
}

func TestIntegration_AuditRowsRollBackWithCallerTransaction(t *testing.T) {
	dsn, cleanup := setupPostgresContainer(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	client, trail, writer := setupFixture(t, dsn)

	db, err := client.Primary(ctx)
	require.NoError(t, err)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	txCtx := lifecycle.ContextWithTx(ctx, tx)

	err = writer.Write(txCtx, struct{ Name string }{Name: "r-1"}, map[string]any{"source": "it"},
		func(persistCtx context.Context, persistTx signal.Tx) error {
			_, execErr := persistTx.ExecContext(persistCtx, "SELECT 1")

			return execErr
		})
	require.NoError(t, err)

	// Inside the transaction both lifecycle rows are visible.
	beforeCount, err := trail.CountBySignal(ctx, tx, signal.BeforeWrite)
	require.NoError(t, err)
	require.EqualValues(t, 1, beforeCount)

	afterCount, err := trail.CountBySignal(ctx, tx, signal.AfterWrite)
	require.NoError(t, err)
	require.EqualValues(t, 1, afterCount)

	require.NoError(t, tx.Rollback())

	// After rollback the listener's writes are gone with the caller's.
	beforeCount, err = trail.CountBySignal(ctx, db, signal.BeforeWrite)
	require.NoError(t, err)
	require.Zero(t, beforeCount)

	afterCount, err = trail.CountBySignal(ctx, db, signal.AfterWrite)
	require.NoError(t, err)
	require.Zero(t, afterCount)
}

func TestIntegration_AuditRowsCommitWithCallerTransaction(t *testing.T) {
	dsn, cleanup := setupPostgresContainer(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	client, trail, writer := setupFixture(t, dsn)

	db, err := client.Primary(ctx)
	require.NoError(t, err)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	txCtx := lifecycle.ContextWithTx(ctx, tx)

	err = writer.Write(txCtx, struct{ Name string }{Name: "r-2"}, nil,
		func(persistCtx context.Context, persistTx signal.Tx) error {
			_, execErr := persistTx.ExecContext(persistCtx, "SELECT 1")

			return execErr
		})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	count, err := trail.CountBySignal(ctx, db, signal.AfterWrite)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}
