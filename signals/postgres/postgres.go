package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/halcyonlabs/lib-signals/v2/signals/internal/nilcheck"
	libLog "github.com/halcyonlabs/lib-signals/v2/signals/log"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

var (
	ErrPrimaryDSNRequired = errors.New("primary connection string is required")
	ErrNotConnected       = errors.New("postgres client is not connected")

	credentialsPattern = regexp.MustCompile(`://[^@\s]+@`)
	passwordPattern    = regexp.MustCompile(`(?i)(password=)([^\s&]+)`)
	dbNamePattern      = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)
)

// Config describes the connections a Client manages.
type Config struct {
	// PrimaryDSN is the read-write connection string.
	PrimaryDSN string
	// ReplicaDSN is the read-only connection string. Defaults to PrimaryDSN.
	ReplicaDSN string
	// DatabaseName is the primary database name, required when migrations run.
	DatabaseName string
	// MigrationsPath points at golang-migrate migration files. Empty skips
	// the migration step.
	MigrationsPath string
	// Logger receives connection lifecycle logs.
	Logger libLog.Logger
	// MaxOpenConnections and MaxIdleConnections bound each pool.
	MaxOpenConnections int
	MaxIdleConnections int
}

func (cfg *Config) normalize() error {
	cfg.PrimaryDSN = strings.TrimSpace(cfg.PrimaryDSN)
	if cfg.PrimaryDSN == "" {
		return ErrPrimaryDSNRequired
	}

	cfg.ReplicaDSN = strings.TrimSpace(cfg.ReplicaDSN)
	if cfg.ReplicaDSN == "" {
		cfg.ReplicaDSN = cfg.PrimaryDSN
	}

	if nilcheck.Interface(cfg.Logger) {
		cfg.Logger = libLog.NewNop()
	}

	if cfg.MaxOpenConnections <= 0 {
		cfg.MaxOpenConnections = defaultMaxOpenConns
	}

	if cfg.MaxIdleConnections <= 0 {
		cfg.MaxIdleConnections = defaultMaxIdleConns
	}

	return nil
}

// Client keeps a singleton primary/replica resolver over pgx connections.
type Client struct {
	cfg       Config
	mu        sync.RWMutex
	resolver  dbresolver.DB
	primary   *sql.DB
	connected bool
}

// New creates an unconnected client from cfg.
func New(cfg Config) (*Client, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return &Client{cfg: cfg}, nil
}

// Connect opens the primary and replica pools, runs migrations when
// configured, and verifies connectivity with a ping.
func (client *Client) Connect(ctx context.Context) error {
	client.mu.Lock()
	defer client.mu.Unlock()

	return client.connectLocked(ctx)
}

func (client *Client) connectLocked(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled before database connection: %w", err)
	}

	if client.resolver != nil {
		if err := client.closeLocked(); err != nil {
			client.cfg.Logger.Log(ctx, libLog.LevelWarn,
				"failed to close previous connection before reconnect", libLog.Err(err))
		}
	}

	client.cfg.Logger.Log(ctx, libLog.LevelInfo, "connecting to primary and replica databases")

	primary, err := sql.Open("pgx", client.cfg.PrimaryDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to primary database: %s", sanitizeSensitiveError(err))
	}

	// Ensure pools are cleaned up if anything downstream fails.
	var success bool

	defer func() {
		if !success {
			primary.Close()
		}
	}()

	tunePool(primary, client.cfg)

	replica, err := sql.Open("pgx", client.cfg.ReplicaDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to replica database: %s", sanitizeSensitiveError(err))
	}

	defer func() {
		if !success {
			replica.Close()
		}
	}()

	tunePool(replica, client.cfg)

	resolver, err := newResolver(primary, replica)
	if err != nil {
		return fmt.Errorf("failed to create resolver: %w", err)
	}

	if client.cfg.MigrationsPath != "" {
		if err := client.runMigrations(ctx, primary); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled before ping: %w", err)
	}

	if err := resolver.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %s", sanitizeSensitiveError(err))
	}

	client.primary = primary
	client.resolver = resolver
	client.connected = true
	success = true

	client.cfg.Logger.Log(ctx, libLog.LevelInfo, "connected to postgres")

	return nil
}

// Resolver returns the primary/replica resolver, connecting lazily when
// needed.
func (client *Client) Resolver(ctx context.Context) (dbresolver.DB, error) {
	client.mu.RLock()

	if client.resolver != nil {
		resolver := client.resolver
		client.mu.RUnlock()

		return resolver, nil
	}

	client.mu.RUnlock()

	client.mu.Lock()
	defer client.mu.Unlock()

	// Double-check after acquiring the write lock.
	if client.resolver != nil {
		return client.resolver, nil
	}

	if err := client.connectLocked(ctx); err != nil {
		return nil, err
	}

	return client.resolver, nil
}

// Primary returns the read-write pool for callers that begin transactions.
func (client *Client) Primary(ctx context.Context) (*sql.DB, error) {
	if _, err := client.Resolver(ctx); err != nil {
		return nil, err
	}

	client.mu.RLock()
	defer client.mu.RUnlock()

	if client.primary == nil {
		return nil, ErrNotConnected
	}

	return client.primary, nil
}

// IsConnected reports whether the resolver is initialized.
func (client *Client) IsConnected() bool {
	client.mu.RLock()
	defer client.mu.RUnlock()

	return client.connected
}

// Close releases database connection resources.
func (client *Client) Close() error {
	client.mu.Lock()
	defer client.mu.Unlock()

	return client.closeLocked()
}

func (client *Client) closeLocked() error {
	if client.resolver == nil {
		return nil
	}

	err := client.resolver.Close()
	client.resolver = nil
	client.primary = nil
	client.connected = false

	return err
}

func (client *Client) runMigrations(ctx context.Context, primary *sql.DB) error {
	logger := client.cfg.Logger

	if err := validateDBName(client.cfg.DatabaseName); err != nil {
		return err
	}

	migrationsPath, err := sanitizePath(client.cfg.MigrationsPath)
	if err != nil {
		return err
	}

	sourceURL, err := url.Parse(filepath.ToSlash(migrationsPath))
	if err != nil {
		return fmt.Errorf("failed to parse migrations url: %w", err)
	}

	sourceURL.Scheme = "file"

	driver, err := migratepostgres.WithInstance(primary, &migratepostgres.Config{
		DatabaseName: client.cfg.DatabaseName,
		SchemaName:   "public",
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver instance: %w", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance(sourceURL.String(), client.cfg.DatabaseName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Log(ctx, libLog.LevelInfo, "no new migrations found, skipping")

			return nil
		}

		if errors.Is(err, os.ErrNotExist) {
			logger.Log(ctx, libLog.LevelWarn, "no migration files found, skipping migration step")

			return nil
		}

		var dirtyErr migrate.ErrDirty
		if errors.As(err, &dirtyErr) {
			return fmt.Errorf("migration failed: dirty database version %d", dirtyErr.Version)
		}

		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

func newResolver(primary, replica *sql.DB) (_ dbresolver.DB, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("failed to create resolver: %v", recovered)
		}
	}()

	resolver := dbresolver.New(
		dbresolver.WithPrimaryDBs(primary),
		dbresolver.WithReplicaDBs(replica),
		dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB),
	)

	if resolver == nil {
		return nil, errors.New("resolver returned nil connection")
	}

	return resolver, nil
}

func tunePool(db *sql.DB, cfg Config) {
	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)
}

func sanitizeSensitiveError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := credentialsPattern.ReplaceAllString(err.Error(), "://***@")
	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}***")

	return sanitized
}

func sanitizePath(path string) (string, error) {
	cleaned := filepath.Clean(path)

	for _, part := range strings.Split(cleaned, string(filepath.Separator)) {
		if part == ".." {
			return "", fmt.Errorf("invalid migrations path: %q", path)
		}
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("failed to resolve migrations path: %w", err)
	}

	return absPath, nil
}

func validateDBName(name string) error {
	if !dbNamePattern.MatchString(name) {
		return fmt.Errorf("invalid database name: %q", name)
	}

	return nil
}
