// Package sqlite implements the repositories on an embedded SQLite database
// through modernc.org/sqlite, which needs no cgo.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/prn-tf/photoshare/internal/repository"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath selects a private in-memory database.
const MemoryPath = ":memory:"

// Config holds SQLite connection settings.
type Config struct {
	// Path is the database file, or MemoryPath.
	Path string

	// MaxOpenConns caps concurrent connections. SQLite allows one writer at
	// a time, so values above one only help readers in WAL mode.
	MaxOpenConns int

	ConnMaxLifetime time.Duration

	// JournalMode is applied with PRAGMA journal_mode on every connection.
	JournalMode string

	// BusyTimeout is how long, in milliseconds, a connection waits on a lock.
	BusyTimeout int
}

// DefaultConfig returns settings for a single-writer database at dbPath.
func DefaultConfig(dbPath string) Config {
	return Config{
		Path:            dbPath,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
		JournalMode:     "WAL",
		BusyTimeout:     5000,
	}
}

// dsn builds the modernc connection string with per-connection pragmas.
func (c Config) dsn() string {
	return fmt.Sprintf(
		"%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=journal_mode(%s)",
		c.Path, c.BusyTimeout, c.JournalMode,
	)
}

// DB is the SQLite handle shared by every repository in this package.
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// NewDB opens the database described by cfg and verifies it with a ping.
func NewDB(ctx context.Context, cfg Config, logger zerolog.Logger) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	conns := max(cfg.MaxOpenConns, 1)
	lifetime := cfg.ConnMaxLifetime
	if cfg.Path == MemoryPath {
		// Each connection would see its own empty in-memory database.
		conns, lifetime = 1, 0
	}
	sqlDB.SetMaxOpenConns(conns)
	sqlDB.SetMaxIdleConns(conns)
	sqlDB.SetConnMaxLifetime(lifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	logger.Info().
		Str("path", cfg.Path).
		Str("journal_mode", cfg.JournalMode).
		Int("max_conns", conns).
		Msg("opened SQLite database")

	return &DB{DB: sqlDB, logger: logger}, nil
}

// Close closes every connection.
func (db *DB) Close() error {
	db.logger.Info().Msg("sqlite database closed")
	return db.DB.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Health reads the schema table to confirm the database file is usable.
func (db *DB) Health(ctx context.Context) error {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master`).Scan(&n); err != nil {
		return fmt.Errorf("health query failed: %w", err)
	}
	return nil
}

// WithTx runs fn in a transaction that is committed when fn returns nil and
// rolled back otherwise, including when fn panics.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// Migrations returns the embedded goose migrations for SQLite.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(fmt.Sprintf("sqlite: embedded migrations: %v", err))
	}
	return sub
}

// NewMigrationProvider returns a goose provider bound to this database.
func (db *DB) NewMigrationProvider() (*goose.Provider, error) {
	return goose.NewProvider(goose.DialectSQLite3, db.DB, Migrations())
}

// Migrate applies all pending migrations.
func (db *DB) Migrate(ctx context.Context) error {
	provider, err := db.NewMigrationProvider()
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	for _, r := range results {
		db.logger.Info().
			Int64("version", r.Source.Version).
			Dur("duration", r.Duration).
			Msg("applied migration")
	}

	return nil
}

// Open opens the database, applies migrations when requested and builds all
// SQLite repositories.
func Open(ctx context.Context, cfg Config, migrate bool, logger zerolog.Logger) (*DB, *repository.Repositories, error) {
	db, err := NewDB(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	if migrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	return db, NewRepositories(db), nil
}
