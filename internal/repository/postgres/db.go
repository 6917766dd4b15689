// Package postgres implements the repositories on PostgreSQL through pgx.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/prn-tf/photoshare/internal/config"
	"github.com/prn-tf/photoshare/internal/repository"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SlowQueryThreshold is the duration above which a query is logged at warn level.
const SlowQueryThreshold = 200 * time.Millisecond

// DB is the PostgreSQL handle shared by every repository in this package.
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDB opens a pgx pool for cfg and verifies it with a ping.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(min(cfg.MaxIdleConns, cfg.MaxOpenConns))
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second
	poolConfig.ConnConfig.Tracer = &queryTracer{
		logger: logger.With().Str("component", "postgres").Logger(),
		slow:   SlowQueryThreshold,
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("connected to PostgreSQL")

	return &DB{Pool: pool, logger: logger}, nil
}

// Close releases every pooled connection.
func (db *DB) Close() error {
	db.Pool.Close()
	db.logger.Info().Msg("postgres pool closed")
	return nil
}

// Ping verifies that a connection can be acquired.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Health runs a trivial query so a pool that connects but cannot serve
// statements is reported as unhealthy.
func (db *DB) Health(ctx context.Context) error {
	var one int
	if err := db.Pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("health query failed: %w", err)
	}
	return nil
}

// WithTx runs fn in a transaction that is committed when fn returns nil and
// rolled back otherwise.
func (db *DB) WithTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, db.Pool, opts, fn)
}

// queryTracer logs every statement at debug level and slow or failed ones
// at warn level.
type queryTracer struct {
	logger zerolog.Logger
	slow   time.Duration
}

type queryStartKey struct{}

type queryStart struct {
	sql   string
	nargs int
	at    time.Time
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{
		sql:   data.SQL,
		nargs: len(data.Args),
		at:    time.Now(),
	})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}

	elapsed := time.Since(start.at)

	var event *zerolog.Event
	switch {
	case data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows):
		event = t.logger.Warn().Err(data.Err)
	case elapsed >= t.slow:
		event = t.logger.Warn().Bool("slow", true)
	default:
		event = t.logger.Debug()
	}

	event.
		Str("sql", start.sql).
		Int("args", start.nargs).
		Dur("duration", elapsed).
		Str("command_tag", data.CommandTag.String()).
		Msg("query")
}

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx so read helpers can
// run inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (pgx.Tx)(nil)
)

// isUniqueViolation checks if an error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Migrations returns the embedded goose migrations for PostgreSQL.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(fmt.Sprintf("postgres: embedded migrations: %v", err))
	}
	return sub
}

// NewMigrationProvider returns a goose provider sharing this pool.
// The returned close function releases the database/sql adapter.
func (db *DB) NewMigrationProvider() (*goose.Provider, func() error, error) {
	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, Migrations())
	if err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	return provider, sqlDB.Close, nil
}

// Migrate applies all pending migrations.
func (db *DB) Migrate(ctx context.Context) error {
	provider, closeFn, err := db.NewMigrationProvider()
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	defer closeFn()

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

// Open connects to PostgreSQL, applies migrations when requested and builds
// all PostgreSQL repositories.
func Open(ctx context.Context, cfg config.DatabaseConfig, migrate bool, logger zerolog.Logger) (*DB, *repository.Repositories, error) {
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

// NewRepositories builds every PostgreSQL repository on top of db.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		User:    NewUserRepository(db),
		Session: NewSessionRepository(db),
		Image:   NewImageRepository(db),
	}
}
