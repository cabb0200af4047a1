package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect is the SQL flavour behind a DB.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DB wraps database/sql over either a pgx pool or an embedded SQLite file.
type DB struct {
	SQL     *sql.DB
	Dialect Dialect

	pool *pgxpool.Pool
	log  *slog.Logger
}

// DialectFor picks postgres for postgres:// and postgresql:// DSNs and SQLite otherwise.
func DialectFor(dsn string) Dialect {
	d := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open connects and runs migrations.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("open store: empty dsn")
	}

	var db *DB
	var err error
	switch DialectFor(cfg.DSN) {
	case DialectPostgres:
		db, err = openPostgres(ctx, cfg, logger)
	default:
		db, err = openSQLite(cfg, logger)
	}
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("store.connect", "dialect", DialectPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("store.connect_failed", "error", err)
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "pa-autofill"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("store.connect_failed", "error", err)
		return nil, fmt.Errorf("connect: %w", err)
	}

	logger.Info("store.connected", "dialect", DialectPostgres)
	return &DB{SQL: stdlib.OpenDBFromPool(pool), Dialect: DialectPostgres, pool: pool, log: logger}, nil
}

func openSQLite(cfg Config, logger *slog.Logger) (*DB, error) {
	dsn := strings.TrimPrefix(cfg.DSN, "sqlite://")
	logger.Info("store.connect", "dialect", DialectSQLite, "path", dsn)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("store.connect_failed", "error", err)
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; also keeps ":memory:" databases on a single connection
	sqlDB.SetMaxOpenConns(1)
	return &DB{SQL: sqlDB, Dialect: DialectSQLite, log: logger}, nil
}

// Close releases the connection pool.
func (db *DB) Close() {
	if db == nil {
		return
	}
	if err := db.SQL.Close(); err != nil {
		db.log.Error("store.close_failed", "error", err)
	}
	if db.pool != nil {
		db.pool.Close()
	}
	db.log.Info("store.closed")
}

// HealthCheck pings the database.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.SQL.PingContext(ctx); err != nil {
		db.log.Error("store.ping_failed", "error", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS processing_runs (
		id TEXT PRIMARY KEY,
		folder TEXT NOT NULL,
		success INTEGER NOT NULL,
		total_fields INTEGER NOT NULL,
		filled_count INTEGER NOT NULL,
		uncertain_count INTEGER NOT NULL,
		unfilled_count INTEGER NOT NULL,
		completion_rate DOUBLE PRECISION NOT NULL,
		processing_ms BIGINT NOT NULL,
		output_path TEXT NOT NULL DEFAULT '',
		report_path TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_processing_runs_folder ON processing_runs (folder, created_at)`,
	`CREATE TABLE IF NOT EXISTS processing_run_fields (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		value TEXT,
		confidence DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, position)
	)`,
}

// Migrate creates the tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := db.SQL.ExecContext(ctx, stmt); err != nil {
			db.log.Error("store.migrate_failed", "error", err)
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Rebind rewrites "?" placeholders as $1, $2, ... for postgres.
func (db *DB) Rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
