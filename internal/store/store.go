package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/roach88/filterspec/internal/paging"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on people.Status
const currentSchemaVersion = 1

// Store is a SQLite database exposed as a paging.Source.
type Store struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

var _ paging.Source = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger commands are traced to at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, and every :memory:
	// connection is a separate database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return New(db, opts...), nil
}

// New wraps an already open connection without touching its schema.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying connection for direct queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// ExecContext runs a statement that returns no rows, e.g. fixture inserts.
func (s *Store) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

// Count runs a COUNT(*) command and returns its single value.
func (s *Store) Count(ctx context.Context, cmd paging.Command) (int64, error) {
	s.logger.Debug().Str("sql", cmd.SQL).Int("params", len(cmd.Params)).Msg("store count")

	var n int64
	if err := s.db.GetContext(ctx, &n, cmd.SQL, cmd.NamedArgs()...); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Select runs cmd and scans every row into dest.
//
// dest is a pointer to a slice of structs (mapped by `db` tags, see sqlx)
// or a pointer to []map[string]any for tables without a Go type.
func (s *Store) Select(ctx context.Context, dest any, cmd paging.Command) error {
	s.logger.Debug().Str("sql", cmd.SQL).Int("params", len(cmd.Params)).Msg("store select")

	if rows, ok := dest.(*[]map[string]any); ok {
		return s.selectMaps(ctx, rows, cmd)
	}
	if err := s.db.SelectContext(ctx, dest, cmd.SQL, cmd.NamedArgs()...); err != nil {
		return fmt.Errorf("select: %w", err)
	}
	return nil
}

func (s *Store) selectMaps(ctx context.Context, dest *[]map[string]any, cmd paging.Command) error {
	rows, err := s.db.QueryxContext(ctx, cmd.SQL, cmd.NamedArgs()...)
	if err != nil {
		return fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		for k, v := range row {
			// sqlite returns TEXT as []byte through MapScan
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}
	*dest = out
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sqlx.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sqlx.DB) error {
	var version int
	if err := db.Get(&version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the Status index to databases created before it was part
// of schema.sql.
func migrateToV1(db *sqlx.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_people_status ON people(Status)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.Get(&value, query); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
