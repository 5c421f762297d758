// Package sqlstore persists sessions in a SQL database.
//
// SQLite (github.com/mattn/go-sqlite3) and PostgreSQL (github.com/lib/pq)
// are supported. Each user has one row; the full session is kept as JSON
// next to a few indexed columns for operators.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/formflow/internal/logging"
	"github.com/aretw0/formflow/pkg/domain"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

//go:embed migrations_postgres.sql
var postgresMigrations string

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driver() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite3"
}

func (d Dialect) migrations() string {
	if d == Postgres {
		return postgresMigrations
	}
	return sqliteMigrations
}

// bind rewrites ? placeholders into $n for PostgreSQL.
func (d Dialect) bind(query string) string {
	if d != Postgres {
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

// ParseDialect accepts "sqlite", "sqlite3", "postgres" and "postgresql".
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	}
	return "", fmt.Errorf("unknown sql dialect %q", s)
}

// Store implements ports.SessionStore over database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open connects to dsn and applies the schema migrations.
// For SQLite the dsn is a file path whose directory is created if needed.
func Open(ctx context.Context, dialect Dialect, dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not set")
	}
	if dialect == SQLite && !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(dialect.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == SQLite {
		// One writer at a time avoids SQLITE_BUSY under concurrent saves.
		db.SetMaxOpenConns(1)
	}

	store, err := New(ctx, db, dialect, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing connection pool and applies the migrations.
func New(ctx context.Context, db *sql.DB, dialect Dialect, opts ...Option) (*Store, error) {
	s := &Store{db: db, dialect: dialect, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}
	if _, err := db.ExecContext(ctx, dialect.migrations()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	s.logger.Debug("sql session store ready", "dialect", string(dialect))
	return s, nil
}

// Save upserts the user's row.
func (s *Store) Save(ctx context.Context, session *domain.Session) error {
	body, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	query := s.dialect.bind(`
		INSERT INTO form_sessions (user_id, session_id, status, schema_version, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			session_id = excluded.session_id,
			status = excluded.status,
			schema_version = excluded.schema_version,
			body = excluded.body,
			updated_at = excluded.updated_at`)

	_, err = s.db.ExecContext(ctx, query,
		session.UserID, session.ID, string(session.Status), session.SchemaVersion,
		string(body), session.UpdatedAt.UTC())
	if err != nil {
		s.logger.Error("sql session save failed", "user_id", session.UserID, "err", err)
		return fmt.Errorf("failed to save session for %s: %w", session.UserID, err)
	}
	return nil
}

// Load reads the user's row.
func (s *Store) Load(ctx context.Context, userID string) (*domain.Session, error) {
	query := s.dialect.bind(`SELECT body FROM form_sessions WHERE user_id = ?`)

	var body []byte
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session for %s: %w", userID, err)
	}

	var session domain.Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session for %s: %w", userID, err)
	}
	return &session, nil
}

// Delete removes the user's row. Missing rows are not an error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	query := s.dialect.bind(`DELETE FROM form_sessions WHERE user_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete session for %s: %w", userID, err)
	}
	return nil
}

// List returns all user ids in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM form_sessions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return users, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
