// Package database opens the relational store shared by the blog and
// analytics stores. It supports an embedded SQLite file for single-node
// installs and a managed Postgres instance (Supabase or any other host).
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavour behind a DB.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// DB wraps *sql.DB with the dialect it was opened with.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to driver ("sqlite" or "postgres") using dsn. For SQLite the
// dsn is a file path whose directory is created if needed.
func Open(driver, dsn string) (*DB, error) {
	switch Dialect(strings.ToLower(driver)) {
	case SQLite, "":
		return openSQLite(dsn)
	case Postgres, "postgresql":
		return openPostgres(dsn)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}
}

func openSQLite(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("database: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	// busy_timeout is per connection, so it rides on the DSN and applies to
	// every connection the pool opens.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	return &DB{DB: db, Dialect: SQLite}, nil
}

func openPostgres(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("database: postgres connection string is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{DB: db, Dialect: Postgres}, nil
}

// Rebind rewrites `?` placeholders to `$1..$n` for Postgres. Queries are
// written once with `?`. Question marks inside single-quoted literals are
// left alone.
func (d *DB) Rebind(query string) string {
	if d.Dialect != Postgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			inQuote = !inQuote
			b.WriteByte(ch)
		case ch == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// IsUniqueViolation reports whether err came from a unique constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Timestamp formats t the way every table stores time: RFC3339 in UTC with
// second precision, so text ordering matches chronological ordering.
func Timestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// ParseTimestamp is the inverse of Timestamp. Empty input yields the zero time.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Time{}
}
