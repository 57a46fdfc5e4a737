package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: Postgres}
	lite := &DB{Dialect: SQLite}

	q := `SELECT * FROM articles WHERE slug = ? AND title <> '?' AND id = ?`
	assert.Equal(t, `SELECT * FROM articles WHERE slug = $1 AND title <> '?' AND id = $2`, pg.Rebind(q))
	assert.Equal(t, q, lite.Rebind(q))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.True(t, IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: articles.slug (2067)")))
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 30, 5, 123, time.FixedZone("x", 3600))
	s := Timestamp(ts)
	assert.Equal(t, "2024-03-09T13:30:05Z", s)
	assert.True(t, ParseTimestamp(s).Equal(ts.Truncate(time.Second)))
	assert.True(t, ParseTimestamp("").IsZero())
	assert.True(t, ParseTimestamp("garbage").IsZero())
}

func TestOpenSQLite(t *testing.T) {
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "nested", "blog.db"))
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, SQLite, db.Dialect)
	require.NoError(t, db.Ping())
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("mongo", "x")
	require.Error(t, err)
}
