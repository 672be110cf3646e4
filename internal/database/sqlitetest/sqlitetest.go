// Package sqlitetest opens throwaway SQLite databases carrying the same
// schema as production, for repository and service tests.
package sqlitetest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/iliyamo/hrpass/internal/database"
)

// Open returns an in-memory SQLite connection with all migrations applied.
// The connection is closed automatically when the test finishes.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	// Each test gets its own named in-memory database; the shared cache
	// keeps it alive while the pool holds the connection.
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite",
		name,
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("sqlitetest: sql.Open: %v", err)
	}

	// Single connection: writers are serialized the way row locks would
	// serialize them on MySQL.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("sqlitetest: ping: %v", err)
	}
	if err := database.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("sqlitetest: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}
