// Package dbtest opens throwaway migrated SQLite databases for tests.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"notejournal/db"
)

func Open(t testing.TB) *sql.DB {
	t.Helper()
	conn, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// InsertUser adds a bare user row and returns its id.
func InsertUser(t testing.TB, conn *sql.DB, username string) int64 {
	t.Helper()
	res, err := conn.Exec(
		"INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)",
		username, nil, "x")
	if err != nil {
		t.Fatalf("insert user %s: %v", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	return id
}
