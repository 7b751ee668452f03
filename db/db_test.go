package db

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestOpen_SQLiteMigratesAndIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "notes.db")

	for i := 0; i < 2; i++ {
		conn, err := Open(DriverSQLite, path)
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		for _, table := range []string{"users", "categories", "notes"} {
			var name string
			err := conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			if err != nil {
				t.Errorf("table %s missing: %v", table, err)
			}
		}
		conn.Close()
	}
}

func TestIsUniqueViolation(t *testing.T) {
	conn, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "u.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Exec("INSERT INTO categories (name) VALUES ('interest')"); err != nil {
		t.Fatal(err)
	}
	_, err = conn.Exec("INSERT INTO categories (name) VALUES ('interest')")
	if err == nil {
		t.Fatal("expected duplicate insert to fail")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false", err)
	}
	if IsUniqueViolation(nil) {
		t.Error("nil is not a unique violation")
	}
}

func TestCategoryDeleteClearsNoteReference(t *testing.T) {
	conn, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "fk.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.Exec("INSERT INTO users (id, username, password_hash, created_at) VALUES (1, 'a', 'x', CURRENT_TIMESTAMP)")
	conn.Exec("INSERT INTO categories (id, name) VALUES (1, 'to-do')")
	conn.Exec("INSERT INTO notes (id, user_id, title, content, created_at, category_id) VALUES (1, 1, 't', 'c', CURRENT_TIMESTAMP, 1)")

	if _, err := conn.Exec("DELETE FROM categories WHERE id = 1"); err != nil {
		t.Fatal(err)
	}
	var count int
	conn.QueryRow("SELECT COUNT(*) FROM notes WHERE id = 1 AND category_id IS NULL").Scan(&count)
	if count != 1 {
		t.Errorf("expected note to survive with a NULL category, got %d rows", count)
	}
}

func TestNormalizeDSN(t *testing.T) {
	got, err := normalizeDSN(DriverMySQL, "user:pw@tcp(localhost:3306)/notes")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "parseTime=true") {
		t.Errorf("mysql dsn %q should enable parseTime", got)
	}

	got, err = normalizeDSN(DriverSQLite, filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "_pragma=foreign_keys(1)") {
		t.Errorf("sqlite dsn %q should enable foreign keys", got)
	}

	if _, err := normalizeDSN("oracle", "x"); err == nil {
		t.Error("expected unsupported driver error")
	}
}
