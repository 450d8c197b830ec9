package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestParseDriver(t *testing.T) {
	for in, want := range map[string]Driver{
		"":        DriverSQLite,
		"sqlite3": DriverSQLite,
		"PG":      DriverPostgres,
		"pgx":     DriverPostgres,
	} {
		got, err := ParseDriver(in)
		if err != nil || got != want {
			t.Errorf("ParseDriver(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDriver("mysql"); err == nil {
		t.Error("mysql should be rejected")
	}
}

func TestOpen_SQLiteSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := "file:TestOpen_SQLiteSchemaIsIdempotent?mode=memory&cache=shared"
	h, err := Open(ctx, DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()
	if err := ensureSchema(ctx, h, DriverSQLite); err != nil {
		t.Fatalf("second ensureSchema: %v", err)
	}
	for _, table := range []string{"users", "tests", "submissions", "event_log"} {
		var n int
		if err := h.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			t.Fatalf("table %s: %v", table, err)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	ctx := context.Background()
	h, err := Open(ctx, DriverSQLite, "file:TestIsUniqueViolation?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	insert := `INSERT INTO submissions (id, student_id, test_id, answers_json, score, submitted_at)
		VALUES ($1,$2,$3,'[]',0,0)`
	if _, err := h.ExecContext(ctx, insert, "a", "s1", "t1"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err = h.ExecContext(ctx, insert, "b", "s1", "t1")
	if !IsUniqueViolation(err) {
		t.Fatalf("pair conflict not detected: %v", err)
	}
	_, err = h.ExecContext(ctx, insert, "a", "s2", "t1")
	if !IsUniqueViolation(err) {
		t.Fatalf("primary key conflict not detected: %v", err)
	}

	pg := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})
	if !IsUniqueViolation(pg) {
		t.Fatal("postgres 23505 not detected")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) || IsUniqueViolation(errors.New("x")) || IsUniqueViolation(nil) {
		t.Fatal("false positive")
	}
}
