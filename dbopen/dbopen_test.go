package dbopen_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/webclip/dbopen"
)

func pragmaInt(t *testing.T, db *sql.DB, name string) int {
	t.Helper()
	var v int
	if err := db.QueryRow("PRAGMA " + name).Scan(&v); err != nil {
		t.Fatalf("PRAGMA %s: %v", name, err)
	}
	return v
}

func TestOpenMemory_Pragmas(t *testing.T) {
	db := dbopen.OpenMemory(t)

	var journal string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journal); err != nil {
		t.Fatal(err)
	}
	// :memory: reports "memory" even though the PRAGMA ran.
	if journal != "wal" && journal != "memory" {
		t.Errorf("journal_mode = %q", journal)
	}
	if got := pragmaInt(t, db, "foreign_keys"); got != 1 {
		t.Errorf("foreign_keys = %d, want 1", got)
	}
	if got := pragmaInt(t, db, "synchronous"); got != 1 {
		t.Errorf("synchronous = %d, want 1 (NORMAL)", got)
	}
	if got := pragmaInt(t, db, "busy_timeout"); got != 10_000 {
		t.Errorf("busy_timeout = %d, want 10000", got)
	}
}

func TestOptions(t *testing.T) {
	db := dbopen.OpenMemory(t,
		dbopen.WithBusyTimeout(5000),
		dbopen.WithSynchronous("FULL"),
		dbopen.WithSchema(`CREATE TABLE t (id TEXT PRIMARY KEY)`))

	if got := pragmaInt(t, db, "busy_timeout"); got != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", got)
	}
	if got := pragmaInt(t, db, "synchronous"); got != 2 {
		t.Errorf("synchronous = %d, want 2 (FULL)", got)
	}
	if _, err := db.Exec(`INSERT INTO t (id) VALUES ('1')`); err != nil {
		t.Errorf("schema not applied: %v", err)
	}
}

func TestWithMkdirAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "deep", "clips.db")
	db, err := dbopen.Open(path, dbopen.WithMkdirAll())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("parent dir not created: %v", err)
	}
}

func TestIsBusy(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("some other error"), false},
		{errors.New("prefix: SQLITE_BUSY (5)"), true},
		{errors.New("database is locked"), true},
		{errors.New("database table is locked"), true},
	}
	for _, c := range cases {
		if got := dbopen.IsBusy(c.err); got != c.want {
			t.Errorf("IsBusy(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestExec(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE exec_test (id TEXT PRIMARY KEY)`))
	res, err := dbopen.Exec(context.Background(), db, `INSERT INTO exec_test (id) VALUES (?)`, "1")
	if err != nil {
		t.Fatal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("rows affected = %d, want 1", n)
	}
}

func TestExec_CancelledContext(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE exec_test (id TEXT PRIMARY KEY)`))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := dbopen.Exec(ctx, db, `INSERT INTO exec_test (id) VALUES ('1')`); err == nil {
		t.Error("expected error on cancelled context")
	}
}
