package main

import (
	"path/filepath"
	"testing"

	"github.com/nimbusdb/nimbus/internal/db"
)

func TestHandleMetaClearAndTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repl.db")
	eng, err := db.Open(path, 16)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	defer eng.Close()

	if _, err := eng.Execute("CREATE TABLE t (id U32)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if !handleMeta(eng, ".tables") {
		t.Fatalf("handleMeta(.tables) = false, want true")
	}
	if !handleMeta(eng, ".clear") {
		t.Fatalf("handleMeta(.clear) = false, want true")
	}
	res, err := eng.Execute("SHOW TABLES")
	if err != nil {
		t.Fatalf("show tables: %v", err)
	}
	if len(res.Rows) != 0 {
		t.Fatalf("expected no user tables after .clear, got %d", len(res.Rows))
	}

	if handled := handleMeta(eng, "SELECT * FROM t"); handled {
		t.Fatalf("handleMeta should not claim a plain SQL line")
	}
}

func TestValueStringFormatsU32(t *testing.T) {
	if got := valueString(uint32(42)); got != "42" {
		t.Fatalf("valueString(uint32(42)) = %q, want 42", got)
	}
	if got := valueString("hello"); got != "hello" {
		t.Fatalf("valueString(\"hello\") = %q, want hello", got)
	}
}
