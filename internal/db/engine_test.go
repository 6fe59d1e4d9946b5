package db

import (
	"path/filepath"
	"testing"
)

func TestEngineCreateInsertSelect(t *testing.T) {
	eng, err := Open(filepath.Join(t.TempDir(), "test.db"), 32)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer eng.Close()

	if _, err := eng.Execute("CREATE TABLE users (id U32, name VARCHAR)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	res, err := eng.Execute("INSERT INTO users (id, name) VALUES (1, 'ada')")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if res.Count == nil || *res.Count != 1 {
		t.Fatalf("insert result = %+v, want count 1", res)
	}

	res, err = eng.Execute("SELECT * FROM users")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(res.Columns) != 2 || len(res.Rows) != 1 {
		t.Fatalf("select result = %+v", res)
	}
	if res.Rows[0][1].Val.(string) != "ada" {
		t.Fatalf("row = %+v, want name ada", res.Rows[0])
	}
}

func TestEngineShowTablesAndClear(t *testing.T) {
	eng, err := Open(filepath.Join(t.TempDir(), "test.db"), 32)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer eng.Close()

	if _, err := eng.Execute("CREATE TABLE widgets (id U32)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	res, err := eng.Execute("SHOW TABLES")
	if err != nil {
		t.Fatalf("show tables: %v", err)
	}
	found := false
	for _, row := range res.Rows {
		if row[0].Val.(string) == "widgets" {
			found = true
		}
	}
	if !found {
		t.Fatalf("SHOW TABLES = %+v, want widgets listed", res.Rows)
	}

	if _, err := eng.Execute("CLEAR"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	res, err = eng.Execute("SHOW TABLES")
	if err != nil {
		t.Fatalf("show tables after clear: %v", err)
	}
	for _, row := range res.Rows {
		if row[0].Val.(string) == "widgets" {
			t.Fatalf("widgets still present after CLEAR")
		}
	}
}

func TestEngineUseSwitchesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	eng, err := Open(filepath.Join(dir, "a.db"), 32)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer eng.Close()

	if _, err := eng.Execute("CREATE TABLE only_in_a (id U32)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	bPath := filepath.Join(dir, "b.db")
	if _, err := eng.Execute("USE '" + bPath + "'"); err != nil {
		t.Fatalf("use: %v", err)
	}
	if eng.Path() != bPath {
		t.Fatalf("Path() = %q, want %q", eng.Path(), bPath)
	}

	res, err := eng.Execute("SHOW TABLES")
	if err != nil {
		t.Fatalf("show tables in b: %v", err)
	}
	for _, row := range res.Rows {
		if row[0].Val.(string) == "only_in_a" {
			t.Fatalf("table from a.db leaked into b.db")
		}
	}
}
