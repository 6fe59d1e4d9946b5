package ast

import "testing"

func TestParseCreateTable(t *testing.T) {
	stmt, err := NewParser("CREATE TABLE users (id U32, name VARCHAR)").ParseStatement()
	if err != nil {
		t.Fatalf("ParseStatement: %v", err)
	}
	ct, ok := stmt.(*CreateTable)
	if !ok {
		t.Fatalf("got %T, want *CreateTable", stmt)
	}
	if ct.Name != "users" || len(ct.Columns) != 2 {
		t.Fatalf("got %+v", ct)
	}
	if ct.Columns[0].Type != TypeU32 || ct.Columns[1].Type != TypeVarchar {
		t.Fatalf("column types = %v, %v", ct.Columns[0].Type, ct.Columns[1].Type)
	}
}

func TestParseCreateIndex(t *testing.T) {
	stmt, err := NewParser("CREATE INDEX idx_users_id ON users (id)").ParseStatement()
	if err != nil {
		t.Fatalf("ParseStatement: %v", err)
	}
	ci, ok := stmt.(*CreateIndex)
	if !ok {
		t.Fatalf("got %T, want *CreateIndex", stmt)
	}
	if ci.IndexName != "idx_users_id" || ci.TableName != "users" || ci.ColumnName != "id" {
		t.Fatalf("got %+v", ci)
	}
}

func TestParseInsertMultiRow(t *testing.T) {
	stmt, err := NewParser("INSERT INTO users (id, name) VALUES (1, 'ada'), (2, 'grace')").ParseStatement()
	if err != nil {
		t.Fatalf("ParseStatement: %v", err)
	}
	ins, ok := stmt.(*Insert)
	if !ok {
		t.Fatalf("got %T, want *Insert", stmt)
	}
	if len(ins.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(ins.Rows))
	}
	if ins.Rows[0][0].U32 != 1 || ins.Rows[1][1].Str != "grace" {
		t.Fatalf("got %+v", ins.Rows)
	}
}

func TestParseSelectStarNoFilter(t *testing.T) {
	stmt, err := NewParser("SELECT * FROM users").ParseStatement()
	if err != nil {
		t.Fatalf("ParseStatement: %v", err)
	}
	sel, ok := stmt.(*Select)
	if !ok {
		t.Fatalf("got %T, want *Select", stmt)
	}
	if len(sel.Selection) != 1 || sel.Selection[0] != "*" || sel.Filter != nil {
		t.Fatalf("got %+v", sel)
	}
}

func TestParseSelectColumnsWithFilter(t *testing.T) {
	stmt, err := NewParser("SELECT id, name FROM users WHERE id = 7").ParseStatement()
	if err != nil {
		t.Fatalf("ParseStatement: %v", err)
	}
	sel, ok := stmt.(*Select)
	if !ok {
		t.Fatalf("got %T, want *Select", stmt)
	}
	if len(sel.Selection) != 2 {
		t.Fatalf("selection = %v", sel.Selection)
	}
	if sel.Filter == nil || sel.Filter.Column != "id" || sel.Filter.Value.U32 != 7 {
		t.Fatalf("filter = %+v", sel.Filter)
	}
}

func TestParseUpdateWithFilter(t *testing.T) {
	stmt, err := NewParser("UPDATE users SET name = 'eve' WHERE id = 3").ParseStatement()
	if err != nil {
		t.Fatalf("ParseStatement: %v", err)
	}
	up, ok := stmt.(*Update)
	if !ok {
		t.Fatalf("got %T, want *Update", stmt)
	}
	if len(up.Assignments) != 1 || up.Assignments[0].Column != "name" || up.Assignments[0].Value.Str != "eve" {
		t.Fatalf("assignments = %+v", up.Assignments)
	}
	if up.Filter == nil || up.Filter.Column != "id" || up.Filter.Value.U32 != 3 {
		t.Fatalf("filter = %+v", up.Filter)
	}
}

func TestParseDeleteNoFilter(t *testing.T) {
	stmt, err := NewParser("DELETE FROM users").ParseStatement()
	if err != nil {
		t.Fatalf("ParseStatement: %v", err)
	}
	del, ok := stmt.(*Delete)
	if !ok {
		t.Fatalf("got %T, want *Delete", stmt)
	}
	if del.Table != "users" || del.Filter != nil {
		t.Fatalf("got %+v", del)
	}
}

func TestParseAdminStatements(t *testing.T) {
	cases := map[string]Statement{
		"SHOW TABLES":       &ShowTables{},
		"USE 'db/path.db'":  &UseDatabase{Path: "db/path.db"},
		"CLEAR":             &Clear{},
		"DROP TABLE widget": &DropTable{Name: "widget"},
	}
	for sql, want := range cases {
		stmt, err := NewParser(sql).ParseStatement()
		if err != nil {
			t.Fatalf("ParseStatement(%q): %v", sql, err)
		}
		switch w := want.(type) {
		case *ShowTables:
			if _, ok := stmt.(*ShowTables); !ok {
				t.Fatalf("%q: got %T, want *ShowTables", sql, stmt)
			}
		case *UseDatabase:
			got, ok := stmt.(*UseDatabase)
			if !ok || got.Path != w.Path {
				t.Fatalf("%q: got %+v", sql, stmt)
			}
		case *Clear:
			if _, ok := stmt.(*Clear); !ok {
				t.Fatalf("%q: got %T, want *Clear", sql, stmt)
			}
		case *DropTable:
			got, ok := stmt.(*DropTable)
			if !ok || got.Name != w.Name {
				t.Fatalf("%q: got %+v", sql, stmt)
			}
		}
	}
}

func TestParseRejectsUnsupportedType(t *testing.T) {
	_, err := NewParser("CREATE TABLE t (id INT)").ParseStatement()
	if err == nil {
		t.Fatalf("expected error for unsupported column type INT")
	}
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	_, err := NewParser("SELECT * FROM users EXTRA").ParseStatement()
	if err == nil {
		t.Fatalf("expected error for trailing input")
	}
}
