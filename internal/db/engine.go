// Package db ties the parser, planner, and catalog together into the one
// type a caller actually holds: Engine. It is the thing cmd/repl opens,
// feeds SQL text, and closes on exit.
//
// What: Open/Execute/Close/Flush, plus the non-tuple-producing statements
// (CREATE/DROP TABLE, CREATE INDEX, SHOW TABLES, USE, CLEAR) that the
// planner itself refuses to lower, since they have no operator-tree shape.
// How: one *buffer.Pool and one *catalog.Catalog per open database file;
// USE closes the current pair and opens a fresh one against the new path.
package db

import (
	"fmt"
	"log"

	"github.com/nimbusdb/nimbus/internal/engine/ast"
	"github.com/nimbusdb/nimbus/internal/engine/plan"
	"github.com/nimbusdb/nimbus/internal/storage/buffer"
	"github.com/nimbusdb/nimbus/internal/storage/catalog"
	"github.com/nimbusdb/nimbus/internal/storage/disk"
	"github.com/nimbusdb/nimbus/internal/storage/heap"
)

// Engine owns the currently open database file and dispatches parsed
// statements to either the catalog directly or the operator planner.
type Engine struct {
	path      string
	numFrames int
	fm        *disk.FileManager
	pool      *buffer.Pool
	cat       *catalog.Catalog
}

// Open opens (creating if necessary) the database file at path with a
// buffer pool of numFrames frames.
func Open(path string, numFrames int) (*Engine, error) {
	fm, err := disk.Open(path)
	if err != nil {
		return nil, fmt.Errorf("db: open %q: %w", path, err)
	}
	pool := buffer.NewPool(fm, numFrames, buffer.NewFIFOEvictor())
	cat, err := catalog.Open(pool)
	if err != nil {
		fm.Close()
		return nil, fmt.Errorf("db: open %q: %w", path, err)
	}
	log.Printf("db: opened %q (%d frames)", path, numFrames)
	return &Engine{path: path, numFrames: numFrames, fm: fm, pool: pool, cat: cat}, nil
}

// Path returns the currently open database file's path.
func (e *Engine) Path() string { return e.path }

// Flush writes every dirty frame back to disk.
func (e *Engine) Flush() error { return e.cat.Flush() }

// Close flushes and releases the underlying file handle.
func (e *Engine) Close() error {
	if err := e.cat.Flush(); err != nil {
		return err
	}
	return e.fm.Close()
}

// Result is what Execute returns for any statement: a row set
// (Columns/Rows populated) for SELECT and SHOW TABLES, a scalar count
// (Count non-nil) for INSERT/UPDATE/DELETE, or only a Message for the
// other statements; never more than one of these.
type Result struct {
	Columns []string
	Rows    [][]heap.Value
	Count   *uint32
	Message string
}

// Execute parses and runs a single SQL statement (or one of CLEAR/SHOW
// TABLES/USE, which the parser also accepts) against the open database.
func (e *Engine) Execute(sql string) (*Result, error) {
	stmt, err := ast.NewParser(sql).ParseStatement()
	if err != nil {
		return nil, err
	}
	return e.executeStatement(stmt)
}

func (e *Engine) executeStatement(stmt ast.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *ast.CreateTable:
		return e.execCreateTable(s)
	case *ast.DropTable:
		if err := e.cat.DropTable(s.Name); err != nil {
			return nil, err
		}
		return &Result{Message: fmt.Sprintf("table %q dropped", s.Name)}, nil
	case *ast.CreateIndex:
		if _, err := e.cat.CreateIndex(s.TableName, s.ColumnName); err != nil {
			return nil, err
		}
		return &Result{Message: fmt.Sprintf("index %q created", s.IndexName)}, nil
	case *ast.ShowTables:
		return e.execShowTables()
	case *ast.UseDatabase:
		return e.execUse(s)
	case *ast.Clear:
		return e.execClear()
	default:
		return e.executeOperator(stmt)
	}
}

func (e *Engine) execCreateTable(s *ast.CreateTable) (*Result, error) {
	attrs := make([]heap.Attribute, len(s.Columns))
	for i, c := range s.Columns {
		kind := heap.KindVarchar
		if c.Type == ast.TypeU32 {
			kind = heap.KindU32
		}
		attrs[i] = heap.Attribute{Name: c.Name, Kind: kind}
	}
	if _, err := e.cat.CreateTable(s.Name, attrs); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("table %q created", s.Name)}, nil
}

// execShowTables lists the user tables; the three system tables are left out.
func (e *Engine) execShowTables() (*Result, error) {
	var rows [][]heap.Value
	for _, n := range e.cat.ListTables() {
		if oid, ok := e.cat.TableOID(n); !ok || oid < 100 {
			continue
		}
		rows = append(rows, []heap.Value{heap.Varchar(n)})
	}
	return &Result{Columns: []string{"table_name"}, Rows: rows}, nil
}

func (e *Engine) execUse(s *ast.UseDatabase) (*Result, error) {
	if err := e.cat.Flush(); err != nil {
		return nil, fmt.Errorf("db: use %q: flush current database: %w", s.Path, err)
	}
	if err := e.fm.Close(); err != nil {
		return nil, fmt.Errorf("db: use %q: close current database: %w", s.Path, err)
	}

	fm, err := disk.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("db: use %q: %w", s.Path, err)
	}
	pool := buffer.NewPool(fm, e.numFrames, buffer.NewFIFOEvictor())
	cat, err := catalog.Open(pool)
	if err != nil {
		fm.Close()
		return nil, fmt.Errorf("db: use %q: %w", s.Path, err)
	}

	e.path, e.fm, e.pool, e.cat = s.Path, fm, pool, cat
	log.Printf("db: switched to %q", s.Path)
	return &Result{Message: fmt.Sprintf("using %q", s.Path)}, nil
}

// execClear drops every user table, leaving the three system tables
// intact. There is no AST statement more destructive than this one: it
// has no filter, no target table, nothing left to parse.
func (e *Engine) execClear() (*Result, error) {
	var dropped int
	for _, name := range e.cat.ListTables() {
		oid, ok := e.cat.TableOID(name)
		if !ok || oid < 100 {
			continue
		}
		if err := e.cat.DropTable(name); err != nil {
			return nil, fmt.Errorf("db: clear: %w", err)
		}
		dropped++
	}
	return &Result{Message: fmt.Sprintf("%d table(s) dropped", dropped)}, nil
}

func (e *Engine) executeOperator(stmt ast.Statement) (*Result, error) {
	op, err := plan.Plan(e.cat, stmt)
	if err != nil {
		return nil, err
	}
	if err := op.Open(); err != nil {
		return nil, fmt.Errorf("db: open plan: %w", err)
	}

	var rows [][]heap.Value
	for {
		tup, err := op.Next()
		if err != nil {
			return nil, fmt.Errorf("db: execute: %w", err)
		}
		if tup == nil {
			break
		}
		rows = append(rows, tup.Values)
	}

	switch stmt.(type) {
	case *ast.Insert, *ast.Update, *ast.Delete:
		var count uint32
		if len(rows) == 1 && len(rows[0]) == 1 {
			count = rows[0][0].Val.(uint32)
		}
		return &Result{Count: &count}, nil
	case *ast.Select:
		sel := stmt.(*ast.Select)
		columns, err := e.selectColumns(sel)
		if err != nil {
			return nil, err
		}
		return &Result{Columns: columns, Rows: rows}, nil
	default:
		return nil, fmt.Errorf("db: %T produced tuples unexpectedly", stmt)
	}
}

func (e *Engine) selectColumns(sel *ast.Select) ([]string, error) {
	if len(sel.Selection) == 1 && sel.Selection[0] == "*" {
		oid, ok := e.cat.TableOID(sel.Table)
		if !ok {
			return nil, fmt.Errorf("db: table not found: %q", sel.Table)
		}
		schema, _ := e.cat.TableSchema(oid)
		names := make([]string, len(schema.Attributes))
		for i, attr := range schema.Attributes {
			names[i] = attr.Name
		}
		return names, nil
	}
	return sel.Selection, nil
}
