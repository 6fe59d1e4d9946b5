package plan

import (
	"fmt"

	"github.com/nimbusdb/nimbus/internal/engine/ast"
	"github.com/nimbusdb/nimbus/internal/storage/catalog"
	"github.com/nimbusdb/nimbus/internal/storage/heap"
)

// Plan lowers one of the four tuple-producing statements (Insert, Select,
// Update, Delete) into an operator tree. CreateTable, DropTable,
// CreateIndex, ShowTables, UseDatabase, and Clear have no tuple-producing
// child and are dispatched straight to the catalog by the caller instead
// of being planned here.
func Plan(cat *catalog.Catalog, stmt ast.Statement) (Operator, error) {
	switch s := stmt.(type) {
	case *ast.Insert:
		return planInsert(cat, s)
	case *ast.Select:
		return planSelect(cat, s)
	case *ast.Update:
		return planUpdate(cat, s)
	case *ast.Delete:
		return planDelete(cat, s)
	default:
		return nil, fmt.Errorf("plan: %T has no operator-tree lowering", stmt)
	}
}

func literalValue(lit ast.Literal, kind heap.AttributeKind) (heap.Value, error) {
	switch lit.Kind {
	case ast.LitU32:
		if kind != heap.KindU32 {
			return heap.Value{}, fmt.Errorf("plan: integer literal does not match column type %s", kind)
		}
		return heap.U32(lit.U32), nil
	case ast.LitVarchar:
		if kind != heap.KindVarchar {
			return heap.Value{}, fmt.Errorf("plan: string literal does not match column type %s", kind)
		}
		return heap.Varchar(lit.Str), nil
	default:
		return heap.Value{}, fmt.Errorf("plan: unknown literal kind")
	}
}

func zeroValue(kind heap.AttributeKind) heap.Value {
	if kind == heap.KindVarchar {
		return heap.Varchar("")
	}
	return heap.U32(0)
}

func planInsert(cat *catalog.Catalog, s *ast.Insert) (Operator, error) {
	tableOID, ok := cat.TableOID(s.Table)
	if !ok {
		return nil, fmt.Errorf("plan: table not found: %q", s.Table)
	}
	schema, _ := cat.TableSchema(tableOID)

	colIdx := make([]int, len(s.Columns))
	for i, name := range s.Columns {
		idx := schema.IndexOf(name)
		if idx < 0 {
			return nil, fmt.Errorf("plan: column %q not found in table %q", name, s.Table)
		}
		colIdx[i] = idx
	}

	rows := make([]heap.Tuple, 0, len(s.Rows))
	for _, row := range s.Rows {
		if len(row) != len(colIdx) {
			return nil, fmt.Errorf("plan: insert: column count mismatch")
		}
		values := make([]heap.Value, len(schema.Attributes))
		for i, attr := range schema.Attributes {
			values[i] = zeroValue(attr.Kind)
		}
		for i, lit := range row {
			target := colIdx[i]
			v, err := literalValue(lit, schema.Attributes[target].Kind)
			if err != nil {
				return nil, err
			}
			values[target] = v
		}
		rows = append(rows, heap.NewTuple(values))
	}

	values := NewValues(rows)
	return NewInsert(values, cat, tableOID), nil
}

func planSelect(cat *catalog.Catalog, s *ast.Select) (Operator, error) {
	tableOID, ok := cat.TableOID(s.Table)
	if !ok {
		return nil, fmt.Errorf("plan: table not found: %q", s.Table)
	}
	schema, _ := cat.TableSchema(tableOID)

	var scan Operator
	if s.Filter != nil {
		colIdx := schema.IndexOf(s.Filter.Column)
		if colIdx < 0 {
			return nil, fmt.Errorf("plan: column %q not found in table %q", s.Filter.Column, s.Table)
		}
		want, err := literalValue(s.Filter.Value, schema.Attributes[colIdx].Kind)
		if err != nil {
			return nil, err
		}
		if idx, ok := cat.IndexFor(tableOID, s.Filter.Column); ok {
			is, err := NewIndexScan(cat, idx, tableOID, want)
			if err != nil {
				return nil, err
			}
			scan = is
		} else {
			base, err := NewSeqScan(cat, tableOID)
			if err != nil {
				return nil, err
			}
			scan = NewFilter(base, colIdx, want)
		}
	} else {
		base, err := NewSeqScan(cat, tableOID)
		if err != nil {
			return nil, err
		}
		scan = base
	}

	if len(s.Selection) == 1 && s.Selection[0] == "*" {
		return scan, nil
	}
	indices := make([]int, len(s.Selection))
	for i, name := range s.Selection {
		idx := schema.IndexOf(name)
		if idx < 0 {
			return nil, fmt.Errorf("plan: column %q not found in table %q", name, s.Table)
		}
		indices[i] = idx
	}
	return NewProjection(scan, indices), nil
}

// scanForFilter builds the (filtered) child scan Update/Delete pull rows
// from, reusing the same index-or-seqscan choice planSelect makes.
func scanForFilter(cat *catalog.Catalog, tableOID uint32, schema heap.Schema, filter *ast.Filter) (Operator, error) {
	if filter == nil {
		return NewSeqScan(cat, tableOID)
	}
	colIdx := schema.IndexOf(filter.Column)
	if colIdx < 0 {
		return nil, fmt.Errorf("plan: column %q not found", filter.Column)
	}
	want, err := literalValue(filter.Value, schema.Attributes[colIdx].Kind)
	if err != nil {
		return nil, err
	}
	if idx, ok := cat.IndexFor(tableOID, filter.Column); ok {
		return NewIndexScan(cat, idx, tableOID, want)
	}
	base, err := NewSeqScan(cat, tableOID)
	if err != nil {
		return nil, err
	}
	return NewFilter(base, colIdx, want), nil
}

func planUpdate(cat *catalog.Catalog, s *ast.Update) (Operator, error) {
	tableOID, ok := cat.TableOID(s.Table)
	if !ok {
		return nil, fmt.Errorf("plan: table not found: %q", s.Table)
	}
	schema, _ := cat.TableSchema(tableOID)

	type assign struct {
		idx int
		val heap.Value
	}
	assigns := make([]assign, len(s.Assignments))
	for i, a := range s.Assignments {
		idx := schema.IndexOf(a.Column)
		if idx < 0 {
			return nil, fmt.Errorf("plan: column %q not found in table %q", a.Column, s.Table)
		}
		v, err := literalValue(a.Value, schema.Attributes[idx].Kind)
		if err != nil {
			return nil, err
		}
		assigns[i] = assign{idx: idx, val: v}
	}

	child, err := scanForFilter(cat, tableOID, schema, s.Filter)
	if err != nil {
		return nil, err
	}

	transform := func(old heap.Tuple) heap.Tuple {
		values := make([]heap.Value, len(old.Values))
		copy(values, old.Values)
		for _, a := range assigns {
			values[a.idx] = a.val
		}
		return heap.NewTuple(values)
	}
	return NewUpdate(child, cat, tableOID, transform), nil
}

func planDelete(cat *catalog.Catalog, s *ast.Delete) (Operator, error) {
	tableOID, ok := cat.TableOID(s.Table)
	if !ok {
		return nil, fmt.Errorf("plan: table not found: %q", s.Table)
	}
	schema, _ := cat.TableSchema(tableOID)

	child, err := scanForFilter(cat, tableOID, schema, s.Filter)
	if err != nil {
		return nil, err
	}
	return NewDelete(child, cat, tableOID), nil
}
