// Package plan implements the pull-based execution operators and the
// planner that lowers a parsed statement into a tree of them.
//
// What: Values, SeqScan, IndexScan, Filter, Projection, Insert, Update, and
// Delete, each exposing Open()/Next(). DML operators pull their child
// dry, perform one catalog mutation per tuple, and yield a single
// `[U32(count)]` summary tuple before becoming permanently exhausted.
// How: a thin wrapper layer. SeqScan wraps heap.Cursor directly (it
// already walks pages and skips tombstones); IndexScan wraps one B+-tree
// lookup plus one heap fetch; the DML operators wrap catalog.Catalog's
// InsertRow/UpdateRow/DeleteRow.
package plan

import (
	"fmt"

	"github.com/nimbusdb/nimbus/internal/storage/catalog"
	"github.com/nimbusdb/nimbus/internal/storage/heap"
)

// Operator is the pull-based iterator contract every execution node
// implements. Next returns (nil, nil) once exhausted.
type Operator interface {
	Open() error
	Next() (*heap.Tuple, error)
}

// Values yields a fixed, in-memory set of tuples, then exhausts. It is the
// child of every Insert plan: the planner already built each row in
// schema order before wrapping it here.
type Values struct {
	rows []heap.Tuple
	pos  int
}

func NewValues(rows []heap.Tuple) *Values { return &Values{rows: rows} }

func (v *Values) Open() error { v.pos = 0; return nil }

func (v *Values) Next() (*heap.Tuple, error) {
	if v.pos >= len(v.rows) {
		return nil, nil
	}
	t := v.rows[v.pos]
	v.pos++
	return &t, nil
}

// SeqScan walks every live row of a table's heap file in page order.
type SeqScan struct {
	hf     *heap.HeapFile
	schema heap.Schema
	cur    *heap.Cursor
}

func NewSeqScan(cat *catalog.Catalog, tableOID uint32) (*SeqScan, error) {
	hf, ok := cat.HeapFileFor(tableOID)
	if !ok {
		return nil, fmt.Errorf("plan: seq scan: no heap file for table oid %d", tableOID)
	}
	schema, _ := cat.TableSchema(tableOID)
	return &SeqScan{hf: hf, schema: schema}, nil
}

func (s *SeqScan) Open() error {
	s.cur = s.hf.NewCursor()
	return nil
}

func (s *SeqScan) Next() (*heap.Tuple, error) {
	data, rid, err := s.cur.Next()
	if err != nil {
		return nil, fmt.Errorf("plan: seq scan: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	tup, err := heap.FromBytes(data, s.schema)
	if err != nil {
		return nil, fmt.Errorf("plan: seq scan: decode: %w", err)
	}
	tup.Rid = &rid
	return &tup, nil
}

// IndexScan performs one B+-tree point lookup and, on a hit, one heap
// fetch. It yields at most one tuple.
type IndexScan struct {
	idx    *catalog.IndexInfo
	hf     *heap.HeapFile
	schema heap.Schema
	key    heap.Value
	done   bool
}

func NewIndexScan(cat *catalog.Catalog, idx *catalog.IndexInfo, tableOID uint32, key heap.Value) (*IndexScan, error) {
	hf, ok := cat.HeapFileFor(tableOID)
	if !ok {
		return nil, fmt.Errorf("plan: index scan: no heap file for table oid %d", tableOID)
	}
	schema, _ := cat.TableSchema(tableOID)
	return &IndexScan{idx: idx, hf: hf, schema: schema, key: key}, nil
}

func (s *IndexScan) Open() error { s.done = false; return nil }

func (s *IndexScan) Next() (*heap.Tuple, error) {
	if s.done {
		return nil, nil
	}
	s.done = true
	rid, found, err := s.idx.Get(s.key)
	if err != nil {
		return nil, fmt.Errorf("plan: index scan: %w", err)
	}
	if !found {
		return nil, nil
	}
	data, err := s.hf.Get(rid)
	if err != nil {
		return nil, fmt.Errorf("plan: index scan: fetch: %w", err)
	}
	tup, err := heap.FromBytes(data, s.schema)
	if err != nil {
		return nil, fmt.Errorf("plan: index scan: decode: %w", err)
	}
	tup.Rid = &rid
	return &tup, nil
}

// Filter pulls from its child and yields only tuples whose named column
// equals a fixed value. It carries no state of its own beyond the child
// cursor.
type Filter struct {
	child  Operator
	colIdx int
	want   heap.Value
}

func NewFilter(child Operator, colIdx int, want heap.Value) *Filter {
	return &Filter{child: child, colIdx: colIdx, want: want}
}

func (f *Filter) Open() error { return f.child.Open() }

func (f *Filter) Next() (*heap.Tuple, error) {
	for {
		tup, err := f.child.Next()
		if err != nil || tup == nil {
			return tup, err
		}
		if valuesEqual(tup.Values[f.colIdx], f.want) {
			return tup, nil
		}
	}
}

func valuesEqual(a, b heap.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	return a.Val == b.Val
}

// Projection reorders/restricts each child tuple's values to the given
// column indices.
type Projection struct {
	child   Operator
	indices []int
}

func NewProjection(child Operator, indices []int) *Projection {
	return &Projection{child: child, indices: indices}
}

func (p *Projection) Open() error { return p.child.Open() }

func (p *Projection) Next() (*heap.Tuple, error) {
	tup, err := p.child.Next()
	if err != nil || tup == nil {
		return tup, err
	}
	out := make([]heap.Value, len(p.indices))
	for i, idx := range p.indices {
		out[i] = tup.Values[idx]
	}
	return &heap.Tuple{Values: out, Rid: tup.Rid}, nil
}

func countTuple(n uint32) *heap.Tuple {
	return &heap.Tuple{Values: []heap.Value{heap.U32(n)}}
}
