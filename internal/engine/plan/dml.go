package plan

import (
	"fmt"

	"github.com/nimbusdb/nimbus/internal/storage/catalog"
	"github.com/nimbusdb/nimbus/internal/storage/heap"
)

// Insert pulls every tuple from child, inserts each into the table's heap
// (and every index on it), and yields one `[U32(count)]` summary tuple.
// A second Next call after the summary has been pulled returns (nil, nil):
// all DML operators are idempotent once exhausted.
type Insert struct {
	child    Operator
	cat      *catalog.Catalog
	tableOID uint32
	done     bool
}

func NewInsert(child Operator, cat *catalog.Catalog, tableOID uint32) *Insert {
	return &Insert{child: child, cat: cat, tableOID: tableOID}
}

func (ins *Insert) Open() error { ins.done = false; return ins.child.Open() }

func (ins *Insert) Next() (*heap.Tuple, error) {
	if ins.done {
		return nil, nil
	}
	ins.done = true
	var count uint32
	for {
		tup, err := ins.child.Next()
		if err != nil {
			return nil, err
		}
		if tup == nil {
			break
		}
		if _, err := ins.cat.InsertRow(ins.tableOID, *tup); err != nil {
			return nil, fmt.Errorf("plan: insert: %w", err)
		}
		count++
	}
	return countTuple(count), nil
}

// Update pulls every tuple from child (each carrying its rid), replaces the
// named columns' values, deletes the old row, and inserts the replacement.
// A delete-then-reinsert is required rather than an in-place rewrite since
// an index on an updated column has to move its key, and a B+-tree leaf
// only ever stores a row-id, never a copy of the row. Every child tuple is
// pulled before the first row changes, so a reinserted replacement is never
// fed back through the child scan.
type Update struct {
	child     Operator
	cat       *catalog.Catalog
	tableOID  uint32
	transform func(heap.Tuple) heap.Tuple
	done      bool
}

func NewUpdate(child Operator, cat *catalog.Catalog, tableOID uint32, transform func(heap.Tuple) heap.Tuple) *Update {
	return &Update{child: child, cat: cat, tableOID: tableOID, transform: transform}
}

func (u *Update) Open() error { u.done = false; return u.child.Open() }

func (u *Update) Next() (*heap.Tuple, error) {
	if u.done {
		return nil, nil
	}
	u.done = true
	var pending []heap.Tuple
	for {
		tup, err := u.child.Next()
		if err != nil {
			return nil, err
		}
		if tup == nil {
			break
		}
		if tup.Rid == nil {
			return nil, fmt.Errorf("plan: update: child tuple has no rid")
		}
		pending = append(pending, *tup)
	}
	var count uint32
	for _, tup := range pending {
		newTup := u.transform(tup)
		if _, err := u.cat.UpdateRow(u.tableOID, *tup.Rid, newTup); err != nil {
			return nil, fmt.Errorf("plan: update: %w", err)
		}
		count++
	}
	return countTuple(count), nil
}

// Delete pulls every tuple from child and removes it (and its index
// entries) from the table's heap.
type Delete struct {
	child    Operator
	cat      *catalog.Catalog
	tableOID uint32
	done     bool
}

func NewDelete(child Operator, cat *catalog.Catalog, tableOID uint32) *Delete {
	return &Delete{child: child, cat: cat, tableOID: tableOID}
}

func (d *Delete) Open() error { d.done = false; return d.child.Open() }

func (d *Delete) Next() (*heap.Tuple, error) {
	if d.done {
		return nil, nil
	}
	d.done = true
	var count uint32
	for {
		tup, err := d.child.Next()
		if err != nil {
			return nil, err
		}
		if tup == nil {
			break
		}
		if tup.Rid == nil {
			return nil, fmt.Errorf("plan: delete: child tuple has no rid")
		}
		if err := d.cat.DeleteRow(d.tableOID, *tup.Rid); err != nil {
			return nil, fmt.Errorf("plan: delete: %w", err)
		}
		count++
	}
	return countTuple(count), nil
}
