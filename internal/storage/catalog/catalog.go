// Package catalog implements the L5 system catalog: three heap-backed
// system tables (system_tables, system_columns, system_indexes) holding
// every user table's schema and index metadata, backed by in-memory caches
// built once at open time.
package catalog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/nimbusdb/nimbus/internal/storage/btree"
	"github.com/nimbusdb/nimbus/internal/storage/buffer"
	"github.com/nimbusdb/nimbus/internal/storage/heap"
	"github.com/nimbusdb/nimbus/internal/storage/page"
)

var (
	ErrTableExists    = errors.New("catalog: table already exists")
	ErrTableNotFound  = errors.New("catalog: table not found")
	ErrIndexExists    = errors.New("catalog: index already exists")
	ErrIndexNotFound  = errors.New("catalog: index not found")
	ErrColumnNotFound = errors.New("catalog: column not found")
	ErrSystemTable    = errors.New("catalog: cannot modify a system table")
)

// firstUserOID is the first object id ever handed to a user-created table
// or index; oids below it name the three fixed system tables.
const firstUserOID uint32 = 100

func systemTablesSchema() heap.Schema {
	return heap.Schema{Attributes: []heap.Attribute{
		{Name: "oid", Kind: heap.KindU32},
		{Name: "name", Kind: heap.KindVarchar},
		{Name: "root_page", Kind: heap.KindU32},
	}}
}

func systemColumnsSchema() heap.Schema {
	return heap.Schema{Attributes: []heap.Attribute{
		{Name: "table_oid", Kind: heap.KindU32},
		{Name: "col_name", Kind: heap.KindVarchar},
		{Name: "col_type", Kind: heap.KindU8},
		{Name: "col_max_len", Kind: heap.KindU16},
	}}
}

func systemIndexesSchema() heap.Schema {
	return heap.Schema{Attributes: []heap.Attribute{
		{Name: "index_oid", Kind: heap.KindU32},
		{Name: "index_name", Kind: heap.KindVarchar},
		{Name: "table_oid", Kind: heap.KindU32},
		{Name: "column_idx", Kind: heap.KindU8},
		{Name: "root_page", Kind: heap.KindU32},
	}}
}

// IndexInfo is one column's B+-tree index. KeySize is derived from the
// indexed column's schema entry, not persisted: system_indexes.column_idx
// plus the owning table's schema is always enough to recompute it.
type IndexInfo struct {
	OID        uint32
	Name       string
	TableOID   uint32
	ColumnIdx  int
	ColumnName string
	RootPage   page.PageID
	KeySize    int
	tree       *btree.Tree
}

// TableInfo is one table's cached metadata: its schema, heap file, and
// whichever of its columns carry an index.
type TableInfo struct {
	OID      uint32
	Name     string
	RootPage page.PageID
	Schema   heap.Schema
	heapFile *heap.HeapFile
	indexes  map[string]*IndexInfo
}

// Catalog is the single entry point for table and index metadata: opened
// once per database file, caching everything in memory after an initial
// bootstrap-or-load pass.
type Catalog struct {
	pool *buffer.Pool

	tablesByName map[string]*TableInfo
	tablesByOID  map[uint32]*TableInfo
	indexesByOID map[uint32]*IndexInfo

	nextOID uint32
}

// Open bootstraps a brand-new database file (the pool's backing file is
// empty) or loads an existing one, depending on pool.FileExists().
func Open(pool *buffer.Pool) (*Catalog, error) {
	c := &Catalog{
		pool:         pool,
		tablesByName: make(map[string]*TableInfo),
		tablesByOID:  make(map[uint32]*TableInfo),
		indexesByOID: make(map[uint32]*IndexInfo),
		nextOID:      firstUserOID,
	}
	if pool.FileExists() {
		if err := c.load(); err != nil {
			return nil, fmt.Errorf("catalog: load: %w", err)
		}
		return c, nil
	}
	if err := c.bootstrap(); err != nil {
		return nil, fmt.Errorf("catalog: bootstrap: %w", err)
	}
	return c, nil
}

func (c *Catalog) bootstrap() error {
	rootIdx, rootOffset, err := c.pool.AllocNewPageWithID(page.RootDirectoryPageID, page.KindDirectory)
	if err != nil {
		return fmt.Errorf("alloc root directory: %w", err)
	}
	c.pool.UnpinFrame(rootIdx)
	c.pool.InitDirectoryTail(rootOffset)

	for _, id := range []page.PageID{page.SystemTablesPageID, page.SystemColumnsPageID, page.SystemIndexesPageID} {
		if err := c.allocFixedHeapPage(id); err != nil {
			return err
		}
	}

	c.registerSystemTable(1, "system_tables", page.SystemTablesPageID, systemTablesSchema())
	c.registerSystemTable(2, "system_columns", page.SystemColumnsPageID, systemColumnsSchema())
	c.registerSystemTable(3, "system_indexes", page.SystemIndexesPageID, systemIndexesSchema())

	return c.pool.FlushAll()
}

func (c *Catalog) registerSystemTable(oid uint32, name string, root page.PageID, schema heap.Schema) {
	ti := &TableInfo{
		OID: oid, Name: name, RootPage: root, Schema: schema,
		heapFile: heap.New(c.pool, root), indexes: make(map[string]*IndexInfo),
	}
	c.tablesByOID[oid] = ti
	c.tablesByName[name] = ti
}

func (c *Catalog) allocFixedHeapPage(id page.PageID) error {
	idx, offset, err := c.pool.AllocNewPageWithID(id, page.KindSlottedData)
	if err != nil {
		return fmt.Errorf("alloc fixed page %d: %w", id, err)
	}
	c.pool.UnpinFrame(idx)
	if err := c.pool.RegisterPageInDirectory(id, offset, uint32(page.Size-page.HeaderSize)); err != nil {
		return fmt.Errorf("register fixed page %d: %w", id, err)
	}
	return nil
}

func (c *Catalog) load() error {
	if err := c.pool.ResolveDirectoryTail(); err != nil {
		return fmt.Errorf("resolve directory tail: %w", err)
	}

	c.registerSystemTable(1, "system_tables", page.SystemTablesPageID, systemTablesSchema())
	c.registerSystemTable(2, "system_columns", page.SystemColumnsPageID, systemColumnsSchema())
	c.registerSystemTable(3, "system_indexes", page.SystemIndexesPageID, systemIndexesSchema())

	maxOID := uint32(3)
	maxPageID := page.FirstUserPageID - 1

	cur := c.tablesByOID[1].heapFile.NewCursor()
	for {
		data, _, err := cur.Next()
		if err != nil {
			return fmt.Errorf("scan system_tables: %w", err)
		}
		if data == nil {
			break
		}
		tup, err := heap.FromBytes(data, systemTablesSchema())
		if err != nil {
			return fmt.Errorf("decode system_tables row: %w", err)
		}
		oid := tup.Values[0].Val.(uint32)
		name := tup.Values[1].Val.(string)
		root := page.PageID(tup.Values[2].Val.(uint32))
		ti := &TableInfo{OID: oid, Name: name, RootPage: root, heapFile: heap.New(c.pool, root), indexes: make(map[string]*IndexInfo)}
		c.tablesByOID[oid] = ti
		c.tablesByName[name] = ti
		if oid > maxOID {
			maxOID = oid
		}
		if root > maxPageID {
			maxPageID = root
		}
	}

	colsByTable := make(map[uint32][]heap.Attribute)
	colCur := c.tablesByOID[2].heapFile.NewCursor()
	for {
		data, _, err := colCur.Next()
		if err != nil {
			return fmt.Errorf("scan system_columns: %w", err)
		}
		if data == nil {
			break
		}
		tup, err := heap.FromBytes(data, systemColumnsSchema())
		if err != nil {
			return fmt.Errorf("decode system_columns row: %w", err)
		}
		tableOID := tup.Values[0].Val.(uint32)
		colsByTable[tableOID] = append(colsByTable[tableOID], heap.Attribute{
			Name:   tup.Values[1].Val.(string),
			Kind:   heap.AttributeKind(tup.Values[2].Val.(uint8)),
			MaxLen: tup.Values[3].Val.(uint16),
		})
	}
	for oid, attrs := range colsByTable {
		if ti, ok := c.tablesByOID[oid]; ok {
			ti.Schema = heap.Schema{Attributes: attrs}
		}
	}

	idxCur := c.tablesByOID[3].heapFile.NewCursor()
	for {
		data, _, err := idxCur.Next()
		if err != nil {
			return fmt.Errorf("scan system_indexes: %w", err)
		}
		if data == nil {
			break
		}
		tup, err := heap.FromBytes(data, systemIndexesSchema())
		if err != nil {
			return fmt.Errorf("decode system_indexes row: %w", err)
		}
		oid := tup.Values[0].Val.(uint32)
		indexName := tup.Values[1].Val.(string)
		tableOID := tup.Values[2].Val.(uint32)
		colIdx := int(tup.Values[3].Val.(uint8))
		root := page.PageID(tup.Values[4].Val.(uint32))

		ti, ok := c.tablesByOID[tableOID]
		if !ok {
			return fmt.Errorf("system_indexes row %d names unknown table oid %d", oid, tableOID)
		}
		if colIdx < 0 || colIdx >= len(ti.Schema.Attributes) {
			return fmt.Errorf("system_indexes row %d names out-of-range column %d on table oid %d", oid, colIdx, tableOID)
		}
		colAttr := ti.Schema.Attributes[colIdx]
		keySize, err := fixedKeySize(colAttr)
		if err != nil {
			return fmt.Errorf("system_indexes row %d: %w", oid, err)
		}

		idx := &IndexInfo{
			OID: oid, Name: indexName, TableOID: tableOID, ColumnIdx: colIdx, ColumnName: colAttr.Name,
			RootPage: root, KeySize: keySize, tree: btree.Open(c.pool, root, keySize),
		}
		c.indexesByOID[oid] = idx
		ti.indexes[colAttr.Name] = idx
		if oid > maxOID {
			maxOID = oid
		}
		if root > maxPageID {
			maxPageID = root
		}
	}

	c.nextOID = maxOID + 1
	if c.nextOID < firstUserOID {
		c.nextOID = firstUserOID
	}
	c.pool.SetNextPageID(maxPageID + 1)
	return nil
}

func (c *Catalog) allocOID() uint32 {
	oid := c.nextOID
	c.nextOID++
	return oid
}

// TableOID returns the object id a table was registered under.
func (c *Catalog) TableOID(name string) (uint32, bool) {
	ti, ok := c.tablesByName[name]
	if !ok {
		return 0, false
	}
	return ti.OID, true
}

// TableSchema returns the column list a table was created with.
func (c *Catalog) TableSchema(oid uint32) (heap.Schema, bool) {
	ti, ok := c.tablesByOID[oid]
	if !ok {
		return heap.Schema{}, false
	}
	return ti.Schema, true
}

// TableRootPage returns a table's heap root page id.
func (c *Catalog) TableRootPage(oid uint32) (page.PageID, bool) {
	ti, ok := c.tablesByOID[oid]
	if !ok {
		return 0, false
	}
	return ti.RootPage, true
}

// HeapFileFor returns the heap file backing a table, for scans.
func (c *Catalog) HeapFileFor(oid uint32) (*heap.HeapFile, bool) {
	ti, ok := c.tablesByOID[oid]
	if !ok {
		return nil, false
	}
	return ti.heapFile, true
}

// IndexFor returns the index on a table's named column, if one exists.
func (c *Catalog) IndexFor(tableOID uint32, columnName string) (*IndexInfo, bool) {
	ti, ok := c.tablesByOID[tableOID]
	if !ok {
		return nil, false
	}
	idx, ok := ti.indexes[columnName]
	return idx, ok
}

// ListTables returns every table name, system and user, sorted.
func (c *Catalog) ListTables() []string {
	names := make([]string, 0, len(c.tablesByName))
	for name := range c.tablesByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateTable registers a new table: allocates its heap root page, then
// persists the table and its columns into system_tables/system_columns.
func (c *Catalog) CreateTable(name string, attrs []heap.Attribute) (uint32, error) {
	if _, exists := c.tablesByName[name]; exists {
		return 0, fmt.Errorf("%w: %q", ErrTableExists, name)
	}

	idx, rootID, offset, err := c.pool.AllocNewPage(page.KindSlottedData)
	if err != nil {
		return 0, fmt.Errorf("catalog: create table: alloc root: %w", err)
	}
	c.pool.UnpinFrame(idx)
	if err := c.pool.RegisterPageInDirectory(rootID, offset, uint32(page.Size-page.HeaderSize)); err != nil {
		return 0, fmt.Errorf("catalog: create table: register root: %w", err)
	}

	oid := c.allocOID()
	schema := heap.Schema{Attributes: attrs}
	ti := &TableInfo{OID: oid, Name: name, RootPage: rootID, Schema: schema, heapFile: heap.New(c.pool, rootID), indexes: make(map[string]*IndexInfo)}
	c.tablesByOID[oid] = ti
	c.tablesByName[name] = ti

	tup := heap.NewTuple([]heap.Value{heap.U32(oid), heap.Varchar(name), heap.U32(uint32(rootID))})
	raw, err := tup.ToBytes(systemTablesSchema())
	if err != nil {
		return 0, fmt.Errorf("catalog: create table: encode system_tables row: %w", err)
	}
	if _, err := c.tablesByOID[1].heapFile.Insert(raw); err != nil {
		return 0, fmt.Errorf("catalog: create table: insert system_tables row: %w", err)
	}

	for _, attr := range attrs {
		colTup := heap.NewTuple([]heap.Value{
			heap.U32(oid), heap.Varchar(attr.Name), heap.U8(uint8(attr.Kind)), heap.U16(attr.MaxLen),
		})
		colRaw, err := colTup.ToBytes(systemColumnsSchema())
		if err != nil {
			return 0, fmt.Errorf("catalog: create table: encode column %q: %w", attr.Name, err)
		}
		if _, err := c.tablesByOID[2].heapFile.Insert(colRaw); err != nil {
			return 0, fmt.Errorf("catalog: create table: insert column %q: %w", attr.Name, err)
		}
	}

	return oid, nil
}

// DropTable removes a user table's metadata. Its heap pages are left
// orphaned: nothing in this engine reclaims pages once allocated.
func (c *Catalog) DropTable(name string) error {
	ti, ok := c.tablesByName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	if ti.OID < firstUserOID {
		return fmt.Errorf("%w: %q", ErrSystemTable, name)
	}

	if err := c.deleteRowsWhere(c.tablesByOID[1].heapFile, systemTablesSchema(), func(v []heap.Value) bool {
		return v[0].Val.(uint32) == ti.OID
	}); err != nil {
		return fmt.Errorf("catalog: drop table: %w", err)
	}
	if err := c.deleteRowsWhere(c.tablesByOID[2].heapFile, systemColumnsSchema(), func(v []heap.Value) bool {
		return v[0].Val.(uint32) == ti.OID
	}); err != nil {
		return fmt.Errorf("catalog: drop table: %w", err)
	}
	if err := c.deleteRowsWhere(c.tablesByOID[3].heapFile, systemIndexesSchema(), func(v []heap.Value) bool {
		return v[2].Val.(uint32) == ti.OID
	}); err != nil {
		return fmt.Errorf("catalog: drop table: %w", err)
	}

	for _, idx := range ti.indexes {
		delete(c.indexesByOID, idx.OID)
	}
	delete(c.tablesByName, name)
	delete(c.tablesByOID, ti.OID)
	return nil
}

func (c *Catalog) deleteRowsWhere(h *heap.HeapFile, schema heap.Schema, match func([]heap.Value) bool) error {
	var toDelete []heap.RowId
	cur := h.NewCursor()
	for {
		data, rid, err := cur.Next()
		if err != nil {
			return err
		}
		if data == nil {
			break
		}
		tup, err := heap.FromBytes(data, schema)
		if err != nil {
			return err
		}
		if match(tup.Values) {
			toDelete = append(toDelete, rid)
		}
	}
	for _, rid := range toDelete {
		if err := h.Delete(rid); err != nil {
			return err
		}
	}
	return nil
}

// CreateIndex builds a B+-tree over tableName.columnName, populating it
// from every existing row, then persists the index's metadata into
// system_indexes.
func (c *Catalog) CreateIndex(tableName, columnName string) (uint32, error) {
	ti, ok := c.tablesByName[tableName]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrTableNotFound, tableName)
	}
	if _, exists := ti.indexes[columnName]; exists {
		return 0, fmt.Errorf("%w: %q on %q", ErrIndexExists, columnName, tableName)
	}
	colIdx := ti.Schema.IndexOf(columnName)
	if colIdx < 0 {
		return 0, fmt.Errorf("%w: %q on %q", ErrColumnNotFound, columnName, tableName)
	}
	keySize, err := fixedKeySize(ti.Schema.Attributes[colIdx])
	if err != nil {
		return 0, fmt.Errorf("catalog: create index: %w", err)
	}

	tree, err := btree.Create(c.pool, keySize)
	if err != nil {
		return 0, fmt.Errorf("catalog: create index: %w", err)
	}

	cur := ti.heapFile.NewCursor()
	for {
		data, rid, err := cur.Next()
		if err != nil {
			return 0, fmt.Errorf("catalog: create index: scan: %w", err)
		}
		if data == nil {
			break
		}
		tup, err := heap.FromBytes(data, ti.Schema)
		if err != nil {
			return 0, fmt.Errorf("catalog: create index: decode row: %w", err)
		}
		keyBytes, err := encodeIndexKey(tup.Values[colIdx], keySize)
		if err != nil {
			return 0, fmt.Errorf("catalog: create index: encode key: %w", err)
		}
		if err := tree.Insert(keyBytes, rid.ToUint64()); err != nil {
			return 0, fmt.Errorf("catalog: create index: populate: %w", err)
		}
	}

	oid := c.allocOID()
	indexName := fmt.Sprintf("idx_%s_%s", tableName, columnName)
	idxInfo := &IndexInfo{
		OID: oid, Name: indexName, TableOID: ti.OID, ColumnIdx: colIdx, ColumnName: columnName,
		RootPage: tree.Root(), KeySize: keySize, tree: tree,
	}

	tup := heap.NewTuple([]heap.Value{
		heap.U32(oid), heap.Varchar(indexName), heap.U32(ti.OID), heap.U8(uint8(colIdx)), heap.U32(uint32(idxInfo.RootPage)),
	})
	raw, err := tup.ToBytes(systemIndexesSchema())
	if err != nil {
		return 0, fmt.Errorf("catalog: create index: encode row: %w", err)
	}
	if _, err := c.tablesByOID[3].heapFile.Insert(raw); err != nil {
		return 0, fmt.Errorf("catalog: create index: insert row: %w", err)
	}

	c.indexesByOID[oid] = idxInfo
	ti.indexes[columnName] = idxInfo
	return oid, nil
}

// InsertRow appends tup to a table's heap and maintains every index on it.
func (c *Catalog) InsertRow(tableOID uint32, tup heap.Tuple) (heap.RowId, error) {
	ti, ok := c.tablesByOID[tableOID]
	if !ok {
		return 0, fmt.Errorf("%w: oid %d", ErrTableNotFound, tableOID)
	}
	raw, err := tup.ToBytes(ti.Schema)
	if err != nil {
		return 0, fmt.Errorf("catalog: insert row: %w", err)
	}
	rid, err := ti.heapFile.Insert(raw)
	if err != nil {
		return 0, fmt.Errorf("catalog: insert row: %w", err)
	}
	for colName, idx := range ti.indexes {
		colIdx := ti.Schema.IndexOf(colName)
		keyBytes, err := encodeIndexKey(tup.Values[colIdx], idx.KeySize)
		if err != nil {
			return 0, fmt.Errorf("catalog: insert row: index %q: %w", colName, err)
		}
		if err := idx.tree.Insert(keyBytes, rid.ToUint64()); err != nil {
			return 0, fmt.Errorf("catalog: insert row: index %q: %w", colName, err)
		}
		if err := c.syncIndexRoot(idx); err != nil {
			return 0, err
		}
	}
	return rid, nil
}

// DeleteRow tombstones rid in a table's heap and removes it from every
// index on that table.
func (c *Catalog) DeleteRow(tableOID uint32, rid heap.RowId) error {
	ti, ok := c.tablesByOID[tableOID]
	if !ok {
		return fmt.Errorf("%w: oid %d", ErrTableNotFound, tableOID)
	}
	if len(ti.indexes) > 0 {
		raw, err := ti.heapFile.Get(rid)
		if err != nil {
			return fmt.Errorf("catalog: delete row: %w", err)
		}
		tup, err := heap.FromBytes(raw, ti.Schema)
		if err != nil {
			return fmt.Errorf("catalog: delete row: %w", err)
		}
		for colName, idx := range ti.indexes {
			colIdx := ti.Schema.IndexOf(colName)
			keyBytes, err := encodeIndexKey(tup.Values[colIdx], idx.KeySize)
			if err != nil {
				return fmt.Errorf("catalog: delete row: index %q: %w", colName, err)
			}
			if _, err := idx.tree.Delete(keyBytes); err != nil {
				return fmt.Errorf("catalog: delete row: index %q: %w", colName, err)
			}
		}
	}
	if err := ti.heapFile.Delete(rid); err != nil {
		return fmt.Errorf("catalog: delete row: %w", err)
	}
	return nil
}

// UpdateRow replaces rid's bytes. Because a B+-tree leaf holds a row-id,
// not a copy of the row, updating a column that feeds an index always
// means delete-then-reinsert rather than an in-place index rewrite.
func (c *Catalog) UpdateRow(tableOID uint32, rid heap.RowId, newTup heap.Tuple) (heap.RowId, error) {
	if err := c.DeleteRow(tableOID, rid); err != nil {
		return 0, err
	}
	return c.InsertRow(tableOID, newTup)
}

// syncIndexRoot re-persists an index's system_indexes row when a tree
// insert split its root, since the root page id the row names has changed.
func (c *Catalog) syncIndexRoot(idx *IndexInfo) error {
	newRoot := idx.tree.Root()
	if newRoot == idx.RootPage {
		return nil
	}
	idx.RootPage = newRoot

	sysIdx := c.tablesByOID[3]
	cur := sysIdx.heapFile.NewCursor()
	for {
		data, rid, err := cur.Next()
		if err != nil {
			return fmt.Errorf("catalog: sync index root: scan: %w", err)
		}
		if data == nil {
			return fmt.Errorf("catalog: sync index root: row for index %d vanished", idx.OID)
		}
		tup, err := heap.FromBytes(data, systemIndexesSchema())
		if err != nil {
			return fmt.Errorf("catalog: sync index root: decode: %w", err)
		}
		if tup.Values[0].Val.(uint32) != idx.OID {
			continue
		}
		if err := sysIdx.heapFile.Delete(rid); err != nil {
			return fmt.Errorf("catalog: sync index root: delete stale row: %w", err)
		}
		newTup := heap.NewTuple([]heap.Value{
			heap.U32(idx.OID), heap.Varchar(idx.Name), heap.U32(idx.TableOID), heap.U8(uint8(idx.ColumnIdx)), heap.U32(uint32(idx.RootPage)),
		})
		raw, err := newTup.ToBytes(systemIndexesSchema())
		if err != nil {
			return fmt.Errorf("catalog: sync index root: encode: %w", err)
		}
		if _, err := sysIdx.heapFile.Insert(raw); err != nil {
			return fmt.Errorf("catalog: sync index root: insert updated row: %w", err)
		}
		return nil
	}
}

// Get looks up key in this index, returning the matching row-id.
func (idx *IndexInfo) Get(key heap.Value) (heap.RowId, bool, error) {
	kb, err := encodeIndexKey(key, idx.KeySize)
	if err != nil {
		return 0, false, err
	}
	v, found, err := idx.tree.Get(kb)
	if err != nil || !found {
		return 0, found, err
	}
	return heap.RowIdFromUint64(v), true, nil
}

// Flush writes every dirty buffer pool frame back to disk.
func (c *Catalog) Flush() error {
	return c.pool.FlushAll()
}

// fixedKeySize returns the fixed byte width an index over attr's column
// would use. Floating-point columns are not indexable: an order-preserving
// byte encoding for them is more machinery than anything in this engine
// exercises, so it is left unbuilt rather than shipped half-right.
func fixedKeySize(attr heap.Attribute) (int, error) {
	switch attr.Kind {
	case heap.KindU8, heap.KindI8, heap.KindBool:
		return 1, nil
	case heap.KindU16, heap.KindI16:
		return 2, nil
	case heap.KindU32, heap.KindI32:
		return 4, nil
	case heap.KindU64, heap.KindI64:
		return 8, nil
	case heap.KindU128, heap.KindI128:
		return 16, nil
	case heap.KindChar:
		return int(attr.MaxLen), nil
	default:
		return 0, fmt.Errorf("column kind %s cannot back a fixed-width index key", attr.Kind)
	}
}

// encodeIndexKey packs v into a keySize-byte big-endian key that sorts the
// same way the value itself does: unsigned integers are natural big-endian,
// signed integers have their sign bit flipped so two's-complement ordering
// matches unsigned byte-string ordering.
func encodeIndexKey(v heap.Value, keySize int) ([]byte, error) {
	b := make([]byte, keySize)
	switch val := v.Val.(type) {
	case uint8:
		b[0] = val
	case bool:
		if val {
			b[0] = 1
		}
	case uint16:
		binary.BigEndian.PutUint16(b, val)
	case uint32:
		binary.BigEndian.PutUint32(b, val)
	case uint64:
		binary.BigEndian.PutUint64(b, val)
	case int8:
		b[0] = byte(val) ^ 0x80
	case int16:
		binary.BigEndian.PutUint16(b, uint16(val)^0x8000)
	case int32:
		binary.BigEndian.PutUint32(b, uint32(val)^0x80000000)
	case int64:
		binary.BigEndian.PutUint64(b, uint64(val)^0x8000000000000000)
	case string:
		if len(val) > keySize {
			return nil, fmt.Errorf("index key %q longer than column capacity %d", val, keySize)
		}
		copy(b, val)
	case [16]byte:
		copy(b, val[:])
	default:
		return nil, fmt.Errorf("unsupported index key value type %T", v.Val)
	}
	return b, nil
}
