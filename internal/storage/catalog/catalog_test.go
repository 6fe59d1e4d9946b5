package catalog

import (
	"path/filepath"
	"testing"

	"github.com/nimbusdb/nimbus/internal/storage/buffer"
	"github.com/nimbusdb/nimbus/internal/storage/disk"
	"github.com/nimbusdb/nimbus/internal/storage/heap"
)

func openFreshCatalog(t *testing.T, path string) *Catalog {
	t.Helper()
	fm, err := disk.Open(path)
	if err != nil {
		t.Fatalf("disk.Open: %v", err)
	}
	t.Cleanup(func() { fm.Close() })
	pool := buffer.NewPool(fm, 32, buffer.NewFIFOEvictor())
	cat, err := Open(pool)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return cat
}

func reopenCatalog(t *testing.T, path string) *Catalog {
	t.Helper()
	fm, err := disk.Open(path)
	if err != nil {
		t.Fatalf("disk.Open (reopen): %v", err)
	}
	t.Cleanup(func() { fm.Close() })
	pool := buffer.NewPool(fm, 32, buffer.NewFIFOEvictor())
	cat, err := Open(pool)
	if err != nil {
		t.Fatalf("Open (reopen): %v", err)
	}
	return cat
}

func TestCatalogBootstrap(t *testing.T) {
	cat := openFreshCatalog(t, filepath.Join(t.TempDir(), "test.db"))

	for _, name := range []string{"system_tables", "system_columns", "system_indexes"} {
		if _, ok := cat.TableOID(name); !ok {
			t.Fatalf("bootstrap did not register %q", name)
		}
	}

	tables := cat.ListTables()
	if len(tables) != 3 {
		t.Fatalf("ListTables after bootstrap = %v, want exactly the 3 system tables", tables)
	}
}

func TestCreateTablePersistsMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	cat := openFreshCatalog(t, path)

	attrs := []heap.Attribute{
		{Name: "id", Kind: heap.KindU32},
		{Name: "name", Kind: heap.KindVarchar},
	}
	oid, err := cat.CreateTable("users", attrs)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if oid < firstUserOID {
		t.Fatalf("CreateTable oid = %d, want >= %d", oid, firstUserOID)
	}

	gotOID, ok := cat.TableOID("users")
	if !ok || gotOID != oid {
		t.Fatalf("TableOID(users) = (%d, %v), want (%d, true)", gotOID, ok, oid)
	}
	schema, ok := cat.TableSchema(oid)
	if !ok || len(schema.Attributes) != 2 {
		t.Fatalf("TableSchema(%d) = (%v, %v), want 2 attributes", oid, schema, ok)
	}

	rid, err := cat.InsertRow(oid, heap.NewTuple([]heap.Value{heap.U32(1), heap.Varchar("ada")}))
	if err != nil {
		t.Fatalf("InsertRow: %v", err)
	}
	hf, _ := cat.HeapFileFor(oid)
	raw, err := hf.Get(rid)
	if err != nil {
		t.Fatalf("Get inserted row: %v", err)
	}
	tup, err := heap.FromBytes(raw, schema)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if tup.Values[1].Val.(string) != "ada" {
		t.Fatalf("inserted row name = %q, want %q", tup.Values[1].Val, "ada")
	}

	if err := cat.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reopened := reopenCatalog(t, path)
	reOID, ok := reopened.TableOID("users")
	if !ok || reOID != oid {
		t.Fatalf("after reopen, TableOID(users) = (%d, %v), want (%d, true)", reOID, ok, oid)
	}
	reSchema, ok := reopened.TableSchema(reOID)
	if !ok || len(reSchema.Attributes) != 2 {
		t.Fatalf("after reopen, TableSchema = (%v, %v), want 2 attributes", reSchema, ok)
	}
	if reSchema.Attributes[0].Name != "id" || reSchema.Attributes[1].Name != "name" {
		t.Fatalf("after reopen, columns = %+v, want id,name in order", reSchema.Attributes)
	}

	reHF, ok := reopened.HeapFileFor(reOID)
	if !ok {
		t.Fatalf("after reopen, HeapFileFor(%d) missing", reOID)
	}
	cur := reHF.NewCursor()
	data, _, err := cur.Next()
	if err != nil {
		t.Fatalf("after reopen, cursor.Next: %v", err)
	}
	if data == nil {
		t.Fatalf("after reopen, no rows found in users")
	}
	reTup, err := heap.FromBytes(data, reSchema)
	if err != nil {
		t.Fatalf("after reopen, FromBytes: %v", err)
	}
	if reTup.Values[1].Val.(string) != "ada" {
		t.Fatalf("after reopen, row name = %q, want %q", reTup.Values[1].Val, "ada")
	}
}

func TestCreateTableRejectsDuplicateName(t *testing.T) {
	cat := openFreshCatalog(t, filepath.Join(t.TempDir(), "test.db"))
	attrs := []heap.Attribute{{Name: "id", Kind: heap.KindU32}}
	if _, err := cat.CreateTable("widgets", attrs); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := cat.CreateTable("widgets", attrs); err == nil {
		t.Fatalf("CreateTable duplicate name succeeded, want error")
	}
}

func TestCreateIndexPopulatesFromExistingRows(t *testing.T) {
	cat := openFreshCatalog(t, filepath.Join(t.TempDir(), "test.db"))
	attrs := []heap.Attribute{
		{Name: "id", Kind: heap.KindU32},
		{Name: "label", Kind: heap.KindVarchar},
	}
	oid, err := cat.CreateTable("items", attrs)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	var rids []struct {
		id  uint32
		rid heap.RowId
	}
	for i := uint32(0); i < 10; i++ {
		rid, err := cat.InsertRow(oid, heap.NewTuple([]heap.Value{heap.U32(i), heap.Varchar("x")}))
		if err != nil {
			t.Fatalf("InsertRow(%d): %v", i, err)
		}
		rids = append(rids, struct {
			id  uint32
			rid heap.RowId
		}{i, rid})
	}

	if _, err := cat.CreateIndex("items", "id"); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	idx, ok := cat.IndexFor(oid, "id")
	if !ok {
		t.Fatalf("IndexFor(items, id) not found after CreateIndex")
	}

	for _, want := range rids {
		rid, found, err := idx.Get(heap.U32(want.id))
		if err != nil {
			t.Fatalf("idx.Get(%d): %v", want.id, err)
		}
		if !found || rid != want.rid {
			t.Fatalf("idx.Get(%d) = (%v, %v), want (%v, true)", want.id, rid, found, want.rid)
		}
	}
}

func TestDeleteRowMaintainsIndex(t *testing.T) {
	cat := openFreshCatalog(t, filepath.Join(t.TempDir(), "test.db"))
	attrs := []heap.Attribute{{Name: "id", Kind: heap.KindU32}}
	oid, err := cat.CreateTable("things", attrs)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := cat.CreateIndex("things", "id"); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	rid, err := cat.InsertRow(oid, heap.NewTuple([]heap.Value{heap.U32(7)}))
	if err != nil {
		t.Fatalf("InsertRow: %v", err)
	}
	idx, _ := cat.IndexFor(oid, "id")
	if _, found, _ := idx.Get(heap.U32(7)); !found {
		t.Fatalf("index missing row right after insert")
	}

	if err := cat.DeleteRow(oid, rid); err != nil {
		t.Fatalf("DeleteRow: %v", err)
	}
	if _, found, err := idx.Get(heap.U32(7)); err != nil || found {
		t.Fatalf("idx.Get after delete = (found=%v, err=%v), want (false, nil)", found, err)
	}
}

func TestDropTableRemovesMetadataButKeepsSystemTables(t *testing.T) {
	cat := openFreshCatalog(t, filepath.Join(t.TempDir(), "test.db"))
	attrs := []heap.Attribute{{Name: "id", Kind: heap.KindU32}}
	if _, err := cat.CreateTable("temp", attrs); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := cat.DropTable("temp"); err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	if _, ok := cat.TableOID("temp"); ok {
		t.Fatalf("TableOID(temp) still found after DropTable")
	}
	if err := cat.DropTable("system_tables"); err == nil {
		t.Fatalf("DropTable(system_tables) succeeded, want error")
	}
}
