package heap

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/nimbusdb/nimbus/internal/storage/buffer"
	"github.com/nimbusdb/nimbus/internal/storage/disk"
	"github.com/nimbusdb/nimbus/internal/storage/page"
)

func newTestHeap(t *testing.T, numFrames int) (*buffer.Pool, *HeapFile) {
	t.Helper()
	fm, err := disk.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("disk.Open: %v", err)
	}
	t.Cleanup(func() { fm.Close() })
	pool := buffer.NewPool(fm, numFrames, buffer.NewFIFOEvictor())

	rootIdx, rootOffset, err := pool.AllocNewPageWithID(page.RootDirectoryPageID, page.KindDirectory)
	if err != nil {
		t.Fatalf("AllocNewPageWithID(root directory): %v", err)
	}
	pool.UnpinFrame(rootIdx)
	pool.InitDirectoryTail(rootOffset)

	hIdx, hID, hOffset, err := pool.AllocNewPage(page.KindSlottedData)
	if err != nil {
		t.Fatalf("AllocNewPage(heap root): %v", err)
	}
	pool.UnpinFrame(hIdx)
	if err := pool.RegisterPageInDirectory(hID, hOffset, uint32(page.Size-page.HeaderSize)); err != nil {
		t.Fatalf("RegisterPageInDirectory: %v", err)
	}

	return pool, New(pool, hID)
}

func TestHeapInsertGetDelete(t *testing.T) {
	_, h := newTestHeap(t, 16)

	rid1, err := h.Insert([]byte("row one"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	rid2, err := h.Insert([]byte("row two"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := h.Get(rid1)
	if err != nil {
		t.Fatalf("Get(rid1): %v", err)
	}
	if !bytes.Equal(got, []byte("row one")) {
		t.Fatalf("Get(rid1) = %q, want %q", got, "row one")
	}

	if err := h.Delete(rid1); err != nil {
		t.Fatalf("Delete(rid1): %v", err)
	}
	if _, err := h.Get(rid1); err != ErrRowNotFound {
		t.Fatalf("Get(rid1) after delete = %v, want ErrRowNotFound", err)
	}

	// rid2 is unaffected by rid1's tombstoning: RowId stability under
	// delete is the whole point of tombstoning over swap-with-last.
	got2, err := h.Get(rid2)
	if err != nil {
		t.Fatalf("Get(rid2) after unrelated delete: %v", err)
	}
	if !bytes.Equal(got2, []byte("row two")) {
		t.Fatalf("Get(rid2) = %q, want %q", got2, "row two")
	}
}

func TestHeapInsertSpansMultiplePages(t *testing.T) {
	_, h := newTestHeap(t, 16)

	// Each row is a few hundred bytes; with a 4KB page and plenty of
	// rows, the heap must allocate and chain additional SlottedData pages.
	payload := bytes.Repeat([]byte{0x42}, 300)
	const rowCount = 40
	rids := make([]RowId, 0, rowCount)
	for i := 0; i < rowCount; i++ {
		rid, err := h.Insert(payload)
		if err != nil {
			t.Fatalf("Insert #%d: %v", i, err)
		}
		rids = append(rids, rid)
	}

	seen := make(map[page.PageID]bool)
	for _, rid := range rids {
		seen[rid.PageID()] = true
		got, err := h.Get(rid)
		if err != nil {
			t.Fatalf("Get(%v): %v", rid, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("Get(%v) returned wrong bytes", rid)
		}
	}
	if len(seen) < 2 {
		t.Fatalf("expected rows to span multiple pages, saw only %d page(s)", len(seen))
	}
}

func TestHeapCursorSkipsTombstones(t *testing.T) {
	_, h := newTestHeap(t, 16)

	var rids []RowId
	for _, s := range []string{"a", "b", "c", "d"} {
		rid, err := h.Insert([]byte(s))
		if err != nil {
			t.Fatalf("Insert(%q): %v", s, err)
		}
		rids = append(rids, rid)
	}
	if err := h.Delete(rids[1]); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	cur := h.NewCursor()
	var got []string
	for {
		data, _, err := cur.Next()
		if err != nil {
			t.Fatalf("Cursor.Next: %v", err)
		}
		if data == nil {
			break
		}
		got = append(got, string(data))
	}
	want := []string{"a", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("cursor yielded %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cursor yielded %v, want %v", got, want)
		}
	}
}

func TestTupleCodecRoundTrip(t *testing.T) {
	schema := Schema{Attributes: []Attribute{
		{Name: "id", Kind: KindU32},
		{Name: "score", Kind: KindF64},
		{Name: "active", Kind: KindBool},
		{Name: "code", Kind: KindChar, MaxLen: 4},
		{Name: "bio", Kind: KindVarchar},
	}}
	tup := NewTuple([]Value{
		U32(42),
		F64(3.25),
		BoolVal(true),
		CharVal("ab"),
		Varchar("a longer description"),
	})

	raw, err := tup.ToBytes(schema)
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	got, err := FromBytes(raw, schema)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if len(got.Values) != len(tup.Values) {
		t.Fatalf("decoded %d values, want %d", len(got.Values), len(tup.Values))
	}
	if got.Values[0].Val.(uint32) != 42 {
		t.Fatalf("id = %v, want 42", got.Values[0].Val)
	}
	if got.Values[1].Val.(float64) != 3.25 {
		t.Fatalf("score = %v, want 3.25", got.Values[1].Val)
	}
	if got.Values[2].Val.(bool) != true {
		t.Fatalf("active = %v, want true", got.Values[2].Val)
	}
	if got.Values[3].Val.(string) != "ab" {
		t.Fatalf("code = %q, want %q", got.Values[3].Val, "ab")
	}
	if got.Values[4].Val.(string) != "a longer description" {
		t.Fatalf("bio = %q, want %q", got.Values[4].Val, "a longer description")
	}
}

func TestTupleCodecRejectsSchemaMismatch(t *testing.T) {
	schema := Schema{Attributes: []Attribute{{Name: "id", Kind: KindU32}}}
	tup := NewTuple([]Value{U64(1)})
	if _, err := tup.ToBytes(schema); err == nil {
		t.Fatalf("ToBytes with mismatched kind succeeded, want error")
	}
}

func TestRowIdPackUnpack(t *testing.T) {
	rid := NewRowId(page.PageID(12345), 67)
	if rid.PageID() != 12345 {
		t.Fatalf("PageID() = %d, want 12345", rid.PageID())
	}
	if rid.SlotNum() != 67 {
		t.Fatalf("SlotNum() = %d, want 67", rid.SlotNum())
	}
	round := RowIdFromUint64(rid.ToUint64())
	if round != rid {
		t.Fatalf("RowIdFromUint64(ToUint64()) = %v, want %v", round, rid)
	}
}
