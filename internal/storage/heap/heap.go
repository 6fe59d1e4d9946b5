package heap

import (
	"errors"
	"fmt"

	"github.com/nimbusdb/nimbus/internal/storage/buffer"
	"github.com/nimbusdb/nimbus/internal/storage/page"
)

// ErrRowNotFound is returned when a RowId no longer names a live slot.
var ErrRowNotFound = errors.New("heap: row not found")

// HeapFile is a logical table: a singly linked chain of SlottedData pages
// rooted at a fixed page id.
type HeapFile struct {
	pool *buffer.Pool
	root page.PageID
}

// New wraps an existing root page as a heap file.
func New(pool *buffer.Pool, root page.PageID) *HeapFile {
	return &HeapFile{pool: pool, root: root}
}

// RootPageID returns the heap's root page id.
func (h *HeapFile) RootPageID() page.PageID { return h.root }

// Insert walks the page chain from the root looking for a page with room
// for data; if none is found, it allocates and chains a fresh SlottedData
// page and inserts there.
func (h *HeapFile) Insert(data []byte) (RowId, error) {
	pid := h.root
	var lastIdx int
	for {
		idx, err := h.pool.FetchPage(pid)
		if err != nil {
			return 0, fmt.Errorf("heap: insert: fetch page %d: %w", pid, err)
		}
		pg := h.pool.FramePage(idx)
		slotNum, err := pg.AddSlot(data)
		if err == nil {
			h.pool.MarkFrameDirty(idx)
			h.pool.UnpinFrame(idx)
			return NewRowId(pid, uint32(slotNum)), nil
		}
		if !errors.Is(err, page.ErrInsufficientSpace) {
			h.pool.UnpinFrame(idx)
			return 0, fmt.Errorf("heap: insert: %w", err)
		}
		next := pg.NextPageID()
		if next == page.InvalidPageID {
			lastIdx = idx
			break
		}
		h.pool.UnpinFrame(idx)
		pid = next
	}

	newIdx, newID, newOffset, err := h.pool.AllocNewPage(page.KindSlottedData)
	if err != nil {
		h.pool.UnpinFrame(lastIdx)
		return 0, fmt.Errorf("heap: insert: alloc page: %w", err)
	}
	lastPage := h.pool.FramePage(lastIdx)
	lastPage.SetNextPageID(newID)
	h.pool.MarkFrameDirty(lastIdx)
	h.pool.UnpinFrame(lastIdx)

	if err := h.pool.RegisterPageInDirectory(newID, newOffset, uint32(page.Size-page.HeaderSize)); err != nil {
		h.pool.UnpinFrame(newIdx)
		return 0, fmt.Errorf("heap: insert: register page: %w", err)
	}
	newPage := h.pool.FramePage(newIdx)
	slotNum, err := newPage.AddSlot(data)
	if err != nil {
		h.pool.UnpinFrame(newIdx)
		return 0, fmt.Errorf("heap: insert: add slot on fresh page: %w", err)
	}
	h.pool.MarkFrameDirty(newIdx)
	h.pool.UnpinFrame(newIdx)
	return NewRowId(newID, uint32(slotNum)), nil
}

// Get locates rid, verifies the page header's id matches, and returns a
// copy of the slot bytes; the frame is unpinned before returning.
func (h *HeapFile) Get(rid RowId) ([]byte, error) {
	idx, err := h.pool.FetchPage(rid.PageID())
	if err != nil {
		return nil, fmt.Errorf("heap: get: fetch page %d: %w", rid.PageID(), err)
	}
	pg := h.pool.FramePage(idx)
	if pg.PageID() != rid.PageID() {
		h.pool.UnpinFrame(idx)
		return nil, fmt.Errorf("heap: get: %w", ErrRowNotFound)
	}
	data := pg.SlotData(int(rid.SlotNum()))
	if data == nil {
		h.pool.UnpinFrame(idx)
		return nil, ErrRowNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	h.pool.UnpinFrame(idx)
	return out, nil
}

// Delete tombstones rid's slot.
func (h *HeapFile) Delete(rid RowId) error {
	idx, err := h.pool.FetchPage(rid.PageID())
	if err != nil {
		return fmt.Errorf("heap: delete: fetch page %d: %w", rid.PageID(), err)
	}
	pg := h.pool.FramePage(idx)
	pg.RemoveSlotAt(int(rid.SlotNum()))
	h.pool.MarkFrameDirty(idx)
	h.pool.UnpinFrame(idx)
	return nil
}

// Cursor is the page-by-page, slot-by-slot scan state used by SeqScan.
type Cursor struct {
	heap      *HeapFile
	pageID    page.PageID
	slotIndex int
	exhausted bool
}

// NewCursor starts a scan at the heap's root page.
func (h *HeapFile) NewCursor() *Cursor {
	return &Cursor{heap: h, pageID: h.root}
}

// Next returns the next non-tombstone row and its RowId, crossing page
// boundaries via next_page_id. It returns (nil, 0, nil) once the chain is
// exhausted; that call and every subsequent one are no-ops.
func (c *Cursor) Next() ([]byte, RowId, error) {
	if c.exhausted {
		return nil, 0, nil
	}
	for {
		idx, err := c.heap.pool.FetchPage(c.pageID)
		if err != nil {
			c.exhausted = true
			return nil, 0, fmt.Errorf("heap: scan: fetch page %d: %w", c.pageID, err)
		}
		pg := c.heap.pool.FramePage(idx)
		n := pg.SlotCount()
		for c.slotIndex < n {
			data := pg.SlotData(c.slotIndex)
			if data == nil {
				c.slotIndex++
				continue
			}
			out := make([]byte, len(data))
			copy(out, data)
			rid := NewRowId(c.pageID, uint32(c.slotIndex))
			c.slotIndex++
			c.heap.pool.UnpinFrame(idx)
			return out, rid, nil
		}
		next := pg.NextPageID()
		c.heap.pool.UnpinFrame(idx)
		if next == page.InvalidPageID {
			c.exhausted = true
			return nil, 0, nil
		}
		c.pageID = next
		c.slotIndex = 0
	}
}
