// Package heap implements the L4 heap file: a logical table as a singly
// linked chain of SlottedData pages, plus the packed tuple codec used to
// serialize rows onto those pages.
package heap

import "github.com/nimbusdb/nimbus/internal/storage/page"

// RowId packs a page id and a slot number into one 64-bit value: the only
// reference ever stored in an index or returned from a scan.
type RowId uint64

// NewRowId packs pageID and slotNum into a RowId.
func NewRowId(pageID page.PageID, slotNum uint32) RowId {
	return RowId(uint64(pageID)<<32 | uint64(slotNum))
}

// PageID extracts the page id half of the RowId.
func (r RowId) PageID() page.PageID { return page.PageID(uint64(r) >> 32) }

// SlotNum extracts the slot number half of the RowId.
func (r RowId) SlotNum() uint32 { return uint32(uint64(r) & 0xFFFFFFFF) }

// ToUint64 returns the packed representation.
func (r RowId) ToUint64() uint64 { return uint64(r) }

// RowIdFromUint64 unpacks a previously packed RowId.
func RowIdFromUint64(v uint64) RowId { return RowId(v) }
