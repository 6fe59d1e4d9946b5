package page

import (
	"encoding/binary"
	"errors"
)

// ErrInsufficientSpace is returned when a page has no room left for the
// requested metadata or payload write.
var ErrInsufficientSpace = errors.New("page: insufficient space")

// DirEntrySize is the width of one DirectoryEntry: page_id(4) + file_offset(8) + free_space(4).
const DirEntrySize = 16

func (p Page) dirEntryOffset(i int) int { return HeaderSize + i*DirEntrySize }

// DirNumEntries returns the number of live directory entries on this page.
func (p Page) DirNumEntries() int { return int(p.NumEntries()) }

// DirFreeSpace returns the bytes left for new directory entries.
func (p Page) DirFreeSpace() int {
	return len(p.Buf) - p.dirEntryOffset(p.DirNumEntries())
}

// DirEntryAt returns the entry at logical index i.
func (p Page) DirEntryAt(i int) (id PageID, fileOffset uint64, freeSpace uint32) {
	off := p.dirEntryOffset(i)
	id = PageID(binary.LittleEndian.Uint32(p.Buf[off : off+4]))
	fileOffset = binary.LittleEndian.Uint64(p.Buf[off+4 : off+12])
	freeSpace = binary.LittleEndian.Uint32(p.Buf[off+12 : off+16])
	return
}

func (p Page) dirWriteEntry(i int, id PageID, fileOffset uint64, freeSpace uint32) {
	off := p.dirEntryOffset(i)
	binary.LittleEndian.PutUint32(p.Buf[off:off+4], uint32(id))
	binary.LittleEndian.PutUint64(p.Buf[off+4:off+12], fileOffset)
	binary.LittleEndian.PutUint32(p.Buf[off+12:off+16], freeSpace)
}

// DirAddEntry appends one entry, failing with ErrInsufficientSpace if the
// page has no room left.
func (p Page) DirAddEntry(id PageID, fileOffset uint64, freeSpace uint32) error {
	if p.DirFreeSpace() < DirEntrySize {
		return ErrInsufficientSpace
	}
	n := p.DirNumEntries()
	p.dirWriteEntry(n, id, fileOffset, freeSpace)
	p.SetNumEntries(uint16(n + 1))
	return nil
}

// DirSetEntryFreeSpace updates the cached free-space estimate of entry i.
// Heap inserts do not call it, so an entry keeps the estimate it was
// registered with.
func (p Page) DirSetEntryFreeSpace(i int, freeSpace uint32) {
	off := p.dirEntryOffset(i)
	binary.LittleEndian.PutUint32(p.Buf[off+12:off+16], freeSpace)
}

// DirRemoveEntryAt removes entry i by swapping in the last entry and
// shrinking num_entries. Directory entries carry no externally observable
// identity beyond the page_id they name, so swap-with-last here is safe —
// unlike slot removal on a SlottedData page (see the heap package), nothing
// indexes "the third directory entry".
func (p Page) DirRemoveEntryAt(i int) {
	n := p.DirNumEntries()
	last := n - 1
	if i != last {
		id, off, fs := p.DirEntryAt(last)
		p.dirWriteEntry(i, id, off, fs)
	}
	p.SetNumEntries(uint16(last))
}

// DirFindEntry linearly scans this page's entries for pageID.
func (p Page) DirFindEntry(pageID PageID) (fileOffset uint64, freeSpace uint32, ok bool) {
	for i, n := 0, p.DirNumEntries(); i < n; i++ {
		id, off, fs := p.DirEntryAt(i)
		if id == pageID {
			return off, fs, true
		}
	}
	return 0, 0, false
}
