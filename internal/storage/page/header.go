// Package page defines the on-disk page layouts shared by every storage
// component: the 32-byte common header, and the four page kinds (Directory,
// SlottedData, BPlusInner, BPlusLeaf) built on top of it. Every type in this
// package is a thin, in-place view over a caller-owned byte slice (normally
// a buffer-pool frame's slab) — nothing here copies or allocates a page.
package page

import "encoding/binary"

// Size is the fixed page size used throughout the engine.
const Size = 4096

// HeaderSize is the width of the common page header, identical for every
// page kind.
const HeaderSize = 32

// PageID identifies a page within the single database file.
type PageID uint32

// Reserved low page ids, fixed for the lifetime of a database file.
const (
	InvalidPageID       PageID = 0
	RootDirectoryPageID PageID = 0
	SystemTablesPageID  PageID = 1
	SystemColumnsPageID PageID = 2
	SystemIndexesPageID PageID = 3
	FirstUserPageID     PageID = 100
)

// Kind identifies the page shape stored at header offset 22.
type Kind uint8

const (
	KindDirectory   Kind = 1
	KindSlottedData Kind = 2
	KindBPlusInner  Kind = 3
	KindBPlusLeaf   Kind = 4
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "Directory"
	case KindSlottedData:
		return "SlottedData"
	case KindBPlusInner:
		return "BPlusInner"
	case KindBPlusLeaf:
		return "BPlusLeaf"
	default:
		return "Unknown"
	}
}

// FlagIsRoot marks a page as the root of its B+-tree (bit 0 of the flags byte).
const FlagIsRoot uint8 = 1 << 0

// Page is an in-place view over one Size-byte page buffer.
type Page struct {
	Buf []byte
}

// New wraps an existing Size-byte buffer. It does not initialize the header;
// call Init for a freshly allocated page.
func New(buf []byte) Page { return Page{Buf: buf} }

// Init zeroes the header and sets page_id, page_kind and free_space_pointer
// to their starting values (data region empty, growing from the tail).
func (p Page) Init(id PageID, kind Kind) {
	for i := 0; i < HeaderSize; i++ {
		p.Buf[i] = 0
	}
	p.SetPageID(id)
	p.SetKind(kind)
	p.SetFreeSpacePointer(uint16(len(p.Buf)))
}

func (p Page) PageID() PageID { return PageID(binary.LittleEndian.Uint32(p.Buf[0:4])) }
func (p Page) SetPageID(id PageID) {
	binary.LittleEndian.PutUint32(p.Buf[0:4], uint32(id))
}

func (p Page) ParentPageID() PageID { return PageID(binary.LittleEndian.Uint32(p.Buf[4:8])) }
func (p Page) SetParentPageID(id PageID) {
	binary.LittleEndian.PutUint32(p.Buf[4:8], uint32(id))
}

func (p Page) NextPageID() PageID { return PageID(binary.LittleEndian.Uint32(p.Buf[8:12])) }
func (p Page) SetNextPageID(id PageID) {
	binary.LittleEndian.PutUint32(p.Buf[8:12], uint32(id))
}

func (p Page) PrevPageID() PageID { return PageID(binary.LittleEndian.Uint32(p.Buf[12:16])) }
func (p Page) SetPrevPageID(id PageID) {
	binary.LittleEndian.PutUint32(p.Buf[12:16], uint32(id))
}

func (p Page) NumEntries() uint16 { return binary.LittleEndian.Uint16(p.Buf[16:18]) }
func (p Page) SetNumEntries(n uint16) {
	binary.LittleEndian.PutUint16(p.Buf[16:18], n)
}

func (p Page) FreeSpacePointer() uint16 { return binary.LittleEndian.Uint16(p.Buf[18:20]) }
func (p Page) SetFreeSpacePointer(v uint16) {
	binary.LittleEndian.PutUint16(p.Buf[18:20], v)
}

func (p Page) Level() uint16 { return binary.LittleEndian.Uint16(p.Buf[20:22]) }
func (p Page) SetLevel(l uint16) {
	binary.LittleEndian.PutUint16(p.Buf[20:22], l)
}

func (p Page) Kind() Kind     { return Kind(p.Buf[22]) }
func (p Page) SetKind(k Kind) { p.Buf[22] = byte(k) }

func (p Page) Flags() uint8     { return p.Buf[23] }
func (p Page) SetFlags(f uint8) { p.Buf[23] = f }
func (p Page) IsRoot() bool     { return p.Flags()&FlagIsRoot != 0 }
func (p Page) SetIsRoot(root bool) {
	if root {
		p.SetFlags(p.Flags() | FlagIsRoot)
	} else {
		p.SetFlags(p.Flags() &^ FlagIsRoot)
	}
}

func (p Page) KeySize() uint32 { return binary.LittleEndian.Uint32(p.Buf[24:28]) }
func (p Page) SetKeySize(k uint32) {
	binary.LittleEndian.PutUint32(p.Buf[24:28], k)
}

// FreeSpaceFrom reports the bytes available between the end of a
// forward-growing metadata region (starting at dataStart) and the
// free_space_pointer.
func (p Page) FreeSpaceFrom(dataStart int) int {
	return int(p.FreeSpacePointer()) - dataStart
}
