package page

import (
	"encoding/binary"
	"errors"
)

// ErrDataEmpty is returned when AddSlot is asked to store a zero-length
// record (zero length is reserved to mean "tombstone").
var ErrDataEmpty = errors.New("page: cannot add a zero-length slot")

// SlotMetaSize is the width of one slot descriptor: offset(2) + length(2).
const SlotMetaSize = 4

func (p Page) slotDescOffset(i int) int { return HeaderSize + i*SlotMetaSize }

// SlotCount returns the number of slot descriptors on this page, including
// tombstoned ones.
func (p Page) SlotCount() int { return int(p.NumEntries()) }

// FreeSpace returns the bytes available between the slot directory and the
// tuple-data region.
func (p Page) FreeSpace() int {
	return int(p.FreeSpacePointer()) - p.slotDescOffset(p.SlotCount())
}

func (p Page) slotDescriptor(i int) (offset, length uint16) {
	off := p.slotDescOffset(i)
	offset = binary.LittleEndian.Uint16(p.Buf[off : off+2])
	length = binary.LittleEndian.Uint16(p.Buf[off+2 : off+4])
	return
}

func (p Page) setSlotDescriptor(i int, offset, length uint16) {
	off := p.slotDescOffset(i)
	binary.LittleEndian.PutUint16(p.Buf[off:off+2], offset)
	binary.LittleEndian.PutUint16(p.Buf[off+2:off+4], length)
}

// SlotData returns the bytes stored at slot i, or nil if i is out of range
// or the slot is a tombstone (zero length).
func (p Page) SlotData(i int) []byte {
	if i < 0 || i >= p.SlotCount() {
		return nil
	}
	offset, length := p.slotDescriptor(i)
	if length == 0 {
		return nil
	}
	return p.Buf[offset : offset+length]
}

// IsTombstone reports whether slot i has been deleted.
func (p Page) IsTombstone(i int) bool {
	if i < 0 || i >= p.SlotCount() {
		return true
	}
	_, length := p.slotDescriptor(i)
	return length == 0
}

// AddSlot writes data into the tuple-data region (growing backward from the
// page tail) and appends a slot descriptor for it, returning the new slot
// number. Fails with ErrInsufficientSpace if there is no room for both the
// descriptor and the payload.
func (p Page) AddSlot(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrDataEmpty
	}
	if p.FreeSpace() < len(data)+SlotMetaSize {
		return 0, ErrInsufficientSpace
	}
	newFSP := int(p.FreeSpacePointer()) - len(data)
	copy(p.Buf[newFSP:newFSP+len(data)], data)

	slotNum := p.SlotCount()
	p.setSlotDescriptor(slotNum, uint16(newFSP), uint16(len(data)))
	p.SetNumEntries(uint16(slotNum + 1))
	p.SetFreeSpacePointer(uint16(newFSP))
	return slotNum, nil
}

// RemoveSlotAt tombstones slot i in place: its descriptor length is set to
// zero, leaving every other slot's number unchanged. The tuple bytes
// themselves are not reclaimed; page compaction is out of scope. See
// DESIGN.md for why this replaces the swap-with-last removal the original
// design used.
func (p Page) RemoveSlotAt(i int) {
	if i < 0 || i >= p.SlotCount() {
		return
	}
	p.setSlotDescriptor(i, 0, 0)
}
