// Package buffer implements the L3 buffer pool (fixed frame pool, pin/unpin,
// dirty tracking, pluggable eviction) together with the L2 directory page
// locator, since the two are inseparable in practice: fetching a page by id
// always goes through the locator, and the locator itself fetches Directory
// pages through the very same pool.
package buffer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nimbusdb/nimbus/internal/storage/disk"
	"github.com/nimbusdb/nimbus/internal/storage/page"
)

// DefaultFrameCount is the suggested pool size absent other configuration.
const DefaultFrameCount = 128

// ErrNoVictim is returned when every frame is pinned and none can be
// reclaimed.
var ErrNoVictim = errors.New("buffer: no unpinned frame available to evict")

// ErrPageNotFound is returned by the locator when no directory entry names
// the requested page id.
var ErrPageNotFound = errors.New("buffer: page not found in directory")

// ErrInvalidDirectory is returned when the directory chain is malformed
// (e.g. a non-root entry points at file offset 0).
var ErrInvalidDirectory = errors.New("buffer: invalid directory chain")

type frame struct {
	buf        []byte
	pageID     page.PageID
	fileOffset int64
	pinCount   int
	dirty      bool
	present    bool
}

// Pool is the fixed-size frame pool guarding access to the database file.
// A single mutex serializes every exported method call and is released when
// the call returns, so a frame a caller has pinned stays pinned across lock
// releases until that caller unpins it; the lock is not held for the whole
// of an operator Next() call.
type Pool struct {
	mu       sync.Mutex
	fm       *disk.FileManager
	evictor  Evictor
	frames   []frame
	byPageID map[page.PageID]int
	byOffset map[int64]int

	nextPageID    page.PageID
	dirTailOffset int64
	haveDirTail   bool
}

// NewPool allocates numFrames empty frames backed by fm, using evictor as
// the eviction policy.
func NewPool(fm *disk.FileManager, numFrames int, evictor Evictor) *Pool {
	frames := make([]frame, numFrames)
	for i := range frames {
		frames[i].buf = make([]byte, page.Size)
	}
	return &Pool{
		fm:         fm,
		evictor:    evictor,
		frames:     frames,
		byPageID:   make(map[page.PageID]int),
		byOffset:   make(map[int64]int),
		nextPageID: page.FirstUserPageID,
	}
}

// FramePage returns a page.Page view over the frame's backing buffer.
func (p *Pool) FramePage(frameIdx int) page.Page { return page.New(p.frames[frameIdx].buf) }

// FileExists reports whether the backing database file already has
// content — used by the catalog to decide bootstrap vs. load.
func (p *Pool) FileExists() bool {
	n, err := p.fm.FileLen()
	return err == nil && n > 0
}

func (p *Pool) pinLocked(idx int) {
	p.frames[idx].pinCount++
	p.evictor.NotifyPin(idx)
}

func (p *Pool) unpinLocked(idx int) {
	if p.frames[idx].pinCount > 0 {
		p.frames[idx].pinCount--
	}
	p.evictor.NotifyUnpin(idx)
}

// UnpinFrame releases one pin on frameIdx.
func (p *Pool) UnpinFrame(frameIdx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unpinLocked(frameIdx)
}

// MarkFrameDirty flags frameIdx for write-back before it is next reused or
// flushed.
func (p *Pool) MarkFrameDirty(frameIdx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames[frameIdx].dirty = true
}

func (p *Pool) evictVictimLocked() (int, error) {
	for i := range p.frames {
		if !p.frames[i].present {
			return i, nil
		}
	}
	idx, ok := p.evictor.PickVictim()
	if !ok {
		return 0, ErrNoVictim
	}
	if p.frames[idx].pinCount != 0 {
		return 0, ErrNoVictim
	}
	if p.frames[idx].dirty {
		if err := p.fm.WritePage(p.frames[idx].fileOffset, p.frames[idx].buf); err != nil {
			return 0, fmt.Errorf("buffer: writeback during eviction: %w", err)
		}
	}
	delete(p.byOffset, p.frames[idx].fileOffset)
	delete(p.byPageID, p.frames[idx].pageID)
	p.evictor.NotifyEviction(idx)
	p.frames[idx].present = false
	p.frames[idx].dirty = false
	return idx, nil
}

func (p *Pool) fetchAtOffsetLocked(offset int64) (int, error) {
	if idx, ok := p.byOffset[offset]; ok {
		p.pinLocked(idx)
		return idx, nil
	}
	idx, err := p.evictVictimLocked()
	if err != nil {
		return 0, err
	}
	if err := p.fm.ReadPage(offset, p.frames[idx].buf); err != nil {
		return 0, fmt.Errorf("buffer: fetch at offset %d: %w", offset, err)
	}
	pg := page.New(p.frames[idx].buf)
	p.frames[idx].pageID = pg.PageID()
	p.frames[idx].fileOffset = offset
	p.frames[idx].present = true
	p.frames[idx].dirty = false
	p.byOffset[offset] = idx
	p.byPageID[pg.PageID()] = idx
	p.evictor.NotifyFrameRead(idx)
	p.pinLocked(idx)
	return idx, nil
}

// FetchPageAtOffset fetches the page physically located at offset,
// bypassing the locator. Used to bootstrap (offset 0 is always the root
// Directory) and by the locator itself while walking the Directory chain.
func (p *Pool) FetchPageAtOffset(offset int64) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetchAtOffsetLocked(offset)
}

// FetchPage resolves id to a file offset via the directory locator (or the
// pool's own cache) and returns it pinned.
func (p *Pool) FetchPage(id page.PageID) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx, ok := p.byPageID[id]; ok {
		p.pinLocked(idx)
		return idx, nil
	}
	offset, err := p.locateLocked(id)
	if err != nil {
		return 0, err
	}
	return p.fetchAtOffsetLocked(offset)
}

func (p *Pool) allocNewPageLocked(kind page.Kind, id page.PageID) (int, int64, error) {
	offset, err := p.fm.AllocOffset()
	if err != nil {
		return 0, 0, err
	}
	idx, err := p.evictVictimLocked()
	if err != nil {
		return 0, 0, err
	}
	pg := page.New(p.frames[idx].buf)
	pg.Init(id, kind)
	if err := p.fm.WritePage(offset, p.frames[idx].buf); err != nil {
		return 0, 0, fmt.Errorf("buffer: alloc new page: %w", err)
	}
	p.frames[idx].pageID = id
	p.frames[idx].fileOffset = offset
	p.frames[idx].present = true
	p.frames[idx].dirty = false
	p.byOffset[offset] = idx
	p.byPageID[id] = idx
	p.evictor.NotifyFrameRead(idx)
	p.pinLocked(idx)
	return idx, offset, nil
}

// AllocNewPageWithID allocates a fresh zero page at the end of the file
// with an explicit, caller-chosen id — used for the four reserved low
// page ids (0..3) during catalog bootstrap.
func (p *Pool) AllocNewPageWithID(id page.PageID, kind page.Kind) (frameIdx int, offset int64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocNewPageLocked(kind, id)
}

// AllocNewPage allocates a fresh zero page with an id drawn from the pool's
// internal counter (seeded at FirstUserPageID).
func (p *Pool) AllocNewPage(kind page.Kind) (frameIdx int, id page.PageID, offset int64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id = p.nextPageID
	p.nextPageID++
	frameIdx, offset, err = p.allocNewPageLocked(kind, id)
	return
}

// SetNextPageID seeds the page-id allocator so it never reissues an id
// already present on disk. Called once by the catalog after a load.
func (p *Pool) SetNextPageID(id page.PageID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id > p.nextPageID {
		p.nextPageID = id
	}
}

// RegisterPageInDirectory inserts (id, offset, freeSpace) into the
// directory chain, rolling over to a freshly allocated Directory page when
// the current tail has no room left for both the entry and a possible
// future "next directory page" entry. The rollover threshold is 2 entries,
// not 1, because the old tail must keep room for the new Directory page's
// own entry: that is what keeps the chain self-describing (every page with
// a successor carries that successor's own entry).
func (p *Pool) RegisterPageInDirectory(id page.PageID, offset int64, freeSpace uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registerLocked(id, offset, freeSpace)
}

func (p *Pool) registerLocked(id page.PageID, offset int64, freeSpace uint32) error {
	if !p.haveDirTail {
		return fmt.Errorf("buffer: directory tail not initialized")
	}
	tailIdx, err := p.fetchAtOffsetLocked(p.dirTailOffset)
	if err != nil {
		return err
	}
	defer p.unpinLocked(tailIdx)
	tailPage := p.FramePage(tailIdx)

	if tailPage.DirFreeSpace() < 2*page.DirEntrySize {
		newID := p.nextPageID
		p.nextPageID++
		newIdx, newOffset, err := p.allocNewPageLocked(page.KindDirectory, newID)
		if err != nil {
			return err
		}
		tailPage.SetNextPageID(newID)
		p.markDirtyNoLock(tailIdx)
		if err := tailPage.DirAddEntry(newID, uint64(newOffset), uint32(page.Size-page.HeaderSize)); err != nil {
			p.unpinLocked(newIdx)
			return fmt.Errorf("buffer: directory rollover announce: %w", err)
		}
		p.dirTailOffset = newOffset
		newPage := p.FramePage(newIdx)
		if err := newPage.DirAddEntry(id, uint64(offset), freeSpace); err != nil {
			p.unpinLocked(newIdx)
			return err
		}
		p.markDirtyNoLock(newIdx)
		p.unpinLocked(newIdx)
		return nil
	}
	if err := tailPage.DirAddEntry(id, uint64(offset), freeSpace); err != nil {
		return err
	}
	p.markDirtyNoLock(tailIdx)
	return nil
}

func (p *Pool) markDirtyNoLock(idx int) { p.frames[idx].dirty = true }

// InitDirectoryTail records offset as the (only, so far) directory page's
// offset. Called once by the catalog right after creating the root
// Directory page during bootstrap.
func (p *Pool) InitDirectoryTail(offset int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dirTailOffset = offset
	p.haveDirTail = true
}

// ResolveDirectoryTail walks the existing Directory chain from offset 0 to
// find its current tail, and raises the page-id allocator past every id the
// chain names. Called once by the catalog on the load path.
func (p *Pool) ResolveDirectoryTail() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	offset := int64(0)
	for {
		idx, err := p.fetchAtOffsetLocked(offset)
		if err != nil {
			return err
		}
		pg := p.FramePage(idx)
		for i, n := 0, pg.DirNumEntries(); i < n; i++ {
			if id, _, _ := pg.DirEntryAt(i); id >= p.nextPageID {
				p.nextPageID = id + 1
			}
		}
		next := pg.NextPageID()
		if next == page.InvalidPageID {
			p.unpinLocked(idx)
			p.dirTailOffset = offset
			p.haveDirTail = true
			return nil
		}
		nextOffset, _, ok := pg.DirFindEntry(next)
		p.unpinLocked(idx)
		if !ok {
			return ErrInvalidDirectory
		}
		offset = int64(nextOffset)
	}
}

// locateLocked walks the Directory chain from file offset 0 looking for
// pageID, hopping between Directory pages by finding each successor's own
// entry within the page that names it (the chain is self-describing).
func (p *Pool) locateLocked(pageID page.PageID) (int64, error) {
	offset := int64(0)
	for {
		idx, err := p.fetchAtOffsetLocked(offset)
		if err != nil {
			return 0, err
		}
		dirPage := p.FramePage(idx)
		if dirPage.Kind() != page.KindDirectory {
			p.unpinLocked(idx)
			return 0, ErrInvalidDirectory
		}
		if foundOffset, _, ok := dirPage.DirFindEntry(pageID); ok {
			p.unpinLocked(idx)
			if foundOffset == 0 && pageID != page.RootDirectoryPageID {
				return 0, ErrInvalidDirectory
			}
			return int64(foundOffset), nil
		}
		next := dirPage.NextPageID()
		if next == page.InvalidPageID {
			p.unpinLocked(idx)
			return 0, ErrPageNotFound
		}
		nextOffset, _, ok := dirPage.DirFindEntry(next)
		p.unpinLocked(idx)
		if !ok {
			return 0, ErrInvalidDirectory
		}
		offset = int64(nextOffset)
	}
}

// FlushAll writes back every dirty, present frame and syncs the file.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.frames {
		if p.frames[i].present && p.frames[i].dirty {
			if err := p.fm.WritePage(p.frames[i].fileOffset, p.frames[i].buf); err != nil {
				return fmt.Errorf("buffer: flush: %w", err)
			}
			p.frames[i].dirty = false
		}
	}
	return p.fm.Sync()
}
