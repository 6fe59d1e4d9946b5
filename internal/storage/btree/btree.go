// Package btree implements the L4 B+-tree index: point lookup now,
// split-aware insert, and borrow/merge-aware delete, over fixed-size keys
// mapping to u64 row-ids.
package btree

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nimbusdb/nimbus/internal/storage/buffer"
	"github.com/nimbusdb/nimbus/internal/storage/page"
)

// ErrKeyTooShort is returned when a caller's key does not match the tree's
// fixed key size.
var ErrKeyTooShort = errors.New("btree: key length does not match tree key size")

// Tree is a fixed-key-size B+-tree mapping key bytes to u64 row-ids.
type Tree struct {
	pool    *buffer.Pool
	root    page.PageID
	keySize int
}

// Open wraps an existing root page as a tree.
func Open(pool *buffer.Pool, root page.PageID, keySize int) *Tree {
	return &Tree{pool: pool, root: root, keySize: keySize}
}

// Create allocates a fresh, empty BPlusLeaf page and returns it as a
// brand-new tree's root.
func Create(pool *buffer.Pool, keySize int) (*Tree, error) {
	idx, id, offset, err := pool.AllocNewPage(page.KindBPlusLeaf)
	if err != nil {
		return nil, fmt.Errorf("btree: create: %w", err)
	}
	pg := pool.FramePage(idx)
	pg.SetKeySize(uint32(keySize))
	pg.SetLevel(0)
	pg.SetIsRoot(true)
	pool.MarkFrameDirty(idx)
	pool.UnpinFrame(idx)
	if err := pool.RegisterPageInDirectory(id, offset, uint32(page.Size-page.BPlusDataStart)); err != nil {
		return nil, fmt.Errorf("btree: create: register: %w", err)
	}
	return &Tree{pool: pool, root: id, keySize: keySize}, nil
}

// Root returns the tree's current root page id. Inserts that split the
// root change this; callers persisting the root elsewhere (the catalog's
// system_indexes table) must re-check it after every Insert.
func (t *Tree) Root() page.PageID { return t.root }

// KeySize returns the tree's fixed key width.
func (t *Tree) KeySize() int { return t.keySize }

func searchLeaf(pg page.Page, keySize, n int, key []byte) (int, bool) {
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		cmp := bytes.Compare(pg.BKeyAt(mid, keySize), key)
		switch {
		case cmp == 0:
			return mid, true
		case cmp < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

// findChildIndex returns the number of keys <= key, i.e. the index of the
// child subtree that may contain key.
func findChildIndex(pg page.Page, keySize, n int, key []byte) int {
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(pg.BKeyAt(mid, keySize), key) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Get performs a point lookup, descending from the root to the leaf that
// would contain key.
func (t *Tree) Get(key []byte) (uint64, bool, error) {
	if len(key) != t.keySize {
		return 0, false, fmt.Errorf("%w: got %d want %d", ErrKeyTooShort, len(key), t.keySize)
	}
	pid := t.root
	for {
		idx, err := t.pool.FetchPage(pid)
		if err != nil {
			return 0, false, fmt.Errorf("btree: get: fetch %d: %w", pid, err)
		}
		pg := t.pool.FramePage(idx)
		n := int(pg.NumEntries())
		if pg.Kind() == page.KindBPlusLeaf {
			j, found := searchLeaf(pg, t.keySize, n, key)
			var val uint64
			if found {
				val = pg.BLeafValueAt(j, n)
			}
			t.pool.UnpinFrame(idx)
			return val, found, nil
		}
		childIdx := findChildIndex(pg, t.keySize, n, key)
		child := pg.BInnerChildAt(childIdx, n)
		t.pool.UnpinFrame(idx)
		pid = child
	}
}

type splitResult struct {
	sepKey    []byte
	newPageID page.PageID
}

// Insert inserts key/value, overwriting the existing value if key is
// already present (no duplicates). A split propagates up to the root;
// Root() reflects any resulting root change after Insert returns.
func (t *Tree) Insert(key []byte, value uint64) error {
	if len(key) != t.keySize {
		return fmt.Errorf("%w: got %d want %d", ErrKeyTooShort, len(key), t.keySize)
	}

	rootIdx, err := t.pool.FetchPage(t.root)
	if err != nil {
		return fmt.Errorf("btree: insert: fetch root: %w", err)
	}
	rootLevel := t.pool.FramePage(rootIdx).Level()
	t.pool.UnpinFrame(rootIdx)

	split, err := t.insertRec(t.root, key, value)
	if err != nil {
		return err
	}
	if split == nil {
		return nil
	}

	newRootIdx, newRootID, newRootOffset, err := t.pool.AllocNewPage(page.KindBPlusInner)
	if err != nil {
		return fmt.Errorf("btree: insert: alloc new root: %w", err)
	}
	newRootPg := t.pool.FramePage(newRootIdx)
	newRootPg.SetKeySize(uint32(t.keySize))
	newRootPg.SetLevel(rootLevel + 1)
	newRootPg.SetIsRoot(true)
	newRootPg.SetNumEntries(1)
	newRootPg.BSetKeyAt(0, t.keySize, split.sepKey)
	newRootPg.BSetInnerChildAt(0, 1, t.root)
	newRootPg.BSetInnerChildAt(1, 1, split.newPageID)
	t.pool.MarkFrameDirty(newRootIdx)

	if oldIdx, err := t.pool.FetchPage(t.root); err == nil {
		oldPg := t.pool.FramePage(oldIdx)
		oldPg.SetIsRoot(false)
		oldPg.SetParentPageID(newRootID)
		t.pool.MarkFrameDirty(oldIdx)
		t.pool.UnpinFrame(oldIdx)
	}
	if newChildIdx, err := t.pool.FetchPage(split.newPageID); err == nil {
		t.pool.FramePage(newChildIdx).SetParentPageID(newRootID)
		t.pool.MarkFrameDirty(newChildIdx)
		t.pool.UnpinFrame(newChildIdx)
	}
	t.pool.UnpinFrame(newRootIdx)

	if err := t.pool.RegisterPageInDirectory(newRootID, newRootOffset, uint32(page.Size-page.BPlusDataStart)); err != nil {
		return fmt.Errorf("btree: insert: register new root: %w", err)
	}

	t.root = newRootID
	return nil
}

func (t *Tree) insertRec(pid page.PageID, key []byte, value uint64) (*splitResult, error) {
	idx, err := t.pool.FetchPage(pid)
	if err != nil {
		return nil, fmt.Errorf("btree: insert: fetch %d: %w", pid, err)
	}
	pg := t.pool.FramePage(idx)
	n := int(pg.NumEntries())
	maxEntries := page.BPlusMaxEntries(t.keySize)

	if pg.Kind() == page.KindBPlusLeaf {
		j, found := searchLeaf(pg, t.keySize, n, key)
		if found {
			pg.BSetLeafValueAt(j, n, value)
			t.pool.MarkFrameDirty(idx)
			t.pool.UnpinFrame(idx)
			return nil, nil
		}
		if n < maxEntries {
			pg.BInsertKeyAt(j, t.keySize, n, key)
			pg.BInsertLeafValueAt(j, n, value)
			pg.SetNumEntries(uint16(n + 1))
			t.pool.MarkFrameDirty(idx)
			t.pool.UnpinFrame(idx)
			return nil, nil
		}
		split, err := t.splitLeaf(pg, n, j, key, value)
		t.pool.MarkFrameDirty(idx)
		t.pool.UnpinFrame(idx)
		return split, err
	}

	childIdx := findChildIndex(pg, t.keySize, n, key)
	child := pg.BInnerChildAt(childIdx, n)
	t.pool.UnpinFrame(idx)

	childSplit, err := t.insertRec(child, key, value)
	if err != nil {
		return nil, err
	}
	if childSplit == nil {
		return nil, nil
	}

	idx, err = t.pool.FetchPage(pid)
	if err != nil {
		return nil, fmt.Errorf("btree: insert: refetch %d: %w", pid, err)
	}
	pg = t.pool.FramePage(idx)
	n = int(pg.NumEntries())
	if n < maxEntries {
		pg.BInsertKeyAt(childIdx, t.keySize, n, childSplit.sepKey)
		pg.BInsertInnerChildAt(childIdx+1, n, childSplit.newPageID)
		pg.SetNumEntries(uint16(n + 1))
		if newChildIdx, err := t.pool.FetchPage(childSplit.newPageID); err == nil {
			t.pool.FramePage(newChildIdx).SetParentPageID(pid)
			t.pool.MarkFrameDirty(newChildIdx)
			t.pool.UnpinFrame(newChildIdx)
		}
		t.pool.MarkFrameDirty(idx)
		t.pool.UnpinFrame(idx)
		return nil, nil
	}
	split, err := t.splitInner(pg, n, childIdx, childSplit.sepKey, childSplit.newPageID)
	t.pool.MarkFrameDirty(idx)
	t.pool.UnpinFrame(idx)
	return split, err
}

func (t *Tree) splitLeaf(pg page.Page, n, insertPos int, newKey []byte, newVal uint64) (*splitResult, error) {
	keySize := t.keySize
	keys := make([][]byte, n+1)
	vals := make([]uint64, n+1)
	k := 0
	for i := 0; i < n+1; i++ {
		if i == insertPos {
			keys[i] = append([]byte(nil), newKey...)
			vals[i] = newVal
			continue
		}
		keys[i] = append([]byte(nil), pg.BKeyAt(k, keySize)...)
		vals[i] = pg.BLeafValueAt(k, n)
		k++
	}
	total := n + 1
	leftCount := (total + 1) / 2
	rightCount := total - leftCount

	newIdx, newID, newOffset, err := t.pool.AllocNewPage(page.KindBPlusLeaf)
	if err != nil {
		return nil, fmt.Errorf("btree: split leaf: alloc: %w", err)
	}
	newPg := t.pool.FramePage(newIdx)
	newPg.SetKeySize(uint32(keySize))
	newPg.SetLevel(0)
	newPg.SetNumEntries(uint16(rightCount))
	for i := 0; i < rightCount; i++ {
		newPg.BSetKeyAt(i, keySize, keys[leftCount+i])
		newPg.BSetLeafValueAt(i, rightCount, vals[leftCount+i])
	}

	pg.SetNumEntries(uint16(leftCount))
	for i := 0; i < leftCount; i++ {
		pg.BSetKeyAt(i, keySize, keys[i])
		pg.BSetLeafValueAt(i, leftCount, vals[i])
	}

	oldNext := pg.NextPageID()
	pg.SetNextPageID(newID)
	newPg.SetPrevPageID(pg.PageID())
	newPg.SetNextPageID(oldNext)
	if oldNext != page.InvalidPageID {
		if nIdx, err := t.pool.FetchPage(oldNext); err == nil {
			t.pool.FramePage(nIdx).SetPrevPageID(newID)
			t.pool.MarkFrameDirty(nIdx)
			t.pool.UnpinFrame(nIdx)
		}
	}
	t.pool.MarkFrameDirty(newIdx)
	t.pool.UnpinFrame(newIdx)

	if err := t.pool.RegisterPageInDirectory(newID, newOffset, uint32(page.Size-page.BPlusDataStart)); err != nil {
		return nil, fmt.Errorf("btree: split leaf: register: %w", err)
	}
	return &splitResult{sepKey: append([]byte(nil), keys[leftCount]...), newPageID: newID}, nil
}

func (t *Tree) splitInner(pg page.Page, n, insertPos int, newKey []byte, newChild page.PageID) (*splitResult, error) {
	keySize := t.keySize
	total := n + 1
	keys := make([][]byte, total)
	children := make([]page.PageID, total+1)

	ki := 0
	for i := 0; i < total; i++ {
		if i == insertPos {
			keys[i] = append([]byte(nil), newKey...)
		} else {
			keys[i] = append([]byte(nil), pg.BKeyAt(ki, keySize)...)
			ki++
		}
	}
	ci := 0
	for i := 0; i < total+1; i++ {
		if i == insertPos+1 {
			children[i] = newChild
		} else {
			children[i] = pg.BInnerChildAt(ci, n)
			ci++
		}
	}

	mid := total / 2
	leftKeyCount := mid
	rightKeyCount := total - mid - 1

	newIdx, newID, newOffset, err := t.pool.AllocNewPage(page.KindBPlusInner)
	if err != nil {
		return nil, fmt.Errorf("btree: split inner: alloc: %w", err)
	}
	level := pg.Level()
	newPg := t.pool.FramePage(newIdx)
	newPg.SetKeySize(uint32(keySize))
	newPg.SetLevel(level)
	newPg.SetNumEntries(uint16(rightKeyCount))
	for i := 0; i < rightKeyCount; i++ {
		newPg.BSetKeyAt(i, keySize, keys[mid+1+i])
	}
	for i := 0; i < rightKeyCount+1; i++ {
		newPg.BSetInnerChildAt(i, rightKeyCount, children[mid+1+i])
	}
	for i := 0; i < rightKeyCount+1; i++ {
		if cIdx, err := t.pool.FetchPage(children[mid+1+i]); err == nil {
			t.pool.FramePage(cIdx).SetParentPageID(newID)
			t.pool.MarkFrameDirty(cIdx)
			t.pool.UnpinFrame(cIdx)
		}
	}

	pg.SetNumEntries(uint16(leftKeyCount))
	for i := 0; i < leftKeyCount; i++ {
		pg.BSetKeyAt(i, keySize, keys[i])
	}
	for i := 0; i < leftKeyCount+1; i++ {
		pg.BSetInnerChildAt(i, leftKeyCount, children[i])
	}

	t.pool.MarkFrameDirty(newIdx)
	t.pool.UnpinFrame(newIdx)

	if err := t.pool.RegisterPageInDirectory(newID, newOffset, uint32(page.Size-page.BPlusDataStart)); err != nil {
		return nil, fmt.Errorf("btree: split inner: register: %w", err)
	}
	return &splitResult{sepKey: keys[mid], newPageID: newID}, nil
}

// pathEntry records, for one inner ancestor visited during a descent, which
// child index was taken — enough to find that child's sibling later without
// re-descending.
type pathEntry struct {
	pageID     page.PageID
	childIndex int
}

// Delete removes key if present, reporting whether it was found. A leaf or
// inner node that drops below the minimum entry count after a removal
// borrows from a sibling if one has entries to spare, otherwise merges with
// it; a merge propagates the removal of a separator key up to the parent,
// possibly cascading. Merged-away pages are left orphaned: this tree never
// reclaims pages, matching the rest of the engine's no-free-list design.
func (t *Tree) Delete(key []byte) (bool, error) {
	if len(key) != t.keySize {
		return false, fmt.Errorf("%w: got %d want %d", ErrKeyTooShort, len(key), t.keySize)
	}

	var path []pathEntry
	pid := t.root
	for {
		idx, err := t.pool.FetchPage(pid)
		if err != nil {
			return false, fmt.Errorf("btree: delete: fetch %d: %w", pid, err)
		}
		pg := t.pool.FramePage(idx)
		n := int(pg.NumEntries())
		if pg.Kind() == page.KindBPlusLeaf {
			j, found := searchLeaf(pg, t.keySize, n, key)
			if !found {
				t.pool.UnpinFrame(idx)
				return false, nil
			}
			pg.BRemoveKeyAt(j, t.keySize, n)
			pg.BRemoveLeafValueAt(j, n)
			pg.SetNumEntries(uint16(n - 1))
			t.pool.MarkFrameDirty(idx)
			t.pool.UnpinFrame(idx)
			break
		}
		childIdx := findChildIndex(pg, t.keySize, n, key)
		child := pg.BInnerChildAt(childIdx, n)
		t.pool.UnpinFrame(idx)
		path = append(path, pathEntry{pageID: pid, childIndex: childIdx})
		pid = child
	}

	if err := t.fixUnderflow(path, pid); err != nil {
		return true, err
	}
	if err := t.collapseRootIfNeeded(); err != nil {
		return true, err
	}
	return true, nil
}

func (t *Tree) fixUnderflow(path []pathEntry, leafPageID page.PageID) error {
	childPageID := leafPageID
	minEntries := page.BPlusMinEntries(t.keySize)

	for i := len(path) - 1; i >= 0; i-- {
		parentID := path[i].pageID
		childIdxInParent := path[i].childIndex

		idx, err := t.pool.FetchPage(childPageID)
		if err != nil {
			return fmt.Errorf("btree: delete: fixup fetch %d: %w", childPageID, err)
		}
		pg := t.pool.FramePage(idx)
		n := int(pg.NumEntries())
		isLeaf := pg.Kind() == page.KindBPlusLeaf
		if n >= minEntries || pg.IsRoot() {
			t.pool.UnpinFrame(idx)
			return nil
		}
		t.pool.UnpinFrame(idx)

		pIdx, err := t.pool.FetchPage(parentID)
		if err != nil {
			return fmt.Errorf("btree: delete: fixup fetch parent %d: %w", parentID, err)
		}
		parentPg := t.pool.FramePage(pIdx)
		pn := int(parentPg.NumEntries())

		var siblingIdxInParent int
		useLeftSibling := childIdxInParent > 0
		if useLeftSibling {
			siblingIdxInParent = childIdxInParent - 1
		} else {
			siblingIdxInParent = childIdxInParent + 1
		}
		siblingID := parentPg.BInnerChildAt(siblingIdxInParent, pn)

		sIdx, err := t.pool.FetchPage(siblingID)
		if err != nil {
			t.pool.UnpinFrame(pIdx)
			return fmt.Errorf("btree: delete: fixup fetch sibling %d: %w", siblingID, err)
		}
		siblingPg := t.pool.FramePage(sIdx)
		sn := int(siblingPg.NumEntries())

		cIdx, err := t.pool.FetchPage(childPageID)
		if err != nil {
			t.pool.UnpinFrame(pIdx)
			t.pool.UnpinFrame(sIdx)
			return fmt.Errorf("btree: delete: refetch child %d: %w", childPageID, err)
		}
		childPg := t.pool.FramePage(cIdx)
		cn := int(childPg.NumEntries())

		if sn > minEntries {
			if useLeftSibling {
				t.borrowFromLeft(parentPg, childIdxInParent, siblingPg, sn, childPg, cn, isLeaf)
			} else {
				t.borrowFromRight(parentPg, childIdxInParent, siblingPg, sn, childPg, cn, isLeaf)
			}
			t.pool.MarkFrameDirty(pIdx)
			t.pool.MarkFrameDirty(sIdx)
			t.pool.MarkFrameDirty(cIdx)
			t.pool.UnpinFrame(pIdx)
			t.pool.UnpinFrame(sIdx)
			t.pool.UnpinFrame(cIdx)
			return nil
		}

		var leftPg, rightPg page.Page
		var leftN, rightN, leftIdxInParent int
		if useLeftSibling {
			leftPg, rightPg = siblingPg, childPg
			leftN, rightN = sn, cn
			leftIdxInParent = siblingIdxInParent
		} else {
			leftPg, rightPg = childPg, siblingPg
			leftN, rightN = cn, sn
			leftIdxInParent = childIdxInParent
		}
		t.mergeNodes(leftPg, leftN, rightPg, rightN, parentPg, leftIdxInParent, isLeaf)

		t.pool.MarkFrameDirty(pIdx)
		t.pool.MarkFrameDirty(cIdx)
		t.pool.MarkFrameDirty(sIdx)
		t.pool.UnpinFrame(cIdx)
		t.pool.UnpinFrame(sIdx)

		parentPg.BRemoveKeyAt(leftIdxInParent, t.keySize, pn)
		parentPg.BRemoveInnerChildAt(leftIdxInParent+1, pn)
		parentPg.SetNumEntries(uint16(pn - 1))
		t.pool.UnpinFrame(pIdx)

		childPageID = parentID
	}
	return nil
}

// borrowFromLeft rotates one entry from leftPg (the immediate left sibling)
// through the parent into childPg, which sits at childIdxInParent.
func (t *Tree) borrowFromLeft(parentPg page.Page, childIdxInParent int, leftPg page.Page, leftN int, childPg page.Page, childN int, isLeaf bool) {
	keySize := t.keySize
	if isLeaf {
		bKey := append([]byte(nil), leftPg.BKeyAt(leftN-1, keySize)...)
		bVal := leftPg.BLeafValueAt(leftN-1, leftN)
		leftPg.BRemoveKeyAt(leftN-1, keySize, leftN)
		leftPg.BRemoveLeafValueAt(leftN-1, leftN)
		leftPg.SetNumEntries(uint16(leftN - 1))

		childPg.BInsertKeyAt(0, keySize, childN, bKey)
		childPg.BInsertLeafValueAt(0, childN, bVal)
		childPg.SetNumEntries(uint16(childN + 1))

		parentPg.BSetKeyAt(childIdxInParent-1, keySize, bKey)
		return
	}
	bChild := leftPg.BInnerChildAt(leftN, leftN)
	bKeyFromSibling := append([]byte(nil), leftPg.BKeyAt(leftN-1, keySize)...)
	oldSep := append([]byte(nil), parentPg.BKeyAt(childIdxInParent-1, keySize)...)

	leftPg.BRemoveInnerChildAt(leftN, leftN)
	leftPg.BRemoveKeyAt(leftN-1, keySize, leftN)
	leftPg.SetNumEntries(uint16(leftN - 1))

	childPg.BInsertKeyAt(0, keySize, childN, oldSep)
	childPg.BInsertInnerChildAt(0, childN, bChild)
	childPg.SetNumEntries(uint16(childN + 1))

	parentPg.BSetKeyAt(childIdxInParent-1, keySize, bKeyFromSibling)

	if idx, err := t.pool.FetchPage(bChild); err == nil {
		t.pool.FramePage(idx).SetParentPageID(childPg.PageID())
		t.pool.MarkFrameDirty(idx)
		t.pool.UnpinFrame(idx)
	}
}

// borrowFromRight is borrowFromLeft's mirror image, rotating the right
// sibling's first entry into childPg.
func (t *Tree) borrowFromRight(parentPg page.Page, childIdxInParent int, rightPg page.Page, rightN int, childPg page.Page, childN int, isLeaf bool) {
	keySize := t.keySize
	if isLeaf {
		bKey := append([]byte(nil), rightPg.BKeyAt(0, keySize)...)
		bVal := rightPg.BLeafValueAt(0, rightN)
		rightPg.BRemoveKeyAt(0, keySize, rightN)
		rightPg.BRemoveLeafValueAt(0, rightN)
		rightPg.SetNumEntries(uint16(rightN - 1))

		childPg.BInsertKeyAt(childN, keySize, childN, bKey)
		childPg.BInsertLeafValueAt(childN, childN, bVal)
		childPg.SetNumEntries(uint16(childN + 1))

		newSep := append([]byte(nil), rightPg.BKeyAt(0, keySize)...)
		parentPg.BSetKeyAt(childIdxInParent, keySize, newSep)
		return
	}
	bChild := rightPg.BInnerChildAt(0, rightN)
	bKeyFromSibling := append([]byte(nil), rightPg.BKeyAt(0, keySize)...)
	oldSep := append([]byte(nil), parentPg.BKeyAt(childIdxInParent, keySize)...)

	rightPg.BRemoveInnerChildAt(0, rightN)
	rightPg.BRemoveKeyAt(0, keySize, rightN)
	rightPg.SetNumEntries(uint16(rightN - 1))

	childPg.BInsertKeyAt(childN, keySize, childN, oldSep)
	childPg.BInsertInnerChildAt(childN+1, childN, bChild)
	childPg.SetNumEntries(uint16(childN + 1))

	parentPg.BSetKeyAt(childIdxInParent, keySize, bKeyFromSibling)

	if idx, err := t.pool.FetchPage(bChild); err == nil {
		t.pool.FramePage(idx).SetParentPageID(childPg.PageID())
		t.pool.MarkFrameDirty(idx)
		t.pool.UnpinFrame(idx)
	}
}

// mergeNodes absorbs rightPg into leftPg. For leaves this is a plain
// concatenation plus sibling-link repair; for inner nodes the parent's
// separator at sepIdx is pulled down as the bridge key between the two
// halves' former contents before rightPg's keys and children are appended.
func (t *Tree) mergeNodes(leftPg page.Page, leftN int, rightPg page.Page, rightN int, parentPg page.Page, sepIdx int, isLeaf bool) {
	keySize := t.keySize
	if isLeaf {
		for i := 0; i < rightN; i++ {
			k := rightPg.BKeyAt(i, keySize)
			v := rightPg.BLeafValueAt(i, rightN)
			leftPg.BInsertKeyAt(leftN+i, keySize, leftN+i, k)
			leftPg.BInsertLeafValueAt(leftN+i, leftN+i, v)
		}
		leftPg.SetNumEntries(uint16(leftN + rightN))

		nextID := rightPg.NextPageID()
		leftPg.SetNextPageID(nextID)
		if nextID != page.InvalidPageID {
			if idx, err := t.pool.FetchPage(nextID); err == nil {
				t.pool.FramePage(idx).SetPrevPageID(leftPg.PageID())
				t.pool.MarkFrameDirty(idx)
				t.pool.UnpinFrame(idx)
			}
		}
		return
	}

	sep := append([]byte(nil), parentPg.BKeyAt(sepIdx, keySize)...)
	leftPg.BInsertKeyAt(leftN, keySize, leftN, sep)
	curN := leftN + 1
	for i := 0; i < rightN; i++ {
		k := rightPg.BKeyAt(i, keySize)
		leftPg.BInsertKeyAt(curN+i, keySize, curN+i, k)
	}
	for i := 0; i <= rightN; i++ {
		c := rightPg.BInnerChildAt(i, rightN)
		leftPg.BInsertInnerChildAt(leftN+1+i, leftN+i, c)
		if idx, err := t.pool.FetchPage(c); err == nil {
			t.pool.FramePage(idx).SetParentPageID(leftPg.PageID())
			t.pool.MarkFrameDirty(idx)
			t.pool.UnpinFrame(idx)
		}
	}
	leftPg.SetNumEntries(uint16(leftN + 1 + rightN))
}

// collapseRootIfNeeded promotes the root's sole remaining child to root when
// a cascading merge has emptied the root's key array. The emptied root page
// is left orphaned.
func (t *Tree) collapseRootIfNeeded() error {
	idx, err := t.pool.FetchPage(t.root)
	if err != nil {
		return fmt.Errorf("btree: collapse root: fetch: %w", err)
	}
	pg := t.pool.FramePage(idx)
	if pg.Kind() != page.KindBPlusInner || pg.NumEntries() != 0 {
		t.pool.UnpinFrame(idx)
		return nil
	}
	onlyChild := pg.BInnerChildAt(0, 0)
	t.pool.UnpinFrame(idx)

	cIdx, err := t.pool.FetchPage(onlyChild)
	if err != nil {
		return fmt.Errorf("btree: collapse root: fetch child: %w", err)
	}
	childPg := t.pool.FramePage(cIdx)
	childPg.SetIsRoot(true)
	childPg.SetParentPageID(page.InvalidPageID)
	t.pool.MarkFrameDirty(cIdx)
	t.pool.UnpinFrame(cIdx)

	t.root = onlyChild
	return nil
}
