// Package disk implements the L0 file manager: the single owner of the
// database's on-disk file, reading and writing PAGE_SIZE-aligned pages by
// byte offset. It performs no caching and no locking beyond whatever the
// host OS provides — only the buffer pool is expected to call it.
package disk

import (
	"fmt"
	"os"

	"github.com/nimbusdb/nimbus/internal/storage/page"
)

// FileManager owns one OS file containing a sequence of PAGE_SIZE-aligned
// pages.
type FileManager struct {
	path string
	file *os.File
}

// Open opens path, creating it if it does not exist.
func Open(path string) (*FileManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}
	return &FileManager{path: path, file: f}, nil
}

// Path returns the database file's path.
func (fm *FileManager) Path() string { return fm.path }

// FileLen returns the current file length in bytes, used to compute the
// offset for a freshly appended page.
func (fm *FileManager) FileLen() (int64, error) {
	info, err := fm.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("disk: stat: %w", err)
	}
	return info.Size(), nil
}

// ReadPage reads exactly len(buf) bytes (normally page.Size) starting at
// offset.
func (fm *FileManager) ReadPage(offset int64, buf []byte) error {
	n, err := fm.file.ReadAt(buf, offset)
	if err != nil {
		return fmt.Errorf("disk: read at %d: %w", offset, err)
	}
	if n != len(buf) {
		return fmt.Errorf("disk: short read at %d: got %d want %d", offset, n, len(buf))
	}
	return nil
}

// WritePage writes buf (normally page.Size bytes) starting at offset.
func (fm *FileManager) WritePage(offset int64, buf []byte) error {
	n, err := fm.file.WriteAt(buf, offset)
	if err != nil {
		return fmt.Errorf("disk: write at %d: %w", offset, err)
	}
	if n != len(buf) {
		return fmt.Errorf("disk: short write at %d: wrote %d want %d", offset, n, len(buf))
	}
	return nil
}

// Sync flushes the file to stable storage.
func (fm *FileManager) Sync() error {
	if err := fm.file.Sync(); err != nil {
		return fmt.Errorf("disk: sync: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (fm *FileManager) Close() error {
	if err := fm.file.Close(); err != nil {
		return fmt.Errorf("disk: close: %w", err)
	}
	return nil
}

// AllocOffset returns the next PAGE_SIZE-aligned offset at the end of the
// file (its current length). It does not write or reserve anything, so two
// calls with no write in between return the same offset; the caller writes
// the freshly initialized page afterward.
func (fm *FileManager) AllocOffset() (int64, error) {
	n, err := fm.FileLen()
	if err != nil {
		return 0, err
	}
	if n%page.Size != 0 {
		return 0, fmt.Errorf("disk: file length %d is not page-aligned", n)
	}
	return n, nil
}
