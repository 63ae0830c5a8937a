//go:build unix

// Package buffer's mmap support: mapped read-write and MAP_SHARED so
// writes are visible to a process that crashes and is inspected
// afterward, instead of read-only chunked copying into an io.Writer.
package buffer

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mmapRegion is a region backed by a memory-mapped file.
type mmapRegion struct {
	mem []byte
}

// mapFile truncates f to size and maps it read-write, shared, so that
// writes land directly in the page cache and survive an unclean
// process exit to whatever degree the kernel flushes dirty pages.
func mapFile(f *os.File, size int) (*mmapRegion, error) {
	if err := f.Truncate(int64(size)); err != nil {
		return nil, fmt.Errorf("buffer: truncate mmap backing file: %w", err)
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("buffer: mmap: %w", err)
	}

	return &mmapRegion{mem: mem}, nil
}

func (m *mmapRegion) bytes() []byte { return m.mem }

func (m *mmapRegion) sync() error {
	if err := unix.Msync(m.mem, unix.MS_SYNC); err != nil {
		return fmt.Errorf("buffer: msync: %w", err)
	}
	return nil
}

func (m *mmapRegion) close() error {
	if err := unix.Munmap(m.mem); err != nil {
		return fmt.Errorf("buffer: munmap: %w", err)
	}
	return nil
}

// freeBytes reports the free space (in bytes) on the filesystem
// holding dir, used by the Appender's cache-policy check.
func freeBytes(dir string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, fmt.Errorf("buffer: statfs %s: %w", dir, err)
	}
	return st.Bavail * uint64(st.Bsize), nil
}
