//go:build !unix

package buffer

import "os"

// mapFile is unavailable on non-unix targets; callers fall back to
// newHeapRegion.
func mapFile(f *os.File, size int) (*mmapRegion, error) {
	return nil, errMmapUnsupported
}

type mmapRegion struct{}

func (m *mmapRegion) bytes() []byte { return nil }
func (m *mmapRegion) sync() error   { return nil }
func (m *mmapRegion) close() error  { return nil }

// freeBytes has no portable answer outside unix; the cache-policy
// check treats this as "unknown, assume insufficient".
func freeBytes(dir string) (uint64, error) {
	return 0, errMmapUnsupported
}
