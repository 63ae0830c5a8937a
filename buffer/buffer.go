// Package buffer implements the fixed-size, mmap-backed scratch region
// an Appender accumulates framed log items into before sealing them
// into a block and writing that block out to a day file.
//
// The region is mapped read-write and owned exclusively by its writer,
// unlike a read-only chunked file reader.
package buffer

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/kernelflux/aether/crypt"
)

// RegionSize is the fixed capacity of a Buffer's backing region.
const RegionSize = 150 * 1024

// Config controls how a Buffer seals its contents into a block.
type Config struct {
	Compress bool
	DestKey  *crypt.PublicKey // nil disables encryption
}

// Buffer is a single fixed-capacity scratch region plus the bookkeeping
// needed to frame writes into it and seal it into a block on flush.
type Buffer struct {
	mu      sync.Mutex
	reg     region
	pos     int
	seq     uint32
	cfg     Config
	scratch *bytePool
}

// Open attaches a Buffer to f, memory-mapping f as the backing region
// when the platform supports it and falling back to an unmapped heap
// buffer otherwise. f's previous contents, if any, are inspected only
// to recover the last sequence number so numbering survives process
// restarts; the region itself is always reset to empty.
func Open(f *os.File, cfg Config) (*Buffer, error) {
	var reg region
	mm, err := mapFile(f, RegionSize)
	if err != nil {
		reg = newHeapRegion(RegionSize)
	} else {
		reg = mm
	}

	b := &Buffer{reg: reg, cfg: cfg, scratch: newBytePool(RegionSize, 4)}
	if hdr, err := decodeHeader(reg.bytes()); err == nil && hdr.Version == headerVersion {
		b.seq = hdr.Sequence
	}
	b.reset()
	return b, nil
}

// reset bumps the sequence number, rewinds pos past the header, and
// rewrites the header in place. Caller must hold mu.
func (b *Buffer) reset() {
	b.seq++
	b.pos = headerSize
	hdr := blockHeader{Version: headerVersion, Sequence: b.seq}
	hdr.encode(b.reg.bytes())
}

// Reset discards any unsealed content and starts a fresh block, keeping
// the sequence counter monotone.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

// Write appends a length-prefixed frame to the region. It returns false
// without writing anything if item does not fit in the remaining
// space; the caller must then seal and reset the Buffer before
// retrying.
func (b *Buffer) Write(item []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	need := 4 + len(item)
	buf := b.reg.bytes()
	if b.pos+need > len(buf) {
		return false
	}

	binary.BigEndian.PutUint32(buf[b.pos:b.pos+4], uint32(len(item)))
	copy(buf[b.pos+4:b.pos+need], item)
	b.pos += need
	return true
}

// Avail reports how many bytes are free in the region right now. The
// formatter's overflow guard uses this to decide whether a record
// still fits before it is even framed.
func (b *Buffer) Avail() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.reg.bytes()) - b.pos
}

// Len reports how many bytes of framed data are currently buffered,
// excluding the header. The async flusher wakes once this crosses a
// third of RegionSize.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pos - headerSize
}

// IsEmpty reports whether nothing has been written since the last
// reset.
func (b *Buffer) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pos == headerSize
}

// Seal compresses (if configured) and encrypts (if configured) the
// buffered content, and returns the complete header+body bytes ready
// to append to a day file. It does not reset the Buffer; callers call
// Reset separately (the Appender does so before writing the returned
// bytes out).
func (b *Buffer) Seal() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	body := append([]byte(nil), b.reg.bytes()[headerSize:b.pos]...)

	var flags uint16
	scheme := crypt.None
	var ephPub [crypt.PubKeySize]byte

	if b.cfg.Compress {
		compressed, err := deflateCompress(body, b.scratch)
		if err != nil {
			return nil, err
		}
		body = compressed
		flags |= flagCompressed
	}

	if b.cfg.DestKey != nil {
		ct, eph, err := crypt.Seal(b.cfg.DestKey, body)
		if err != nil {
			return nil, fmt.Errorf("buffer: seal: %w", err)
		}
		body = ct
		flags |= flagEncrypted
		scheme = crypt.ECDHChaCha20
		copy(ephPub[:], eph)
	}

	hdr := blockHeader{
		Version:  headerVersion,
		Flags:    flags,
		Sequence: b.seq,
		Checksum: checksum(body),
		Scheme:   scheme,
		EphPub:   ephPub,
	}

	out := make([]byte, headerSize+len(body))
	hdr.encode(out)
	copy(out[headerSize:], body)
	return out, nil
}

// Sync flushes the mapped region to its backing file, a no-op for the
// heap fallback.
func (b *Buffer) Sync() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reg.sync()
}

// Close unmaps the region. The Buffer must not be used afterward.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reg.close()
}
