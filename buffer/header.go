package buffer

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/kernelflux/aether/crypt"
)

// Header flag bits.
const (
	flagCompressed uint16 = 1 << 0
	flagEncrypted  uint16 = 1 << 1
)

// headerVersion is bumped whenever the on-disk layout changes in a way
// that is not backward compatible.
const headerVersion uint16 = 1

// headerSize is the fixed number of bytes a blockHeader occupies at the
// front of a region, whether or not encryption is in use (the
// ephemeral public key slot is zero-filled when unused so the layout
// never shifts).
const headerSize = 2 + 2 + 4 + 4 + 1 + crypt.PubKeySize

// blockHeader is rewritten in place every time a region is reset. It
// carries enough information for an external reader to know whether
// the block body needs inflating, decrypting, or both, and the
// sequence number that keeps monotone across resets.
type blockHeader struct {
	Version  uint16
	Flags    uint16
	Sequence uint32
	Checksum uint32
	Scheme   crypt.SchemeID
	EphPub   [crypt.PubKeySize]byte
}

func (h *blockHeader) compressed() bool { return h.Flags&flagCompressed != 0 }
func (h *blockHeader) encrypted() bool  { return h.Flags&flagEncrypted != 0 }

func (h *blockHeader) encode(dst []byte) {
	if len(dst) < headerSize {
		panic("buffer: header encode target too small")
	}
	binary.BigEndian.PutUint16(dst[0:2], h.Version)
	binary.BigEndian.PutUint16(dst[2:4], h.Flags)
	binary.BigEndian.PutUint32(dst[4:8], h.Sequence)
	binary.BigEndian.PutUint32(dst[8:12], h.Checksum)
	dst[12] = byte(h.Scheme)
	copy(dst[13:13+crypt.PubKeySize], h.EphPub[:])
}

func decodeHeader(src []byte) (blockHeader, error) {
	var h blockHeader
	if len(src) < headerSize {
		return h, fmt.Errorf("buffer: header too short (%d bytes)", len(src))
	}
	h.Version = binary.BigEndian.Uint16(src[0:2])
	h.Flags = binary.BigEndian.Uint16(src[2:4])
	h.Sequence = binary.BigEndian.Uint32(src[4:8])
	h.Checksum = binary.BigEndian.Uint32(src[8:12])
	h.Scheme = crypt.SchemeID(src[12])
	copy(h.EphPub[:], src[13:13+crypt.PubKeySize])
	return h, nil
}

func checksum(body []byte) uint32 {
	return crc32.ChecksumIEEE(body)
}
