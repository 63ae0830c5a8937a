package buffer

import "github.com/kernelflux/aether/crypt"

// BlockInfo is the parsed form of a sealed block's header, exposed so
// the crash-safe decode helper and tests can inspect a written block
// without duplicating the wire layout.
type BlockInfo struct {
	Version    uint16
	Compressed bool
	Encrypted  bool
	Sequence   uint32
	Checksum   uint32
	Scheme     crypt.SchemeID
	EphPub     []byte
	Body       []byte // everything after the header, as written
}

// ParseBlock decodes the header of a sealed block and returns it along
// with the (still possibly compressed/encrypted) body bytes. It does
// not attempt decompression or decryption; callers that hold the
// relevant keys do that themselves.
func ParseBlock(data []byte) (BlockInfo, error) {
	hdr, err := decodeHeader(data)
	if err != nil {
		return BlockInfo{}, err
	}
	return BlockInfo{
		Version:    hdr.Version,
		Compressed: hdr.compressed(),
		Encrypted:  hdr.encrypted(),
		Sequence:   hdr.Sequence,
		Checksum:   hdr.Checksum,
		Scheme:     hdr.Scheme,
		EphPub:     append([]byte(nil), hdr.EphPub[:]...),
		Body:       append([]byte(nil), data[headerSize:]...),
	}, nil
}

// Inflate decompresses a block body previously compressed by Seal. It
// is exported for the same test/recovery use as ParseBlock.
func Inflate(body []byte) ([]byte, error) {
	return inflate(body)
}

// ParseFrames splits a decoded (decompressed, decrypted) block body
// into its length-prefixed frames. A short trailing frame (a write
// that was interrupted mid-mmap) is left out of frames and reported
// via truncated=true rather than as an error, since it is an expected
// consequence of crash recovery, not a corruption signal.
func ParseFrames(body []byte) (frames [][]byte, truncated bool) {
	pos := 0
	for pos+4 <= len(body) {
		n := int(be32(body[pos : pos+4]))
		start := pos + 4
		if start+n > len(body) {
			return frames, true
		}
		frames = append(frames, body[start:start+n])
		pos = start + n
	}
	if pos != len(body) {
		truncated = true
	}
	return frames, truncated
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
