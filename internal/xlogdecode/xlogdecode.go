// Package xlogdecode walks the block-framed wire format appender and
// buffer write to disk and to the mmap scratch region. It exists so
// tests can assert the flush-then-decode and crash-survival invariants
// without duplicating the wire layout; it is not a shipped recovery
// tool.
package xlogdecode

import (
	"crypto/ecdh"
	"encoding/binary"
	"fmt"

	"github.com/kernelflux/aether/buffer"
	"github.com/kernelflux/aether/crypt"
)

// Block is one decoded sealed block.
type Block struct {
	Sequence  uint32
	Frames    [][]byte
	Truncated bool
}

// DecodeDayFile walks a day file holding zero or more length-prefixed
// sealed blocks (the framing appender.writeBlock applies before
// appending to disk) and decodes each one in order. destPriv decrypts
// encrypted blocks; pass nil for modules that never set a PubKey.
func DecodeDayFile(data []byte, destPriv *ecdh.PrivateKey) ([]Block, error) {
	var blocks []Block
	pos := 0
	for pos+4 <= len(data) {
		n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+n > len(data) {
			// A length prefix landed but its block body did not: the
			// write was interrupted before appendWithRollback's single
			// Write call returned. Earlier, fully-written blocks are
			// unaffected.
			break
		}
		blk, err := DecodeSealedBlock(data[pos:pos+n], destPriv)
		if err != nil {
			return blocks, err
		}
		blocks = append(blocks, blk)
		pos += n
	}
	return blocks, nil
}

// DecodeSealedBlock decodes one buffer.Seal output: header, optional
// decryption, optional decompression, and frame splitting.
func DecodeSealedBlock(data []byte, destPriv *ecdh.PrivateKey) (Block, error) {
	info, err := buffer.ParseBlock(data)
	if err != nil {
		return Block{}, err
	}

	body := info.Body
	if info.Encrypted {
		if destPriv == nil {
			return Block{}, fmt.Errorf("xlogdecode: block is encrypted but no private key was supplied")
		}
		body, err = crypt.Open(destPriv, info.EphPub, body)
		if err != nil {
			return Block{}, fmt.Errorf("xlogdecode: decrypt: %w", err)
		}
	}
	if info.Compressed {
		body, err = buffer.Inflate(body)
		if err != nil {
			return Block{}, fmt.Errorf("xlogdecode: inflate: %w", err)
		}
	}

	frames, truncated := buffer.ParseFrames(body)
	return Block{Sequence: info.Sequence, Frames: frames, Truncated: truncated}, nil
}

// DecodeRegion decodes the live scratch region directly: the
// crash-recovery path for a process that died before Close or any
// flush. A region is never length-prefixed, compressed, or encrypted
// on its own (Seal only runs at flush time), so it is always exactly
// one block. The region is fixed-size and zero-filled past the last
// write, so the first zero length prefix marks the end of its frames.
func DecodeRegion(data []byte) (Block, error) {
	blk, err := DecodeSealedBlock(data, nil)
	if err != nil {
		return blk, err
	}
	for i, f := range blk.Frames {
		if len(f) == 0 {
			blk.Frames = blk.Frames[:i]
			blk.Truncated = false
			break
		}
	}
	return blk, nil
}
