package buffer

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
)

// deflateCompress runs body through a streaming flate encoder. flate
// (not a third-party codec) is used deliberately: the block format
// this produces is meant to be bit-exact with an existing external
// deflate decoder, which rules out the pack's other compression
// libraries regardless of their speed or ratio.
func deflateCompress(body []byte, scratch *bytePool) ([]byte, error) {
	buf := bytes.NewBuffer(scratch.get())
	w, err := flate.NewWriter(buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("buffer: new flate writer: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return nil, fmt.Errorf("buffer: flate write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("buffer: flate close: %w", err)
	}
	out := append([]byte(nil), buf.Bytes()...)
	scratch.put(buf.Bytes()[:0])
	return out, nil
}

// inflate reverses deflateCompress; used by tests and by the crash-safe
// decode helper, not by the write path.
func inflate(body []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(body))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("buffer: flate read: %w", err)
	}
	return out, nil
}
