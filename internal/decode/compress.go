package decode

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
)

// Decompress decodes a GZIP, ZLIB, or BZIP2 payload, returning the
// plaintext behind an already-detected compression format. bzip2 is
// decode-only in the standard library, which
// matches this system's needs exactly (it never needs to compress).
func Decompress(data []byte, format BinaryFileMagic) ([]byte, error) {
	switch format {
	case MagicGZIP:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	case MagicZLIB:
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	case MagicBZIP2:
		return io.ReadAll(bzip2.NewReader(bytes.NewReader(data)))
	default:
		return nil, fmt.Errorf("unsupported compression format %q", format)
	}
}
