package opc

import (
	"bytes"
	stdflate "compress/flate"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// Decompressor turns the stored bytes of one entry back into its payload.
// size is the uncompressed size declared by the central directory; an
// implementation must not return more than size bytes.
// Methods it does not handle are reported by wrapping ErrUnsupportedCompression.
type Decompressor interface {
	Decompress(method CompressionMethod, src []byte, size uint64) ([]byte, error)
}

// DecompressorFunc adapts a function to the Decompressor interface.
type DecompressorFunc func(method CompressionMethod, src []byte, size uint64) ([]byte, error)

func (f DecompressorFunc) Decompress(method CompressionMethod, src []byte, size uint64) ([]byte, error) {
	return f(method, src, size)
}

type inflater func(r io.Reader) io.ReadCloser

type flateDecompressor struct {
	newReader inflater
}

// DefaultDecompressor handles Store and Deflate using klauspost/compress.
func DefaultDecompressor() Decompressor {
	return flateDecompressor{newReader: flate.NewReader}
}

// FallbackDecompressor handles Store and Deflate using the standard library
// inflater. It produces the same output as DefaultDecompressor.
func FallbackDecompressor() Decompressor {
	return flateDecompressor{newReader: stdflate.NewReader}
}

func (d flateDecompressor) Decompress(method CompressionMethod, src []byte, size uint64) ([]byte, error) {
	switch method {
	case MethodStore:
		if uint64(len(src)) != size {
			return nil, fmt.Errorf("%w: stored length %d != declared %d", ErrCorruptPayload, len(src), size)
		}
		return bytes.Clone(src), nil
	case MethodDeflate:
		return inflate(d.newReader, src, size)
	default:
		return nil, fmt.Errorf("%w: method %d", ErrUnsupportedCompression, method)
	}
}

// inflate raw-inflates src, refusing to expand beyond size bytes. The
// output grows with the data actually inflated, never with the declared size.
func inflate(newReader inflater, src []byte, size uint64) ([]byte, error) {
	r := newReader(bytes.NewReader(src))
	defer r.Close()
	out, err := readAll(io.LimitReader(r, int64(size)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	if uint64(len(out)) != size {
		return nil, fmt.Errorf("%w: inflated length %d != declared %d", ErrCorruptPayload, len(out), size)
	}
	return out, nil
}

var readAll = io.ReadAll
