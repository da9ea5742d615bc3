package opc

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how an encoded Manifest payload is compressed.
type Compression uint16

const (
	CompNone Compression = 0x0
	CompZIP  Compression = 0x1
	CompZSTD Compression = 0x2
	CompLZ4  Compression = 0x3
	CompBR   Compression = 0x4
)

func (c Compression) String() string {
	switch c {
	case CompNone:
		return "none"
	case CompZIP:
		return "zip"
	case CompZSTD:
		return "zstd"
	case CompLZ4:
		return "lz4"
	case CompBR:
		return "br"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(c))
	}
}

// ParseCompression maps a name produced by Compression.String back to its value.
func ParseCompression(name string) (Compression, error) {
	for _, c := range []Compression{CompNone, CompZIP, CompZSTD, CompLZ4, CompBR} {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown compression %q", ErrInvalidPayload, name)
}

// manifestEntryName is the single member of a zip-compressed manifest.
const manifestEntryName = "manifest.json"

type sinkOpener func(w io.Writer) (io.WriteCloser, error)

type sourceOpener func(r io.Reader) (io.ReadCloser, error)

// payloadCodec packs a manifest payload and unpacks it again. unpack never
// returns more than limit bytes.
type payloadCodec struct {
	pack   func(raw []byte) ([]byte, error)
	unpack func(src []byte, limit uint64) ([]byte, error)
}

var payloadCodecs = map[Compression]payloadCodec{
	CompZIP:  {pack: packWith(openZipSink), unpack: unpackZip},
	CompZSTD: {pack: packWith(openZstdSink), unpack: unpackWith(openZstdSource)},
	CompLZ4:  {pack: packWith(openLZ4Sink), unpack: unpackWith(openLZ4Source)},
	CompBR:   {pack: packWith(openBrotliSink), unpack: unpackWith(openBrotliSource)},
}

func codecFor(comp Compression) (payloadCodec, error) {
	c, ok := payloadCodecs[comp]
	if !ok {
		return payloadCodec{}, fmt.Errorf("%w: unknown compression %d", ErrInvalidPayload, comp)
	}
	return c, nil
}

// compressPayload returns the header flags and the bytes that follow the
// manifest header. Compressed payloads start with the raw length as a
// little-endian uint64.
func compressPayload(comp Compression, raw []byte) (uint16, []byte, error) {
	if comp == CompNone {
		return uint16(CompNone), raw, nil
	}
	c, err := codecFor(comp)
	if err != nil {
		return 0, nil, err
	}
	packed, err := c.pack(raw)
	if err != nil {
		return 0, nil, err
	}
	payload := binary.LittleEndian.AppendUint64(make([]byte, 0, 8+len(packed)), uint64(len(raw)))
	payload = append(payload, packed...)
	return uint16(comp) | manifestFlagHasUncompressedLen, payload, nil
}

// decompressPayload reverses compressPayload. The declared length is checked
// against maxUncompressed before anything is inflated.
func decompressPayload(comp Compression, flags uint16, payload []byte, maxUncompressed uint64) ([]byte, error) {
	hasLen := flags&manifestFlagHasUncompressedLen != 0
	if comp == CompNone {
		if hasLen {
			return nil, fmt.Errorf("%w: uncompressed length flag on an uncompressed payload", ErrInvalidPayload)
		}
		return payload, nil
	}
	c, err := codecFor(comp)
	if err != nil {
		return nil, err
	}
	if !hasLen {
		return nil, fmt.Errorf("%w: missing uncompressed length", ErrInvalidPayload)
	}
	if len(payload) < 8 {
		return nil, fmt.Errorf("%w: payload too short for uncompressed length", ErrInvalidPayload)
	}
	want := binary.LittleEndian.Uint64(payload[:8])
	if want > maxUncompressed {
		return nil, fmt.Errorf("%w: uncompressed length %d exceeds limit", ErrLimitExceeded, want)
	}
	out, err := c.unpack(payload[8:], want)
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) != want {
		return nil, fmt.Errorf("%w: %s payload is %d bytes, header says %d", ErrInvalidPayload, comp, len(out), want)
	}
	return out, nil
}

func packWith(open sinkOpener) func([]byte) ([]byte, error) {
	return func(raw []byte) ([]byte, error) {
		var buf bytes.Buffer
		w, err := open(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(raw); err != nil {
			_ = w.Close()
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

func unpackWith(open sourceOpener) func([]byte, uint64) ([]byte, error) {
	return func(src []byte, limit uint64) ([]byte, error) {
		r, err := open(bytes.NewReader(src))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		out, err := readAll(io.LimitReader(r, int64(limit)+1))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		if uint64(len(out)) > limit {
			return nil, fmt.Errorf("%w: payload expands beyond %d bytes", ErrInvalidPayload, limit)
		}
		return out, nil
	}
}

// zipSink closes the archive, not just the entry.
type zipSink struct {
	io.Writer
	zw *zip.Writer
}

func (s zipSink) Close() error { return s.zw.Close() }

func openZipSink(w io.Writer) (io.WriteCloser, error) {
	zw := zip.NewWriter(w)
	entry, err := zw.Create(manifestEntryName)
	if err != nil {
		return nil, err
	}
	return zipSink{Writer: entry, zw: zw}, nil
}

// unpackZip reads the archive with this package's own container reader; it
// must hold manifest.json and nothing else.
func unpackZip(src []byte, limit uint64) ([]byte, error) {
	entries, err := ReadContainer(src, WithWorkers(1), WithReadLimits(Limits{
		MaxEntries:           1,
		MaxEntrySize:         limit,
		MaxTotalUncompressed: limit + 1,
	}))
	if err != nil {
		return nil, err
	}
	if len(entries) != 1 || entries[0].Path != manifestEntryName || entries[0].IsDirectory {
		return nil, fmt.Errorf("%w: zip payload must hold only the file %s", ErrInvalidPayload, manifestEntryName)
	}
	return entries[0].Payload, nil
}

func openZstdSink(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

func openZstdSource(r io.Reader) (io.ReadCloser, error) {
	d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return d.IOReadCloser(), nil
}

func openLZ4Sink(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func openLZ4Source(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

func openBrotliSink(w io.Writer) (io.WriteCloser, error) {
	return brotli.NewWriter(w), nil
}

func openBrotliSource(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(brotli.NewReader(r)), nil
}
