package opc

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"runtime"
	"strings"
	"testing"
)

func TestReadContainer_MinimalPackage(t *testing.T) {
	entries, err := ReadContainer(minimalPackage(t))
	if err != nil {
		t.Fatalf("ReadContainer: %v", err)
	}
	wantNames := []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"word/document.xml",
		"word/_rels/document.xml.rels",
		"word/media/image1.png",
	}
	if len(entries) != len(wantNames) {
		t.Fatalf("got %d entries, want %d", len(entries), len(wantNames))
	}
	for i, want := range wantNames {
		e := entries[i]
		if e.Path != want {
			t.Fatalf("entry %d: got %q want %q", i, e.Path, want)
		}
		if uint64(len(e.Payload)) != e.UncompressedSize {
			t.Fatalf("%s: payload %d bytes, declared %d", e.Path, len(e.Payload), e.UncompressedSize)
		}
		if !e.LastModified.Equal(fixtureTime) {
			t.Fatalf("%s: modified %v want %v", e.Path, e.LastModified, fixtureTime)
		}
	}
	if entries[2].CompressionMethod != MethodDeflate {
		t.Fatalf("document method %v", entries[2].CompressionMethod)
	}
	if string(entries[2].Payload) != fixtureDocument {
		t.Fatal("document payload mismatch")
	}
	media := entries[4]
	if media.CompressionMethod != MethodStore {
		t.Fatalf("media method %v", media.CompressionMethod)
	}
	if !bytes.Equal(media.Payload, pngBytes) {
		t.Fatal("media payload mismatch")
	}
}

func TestReadContainer_SerialAndParallelAgree(t *testing.T) {
	data := minimalPackage(t)
	serial, err := ReadContainer(data, WithWorkers(1))
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := ReadContainer(data, WithWorkers(8))
	if err != nil {
		t.Fatal(err)
	}
	for i := range serial {
		if serial[i].Path != parallel[i].Path || !bytes.Equal(serial[i].Payload, parallel[i].Payload) {
			t.Fatalf("entry %d differs between serial and parallel reads", i)
		}
	}
}

func TestReadContainer_FallbackDecompressor(t *testing.T) {
	data := minimalPackage(t)
	want, err := ReadContainer(data)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ReadContainer(data, WithDecompressor(FallbackDecompressor()))
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if !bytes.Equal(want[i].Payload, got[i].Payload) {
			t.Fatalf("%s: backends disagree", want[i].Path)
		}
	}
}

func TestReadContainer_DirectoryEntry(t *testing.T) {
	data := buildZip(t, []zipFile{
		{name: "word/", method: zip.Store},
		{name: "word/document.xml", method: zip.Deflate, data: []byte("<w/>")},
	})
	entries, err := ReadContainer(data)
	if err != nil {
		t.Fatal(err)
	}
	if !entries[0].IsDirectory || entries[0].Payload != nil {
		t.Fatalf("expected payload-less directory, got %#v", entries[0])
	}
	if entries[1].IsDirectory {
		t.Fatal("file reported as directory")
	}
}

func TestReadContainer_MissingDirectory(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("PK"), []byte(strings.Repeat("this is not a zip archive ", 100))} {
		entries, err := ReadContainer(data)
		if entries != nil {
			t.Fatal("expected no entries")
		}
		var ce *ContainerFormatError
		if !errors.As(err, &ce) || ce.Kind != MissingDirectory {
			t.Fatalf("expected MissingDirectory, got %v", err)
		}
		if !errors.Is(err, ErrMissingDirectory) {
			t.Fatalf("expected ErrMissingDirectory, got %v", err)
		}
	}
}

func TestReadContainer_EOCDBeyondCommentWindow(t *testing.T) {
	data := minimalPackage(t)
	padded := append(bytes.Clone(data), make([]byte, maxCommentLen+1)...)
	_, err := ReadContainer(padded)
	if !errors.Is(err, ErrMissingDirectory) {
		t.Fatalf("expected ErrMissingDirectory, got %v", err)
	}
}

func TestReadContainer_UnsupportedCompression(t *testing.T) {
	data := buildRawZip(t, []zipFile{
		{name: "a.txt", method: zip.Store, data: []byte("plain")},
		{name: "b.bin", method: 99, data: []byte("opaque")},
	})
	entries, err := ReadContainer(data)
	if entries != nil {
		t.Fatal("expected no entries")
	}
	var ce *ContainerFormatError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ContainerFormatError, got %v", err)
	}
	if ce.Kind != UnsupportedCompression || ce.Method != 99 || ce.Name != "b.bin" {
		t.Fatalf("unexpected error fields: %#v", ce)
	}
	if !errors.Is(err, ErrUnsupportedCompression) {
		t.Fatal("expected ErrUnsupportedCompression")
	}
}

func TestReadContainer_CorruptDirectoryEntry(t *testing.T) {
	data := minimalPackage(t)
	off := directoryOffset(t, data)
	data[off] = 0
	_, err := ReadContainer(data)
	var ce *ContainerFormatError
	if !errors.As(err, &ce) || ce.Kind != CorruptDirectoryEntry {
		t.Fatalf("expected CorruptDirectoryEntry, got %v", err)
	}
	if ce.Offset != int64(off) {
		t.Fatalf("offset %d want %d", ce.Offset, off)
	}
}

func TestReadContainer_MissingLocalHeader(t *testing.T) {
	data := minimalPackage(t)
	data[0] ^= 0xFF
	_, err := ReadContainer(data)
	var ce *ContainerFormatError
	if !errors.As(err, &ce) || ce.Kind != MissingLocalHeader {
		t.Fatalf("expected MissingLocalHeader, got %v", err)
	}
	if ce.Name != "[Content_Types].xml" {
		t.Fatalf("name %q", ce.Name)
	}
}

func TestReadContainer_TruncatedDirectory(t *testing.T) {
	data := minimalPackage(t)
	eocd, err := findEndOfDirectory(data)
	if err != nil {
		t.Fatal(err)
	}
	binary.LittleEndian.PutUint32(data[eocd.Offset+16:eocd.Offset+20], uint32(len(data)-10))
	_, err = ReadContainer(data)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestReadContainer_CRCMismatch(t *testing.T) {
	data := minimalPackage(t)
	i := bytes.Index(data, pngBytes)
	if i < 0 {
		t.Fatal("stored media not found")
	}
	data[i+len(pngBytes)-1] ^= 0xFF

	_, err := ReadContainer(data)
	var ce *ContainerFormatError
	if !errors.As(err, &ce) || ce.Kind != CorruptPayload {
		t.Fatalf("expected CorruptPayload, got %v", err)
	}

	entries, err := ReadContainer(data, WithVerifyCRC(false))
	if err != nil {
		t.Fatalf("expected success without CRC check, got %v", err)
	}
	if entries[4].Payload[len(pngBytes)-1] != pngBytes[len(pngBytes)-1]^0xFF {
		t.Fatal("expected the altered byte")
	}
}

func TestReadContainer_CorruptDeflateStream(t *testing.T) {
	data := buildRawZip(t, []zipFile{{name: "x.xml", method: zip.Deflate, data: []byte{0xFF, 0xFF, 0xFF, 0xFF}}})
	_, err := ReadContainer(data)
	if !errors.Is(err, ErrCorruptPayload) {
		t.Fatalf("expected ErrCorruptPayload, got %v", err)
	}
}

func TestReadContainer_DeclaredSizeIsNotPreallocated(t *testing.T) {
	// An empty final deflate block that claims to expand to 400 MiB.
	data := buildRawZip(t, []zipFile{{name: "word/document.xml", method: zip.Deflate, data: []byte{0x03, 0x00}}})
	off := directoryOffset(t, data)
	binary.LittleEndian.PutUint32(data[off+24:off+28], 400<<20)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := ReadContainer(data, WithWorkers(1))
	runtime.ReadMemStats(&after)

	if !errors.Is(err, ErrCorruptPayload) {
		t.Fatalf("expected ErrCorruptPayload, got %v", err)
	}
	if grew := after.TotalAlloc - before.TotalAlloc; grew > 16<<20 {
		t.Fatalf("allocated %d bytes for a %d-byte archive", grew, len(data))
	}
}

func TestReadContainer_CorruptPayloadMessage(t *testing.T) {
	data := buildRawZip(t, []zipFile{{name: "word/document.xml", method: zip.Deflate, data: []byte{0x03, 0x00}}})
	off := directoryOffset(t, data)
	binary.LittleEndian.PutUint32(data[off+24:off+28], 10)

	_, err := ReadContainer(data)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if n := strings.Count(msg, ErrCorruptPayload.Error()); n != 1 {
		t.Fatalf("sentinel appears %d times in %q", n, msg)
	}
	if !strings.Contains(msg, "inflated length 0 != declared 10") {
		t.Fatalf("cause missing from %q", msg)
	}
}

func TestReadContainer_Limits(t *testing.T) {
	data := minimalPackage(t)
	cases := []Limits{
		{MaxEntries: 2},
		{MaxEntrySize: 8},
		{MaxTotalUncompressed: 64},
	}
	for _, l := range cases {
		entries, err := ReadContainer(data, WithReadLimits(l))
		if entries != nil || !errors.Is(err, ErrLimitExceeded) {
			t.Fatalf("%+v: expected ErrLimitExceeded, got %v", l, err)
		}
	}
}

func TestReadContainer_CustomDecompressor(t *testing.T) {
	calls := 0
	d := DecompressorFunc(func(method CompressionMethod, src []byte, size uint64) ([]byte, error) {
		calls++
		return DefaultDecompressor().Decompress(method, src, size)
	})
	if _, err := ReadContainer(minimalPackage(t), WithDecompressor(d), WithWorkers(1)); err != nil {
		t.Fatal(err)
	}
	if calls != 5 {
		t.Fatalf("decompressor called %d times, want 5", calls)
	}
}

func TestDecompressor_StoreLengthMismatch(t *testing.T) {
	_, err := DefaultDecompressor().Decompress(MethodStore, []byte("abc"), 4)
	if !errors.Is(err, ErrCorruptPayload) {
		t.Fatalf("expected ErrCorruptPayload, got %v", err)
	}
}

func TestDecompressor_UnknownMethod(t *testing.T) {
	_, err := FallbackDecompressor().Decompress(CompressionMethod(12), nil, 0)
	if !errors.Is(err, ErrUnsupportedCompression) {
		t.Fatalf("expected ErrUnsupportedCompression, got %v", err)
	}
}

func TestDosTime(t *testing.T) {
	date := uint16((2024-1980)<<9 | 3<<5 | 15)
	clock := uint16(13<<11 | 45<<5 | 30/2)
	if got := dosTime(date, clock); !got.Equal(fixtureTime) {
		t.Fatalf("got %v want %v", got, fixtureTime)
	}
	if !dosTime(0, 0).IsZero() {
		t.Fatal("expected zero time")
	}
}

func TestCompressionMethodString(t *testing.T) {
	if MethodStore.String() != "store" || MethodDeflate.String() != "deflate" || CompressionMethod(99).String() != "unknown" {
		t.Fatal("unexpected method names")
	}
}
