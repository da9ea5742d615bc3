package opc

import (
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ReadContainer parses a complete ZIP archive held in data and returns its
// entries in central directory order with every payload decompressed.
//
// The reading process:
//  1. Locates the end of central directory record near the tail of data
//  2. Walks the declared number of central directory records
//  3. Validates the local file header of every record
//  4. Decompresses all payloads, concurrently when WithWorkers allows it
//
// Any structural failure is returned as a *ContainerFormatError and no
// entries are returned. Sizes beyond the configured Limits yield
// ErrLimitExceeded.
func ReadContainer(data []byte, opts ...ReadOption) ([]Entry, error) {
	cfg := newReadConfig(opts)
	return readContainer(data, cfg)
}

type pendingEntry struct {
	rec  directoryRecord
	data []byte // stored bytes, not yet decompressed
}

func readContainer(data []byte, cfg readConfig) ([]Entry, error) {
	eocd, err := findEndOfDirectory(data)
	if err != nil {
		return nil, err
	}
	count := int(eocd.TotalEntries)
	if count > cfg.limits.MaxEntries {
		return nil, fmt.Errorf("%w: %d entries", ErrLimitExceeded, count)
	}
	cfg.logger.Debug("central directory located",
		slog.Int64("eocd_offset", eocd.Offset),
		slog.Int("entries", count),
		slog.Uint64("directory_offset", uint64(eocd.DirectoryOffset)))

	pending, err := walkDirectory(data, eocd, count, cfg.limits)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(pending))
	var g errgroup.Group
	if cfg.workers > 1 {
		g.SetLimit(cfg.workers)
	} else {
		g.SetLimit(1)
	}
	for i := range pending {
		g.Go(func() error {
			e, err := materialize(pending[i], cfg)
			if err != nil {
				return err
			}
			entries[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// walkDirectory reads every central directory record and locates each
// entry's stored bytes. Nothing is decompressed yet.
func walkDirectory(data []byte, eocd endOfDirectory, count int, limits Limits) ([]pendingEntry, error) {
	pending := make([]pendingEntry, 0, count)
	at := int64(eocd.DirectoryOffset)
	var total uint64
	for range count {
		rec, err := readDirectoryRecord(data, at)
		if err != nil {
			return nil, err
		}
		at += int64(rec.Len)

		if uint64(rec.UncompressedSize) > limits.MaxEntrySize {
			return nil, fmt.Errorf("%w: entry %q is %d bytes", ErrLimitExceeded, rec.Name, rec.UncompressedSize)
		}
		total += uint64(rec.UncompressedSize)
		if total > limits.MaxTotalUncompressed {
			return nil, fmt.Errorf("%w: container expands beyond %d bytes", ErrLimitExceeded, limits.MaxTotalUncompressed)
		}

		localAt := int64(rec.LocalHeaderOffset)
		lh, err := readLocalHeader(data, localAt, rec.Name)
		if err != nil {
			return nil, err
		}
		p := pendingEntry{rec: rec}
		if !isDirectoryName(rec.Name) {
			start := lh.payloadOffset(localAt)
			end := start + int64(rec.CompressedSize)
			if end > int64(len(data)) {
				return nil, formatError(Truncated, localAt, rec.Name)
			}
			p.data = data[start:end]
		}
		pending = append(pending, p)
	}
	return pending, nil
}

func materialize(p pendingEntry, cfg readConfig) (Entry, error) {
	rec := p.rec
	e := Entry{
		Path:              rec.Name,
		IsDirectory:       isDirectoryName(rec.Name),
		CompressedSize:    uint64(rec.CompressedSize),
		UncompressedSize:  uint64(rec.UncompressedSize),
		CompressionMethod: CompressionMethod(rec.Method),
		CRC32:             rec.CRC32,
		LastModified:      dosTime(rec.ModDate, rec.ModTime),
	}
	if e.IsDirectory {
		return e, nil
	}
	payload, err := cfg.decompressor.Decompress(e.CompressionMethod, p.data, e.UncompressedSize)
	if err != nil {
		if errors.Is(err, ErrUnsupportedCompression) {
			return Entry{}, &ContainerFormatError{
				Kind:   UnsupportedCompression,
				Name:   rec.Name,
				Offset: int64(rec.LocalHeaderOffset),
				Method: rec.Method,
			}
		}
		return Entry{}, &ContainerFormatError{Kind: CorruptPayload, Name: rec.Name, Offset: int64(rec.LocalHeaderOffset), Err: err}
	}
	if uint64(len(payload)) != e.UncompressedSize {
		return Entry{}, &ContainerFormatError{
			Kind:   CorruptPayload,
			Name:   rec.Name,
			Offset: int64(rec.LocalHeaderOffset),
			Err:    fmt.Errorf("payload length %d != declared %d", len(payload), e.UncompressedSize),
		}
	}
	if cfg.verifyCRC && crc32.ChecksumIEEE(payload) != rec.CRC32 {
		return Entry{}, &ContainerFormatError{
			Kind:   CorruptPayload,
			Name:   rec.Name,
			Offset: int64(rec.LocalHeaderOffset),
			Err:    errors.New("crc-32 mismatch"),
		}
	}
	e.Payload = payload
	return e, nil
}

func isDirectoryName(name string) bool {
	return strings.HasSuffix(name, "/")
}
