package opc

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

const (
	eocdSignature      uint32 = 0x06054b50
	directorySignature uint32 = 0x02014b50
	localSignature     uint32 = 0x04034b50

	eocdLen           = 22
	directoryFixedLen = 46
	localFixedLen     = 30

	// The EOCD comment length field is 16 bits wide.
	maxCommentLen = 0xFFFF
)

type endOfDirectory struct {
	Offset          int64
	TotalEntries    uint16
	DirectorySize   uint32
	DirectoryOffset uint32
}

type directoryRecord struct {
	Offset            int64
	Flags             uint16
	Method            uint16
	ModTime           uint16
	ModDate           uint16
	CRC32             uint32
	CompressedSize    uint32
	UncompressedSize  uint32
	LocalHeaderOffset uint32
	Name              string
	Len               int // full record length including variable fields
}

type localHeader struct {
	NameLen  uint16
	ExtraLen uint16
}

func (h localHeader) payloadOffset(at int64) int64 {
	return at + localFixedLen + int64(h.NameLen) + int64(h.ExtraLen)
}

// findEndOfDirectory scans backward from the tail for the EOCD signature,
// looking no further than the largest possible trailing comment.
func findEndOfDirectory(data []byte) (endOfDirectory, error) {
	if len(data) < eocdLen {
		return endOfDirectory{}, formatError(MissingDirectory, -1, "")
	}
	lowest := len(data) - eocdLen - maxCommentLen
	if lowest < 0 {
		lowest = 0
	}
	for i := len(data) - eocdLen; i >= lowest; i-- {
		if binary.LittleEndian.Uint32(data[i:i+4]) != eocdSignature {
			continue
		}
		b := data[i : i+eocdLen]
		return endOfDirectory{
			Offset:          int64(i),
			TotalEntries:    binary.LittleEndian.Uint16(b[10:12]),
			DirectorySize:   binary.LittleEndian.Uint32(b[12:16]),
			DirectoryOffset: binary.LittleEndian.Uint32(b[16:20]),
		}, nil
	}
	return endOfDirectory{}, formatError(MissingDirectory, -1, "")
}

func readDirectoryRecord(data []byte, at int64) (directoryRecord, error) {
	if at < 0 || at+directoryFixedLen > int64(len(data)) {
		return directoryRecord{}, formatError(Truncated, at, "")
	}
	b := data[at : at+directoryFixedLen]
	if binary.LittleEndian.Uint32(b[0:4]) != directorySignature {
		return directoryRecord{}, formatError(CorruptDirectoryEntry, at, "")
	}
	nameLen := int64(binary.LittleEndian.Uint16(b[28:30]))
	extraLen := int64(binary.LittleEndian.Uint16(b[30:32]))
	commentLen := int64(binary.LittleEndian.Uint16(b[32:34]))
	end := at + directoryFixedLen + nameLen + extraLen + commentLen
	if end > int64(len(data)) {
		return directoryRecord{}, formatError(Truncated, at, "")
	}
	nameStart := at + directoryFixedLen
	return directoryRecord{
		Offset:            at,
		Flags:             binary.LittleEndian.Uint16(b[8:10]),
		Method:            binary.LittleEndian.Uint16(b[10:12]),
		ModTime:           binary.LittleEndian.Uint16(b[12:14]),
		ModDate:           binary.LittleEndian.Uint16(b[14:16]),
		CRC32:             binary.LittleEndian.Uint32(b[16:20]),
		CompressedSize:    binary.LittleEndian.Uint32(b[20:24]),
		UncompressedSize:  binary.LittleEndian.Uint32(b[24:28]),
		LocalHeaderOffset: binary.LittleEndian.Uint32(b[42:46]),
		Name:              string(data[nameStart : nameStart+nameLen]),
		Len:               int(end - at),
	}, nil
}

func readLocalHeader(data []byte, at int64, name string) (localHeader, error) {
	if at+localFixedLen > int64(len(data)) {
		return localHeader{}, formatError(MissingLocalHeader, at, name)
	}
	b := data[at : at+localFixedLen]
	if binary.LittleEndian.Uint32(b[0:4]) != localSignature {
		return localHeader{}, formatError(MissingLocalHeader, at, name)
	}
	return localHeader{
		NameLen:  binary.LittleEndian.Uint16(b[26:28]),
		ExtraLen: binary.LittleEndian.Uint16(b[28:30]),
	}, nil
}

// dosTime converts a packed MS-DOS date and time to a time.Time in UTC.
// DOS timestamps carry no zone and have two-second resolution.
func dosTime(date, clock uint16) time.Time {
	if date == 0 && clock == 0 {
		return time.Time{}
	}
	return time.Date(
		int(date>>9)+1980,
		time.Month(date>>5&0xf),
		int(date&0x1f),
		int(clock>>11),
		int(clock>>5&0x3f),
		int(clock&0x1f)*2,
		0,
		time.UTC,
	)
}

const (
	manifestHeaderSize = 16
	manifestVersionV1  = uint16(1)
)

// manifestMagic is the 8-byte signature of an encoded Manifest.
var manifestMagic = [8]byte{'O', 'P', 'C', 'M', 'A', 'N', 'I', 0x1A}

const (
	manifestFlagCompressionMask    uint16 = 0x000F
	manifestFlagHasUncompressedLen uint16 = 0x0010
)

type manifestHeader struct {
	Magic    [8]byte
	Version  uint16
	Flags    uint16
	Reserved uint32
}

func readManifestHeader(r io.Reader) (manifestHeader, error) {
	var buf [manifestHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return manifestHeader{}, err
	}
	var h manifestHeader
	copy(h.Magic[:], buf[0:8])
	h.Version = binary.LittleEndian.Uint16(buf[8:10])
	h.Flags = binary.LittleEndian.Uint16(buf[10:12])
	h.Reserved = binary.LittleEndian.Uint32(buf[12:16])
	return h, nil
}

func writeManifestHeader(w io.Writer, h manifestHeader) error {
	var buf [manifestHeaderSize]byte
	copy(buf[0:8], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[8:10], h.Version)
	binary.LittleEndian.PutUint16(buf[10:12], h.Flags)
	binary.LittleEndian.PutUint32(buf[12:16], h.Reserved)
	_, err := w.Write(buf[:])
	return err
}

func (h manifestHeader) compression() Compression {
	return Compression(h.Flags & manifestFlagCompressionMask)
}

func (h manifestHeader) hasUncompressedLen() bool {
	return (h.Flags & manifestFlagHasUncompressedLen) != 0
}

func validateManifestHeader(h manifestHeader) error {
	if h.Magic != manifestMagic {
		return ErrInvalidMagic
	}
	if h.Version != manifestVersionV1 {
		return ErrUnsupportedVersion
	}
	if h.Reserved != 0 {
		return fmt.Errorf("%w: reserved must be 0", ErrInvalidHeader)
	}
	comp := h.compression()
	switch comp {
	case CompNone, CompZIP, CompZSTD, CompLZ4, CompBR:
	default:
		return fmt.Errorf("%w: unknown compression %d", ErrInvalidHeader, comp)
	}
	if comp == CompNone {
		if h.hasUncompressedLen() {
			return fmt.Errorf("%w: COMP_NONE must not set HAS_UNCOMPRESSED_LEN", ErrInvalidHeader)
		}
	} else if !h.hasUncompressedLen() {
		return fmt.Errorf("%w: compressed payload must set HAS_UNCOMPRESSED_LEN", ErrInvalidHeader)
	}
	return nil
}
