package opc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingDirectory       = errors.New("opc: end of central directory not found")
	ErrCorruptDirectoryEntry  = errors.New("opc: corrupt central directory entry")
	ErrMissingLocalHeader     = errors.New("opc: missing local file header")
	ErrUnsupportedCompression = errors.New("opc: unsupported compression")
	ErrTruncated              = errors.New("opc: truncated container")
	ErrCorruptPayload         = errors.New("opc: corrupt entry payload")
	ErrLimitExceeded          = errors.New("opc: limit exceeded")
	ErrMalformedXML           = errors.New("opc: malformed XML")

	ErrInvalidMagic       = errors.New("opc: invalid manifest magic")
	ErrUnsupportedVersion = errors.New("opc: unsupported manifest version")
	ErrInvalidHeader      = errors.New("opc: invalid manifest header")
	ErrInvalidPayload     = errors.New("opc: invalid manifest payload")
)

// FormatErrorKind classifies a structural failure of the container.
type FormatErrorKind int

const (
	MissingDirectory FormatErrorKind = iota + 1
	CorruptDirectoryEntry
	MissingLocalHeader
	UnsupportedCompression
	Truncated
	CorruptPayload
)

func (k FormatErrorKind) String() string {
	switch k {
	case MissingDirectory:
		return "MissingDirectory"
	case CorruptDirectoryEntry:
		return "CorruptDirectoryEntry"
	case MissingLocalHeader:
		return "MissingLocalHeader"
	case UnsupportedCompression:
		return "UnsupportedCompression"
	case Truncated:
		return "Truncated"
	case CorruptPayload:
		return "CorruptPayload"
	default:
		return fmt.Sprintf("FormatErrorKind(%d)", int(k))
	}
}

func (k FormatErrorKind) sentinel() error {
	switch k {
	case MissingDirectory:
		return ErrMissingDirectory
	case CorruptDirectoryEntry:
		return ErrCorruptDirectoryEntry
	case MissingLocalHeader:
		return ErrMissingLocalHeader
	case UnsupportedCompression:
		return ErrUnsupportedCompression
	case Truncated:
		return ErrTruncated
	default:
		return ErrCorruptPayload
	}
}

// ContainerFormatError reports a structural problem that makes the whole
// container unreadable. It unwraps to the sentinel matching its Kind, so
// callers can use errors.Is(err, ErrUnsupportedCompression) and friends.
type ContainerFormatError struct {
	Kind   FormatErrorKind
	Name   string // entry name, when known
	Offset int64  // byte offset of the offending record, -1 when unknown
	Method uint16 // compression method, for UnsupportedCompression
	Err    error  // underlying cause, if any
}

func (e *ContainerFormatError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Kind == UnsupportedCompression {
		msg = fmt.Sprintf("%s method %d", msg, e.Method)
	}
	if e.Name != "" {
		msg = fmt.Sprintf("%s: entry %q", msg, e.Name)
	}
	if e.Offset >= 0 {
		msg = fmt.Sprintf("%s at offset %d", msg, e.Offset)
	}
	if e.Err != nil {
		// Decompressors wrap the same sentinel; print it once.
		cause := strings.TrimPrefix(e.Err.Error(), e.Kind.sentinel().Error()+": ")
		msg = fmt.Sprintf("%s: %s", msg, cause)
	}
	return msg
}

func (e *ContainerFormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind.sentinel(), e.Err}
	}
	return []error{e.Kind.sentinel()}
}

func formatError(kind FormatErrorKind, offset int64, name string) *ContainerFormatError {
	return &ContainerFormatError{Kind: kind, Offset: offset, Name: name}
}

// XMLParseError records a part whose bytes are not well-formed XML.
// It is attached to the part and never aborts a load.
type XMLParseError struct {
	Path string
	Err  error
}

func (e *XMLParseError) Error() string {
	return fmt.Sprintf("malformed XML in part %q: %v", e.Path, e.Err)
}

func (e *XMLParseError) Unwrap() []error {
	return []error{ErrMalformedXML, e.Err}
}

// UserMessage renders err the way a UI shows it: container failures become
// "file could not be opened", with unsupported compression and malformed
// parts called out separately.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var xe *XMLParseError
	if errors.As(err, &xe) {
		return fmt.Sprintf("malformed XML in part %s", xe.Path)
	}
	var ce *ContainerFormatError
	if errors.As(err, &ce) {
		if ce.Kind == UnsupportedCompression {
			return fmt.Sprintf("file could not be opened: unsupported compression (method %d)", ce.Method)
		}
		return "file could not be opened: not a valid container"
	}
	if errors.Is(err, ErrLimitExceeded) {
		return "file could not be opened: container exceeds size limits"
	}
	return "file could not be opened: " + err.Error()
}
