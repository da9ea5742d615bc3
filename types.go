package opc

import (
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/google/uuid"
)

// CompressionMethod is the ZIP compression method of a container entry.
type CompressionMethod uint16

const (
	MethodStore   CompressionMethod = 0
	MethodDeflate CompressionMethod = 8
)

func (m CompressionMethod) String() string {
	switch m {
	case MethodStore:
		return "store"
	case MethodDeflate:
		return "deflate"
	default:
		return "unknown"
	}
}

// Entry is one named member of the container with its payload decompressed.
// Directories carry no payload.
type Entry struct {
	Path              string
	IsDirectory       bool
	CompressedSize    uint64
	UncompressedSize  uint64
	CompressionMethod CompressionMethod
	CRC32             uint32
	LastModified      time.Time
	Payload           []byte
}

// XMLPart is the decoded view of an entry whose extension is .xml or .rels.
// When the bytes are not well-formed, Doc is nil and Err says why; Text still
// holds the decoded characters.
type XMLPart struct {
	Path string
	Text string
	Doc  *xmlquery.Node
	Err  error
}

// Relationship is one <Relationship> element as written in a .rels part.
type Relationship struct {
	ID         string
	Target     string
	Type       string
	TargetMode string
	Source     string // path of the .rels part it came from
}

// External reports whether the target is a URI outside the package.
func (r Relationship) External() bool {
	return isExternalMode(r.TargetMode)
}

// IndexedRelationship is a Relationship with its target resolved to an
// absolute in-package path. External targets are left verbatim.
type IndexedRelationship struct {
	Relationship
	Owner          string
	ResolvedTarget string
}

// RelationshipsBySource maps owner document path to relationship id.
// The package root is the owner "".
type RelationshipsBySource map[string]map[string]*IndexedRelationship

// PackageModel is the immutable result of one container load.
type PackageModel struct {
	ID                    uuid.UUID
	Entries               []*Entry // sorted by path
	ByPath                map[string]*Entry
	XMLDocuments          map[string]*XMLPart
	RelationshipsBySource RelationshipsBySource
	ContentTypes          ContentTypes
}

// ReferenceLink connects an attribute value in one part to an attribute
// value in another (or the same) part.
type ReferenceLink struct {
	SourcePath      string
	SourceAttribute string
	SourceValue     string
	TargetPath      string
	TargetAttribute string
	TargetValue     string
	Label           string
}

// ReferenceTarget is the far end of a forward lookup.
type ReferenceTarget struct {
	Path      string
	Attribute string
	Value     string
	Label     string
}

// ReferenceSource is the near end returned by a reverse lookup.
type ReferenceSource struct {
	Path      string
	Attribute string
	Value     string
	Label     string
}
