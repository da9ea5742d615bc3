package opc

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Manifest is a serializable inventory of a loaded package: its parts, its
// resolved relationships, and the parts that failed to parse.
type Manifest struct {
	PackageID     string                 `json:"package_id"`
	Parts         []ManifestPart         `json:"parts"`
	Relationships []ManifestRelationship `json:"relationships"`
	ParseErrors   []string               `json:"parse_errors,omitempty"`
}

type ManifestPart struct {
	Path             string    `json:"path"`
	Directory        bool      `json:"directory,omitempty"`
	Method           string    `json:"method"`
	CompressedSize   uint64    `json:"compressed_size"`
	UncompressedSize uint64    `json:"uncompressed_size"`
	LastModified     time.Time `json:"last_modified"`
	ContentType      string    `json:"content_type,omitempty"`
	SHA256           string    `json:"sha256,omitempty"`
}

type ManifestRelationship struct {
	Owner          string `json:"owner"`
	ID             string `json:"id"`
	Type           string `json:"type,omitempty"`
	Target         string `json:"target"`
	ResolvedTarget string `json:"resolved_target"`
	External       bool   `json:"external,omitempty"`
	Dangling       bool   `json:"dangling,omitempty"`
}

// BuildManifest summarizes m. Parts keep the model's path order and
// relationships are ordered by owner then id.
func BuildManifest(m *PackageModel) *Manifest {
	out := &Manifest{
		PackageID:     m.ID.String(),
		Parts:         make([]ManifestPart, 0, len(m.Entries)),
		Relationships: []ManifestRelationship{},
	}
	for _, e := range m.Entries {
		p := ManifestPart{
			Path:             e.Path,
			Directory:        e.IsDirectory,
			Method:           e.CompressionMethod.String(),
			CompressedSize:   e.CompressedSize,
			UncompressedSize: e.UncompressedSize,
			LastModified:     e.LastModified,
		}
		if typ, ok := m.ContentType(e.Path); ok {
			p.ContentType = typ
		}
		if !e.IsDirectory {
			sum := sha256.Sum256(e.Payload)
			p.SHA256 = hex.EncodeToString(sum[:])
		}
		out.Parts = append(out.Parts, p)
	}
	for _, ir := range m.AllRelationships() {
		r := ManifestRelationship{
			Owner:          ir.Owner,
			ID:             ir.ID,
			Type:           ir.Type,
			Target:         ir.Target,
			ResolvedTarget: ir.ResolvedTarget,
			External:       ir.External(),
		}
		if !r.External {
			_, found := m.Entry(ir.ResolvedTarget)
			r.Dangling = !found
		}
		out.Relationships = append(out.Relationships, r)
	}
	for _, xe := range m.ParseErrors() {
		out.ParseErrors = append(out.ParseErrors, xe.Error())
	}
	return out
}

// EncodeManifest writes m to w as a 16-byte header followed by its JSON
// encoding, compressed with comp.
func EncodeManifest(w io.Writer, m *Manifest, comp Compression) error {
	if m == nil {
		return fmt.Errorf("%w: manifest is nil", ErrInvalidPayload)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	flags, payload, err := compressPayload(comp, raw)
	if err != nil {
		return err
	}
	h := manifestHeader{Magic: manifestMagic, Version: manifestVersionV1, Flags: flags}
	if err := writeManifestHeader(w, h); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// DecodeManifest reads a manifest written by EncodeManifest. Stored and
// decompressed sizes are bounded by limits (zero fields take defaults).
func DecodeManifest(r io.Reader, limits Limits) (*Manifest, error) {
	limits = limits.withDefaults()
	h, err := readManifestHeader(r)
	if err != nil {
		return nil, err
	}
	if err := validateManifestHeader(h); err != nil {
		return nil, err
	}
	payload, err := readAll(io.LimitReader(r, int64(limits.MaxManifestCompressed)+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(payload)) > limits.MaxManifestCompressed {
		return nil, fmt.Errorf("%w: manifest payload too large", ErrLimitExceeded)
	}
	raw, err := decompressPayload(h.compression(), h.Flags, payload, limits.MaxManifestSize)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &m, nil
}
