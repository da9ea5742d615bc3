package opc

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Load reads an OPC container and builds its PackageModel.
//
// The loading process:
//  1. Reads every container entry (see [ReadContainer])
//  2. Decodes .xml and .rels entries into text and parsed documents
//  3. Parses every .rels part into relationships
//  4. Resolves all relationships into one index keyed by owner part
//
// Container failures abort the load and return no model. A part that is
// not well-formed XML is kept with its parse error and does not abort.
func Load(data []byte, opts ...ReadOption) (*PackageModel, error) {
	cfg := newReadConfig(opts)
	id := uuid.New()
	log := cfg.logger.With(slog.String("package", id.String()))

	raw, err := readContainer(data, cfg)
	if err != nil {
		log.Warn("container rejected", slog.Any("error", err))
		return nil, err
	}

	m := &PackageModel{
		ID:           id,
		Entries:      make([]*Entry, len(raw)),
		ByPath:       make(map[string]*Entry, len(raw)),
		XMLDocuments: make(map[string]*XMLPart),
	}
	for i := range raw {
		m.Entries[i] = &raw[i]
	}
	slices.SortStableFunc(m.Entries, func(a, b *Entry) int {
		return strings.Compare(a.Path, b.Path)
	})

	var rels []Relationship
	for _, e := range m.Entries {
		if _, dup := m.ByPath[e.Path]; dup {
			log.Warn("duplicate entry name, keeping the later one", slog.String("path", e.Path))
		}
		m.ByPath[e.Path] = e
		if err := ValidatePartName(e.Path); err != nil {
			log.Warn("unusual part name", slog.String("path", e.Path), slog.String("reason", err.Error()))
		}
		if e.IsDirectory || !isXMLPartName(e.Path) {
			continue
		}
		part := DecodeXMLPart(e.Path, e.Payload)
		m.XMLDocuments[e.Path] = part
		if part.Err != nil {
			log.Warn("part is not well-formed XML", slog.String("path", e.Path), slog.Any("error", part.Err))
			continue
		}
		if isRelationshipsPart(e.Path) {
			rels = append(rels, ParseRelationships(part.Doc, e.Path)...)
		}
	}
	m.RelationshipsBySource = IndexRelationships(rels)
	if part, ok := m.XMLDocuments[contentTypesPart]; ok {
		m.ContentTypes = parseContentTypes(part.Doc)
	} else {
		m.ContentTypes = parseContentTypes(nil)
	}

	log.Info("package loaded",
		slog.Int("entries", len(m.Entries)),
		slog.Int("xml_parts", len(m.XMLDocuments)),
		slog.Int("relationships", len(rels)))
	return m, nil
}

// Entry returns the entry stored under path.
func (m *PackageModel) Entry(path string) (*Entry, bool) {
	e, ok := m.ByPath[path]
	return e, ok
}

// Relationship returns relationship id of the part at owner ("" for the package root).
func (m *PackageModel) Relationship(owner, id string) (*IndexedRelationship, bool) {
	return m.RelationshipsBySource.Lookup(owner, id)
}

// RelationshipTarget follows relationship id of owner to the entry it names.
// External relationships and dangling targets report false.
func (m *PackageModel) RelationshipTarget(owner, id string) (*Entry, bool) {
	ir, ok := m.Relationship(owner, id)
	if !ok || ir.External() {
		return nil, false
	}
	return m.Entry(ir.ResolvedTarget)
}

// RelationshipsOfType returns every relationship whose Type ends with
// typeSuffix (for example "/comments"), ordered by owner then id.
func (m *PackageModel) RelationshipsOfType(typeSuffix string) []*IndexedRelationship {
	var out []*IndexedRelationship
	for _, byID := range m.RelationshipsBySource {
		for _, ir := range byID {
			if strings.HasSuffix(ir.Type, typeSuffix) {
				out = append(out, ir)
			}
		}
	}
	sortRelationships(out)
	return out
}

// AllRelationships returns the whole index flattened, ordered by owner then id.
func (m *PackageModel) AllRelationships() []*IndexedRelationship {
	return m.RelationshipsOfType("")
}

// ParseErrors returns the parse failure of every malformed XML part, by path.
func (m *PackageModel) ParseErrors() []*XMLParseError {
	var out []*XMLParseError
	for _, part := range m.XMLDocuments {
		if xe, ok := part.Err.(*XMLParseError); ok {
			out = append(out, xe)
		}
	}
	slices.SortFunc(out, func(a, b *XMLParseError) int { return strings.Compare(a.Path, b.Path) })
	return out
}

// ContentType returns the declared media type of path.
func (m *PackageModel) ContentType(path string) (string, bool) {
	return m.ContentTypes.Lookup(path)
}

func sortRelationships(rs []*IndexedRelationship) {
	slices.SortFunc(rs, func(a, b *IndexedRelationship) int {
		if c := strings.Compare(a.Owner, b.Owner); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// Workspace owns the active PackageModel and the ReferenceMap scoped to it.
// A failed load leaves the previous model active.
type Workspace struct {
	mu    sync.RWMutex
	model *PackageModel
	refs  *ReferenceMap
	opts  []ReadOption
}

// NewWorkspace returns an empty workspace whose loads use opts.
func NewWorkspace(opts ...ReadOption) *Workspace {
	return &Workspace{refs: NewReferenceMap(), opts: opts}
}

// Load replaces the active package with the one in data. References
// registered against the previous package are cleared on success only.
func (w *Workspace) Load(data []byte) (*PackageModel, error) {
	m, err := Load(data, w.opts...)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.model = m
	w.refs.Clear()
	return m, nil
}

// Package returns the active model, or nil before the first successful load.
func (w *Workspace) Package() *PackageModel {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.model
}

// References returns the reference map shared by every consumer of the workspace.
func (w *Workspace) References() *ReferenceMap {
	return w.refs
}
