package opc

import (
	"slices"
	"strings"
	"sync"
)

// ReferenceMap is a bidirectional index of attribute-value references
// between parts of one loaded package. It is safe for concurrent use:
// writers are serialized and readers receive copies.
//
// Keys match the attribute name case-insensitively and the path and value
// exactly, so "W:ID" and "w:id" name the same attribute.
type ReferenceMap struct {
	mu      sync.RWMutex
	forward map[string][]ReferenceTarget
	reverse map[string][]ReferenceSource
	links   int
}

func NewReferenceMap() *ReferenceMap {
	return &ReferenceMap{
		forward: make(map[string][]ReferenceTarget),
		reverse: make(map[string][]ReferenceSource),
	}
}

func referenceKey(path, attribute, value string) string {
	return path + "::" + strings.ToLower(attribute) + "::" + value
}

// AddReference records link in both directions. Links sharing a source key
// accumulate.
func (m *ReferenceMap) AddReference(link ReferenceLink) {
	src := referenceKey(link.SourcePath, link.SourceAttribute, link.SourceValue)
	dst := referenceKey(link.TargetPath, link.TargetAttribute, link.TargetValue)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.forward[src] = append(m.forward[src], ReferenceTarget{
		Path:      link.TargetPath,
		Attribute: link.TargetAttribute,
		Value:     link.TargetValue,
		Label:     link.Label,
	})
	m.reverse[dst] = append(m.reverse[dst], ReferenceSource{
		Path:      link.SourcePath,
		Attribute: link.SourceAttribute,
		Value:     link.SourceValue,
		Label:     link.Label,
	})
	m.links++
}

// ReferencesFrom returns every target registered for the given source triple.
func (m *ReferenceMap) ReferencesFrom(path, attribute, value string) []ReferenceTarget {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.forward[referenceKey(path, attribute, value)])
}

// ReferencesTo returns every source that points at the given target triple.
func (m *ReferenceMap) ReferencesTo(path, attribute, value string) []ReferenceSource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.reverse[referenceKey(path, attribute, value)])
}

// Len reports how many links have been added since the last Clear.
func (m *ReferenceMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.links
}

// Clear drops every link. Reference values are only meaningful within the
// package they were registered against.
func (m *ReferenceMap) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.forward)
	clear(m.reverse)
	m.links = 0
}
