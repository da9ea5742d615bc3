package opc

import (
	"path"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

var relationshipNamespaces = map[string]bool{
	"http://schemas.openxmlformats.org/officeDocument/2006/relationships": true,
	"http://purl.oclc.org/ooxml/officeDocument/relationships":             true,
}

var elementExpr = xpath.MustCompile("//*")

// RegisterRelationshipReferences scans every well-formed part of m for
// attributes in the relationships namespace (r:id, r:embed, r:link, ...)
// whose value names one of the part's own relationships, and records each
// as a link from the attribute to the relationship's target part. It
// returns the number of links added.
func RegisterRelationshipReferences(m *PackageModel, refs *ReferenceMap) int {
	added := 0
	for partPath, part := range m.XMLDocuments {
		if part.Doc == nil || isRelationshipsPart(partPath) {
			continue
		}
		owned := m.RelationshipsBySource[partPath]
		if len(owned) == 0 {
			continue
		}
		for _, n := range xmlquery.QuerySelectorAll(part.Doc, elementExpr) {
			for _, a := range n.Attr {
				if !relationshipNamespaces[a.NamespaceURI] {
					continue
				}
				ir, ok := owned[a.Value]
				if !ok {
					continue
				}
				refs.AddReference(ReferenceLink{
					SourcePath:      partPath,
					SourceAttribute: qualifiedName(a),
					SourceValue:     a.Value,
					TargetPath:      ir.ResolvedTarget,
					Label:           path.Base(ir.Type),
				})
				added++
			}
		}
	}
	return added
}

func qualifiedName(a xmlquery.Attr) string {
	if a.Name.Space == "" {
		return a.Name.Local
	}
	return a.Name.Space + ":" + a.Name.Local
}
