package opc

import (
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

const (
	relsDir    = "_rels"
	relsSuffix = ".rels"
)

var relationshipExpr = xpath.MustCompile("//*[local-name()='Relationship']")

func isRelationshipsPart(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), relsSuffix)
}

func isExternalMode(mode string) bool {
	return strings.EqualFold(mode, "External")
}

// ParseRelationships extracts the <Relationship> elements of one .rels part.
// Elements without an Id or Target are skipped.
func ParseRelationships(doc *xmlquery.Node, relsPath string) []Relationship {
	if doc == nil {
		return nil
	}
	var out []Relationship
	for _, n := range xmlquery.QuerySelectorAll(doc, relationshipExpr) {
		id := attrValue(n, "Id")
		target := attrValue(n, "Target")
		if id == "" || target == "" {
			continue
		}
		out = append(out, Relationship{
			ID:         id,
			Target:     target,
			Type:       attrValue(n, "Type"),
			TargetMode: attrValue(n, "TargetMode"),
			Source:     relsPath,
		})
	}
	return out
}

// attrValue looks an unprefixed attribute up by its exact name, then by its
// lowercase spelling.
func attrValue(n *xmlquery.Node, name string) string {
	lower := strings.ToLower(name)
	fallback := ""
	for _, a := range n.Attr {
		if a.Name.Space != "" {
			continue
		}
		if a.Name.Local == name {
			return a.Value
		}
		if fallback == "" && a.Name.Local == lower {
			fallback = a.Value
		}
	}
	return fallback
}

// SourcePathFromRelationshipsPath derives the path of the part a .rels part
// describes. "word/_rels/document.xml.rels" describes "word/document.xml";
// the package-level "_rels/.rels" describes the package root, "".
func SourcePathFromRelationshipsPath(relsPath string) string {
	segs := strings.Split(relsPath, "/")
	file := segs[len(segs)-1]
	dir := segs[:len(segs)-1]

	base := strings.TrimSuffix(file, relsSuffix)
	folder := strings.Join(dir, "/")
	for i := len(dir) - 1; i >= 0; i-- {
		if dir[i] == relsDir {
			folder = strings.Join(dir[:i], "/")
			break
		}
	}
	switch {
	case folder == "":
		return base
	case base == "":
		return folder
	default:
		return folder + "/" + base
	}
}

// ResolveRelationshipTarget resolves an internal relationship target against
// the folder of its owner part. A leading slash makes the target relative to
// the package root. The result has no "." or ".." segments and no leading
// slash; ".." never climbs above the root.
func ResolveRelationshipTarget(ownerPath, target string) string {
	if rest, ok := strings.CutPrefix(target, "/"); ok {
		return normalizePartPath(rest)
	}
	folder := ""
	if i := strings.LastIndex(ownerPath, "/"); i >= 0 {
		folder = ownerPath[:i]
	}
	if folder == "" {
		return normalizePartPath(target)
	}
	return normalizePartPath(folder + "/" + target)
}

func normalizePartPath(p string) string {
	stack := make([]string, 0, strings.Count(p, "/")+1)
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}
	return strings.Join(stack, "/")
}

// Resolve attaches the owner path and resolved target to r. External
// targets keep their raw value.
func (r Relationship) Resolve() *IndexedRelationship {
	owner := SourcePathFromRelationshipsPath(r.Source)
	resolved := r.Target
	if !r.External() {
		resolved = ResolveRelationshipTarget(owner, r.Target)
	}
	return &IndexedRelationship{Relationship: r, Owner: owner, ResolvedTarget: resolved}
}

// IndexRelationships groups relationships by owner path and id. Ids that
// repeat under one owner keep the last occurrence in rels order.
func IndexRelationships(rels []Relationship) RelationshipsBySource {
	idx := make(RelationshipsBySource)
	for _, r := range rels {
		ir := r.Resolve()
		byID, ok := idx[ir.Owner]
		if !ok {
			byID = make(map[string]*IndexedRelationship)
			idx[ir.Owner] = byID
		}
		byID[ir.ID] = ir
	}
	return idx
}

// Lookup returns the relationship with id owned by owner.
func (idx RelationshipsBySource) Lookup(owner, id string) (*IndexedRelationship, bool) {
	ir, ok := idx[owner][id]
	return ir, ok
}
