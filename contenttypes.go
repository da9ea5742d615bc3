package opc

import (
	"path"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

const contentTypesPart = "[Content_Types].xml"

var (
	defaultTypeExpr  = xpath.MustCompile("//*[local-name()='Default']")
	overrideTypeExpr = xpath.MustCompile("//*[local-name()='Override']")
)

// ContentTypes holds the media types declared by [Content_Types].xml.
type ContentTypes struct {
	Defaults  map[string]string // lowercase extension without dot
	Overrides map[string]string // part path without leading slash
}

func parseContentTypes(doc *xmlquery.Node) ContentTypes {
	ct := ContentTypes{
		Defaults:  make(map[string]string),
		Overrides: make(map[string]string),
	}
	if doc == nil {
		return ct
	}
	for _, n := range xmlquery.QuerySelectorAll(doc, defaultTypeExpr) {
		ext, typ := attrValue(n, "Extension"), attrValue(n, "ContentType")
		if ext != "" && typ != "" {
			ct.Defaults[strings.ToLower(ext)] = typ
		}
	}
	for _, n := range xmlquery.QuerySelectorAll(doc, overrideTypeExpr) {
		name, typ := attrValue(n, "PartName"), attrValue(n, "ContentType")
		if name != "" && typ != "" {
			ct.Overrides[normalizePartPath(name)] = typ
		}
	}
	return ct
}

// Lookup returns the content type of partPath: an override when one is
// declared, else the default for its extension.
func (ct ContentTypes) Lookup(partPath string) (string, bool) {
	if typ, ok := ct.Overrides[partPath]; ok {
		return typ, true
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(partPath)), ".")
	if ext == "" {
		return "", false
	}
	typ, ok := ct.Defaults[ext]
	return typ, ok
}
