package opc

import (
	"bytes"
	"path"
	"strings"

	"github.com/antchfx/xmlquery"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// isXMLPartName reports whether an entry is decoded as XML.
func isXMLPartName(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".xml", ".rels":
		return true
	}
	return false
}

// DecodeXMLPart decodes the payload of an XML entry into its canonical
// text and parsed document. Malformed input never fails the call: the
// returned part carries an *XMLParseError instead.
func DecodeXMLPart(name string, payload []byte) *XMLPart {
	part := &XMLPart{Path: name}
	text, err := decodeText(payload)
	if err != nil {
		part.Text = string(payload)
		part.Err = &XMLParseError{Path: name, Err: err}
		return part
	}
	part.Text = text

	// The parser does not accept a UTF-8 byte order mark.
	doc, err := xmlquery.Parse(bytes.NewReader(bytes.TrimPrefix(payload, utf8BOM)))
	if err != nil {
		part.Err = &XMLParseError{Path: name, Err: err}
		return part
	}
	part.Doc = doc
	return part
}

// decodeText converts payload to UTF-8, honouring a UTF-8 or UTF-16 byte
// order mark and stripping it. Payloads without a BOM are taken as UTF-8.
func decodeText(payload []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, payload)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
