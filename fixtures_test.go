package opc

import (
	"archive/zip"
	"bytes"
	"hash/crc32"
	"testing"
	"time"
)

var fixtureTime = time.Date(2024, time.March, 15, 13, 45, 30, 0, time.UTC)

type zipFile struct {
	name   string
	method uint16
	data   []byte
}

// buildZip writes files in order with archive/zip.
func buildZip(t testing.TB, files []zipFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.name, Method: f.method, Modified: fixtureTime})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// buildRawZip writes entries with caller-chosen methods and stored bytes.
func buildRawZip(t testing.TB, files []zipFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.CreateRaw(&zip.FileHeader{
			Name:               f.name,
			Method:             f.method,
			CRC32:              crc32.ChecksumIEEE(f.data),
			CompressedSize64:   uint64(len(f.data)),
			UncompressedSize64: uint64(len(f.data)),
		})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// directoryOffset returns the central directory offset stored in the EOCD.
func directoryOffset(t testing.TB, data []byte) int {
	t.Helper()
	eocd, err := findEndOfDirectory(data)
	if err != nil {
		t.Fatal(err)
	}
	return int(eocd.DirectoryOffset)
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0x00, 0x01, 0x02, 0x03}

const (
	fixtureContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Default Extension="PNG" ContentType="image/png"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

	fixtureRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	fixtureDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
    xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"
    xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Hello</w:t></w:r></w:p>
    <w:p><w:hyperlink r:id="rId3"><w:r><w:t>link</w:t></w:r></w:hyperlink></w:p>
    <w:p><w:r><w:drawing><a:blip r:embed="rId2"/></w:drawing></w:r></w:p>
  </w:body>
</w:document>`

	fixtureDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
  <Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="../outside/page.html" TargetMode="External"/>
  <Relationship Id="rId4" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/customXml" Target="/customXml/item1.xml"/>
</Relationships>`
)

// minimalPackage is a five-part .docx: content types, package rels, the
// main document, its rels, and one stored PNG.
func minimalPackage(t testing.TB) []byte {
	t.Helper()
	return buildZip(t, []zipFile{
		{name: "[Content_Types].xml", method: zip.Deflate, data: []byte(fixtureContentTypes)},
		{name: "_rels/.rels", method: zip.Deflate, data: []byte(fixtureRootRels)},
		{name: "word/document.xml", method: zip.Deflate, data: []byte(fixtureDocument)},
		{name: "word/_rels/document.xml.rels", method: zip.Deflate, data: []byte(fixtureDocumentRels)},
		{name: "word/media/image1.png", method: zip.Store, data: pngBytes},
	})
}
