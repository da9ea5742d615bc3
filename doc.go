// Package opc reads Open Packaging Conventions containers (.docx, .xlsx,
// .pptx) and resolves the relationship graph that stitches their parts
// together.
//
// # Overview
//
// An OPC container is a ZIP archive whose entries ("parts") are mostly XML.
// Parts refer to each other indirectly through relationship parts: for a
// part at word/document.xml, the file word/_rels/document.xml.rels lists
// Id → Target pairs, and the document mentions only the Id.
//
// Loading a container produces a [PackageModel]:
//   - Entries: every archive member with its payload decompressed
//   - ByPath: path-keyed lookup of entries
//   - XMLDocuments: text and parsed tree of every .xml and .rels part
//   - RelationshipsBySource: owner part → relationship id → resolved target
//
// A [ReferenceMap] complements the model with a bidirectional index of
// attribute-value references that viewers register as they discover them.
//
// # Basic Usage
//
//	data, _ := os.ReadFile("report.docx")
//	pkg, err := opc.Load(data)
//	if err != nil {
//		fmt.Println(opc.UserMessage(err))
//		return
//	}
//	main, _ := pkg.RelationshipTarget("", "rId1")
//	fmt.Println(main.Path) // word/document.xml
//
// # Errors
//
// Structural container failures are reported as *[ContainerFormatError]
// and abort the load. Malformed XML in a single part is recorded on that
// part as *[XMLParseError] and the rest of the package stays usable.
//
// # Security Considerations
//
// Decompression is bounded by [Limits]: entry count, per-entry size and
// total expanded size are checked against the central directory before any
// payload is inflated, and inflation never produces more than the declared
// size.
package opc
