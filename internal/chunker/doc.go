// Package chunker splits a Markdown file's text into passages bounded by
// ATX headings, the addressable retrieval unit for the rest of the system.
//
// # Basic Usage
//
//	p := parser.New()
//	parseResult, err := p.ParseFile("note.md")
//
//	c := chunker.New()
//	passages := c.ChunkFile("note.md", content, parseResult)
//
//	for _, passage := range passages {
//	    fmt.Printf("Passage %d: %d bytes\n", passage.Ordinal, passage.BodyLen)
//	}
//
// # Chunking Rule
//
// A passage boundary is any ATX heading. A passage's content is every line
// from its boundary up to (but excluding) the next boundary or EOF; its
// heading is the boundary line's trimmed text. A file with no headings is
// a single passage with a nil heading. Leading content before a file's
// first heading (if any) becomes its own heading-less passage. Passages
// whose body is empty after trimming whitespace are dropped (the heading
// line itself does not count, so a heading with nothing under it before
// the next boundary yields no passage), and the
// remaining passages are renumbered into dense 0-based ordinals — dropping
// empty passages must never leave a gap in the ordinal sequence.
//
// # Incremental Reindexing
//
// Passages carry no chunk-level hash of their own in this package; the
// ingestor detects unchanged files by the file's content hash (§4.1 step 4)
// and, on change, drops and reinserts every passage for that file rather
// than diffing passage by passage.
package chunker
