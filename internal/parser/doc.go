// Package parser scans a Markdown file's raw text for structure: the ATX
// headings it contains, in source order, with the line range of the
// section each heading introduces.
//
// # Basic Usage
//
//	p := parser.New()
//	result, err := p.ParseFile("/path/to/note.md")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, h := range result.Headings {
//	    fmt.Printf("H%d %q (lines %d-%d)\n", h.Level, h.Text, h.StartLine, h.EndLine)
//	}
//
// A file with no ATX headings produces a result with zero headings; the
// chunker treats that case as a single, heading-less passage spanning the
// whole file.
//
// # ATX heading recognition
//
// A line is a heading if, after up to three leading spaces, it starts with
// one to six `#` characters followed by a space, a tab, or end of line. Any
// trailing run of `#` characters (the optional ATX closing sequence) is
// stripped from the heading text.
package parser
