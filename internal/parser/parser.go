package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/dshills/notekb/pkg/types"
)

// Parser scans Markdown files for ATX heading structure.
type Parser struct{}

// New creates a new Parser instance.
func New() *Parser {
	return &Parser{}
}

// ParseFile reads a Markdown file and extracts its heading structure.
func (p *Parser) ParseFile(filePath string) (*types.ParseResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.ParseText(filePath, string(content)), nil
}

// ParseText extracts the ATX heading structure from raw Markdown text.
// filePath is used only to annotate any recorded errors.
func (p *Parser) ParseText(filePath, content string) *types.ParseResult {
	result := &types.ParseResult{}

	lines := strings.Split(content, "\n")
	headings := make([]types.Heading, 0)

	for i, line := range lines {
		level, text, ok := parseATXHeading(line)
		if !ok {
			continue
		}
		headings = append(headings, types.Heading{
			Level:     level,
			Text:      text,
			StartLine: i + 1,
		})
	}

	// A trailing newline ends the last line; it does not start another one.
	lineCount := len(lines)
	if strings.HasSuffix(content, "\n") {
		lineCount--
	}

	for i := range headings {
		if i+1 < len(headings) {
			headings[i].EndLine = headings[i+1].StartLine - 1
		} else {
			headings[i].EndLine = lineCount
		}
	}

	result.Headings = headings
	return result
}

// parseATXHeading recognizes one ATX heading line (`#` through `######`),
// allowing up to three leading spaces and stripping the optional trailing
// closing sequence of `#` characters.
func parseATXHeading(line string) (level int, text string, ok bool) {
	i := 0
	for i < len(line) && i < 3 && line[i] == ' ' {
		i++
	}

	start := i
	for i < len(line) && line[i] == '#' {
		i++
	}
	level = i - start
	if level < 1 || level > 6 {
		return 0, "", false
	}

	if i == len(line) {
		return level, "", true
	}
	if line[i] != ' ' && line[i] != '\t' {
		return 0, "", false
	}

	text = strings.TrimSpace(line[i:])
	text = strings.TrimRight(text, "#")
	text = strings.TrimSpace(text)
	return level, text, true
}
