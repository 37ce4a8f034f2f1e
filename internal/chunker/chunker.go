package chunker

import (
	"strings"

	"github.com/dshills/notekb/pkg/types"
)

// Chunker splits Markdown files into heading-bounded passages.
type Chunker struct{}

// New creates a new Chunker instance.
func New() *Chunker {
	return &Chunker{}
}

// ChunkFile splits a Markdown file's content into passages using the
// headings already discovered by the parser. Returned passages have dense
// 0-based ordinals and a non-empty, trimmed Body; filePath is stamped onto
// every passage unchanged.
func (c *Chunker) ChunkFile(filePath, content string, parseResult *types.ParseResult) []*types.Passage {
	lines := strings.Split(content, "\n")
	raw := rawPassages(filePath, lines, parseResult.Headings)

	passages := make([]*types.Passage, 0, len(raw))
	ordinal := 0
	for _, p := range raw {
		trimmed := strings.TrimSpace(p.Body)
		if trimmed == "" {
			continue
		}
		p.Body = trimmed
		p.BodyLen = len(p.Body)
		p.Ordinal = ordinal
		ordinal++
		passages = append(passages, p)
	}
	return passages
}

// rawPassages builds one passage per heading (plus a leading heading-less
// passage for any content before the first heading) before ordinal
// assignment and empty-body dropping.
func rawPassages(filePath string, lines []string, headings []types.Heading) []*types.Passage {
	if len(headings) == 0 {
		return []*types.Passage{{
			FilePath: filePath,
			Body:     strings.Join(lines, "\n"),
		}}
	}

	raw := make([]*types.Passage, 0, len(headings)+1)

	if first := headings[0]; first.StartLine > 1 {
		raw = append(raw, &types.Passage{
			FilePath: filePath,
			Body:     strings.Join(lines[:first.StartLine-1], "\n"),
		})
	}

	for _, h := range headings {
		startIdx := h.StartLine - 1
		endIdx := h.EndLine
		if endIdx > len(lines) {
			endIdx = len(lines)
		}
		// A section with nothing under its heading line has an empty body.
		if strings.TrimSpace(strings.Join(lines[startIdx+1:endIdx], "\n")) == "" {
			continue
		}
		heading := h.Text
		raw = append(raw, &types.Passage{
			FilePath: filePath,
			Heading:  &heading,
			Body:     strings.Join(lines[startIdx:endIdx], "\n"),
		})
	}

	return raw
}
