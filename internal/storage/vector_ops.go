package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/dshills/notekb/internal/tokenize"
)

// serializeVector converts a float32 slice to a little-endian byte blob.
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a little-endian byte blob back to a float32
// slice.
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors of
// equal length. Returns 0 for mismatched lengths or a zero vector.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for testing and for callers outside
// this package that need the stored blob layout of a vector.
func SerializeVector(vector []float32) []byte { return serializeVector(vector) }

// DeserializeVector is an exported helper for testing.
func DeserializeVector(blob []byte) []float32 { return deserializeVector(blob) }

// CosineSimilarity is an exported helper for testing and for the semantic
// reranker, the recommender, and cluster labeling.
func CosineSimilarity(a, b []float32) float64 { return cosineSimilarity(a, b) }

// ftsOperatorPattern matches FTS5's reserved boolean keywords so they can be
// escaped out of untrusted query text.
var ftsOperatorPattern = regexp.MustCompile(`\b(AND|OR|NOT|NEAR)\b`)

// sanitizeFTSQuery escapes characters and keywords that carry special
// meaning to FTS5's query syntax, for text that must be embedded literally
// (a phrase, or a single token) rather than built up term by term.
func sanitizeFTSQuery(query string) string {
	if query == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		`"`, `""`,
		`*`, ` `,
		`(`, ``,
		`)`, ``,
	)
	escaped := replacer.Replace(query)
	return ftsOperatorPattern.ReplaceAllStringFunc(escaped, func(match string) string {
		return `"` + match + `"`
	})
}

// buildMatchQuery turns free text into an FTS5 MATCH expression: a
// double-quoted segment of the input is passed through as a phrase query,
// everything else is tokenized (case-folded, CJK-aware) and turned into
// prefix-disjunction terms, so "linked list" search matches any token
// starting with "linked" or "list" unless quoted together as a phrase.
func buildMatchQuery(query string) string {
	segments := strings.Split(query, `"`)
	terms := make([]string, 0, len(segments))

	for i, seg := range segments {
		if i%2 == 1 {
			phrase := strings.TrimSpace(seg)
			if phrase == "" {
				continue
			}
			terms = append(terms, fmt.Sprintf("\"%s\"", sanitizeFTSQuery(phrase)))
			continue
		}
		for _, tok := range tokenize.Words(seg) {
			terms = append(terms, fmt.Sprintf("\"%s\"*", sanitizeFTSQuery(tok)))
		}
	}

	return strings.Join(terms, " OR ")
}
