package types

import "strings"

// CollapsePreview returns the first n runes of s with runs of whitespace
// collapsed to a single space and leading/trailing whitespace trimmed. Used
// to build the `preview` field threaded through lexical, semantic, hybrid,
// and recommender results alike.
func CollapsePreview(s string, n int) string {
	fields := strings.Fields(s)
	collapsed := strings.Join(fields, " ")
	runes := []rune(collapsed)
	if len(runes) <= n {
		return collapsed
	}
	return string(runes[:n])
}
