package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestLabelFrequency_EmptyMembers(t *testing.T) {
	label := LabelFrequency(5, nil)
	assert.Equal(t, "Cluster 5", label.Name)
}

func TestLabelFrequency_PrefersHeadingTokens(t *testing.T) {
	members := []Member{
		{PassageID: 1, FilePath: "linked-lists.md", Heading: strPtr("Linked List Traversal"), Body: "irrelevant body text"},
		{PassageID: 2, FilePath: "linked-lists.md", Heading: strPtr("Linked List Insertion"), Body: "irrelevant body text"},
	}
	label := LabelFrequency(0, members)
	assert.Contains(t, label.Name, "linked")
}

func TestLabelFrequency_StripsCodeAndURLs(t *testing.T) {
	members := []Member{
		{PassageID: 1, FilePath: "arrays.md", Heading: strPtr(""), Body: "see https://example.com and ```code block``` for arrays traversal arrays"},
	}
	label := LabelFrequency(0, members)
	assert.NotContains(t, label.Summary, "https")
	assert.NotContains(t, label.Summary, "```")
}

func TestLabelTFIDF_EmptyMembers(t *testing.T) {
	label := LabelTFIDF(3, nil)
	assert.Equal(t, "Cluster 3", label.Name)
}

func TestLabelTFIDF_IgnoresOneOffTerms(t *testing.T) {
	members := []Member{
		{PassageID: 1, FilePath: "a.md", Body: "binary search tree rotation"},
		{PassageID: 2, FilePath: "b.md", Body: "binary search tree balance"},
		{PassageID: 3, FilePath: "c.md", Body: "unique singleton term here"},
	}
	label := LabelTFIDF(0, members)
	assert.NotContains(t, label.Summary, "singleton")
}

func TestIsNoiseTopic(t *testing.T) {
	assert.True(t, isNoiseTopic("a"))
	assert.True(t, isNoiseTopic("123"))
	assert.True(t, isNoiseTopic("the"))
	assert.False(t, isNoiseTopic("traversal"))
}

func TestNormalizeTopic_CollapsesKnownPrefixes(t *testing.T) {
	assert.Equal(t, "LeetCode·two sum", normalizeTopic("LeetCode 题解 two sum"))
}

func TestTopFileStems_SkipsGenericNames(t *testing.T) {
	members := []Member{
		{FilePath: "notes.md"}, {FilePath: "notes.md"}, {FilePath: "graphs.md"},
	}
	stems := topFileStems(members, 3)
	assert.NotContains(t, stems, "notes")
	assert.Contains(t, stems, "graphs")
}
