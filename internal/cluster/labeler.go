package cluster

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dshills/notekb/internal/tokenize"
)

// stopwords filters common English/markdown/code noise out of label
// candidates for a mixed EN/CS-notes corpus.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "to": true,
	"of": true, "in": true, "for": true, "on": true, "with": true, "as": true,
	"is": true, "are": true, "be": true, "this": true, "that": true, "it": true,
	"we": true, "you": true, "i": true, "they": true, "at": true, "by": true,
	"from": true, "not": true, "can": true, "will": true,
	"md": true, "markdown": true, "gfm": true, "toc": true, "readme": true,
	"https": true, "http": true, "www": true, "url": true,
	"int": true, "long": true, "float": true, "double": true, "string": true,
	"char": true, "bool": true, "boolean": true, "void": true, "return": true,
	"new": true, "null": true, "true": true, "false": true, "public": true,
	"private": true, "protected": true, "static": true, "class": true,
	"interface": true, "import": true, "package": true, "def": true,
	"var": true, "let": true, "const": true, "if": true, "else": true,
	"while": true, "break": true, "continue": true, "try": true, "catch": true,
	"throw": true, "system": true, "out": true, "println": true, "main": true,
	"node": true, "listnode": true, "treenode": true, "dp": true, "nums": true,
	"grid": true, "matrix": true, "tar": true, "zip": true, "gz": true,
	"install": true, "download": true, "head": true, "next": true,
	"id": true, "note": true, "notes": true, "temp": true, "tmp": true,
}

var (
	codeFenceRe  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`[^`]+`")
	urlRe        = regexp.MustCompile(`https?://\S+`)

	leetcodePrefixRe = regexp.MustCompile(`(?i)^leetcode\s*题解\s*`)
	offerPrefixRe    = regexp.MustCompile(`(?i)^剑指\s*offer\s*题解\s*`)
	networkPrefixRe  = regexp.MustCompile(`^计算机网络\s*`)
	javaPrefixRe     = regexp.MustCompile(`(?i)^java\s*`)
	leadingNumberRe  = regexp.MustCompile(`^\d+\.\s*`)
	whitespaceRunRe  = regexp.MustCompile(`\s+`)
	allDigitsRe      = regexp.MustCompile(`^\d+$`)
)

// cleanText strips code fences, inline code, and URLs before tokenizing a
// passage body for label extraction.
func cleanText(s string) string {
	s = codeFenceRe.ReplaceAllString(s, " ")
	s = inlineCodeRe.ReplaceAllString(s, " ")
	s = urlRe.ReplaceAllString(s, " ")
	return s
}

// normalizeTopic collapses known verbose prefixes into a short
// product-like label component.
func normalizeTopic(t string) string {
	t = strings.TrimSpace(t)
	t = leetcodePrefixRe.ReplaceAllString(t, "LeetCode·")
	t = offerPrefixRe.ReplaceAllString(t, "剑指Offer·")
	t = networkPrefixRe.ReplaceAllString(t, "计算机网络·")
	t = javaPrefixRe.ReplaceAllString(t, "Java·")
	t = whitespaceRunRe.ReplaceAllString(t, " ")
	t = strings.TrimSpace(t)
	t = leadingNumberRe.ReplaceAllString(t, "")
	return t
}

// isNoiseTopic reports whether t is too short, purely numeric, or a
// stopword to serve as a label component.
func isNoiseTopic(t string) bool {
	t = strings.ToLower(strings.TrimSpace(t))
	if len(t) < 2 {
		return true
	}
	if allDigitsRe.MatchString(t) {
		return true
	}
	if stopwords[t] {
		return true
	}
	return false
}

// Member is the input to labeling: a cluster's passages, identified by
// id, heading, file path, and body text.
type Member struct {
	PassageID int64
	FilePath  string
	Heading   *string
	Body      string
}

// Label is a cluster's derived name and summary.
type Label struct {
	Name    string
	Summary string
}

// LabelFrequency derives a cluster label from the most frequent
// non-stopword tokens across member headings (falling back to bodies if
// headings are sparse) plus file-stem voting, used when no LLM adapter
// and no TF-IDF corpus is available.
func LabelFrequency(clusterIdx int, members []Member) Label {
	if len(members) == 0 {
		return Label{Name: fmt.Sprintf("Cluster %d", clusterIdx)}
	}

	tokenCounts := map[string]int{}
	for _, m := range members {
		text := m.Body
		if m.Heading != nil && *m.Heading != "" {
			text = *m.Heading
		}
		for _, tok := range tokenize.Words(cleanText(text)) {
			if isNoiseTopic(tok) {
				continue
			}
			tokenCounts[tok]++
		}
	}

	topics := topFileStems(members, 3)
	keywords := topCounted(tokenCounts, 10)

	name := buildName(clusterIdx, topics, keywords)
	summary := "Top keywords: (none)"
	if len(keywords) > 0 {
		limit := keywords
		if len(limit) > 12 {
			limit = limit[:12]
		}
		summary = "Top keywords: " + strings.Join(limit, ", ")
	}
	return Label{Name: name, Summary: summary}
}

// LabelTFIDF derives a cluster label from term-frequency/inverse-document-
// frequency scores across the member bodies, a second labeling strategy
// selectable when the corpus is large enough (min_df=2 equivalent) for
// TF-IDF to be more informative than raw frequency counts.
func LabelTFIDF(clusterIdx int, members []Member) Label {
	if len(members) == 0 {
		return Label{Name: fmt.Sprintf("Cluster %d", clusterIdx)}
	}

	docs := make([][]string, len(members))
	docFreq := map[string]int{}
	for i, m := range members {
		toks := tokenize.Words(cleanText(m.Body))
		seen := map[string]bool{}
		for _, t := range toks {
			if isNoiseTopic(t) {
				continue
			}
			seen[t] = true
		}
		docs[i] = toks
		for t := range seen {
			docFreq[t]++
		}
	}

	scores := map[string]float64{}
	n := float64(len(docs))
	for _, toks := range docs {
		termFreq := map[string]int{}
		for _, t := range toks {
			if isNoiseTopic(t) {
				continue
			}
			termFreq[t]++
		}
		for t, tf := range termFreq {
			df := docFreq[t]
			if df < 2 { // min_df=2 equivalent: ignore one-off tokens
				continue
			}
			idf := 1.0
			if df > 0 {
				idf = 1.0 + (n / float64(df))
			}
			scores[t] += float64(tf) * idf
		}
	}

	type scored struct {
		term  string
		score float64
	}
	ranked := make([]scored, 0, len(scores))
	for t, sc := range scores {
		ranked = append(ranked, scored{term: t, score: sc})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].term < ranked[j].term
	})

	var picked []string
	for _, r := range ranked {
		if isDuplicateTopic(r.term, picked) {
			continue
		}
		picked = append(picked, r.term)
		if len(picked) >= 10 {
			break
		}
	}

	topics := topFileStems(members, 3)
	name := buildName(clusterIdx, topics, picked)
	summary := "Top keywords: (empty after filtering)"
	if len(picked) > 0 {
		limit := picked
		if len(limit) > 12 {
			limit = limit[:12]
		}
		summary = "Top keywords: " + strings.Join(limit, ", ")
	}
	return Label{Name: name, Summary: summary}
}

func buildName(clusterIdx int, topics, keywords []string) string {
	var parts []string
	for _, t := range topics {
		if t != "" && !isDuplicateTopic(t, parts) {
			parts = append(parts, t)
		}
		if len(parts) >= 3 {
			break
		}
	}
	for _, t := range keywords {
		if len(parts) >= 3 {
			break
		}
		if t != "" && !isDuplicateTopic(t, parts) {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Cluster %d", clusterIdx)
	}
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = normalizeTopic(p)
	}
	return strings.Join(normalized, " / ")
}

func isDuplicateTopic(t string, existing []string) bool {
	for _, p := range existing {
		if t == p || strings.Contains(t, p) || strings.Contains(p, t) {
			return true
		}
	}
	return false
}

// topFileStems votes on member file-name stems as label candidates, often
// more topic-like to a human than raw TF-IDF keywords.
func topFileStems(members []Member, topN int) []string {
	counts := map[string]int{}
	var order []string
	for _, m := range members {
		stem := strings.ToLower(strings.TrimSuffix(filepath.Base(m.FilePath), filepath.Ext(m.FilePath)))
		stem = whitespaceRunRe.ReplaceAllString(stem, " ")
		stem = strings.ReplaceAll(stem, "_", " ")
		stem = strings.ReplaceAll(stem, " - ", " ")
		stem = strings.TrimSpace(stem)
		if isNoiseTopic(stem) || stem == "note" || stem == "notes" || stem == "temp" || stem == "tmp" {
			continue
		}
		if counts[stem] == 0 {
			order = append(order, stem)
		}
		counts[stem]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > topN {
		order = order[:topN]
	}
	return order
}

func topCounted(counts map[string]int, n int) []string {
	type kv struct {
		term  string
		count int
	}
	ranked := make([]kv, 0, len(counts))
	for t, c := range counts {
		ranked = append(ranked, kv{t, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].term < ranked[j].term
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.term
	}
	return out
}
