// Package cluster groups the corpus's embedded passages into topics via
// spherical k-means and derives a human-readable name and summary for
// each group.
//
// # Building clusters
//
//	stats, err := cluster.Build(ctx, store, cluster.Config{Model: "jina-embeddings-v2"})
//
// Build lists every embedding under the requested model, runs KMeans
// over the unit-norm vectors with a corpus-derived deterministic seed,
// labels each resulting group, and atomically replaces the store's
// "kmeans" clusters — sharing the same BuildLock as the ingestor and
// embed build, so at most one build runs at a time.
//
// # K selection
//
// If Config.K is zero, HeuristicK picks round(sqrt(n/2)) clamped to
// [8, 128].
//
// # Labeling
//
// LabelFrequency names a cluster from its members' most frequent
// non-stopword heading (or body) tokens, plus file-stem voting.
// LabelTFIDF is a second strategy that scores terms by
// frequency/inverse-document-frequency across member bodies, more
// informative once a cluster has enough distinct documents for rare
// terms to stand out. Both strip code fences, inline code, and URLs
// before tokenizing, and both skip a small stopword list of common English
// words and Markdown/code noise tokens.
package cluster
