// Package searcher fuses lexical and semantic retrieval into the hybrid
// search and cluster-suggest operations that back the MCP-facing search
// tools.
//
// # Lexical search
//
// LexicalSearch wraps the store's FTS5-backed SearchText and fills in the
// file path, heading, and preview needed by the caller:
//
//	hits, err := s.LexicalSearch(ctx, "linked list traversal", 200)
//
// An empty query or an empty index both yield an empty slice, not an
// error.
//
// # Semantic rerank
//
// SemanticRerank is a pure function over a caller-supplied candidate set
// and a query vector; it never touches storage itself, so callers control
// exactly which passages are reranked:
//
//	hits := searcher.SemanticRerank(candidateVectors, queryVector)
//
// Embedding vectors are unit-norm, so cosine similarity reduces to a dot
// product. A passage absent from the candidate map is simply absent from
// the result, never scored zero.
//
// # Hybrid fusion
//
// HybridSearch runs the lexical query and the query embedding
// concurrently, reranks only the lexical candidates that have an
// embedding, and fuses the two scores:
//
//	hits, err := s.HybridSearch(ctx, "linked list traversal", 10, 200)
//
// The fused score weighs a normalized lexical score and a normalized
// semantic score equally. Lexical scores normalize relative to the best
// score in the candidate set, over a fixed width (FusionWidth); semantic
// scores floor at zero. Each hit is classified hybrid, keyword, or
// semantic against the package's exported thresholds
// (LexicalStrongThreshold, SemanticStrongThreshold) so a client can
// explain why a result matched.
//
// If the embedder is unavailable, HybridSearch falls back to a
// lexical-only ranking: every hit classifies as keyword and carries a
// zero semantic score. A failure in the lexical search itself is fatal —
// there is no result to fuse.
//
// # Cluster suggest
//
// SuggestClusters answers "what topics does this query touch" rather
// than "what passages match it": it runs the same lexical+semantic
// pipeline, groups hits by cluster membership, and ranks clusters by the
// rank-weighted mean of their member scores, normalized against the best
// cluster in the reported set. Clusters with fewer than two matched
// members are kept but ranked after all the others.
//
// # Caching
//
// Both HybridSearch and SuggestClusters cache their results in an LRU
// keyed by a hash of the request parameters; a build should call
// InvalidateCache once it changes the corpus.
package searcher
