// Package types provides shared type definitions for the notekb retrieval
// and relatedness engine.
//
// This package defines domain types used across multiple components:
// File, Passage, Heading, Embedding, Cluster, Module, and the result
// record shapes returned by search, cluster-suggest, and recommend.
//
// # Core Types
//
// Passage is the addressable retrieval unit, a slice of one file bounded
// by Markdown headings:
//
//	p := &types.Passage{
//	    FilePath: "notes/linked-lists.md",
//	    Heading:  &heading,
//	    Ordinal:  0,
//	    Body:     body,
//	}
//
// Embedding is the per-passage dense vector written by the offline embed
// build:
//
//	e := &types.Embedding{
//	    PassageID: p.ID,
//	    Model:     "local-v1",
//	    Dims:      384,
//	    Vector:    vec,
//	}
//
// # Validation
//
// Domain types implement validation methods to enforce the invariants in
// §3 and §8 of the spec: dense ordinals, unit-norm embeddings, non-empty
// cluster names.
//
//	if err := p.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Search Results
//
// HybridHit carries the raw lexical score and the semantic score
// (cosine floored at zero) through to the wire boundary, since the
// classification thresholds in §6 are defined on these values, not on the
// normalized lexical score:
//
//	hit := &types.HybridHit{
//	    PassageID:     p.ID,
//	    Score:         0.82,
//	    LexicalScore:  -3.1,
//	    SemanticScore: 0.61,
//	    MatchClass:    types.MatchHybrid,
//	}
package types
