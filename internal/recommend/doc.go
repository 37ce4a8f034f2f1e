// Package recommend finds passages and files related to a given
// passage, either by shared cluster membership or by nearest-neighbor
// cosine similarity in embedding space.
//
// # Cluster mode
//
//	hits, err := rec.RelatedByCluster(ctx, passageID, 10)
//
// Other members of passageID's cluster are ranked by cosine similarity
// to passageID's own embedding when both have one; if neither does, they
// fall back to ordinal order. Every hit carries reason=same_topic. A
// passage with no cluster yields an empty slice, not an error.
//
// # Embedding mode
//
//	hits, err := rec.RelatedByEmbedding(ctx, passageID, 10)
//
// A brute-force cosine nearest-neighbor search over every embedding
// under the same model, excluding passageID itself. Negative cosines are
// dropped unless fewer than k positive matches exist, in which case the
// best negatives backfill the result. Every hit carries
// reason=semantic_similarity and a score clamped to [0,1].
//
// # File-level aggregation
//
//	files, err := rec.RelatedFiles(ctx, passageID, 10, true)
//
// Oversamples passage-level hits (max(50, 5k)), groups by file path,
// scores a file by its best-scoring passage, and breaks ties by matched-
// passage count then lowest passage id. A file's reason is its
// best-scoring passage's reason.
package recommend
