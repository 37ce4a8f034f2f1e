package recommend

import (
	"context"
	"fmt"
	"sort"

	"github.com/dshills/notekb/internal/storage"
	"github.com/dshills/notekb/pkg/types"
)

// DefaultLimit is used when a caller passes a non-positive k.
const DefaultLimit = 10

// PreviewLength is the number of runes kept in a recommendation preview.
const PreviewLength = 200

// Recommender finds passages and files related to a given passage, by
// cluster co-membership or by embedding-space nearest neighbors.
type Recommender struct {
	store storage.Store
}

// New creates a Recommender over store.
func New(store storage.Store) *Recommender {
	return &Recommender{store: store}
}

// RelatedByCluster recommends other passages in passageID's cluster,
// ranked by cosine similarity to passageID's own embedding when both
// passages have one, falling back to ordinal order otherwise. Every hit
// carries reason=same_topic. Returns an empty slice if passageID belongs
// to no cluster.
func (r *Recommender) RelatedByCluster(ctx context.Context, passageID int64, k int) ([]types.RelatedHit, error) {
	if k <= 0 {
		k = DefaultLimit
	}

	clusterID, ok, err := r.store.GetClusterForPassage(ctx, passageID)
	if err != nil {
		return nil, fmt.Errorf("get cluster for passage %d: %w", passageID, err)
	}
	if !ok {
		return nil, nil
	}

	memberIDs, err := r.store.ListClusterMembers(ctx, clusterID)
	if err != nil {
		return nil, fmt.Errorf("list cluster members: %w", err)
	}

	queryEmbedding, queryErr := r.store.GetEmbedding(ctx, passageID)
	hasQueryVec := queryErr == nil

	type candidate struct {
		passage *types.Passage
		score   float64
		hasVec  bool
	}
	candidates := make([]candidate, 0, len(memberIDs))
	for i, id := range memberIDs {
		if err := checkCancelled(ctx, i); err != nil {
			return nil, err
		}
		if id == passageID {
			continue
		}
		p, err := r.store.GetPassage(ctx, id)
		if err != nil {
			continue
		}

		score := 0.0
		hasVec := false
		if hasQueryVec {
			if e, err := r.store.GetEmbedding(ctx, id); err == nil {
				score = storage.CosineSimilarity(e.Vector, queryEmbedding.Vector)
				hasVec = true
			}
		}
		candidates = append(candidates, candidate{passage: p, score: score, hasVec: hasVec})
	}

	if hasQueryVec {
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].hasVec != candidates[j].hasVec {
				return candidates[i].hasVec // vector-scored candidates sort first
			}
			if candidates[i].hasVec {
				return candidates[i].score > candidates[j].score
			}
			return candidates[i].passage.ID < candidates[j].passage.ID
		})
	} else {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].passage.Ordinal < candidates[j].passage.Ordinal
		})
	}

	if k < len(candidates) {
		candidates = candidates[:k]
	}

	hits := make([]types.RelatedHit, len(candidates))
	for i, c := range candidates {
		hits[i] = types.RelatedHit{
			PassageID: c.passage.ID,
			FilePath:  c.passage.FilePath,
			Heading:   c.passage.Heading,
			Preview:   c.passage.Preview(PreviewLength),
			Score:     c.score,
			Reason:    types.ReasonSameTopic,
		}
	}
	return hits, nil
}

// RelatedByEmbedding recommends the k nearest passages to passageID in
// embedding space by brute-force cosine similarity, excluding itself.
// Negative cosines are dropped unless fewer than k positive matches
// exist. Every hit carries reason=semantic_similarity.
func (r *Recommender) RelatedByEmbedding(ctx context.Context, passageID int64, k int) ([]types.RelatedHit, error) {
	if k <= 0 {
		k = DefaultLimit
	}

	query, err := r.store.GetEmbedding(ctx, passageID)
	if err != nil {
		return nil, nil
	}

	all, err := r.store.ListEmbeddings(ctx, query.Model)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}

	type scored struct {
		passageID int64
		score     float64
	}
	var positives, negatives []scored
	for i, e := range all {
		if err := checkCancelled(ctx, i); err != nil {
			return nil, err
		}
		if e.PassageID == passageID {
			continue
		}
		sim := storage.CosineSimilarity(e.Vector, query.Vector)
		if sim > 0 {
			positives = append(positives, scored{passageID: e.PassageID, score: sim})
		} else {
			negatives = append(negatives, scored{passageID: e.PassageID, score: sim})
		}
	}

	byScoreThenID := func(s []scored) func(i, j int) bool {
		return func(i, j int) bool {
			if s[i].score != s[j].score {
				return s[i].score > s[j].score
			}
			return s[i].passageID < s[j].passageID
		}
	}
	sort.SliceStable(positives, byScoreThenID(positives))
	sort.SliceStable(negatives, byScoreThenID(negatives))

	selected := positives
	if len(selected) < k {
		need := k - len(selected)
		if need > len(negatives) {
			need = len(negatives)
		}
		selected = append(selected, negatives[:need]...)
	}
	if len(selected) > k {
		selected = selected[:k]
	}

	hits := make([]types.RelatedHit, 0, len(selected))
	for _, s := range selected {
		p, err := r.store.GetPassage(ctx, s.passageID)
		if err != nil {
			continue
		}
		hits = append(hits, types.RelatedHit{
			PassageID: p.ID,
			FilePath:  p.FilePath,
			Heading:   p.Heading,
			Preview:   p.Preview(PreviewLength),
			Score:     clamp01(s.score),
			Reason:    types.ReasonSemanticSimilarity,
		})
	}
	return hits, nil
}

// cancelCheckInterval is the batch-boundary candidate count at which a long
// scan checks ctx for cancellation, per §5.
const cancelCheckInterval = 1024

// checkCancelled returns types.ErrCancelled if ctx is done and i lands on a
// batch boundary.
func checkCancelled(ctx context.Context, i int) error {
	if i > 0 && i%cancelCheckInterval == 0 && ctx.Err() != nil {
		return types.ErrCancelled
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RelatedFiles aggregates passage-level hits to the file level: it
// oversamples to max(50, 5k) passage results from the given mode, groups
// by file path, scores a file by its best passage, and breaks ties by
// matched-passage count then lowest passage id. A file's reason is the
// reason of its best-scoring passage.
func (r *Recommender) RelatedFiles(ctx context.Context, passageID int64, k int, byCluster bool) ([]types.RelatedFile, error) {
	if k <= 0 {
		k = DefaultLimit
	}
	oversample := 5 * k
	if oversample < 50 {
		oversample = 50
	}

	var hits []types.RelatedHit
	var err error
	if byCluster {
		hits, err = r.RelatedByCluster(ctx, passageID, oversample)
	} else {
		hits, err = r.RelatedByEmbedding(ctx, passageID, oversample)
	}
	if err != nil {
		return nil, err
	}

	type fileAccum struct {
		bestScore  float64
		bestReason types.RelatedReason
		matched    int
		minID      int64
		topIDs     []int64
	}
	byFile := map[string]*fileAccum{}
	var fileOrder []string

	for _, h := range hits {
		acc, exists := byFile[h.FilePath]
		if !exists {
			acc = &fileAccum{bestScore: h.Score, bestReason: h.Reason, minID: h.PassageID}
			byFile[h.FilePath] = acc
			fileOrder = append(fileOrder, h.FilePath)
		}
		acc.matched++
		if h.Score > acc.bestScore {
			acc.bestScore = h.Score
			acc.bestReason = h.Reason
		}
		if h.PassageID < acc.minID {
			acc.minID = h.PassageID
		}
		if len(acc.topIDs) < 5 {
			acc.topIDs = append(acc.topIDs, h.PassageID)
		}
	}

	sort.Slice(fileOrder, func(i, j int) bool {
		a, b := byFile[fileOrder[i]], byFile[fileOrder[j]]
		if a.bestScore != b.bestScore {
			return a.bestScore > b.bestScore
		}
		if a.matched != b.matched {
			return a.matched > b.matched
		}
		return a.minID < b.minID
	})

	if k < len(fileOrder) {
		fileOrder = fileOrder[:k]
	}

	out := make([]types.RelatedFile, len(fileOrder))
	for i, path := range fileOrder {
		acc := byFile[path]
		out[i] = types.RelatedFile{
			FilePath:      path,
			Score:         acc.bestScore,
			Reason:        acc.bestReason,
			MatchedChunks: acc.matched,
			TopPassageIDs: acc.topIDs,
		}
	}
	return out, nil
}
