package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/notekb/internal/embedder"
	"github.com/dshills/notekb/internal/storage"
	"github.com/dshills/notekb/pkg/types"
)

// Numeric compatibility constants, part of the wire-visible contract:
// clients display match_class computed from these thresholds, so they are
// never recalibrated per storage backend.
const (
	// LexicalStrongThreshold is the raw (unnormalized) lexical score above
	// which a candidate counts as a strong lexical match.
	LexicalStrongThreshold = -8.0
	// SemanticStrongThreshold is the normalized semantic score above which
	// a candidate counts as a strong semantic match.
	SemanticStrongThreshold = 0.25
	// FusionWidth (W) is the score range used to normalize raw lexical
	// scores to [0, 1] relative to the best candidate in the set.
	FusionWidth = 10.0
	// DefaultFTSK is the default number of lexical candidates pulled
	// before fusion and truncation to the caller's requested limit.
	DefaultFTSK = 200
	// PreviewLength is the number of runes kept in a result preview.
	PreviewLength = 200
)

// errEmbedderUnavailable signals internally that the embedder could not
// produce a query vector; HybridSearch treats this as the spec's only
// silent-recovery case (lexical-only fallback), never surfacing it to the
// caller.
var errEmbedderUnavailable = fmt.Errorf("searcher: embedder unavailable")

// Searcher coordinates lexical search, semantic reranking, their fusion
// into hybrid results, and cluster-suggest topic routing.
type Searcher struct {
	store    storage.Store
	embedder embedder.Embedder

	cacheMu sync.RWMutex
	cache   *lru.Cache[[32]byte, *cacheEntry]
}

type cacheEntry struct {
	hybrid  []types.HybridHit
	suggest []types.ClusterSuggestion
}

// New creates a Searcher. embedder may be nil; HybridSearch then always
// falls back to lexical-only results.
func New(store storage.Store, emb embedder.Embedder) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](1000)
	if err != nil {
		panic(fmt.Sprintf("searcher: failed to create cache: %v", err))
	}
	return &Searcher{store: store, embedder: emb, cache: cache}
}

// LexicalSearch runs the FTS5 query and loads the passage detail needed
// for the candidate record. Per §4.4, an empty query or empty index
// yields an empty list, never an error.
func (s *Searcher) LexicalSearch(ctx context.Context, query string, ftsK int) ([]types.LexicalHit, error) {
	if ftsK <= 0 {
		ftsK = DefaultFTSK
	}
	matches, err := s.store.SearchText(ctx, query, ftsK, storage.DefaultFieldWeights)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	hits := make([]types.LexicalHit, 0, len(matches))
	for i, m := range matches {
		if err := checkCancelled(ctx, i); err != nil {
			return nil, err
		}
		p, err := s.store.GetPassage(ctx, m.PassageID)
		if err != nil {
			continue // passage vanished between the FTS match and the lookup
		}
		hits = append(hits, types.LexicalHit{
			PassageID:    p.ID,
			FilePath:     p.FilePath,
			Heading:      p.Heading,
			Preview:      p.Preview(PreviewLength),
			LexicalScore: m.Score,
		})
	}
	return hits, nil
}

// cancelCheckInterval is the batch-boundary candidate count at which a long
// scan checks ctx for cancellation, per §5.
const cancelCheckInterval = 1024

// checkCancelled returns types.ErrCancelled if ctx is done and i lands on a
// batch boundary; it is cheap enough to call unconditionally in hot loops
// since the modulo check dominates until the boundary is actually hit.
func checkCancelled(ctx context.Context, i int) error {
	if i > 0 && i%cancelCheckInterval == 0 && ctx.Err() != nil {
		return types.ErrCancelled
	}
	return nil
}

// SemanticRerank is a pure function: given candidates with their vectors
// and a query vector, it returns cosine scores sorted descending. Vectors
// are unit-norm, so cosine is the plain dot product.
func SemanticRerank(candidates map[int64][]float32, query []float32) []types.SemanticHit {
	hits := make([]types.SemanticHit, 0, len(candidates))
	for id, vec := range candidates {
		hits = append(hits, types.SemanticHit{
			PassageID: id,
			Score:     storage.CosineSimilarity(vec, query),
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits
}

// queryEmbedding generates a query vector, returning errEmbedderUnavailable
// (never a wrapped storage/transport error) when no embedder is configured
// or the embedder call fails, so callers can treat it uniformly as the
// "fall back to lexical-only" case.
func (s *Searcher) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	if s.embedder == nil {
		return nil, errEmbedderUnavailable
	}
	result, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, errEmbedderUnavailable
	}
	return result.Vector, nil
}

// HybridSearch runs the full lexical+semantic fusion pipeline of §4.6: the
// lexical query and query embedding run concurrently with the semantic
// rerank launched as soon as the query vector and lexical candidate set
// are both available. An embedder failure falls back to lexical-only
// (every result classified keyword, semantic_score 0); a lexical failure
// is fatal.
func (s *Searcher) HybridSearch(ctx context.Context, query string, limit, ftsK int) ([]types.HybridHit, error) {
	if limit <= 0 {
		limit = 10
	}

	cacheKey := hashRequest("hybrid", query, limit, ftsK)
	if hit, ok := s.cacheGet(cacheKey); ok && hit.hybrid != nil {
		return hit.hybrid, nil
	}

	lexicalHits, queryVec, embErr, err := s.dispatchLexicalAndEmbed(ctx, query, ftsK)
	if err != nil {
		return nil, err
	}
	if len(lexicalHits) == 0 {
		return nil, nil
	}

	var semanticByPassage map[int64]float64
	if embErr == nil {
		candidates := make(map[int64][]float32, len(lexicalHits))
		for _, h := range lexicalHits {
			e, err := s.store.GetEmbedding(ctx, h.PassageID)
			if err == nil {
				candidates[h.PassageID] = e.Vector
			}
		}
		semanticByPassage = make(map[int64]float64, len(candidates))
		for _, sh := range SemanticRerank(candidates, queryVec) {
			semanticByPassage[sh.PassageID] = sh.Score
		}
	}

	results := fuseHybrid(lexicalHits, semanticByPassage)
	if limit < len(results) {
		results = results[:limit]
	}

	s.cacheSet(cacheKey, &cacheEntry{hybrid: results})
	return results, nil
}

// dispatchLexicalAndEmbed runs the lexical search and the query-embedding
// call concurrently, since neither depends on the other's result. A
// lexical failure aborts and is returned as the final error; an embedder
// failure is captured and returned as embErr for the caller to treat as a
// fallback signal rather than a fatal one.
func (s *Searcher) dispatchLexicalAndEmbed(ctx context.Context, query string, ftsK int) (lexicalHits []types.LexicalHit, queryVec []float32, embErr, err error) {
	type lexicalResult struct {
		hits []types.LexicalHit
		err  error
	}
	type embedResult struct {
		vec []float32
		err error
	}

	lexicalCh := make(chan lexicalResult, 1)
	embedCh := make(chan embedResult, 1)

	go func() {
		hits, err := s.LexicalSearch(ctx, query, ftsK)
		lexicalCh <- lexicalResult{hits: hits, err: err}
	}()
	go func() {
		vec, err := s.queryEmbedding(ctx, query)
		embedCh <- embedResult{vec: vec, err: err}
	}()

	lr := <-lexicalCh
	er := <-embedCh

	if lr.err != nil {
		return nil, nil, nil, lr.err
	}
	return lr.hits, er.vec, er.err, nil
}

// fuseHybrid applies the exact fusion formula from §4.6 step 3-4: lexical
// scores normalize to [0,1] relative to the best (least negative) score in
// the candidate set; semantic scores floor at 0; the fused score weighs
// each half equally, with ties broken by higher semantic then lower
// passage id.
func fuseHybrid(lexicalHits []types.LexicalHit, semanticByPassage map[int64]float64) []types.HybridHit {
	best := lexicalHits[0].LexicalScore
	for _, h := range lexicalHits {
		if h.LexicalScore > best {
			best = h.LexicalScore
		}
	}

	results := make([]types.HybridHit, 0, len(lexicalHits))
	for _, h := range lexicalHits {
		semanticScore := 0.0
		if semanticByPassage != nil {
			if sc, ok := semanticByPassage[h.PassageID]; ok && sc > 0 {
				semanticScore = sc
			}
		}

		lexNorm := clamp01(1 - (best-h.LexicalScore)/FusionWidth)
		score := 0.5*lexNorm + 0.5*semanticScore

		results = append(results, types.HybridHit{
			PassageID:     h.PassageID,
			FilePath:      h.FilePath,
			Heading:       h.Heading,
			Preview:       h.Preview,
			Score:         score,
			LexicalScore:  h.LexicalScore,
			SemanticScore: semanticScore,
			MatchClass:    classify(h.LexicalScore, semanticScore),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].SemanticScore != results[j].SemanticScore {
			return results[i].SemanticScore > results[j].SemanticScore
		}
		return results[i].PassageID < results[j].PassageID
	})

	return results
}

// classify implements §4.6 step 4's raw-threshold classification.
func classify(lexicalScore, semanticScore float64) types.MatchClass {
	strongLex := lexicalScore > LexicalStrongThreshold
	strongSem := semanticScore > SemanticStrongThreshold
	switch {
	case strongLex && strongSem:
		return types.MatchHybrid
	case strongSem:
		return types.MatchSemantic
	default:
		return types.MatchKeyword
	}
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

// SuggestClusters implements §4.7's topic-routing algorithm: lexical
// candidates are semantically reranked, grouped by cluster membership, and
// scored by the rank-weighted mean of their member scores, normalized
// across the clusters actually reported.
func (s *Searcher) SuggestClusters(ctx context.Context, query string, limit, ftsK int) ([]types.ClusterSuggestion, error) {
	if limit <= 0 {
		limit = 10
	}

	cacheKey := hashRequest("suggest", query, limit, ftsK)
	if hit, ok := s.cacheGet(cacheKey); ok && hit.suggest != nil {
		return hit.suggest, nil
	}

	hybridHits, err := s.HybridSearch(ctx, query, ftsK, ftsK)
	if err != nil {
		return nil, err
	}
	if len(hybridHits) == 0 {
		return nil, nil
	}

	type clusterAccum struct {
		clusterID int64
		sum       float64
		count     int
	}
	clusters := map[int64]*clusterAccum{}

	for rank, hit := range hybridHits {
		if err := checkCancelled(ctx, rank); err != nil {
			return nil, err
		}
		clusterID, ok, err := s.store.GetClusterForPassage(ctx, hit.PassageID)
		if err != nil {
			return nil, fmt.Errorf("get cluster for passage %d: %w", hit.PassageID, err)
		}
		if !ok {
			continue
		}
		weight := 1.0 / float64(rank+1)
		acc, exists := clusters[clusterID]
		if !exists {
			acc = &clusterAccum{clusterID: clusterID}
			clusters[clusterID] = acc
		}
		acc.sum += hit.Score * weight
		acc.count++
	}

	type scored struct {
		clusterID int64
		mean      float64
		count     int
	}
	var scores []scored
	for id, acc := range clusters {
		mean := acc.sum / float64(acc.count)
		scores = append(scores, scored{clusterID: id, mean: mean, count: acc.count})
	}
	sort.Slice(scores, func(i, j int) bool {
		// Clusters with fewer than two matched members rank after the rest.
		if (scores[i].count >= 2) != (scores[j].count >= 2) {
			return scores[i].count >= 2
		}
		if scores[i].mean != scores[j].mean {
			return scores[i].mean > scores[j].mean
		}
		return scores[i].clusterID < scores[j].clusterID
	})
	if limit < len(scores) {
		scores = scores[:limit]
	}

	maxMean := 0.0
	for _, sc := range scores {
		if sc.mean > maxMean {
			maxMean = sc.mean
		}
	}

	suggestions := make([]types.ClusterSuggestion, 0, len(scores))
	for _, sc := range scores {
		cluster, err := s.store.GetCluster(ctx, sc.clusterID)
		if err != nil {
			continue
		}
		normalized := 0.0
		if maxMean > 0 {
			normalized = sc.mean / maxMean
		}
		suggestions = append(suggestions, types.ClusterSuggestion{
			ClusterID: cluster.ID,
			Name:      cluster.Name,
			Score:     normalized,
		})
	}

	s.cacheSet(cacheKey, &cacheEntry{suggest: suggestions})
	return suggestions, nil
}

func (s *Searcher) cacheGet(key [32]byte) (*cacheEntry, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	entry, ok := s.cache.Get(key)
	return entry, ok
}

func (s *Searcher) cacheSet(key [32]byte, entry *cacheEntry) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache.Add(key, entry)
}

// InvalidateCache purges every cached hybrid-search and cluster-suggest
// result, called after a build changes the corpus.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache.Purge()
}

func hashRequest(kind, query string, limit, ftsK int) [32]byte {
	var data strings.Builder
	data.WriteString(kind)
	data.WriteString("|")
	data.WriteString(query)
	data.WriteString("|")
	fmt.Fprintf(&data, "%d|%d", limit, ftsK)
	return sha256.Sum256([]byte(data.String()))
}
