package searcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/notekb/internal/embedder"
	"github.com/dshills/notekb/internal/storage"
	"github.com/dshills/notekb/pkg/types"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewSQLiteStorage(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func heading(s string) *string { return &s }

func seedPassages(t *testing.T, store storage.Store, filePath string, bodies []string) []int64 {
	t.Helper()
	ctx := context.Background()
	passages := make([]*types.Passage, len(bodies))
	for i, body := range bodies {
		passages[i] = &types.Passage{FilePath: filePath, Heading: heading(filePath), Ordinal: i, Body: body, BodyLen: len(body)}
	}
	require.NoError(t, store.UpsertFile(ctx, &types.File{Path: filePath, Hash: filePath}))
	require.NoError(t, store.ReplacePassages(ctx, filePath, passages))

	stored, err := store.ListPassagesByFile(ctx, filePath)
	require.NoError(t, err)
	ids := make([]int64, len(stored))
	for i, p := range stored {
		ids[i] = p.ID
	}
	return ids
}

// fakeEmbedder returns the vector registered for the exact input text, or
// {1, 0, 0, 0} for any other text, so results are deterministic.
type fakeEmbedder struct {
	vectors map[string][]float32
	fail    bool
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	if f.fail {
		return nil, assert.AnError
	}
	vec, ok := f.vectors[req.Text]
	if !ok {
		vec = []float32{1, 0, 0, 0}
	}
	return &embedder.Embedding{Vector: vec, Dimension: len(vec), Provider: "fake", Model: "fake-v1"}, nil
}

func (f *fakeEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	out := make([]*embedder.Embedding, len(req.Texts))
	for i, t := range req.Texts {
		e, err := f.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: t})
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return &embedder.BatchEmbeddingResponse{Embeddings: out, Provider: "fake", Model: "fake-v1"}, nil
}

func (f *fakeEmbedder) Dimension() int   { return 4 }
func (f *fakeEmbedder) Provider() string { return "fake" }
func (f *fakeEmbedder) Model() string    { return "fake-v1" }
func (f *fakeEmbedder) Close() error     { return nil }

func TestLexicalSearch_EmptyIndexReturnsEmpty(t *testing.T) {
	store := newTestStore(t)
	s := New(store, nil)

	hits, err := s.LexicalSearch(context.Background(), "linked list", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLexicalSearch_EmptyQueryReturnsEmpty(t *testing.T) {
	store := newTestStore(t)
	seedPassages(t, store, "a.md", []string{"linked list traversal"})
	s := New(store, nil)

	hits, err := s.LexicalSearch(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLexicalSearch_FindsMatchingPassage(t *testing.T) {
	store := newTestStore(t)
	seedPassages(t, store, "a.md", []string{"a linked list is a linear data structure"})
	s := New(store, nil)

	hits, err := s.LexicalSearch(context.Background(), "linked list", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a.md", hits[0].FilePath)
	assert.NotEmpty(t, hits[0].Preview)
}

func TestSemanticRerank_MissingEmbeddingExcluded(t *testing.T) {
	query := []float32{1, 0, 0, 0}
	candidates := map[int64][]float32{
		1: {1, 0, 0, 0},
	}

	hits := SemanticRerank(candidates, query)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].PassageID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestSemanticRerank_SortsDescending(t *testing.T) {
	query := []float32{1, 0, 0, 0}
	candidates := map[int64][]float32{
		1: {0, 1, 0, 0},
		2: {1, 0, 0, 0},
	}

	hits := SemanticRerank(candidates, query)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(2), hits[0].PassageID)
	assert.Equal(t, int64(1), hits[1].PassageID)
}

func TestHybridSearch_FusesLexicalAndSemantic(t *testing.T) {
	store := newTestStore(t)
	ids := seedPassages(t, store, "a.md", []string{"a linked list is a linear data structure"})
	require.NoError(t, store.UpsertEmbedding(context.Background(), &types.Embedding{
		PassageID: ids[0], Model: "fake-v1", Dims: 4, Vector: []float32{1, 0, 0, 0},
	}))

	emb := &fakeEmbedder{vectors: map[string][]float32{"linked list": {1, 0, 0, 0}}}
	s := New(store, emb)

	hits, err := s.HybridSearch(context.Background(), "linked list", 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, types.MatchHybrid, hits[0].MatchClass)
	assert.Greater(t, hits[0].SemanticScore, 0.0)
}

func TestHybridSearch_EmbedderDownFallsBackToLexicalOnly(t *testing.T) {
	store := newTestStore(t)
	ids := seedPassages(t, store, "a.md", []string{"a linked list is a linear data structure"})
	require.NoError(t, store.UpsertEmbedding(context.Background(), &types.Embedding{
		PassageID: ids[0], Model: "fake-v1", Dims: 4, Vector: []float32{1, 0, 0, 0},
	}))

	emb := &fakeEmbedder{fail: true}
	s := New(store, emb)

	hits, err := s.HybridSearch(context.Background(), "linked list", 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, types.MatchKeyword, hits[0].MatchClass)
	assert.Equal(t, 0.0, hits[0].SemanticScore)
}

func TestHybridSearch_NoEmbedderConfigured(t *testing.T) {
	store := newTestStore(t)
	seedPassages(t, store, "a.md", []string{"a linked list is a linear data structure"})
	s := New(store, nil)

	hits, err := s.HybridSearch(context.Background(), "linked list", 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, types.MatchKeyword, hits[0].MatchClass)
}

func TestHybridSearch_NoMatchesReturnsEmpty(t *testing.T) {
	store := newTestStore(t)
	s := New(store, nil)

	hits, err := s.HybridSearch(context.Background(), "nonexistent", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestHybridSearch_RespectsLimit(t *testing.T) {
	store := newTestStore(t)
	seedPassages(t, store, "a.md", []string{
		"linked list one", "linked list two", "linked list three",
	})
	s := New(store, nil)

	hits, err := s.HybridSearch(context.Background(), "linked list", 2, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, types.MatchHybrid, classify(-1.0, 0.5))
	assert.Equal(t, types.MatchSemantic, classify(-9.0, 0.5))
	assert.Equal(t, types.MatchKeyword, classify(-1.0, 0.1))
	assert.Equal(t, types.MatchKeyword, classify(-9.0, 0.1))
}

func TestFuseHybrid_TieBreakOnSemanticThenPassageID(t *testing.T) {
	lexicalHits := []types.LexicalHit{
		{PassageID: 2, LexicalScore: -5.0},
		{PassageID: 1, LexicalScore: -5.0},
	}
	semantic := map[int64]float64{1: 0.1, 2: 0.1}

	results := fuseHybrid(lexicalHits, semantic)
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].PassageID)
}

func TestSuggestClusters_GroupsByClusterMembership(t *testing.T) {
	store := newTestStore(t)
	ids := seedPassages(t, store, "a.md", []string{"linked list traversal", "binary search tree"})

	cluster := &types.Cluster{Method: "kmeans", K: 1, Name: "data structures", Size: len(ids), Centroid: []float32{1, 0, 0, 0}}
	require.NoError(t, store.ReplaceClusters(context.Background(), "kmeans", []*types.Cluster{cluster}, [][]int64{ids}))

	s := New(store, nil)
	suggestions, err := s.SuggestClusters(context.Background(), "linked list", 5, 0)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "data structures", suggestions[0].Name)
}

func TestSuggestClusters_NoMatchesReturnsEmpty(t *testing.T) {
	store := newTestStore(t)
	s := New(store, nil)

	suggestions, err := s.SuggestClusters(context.Background(), "nonexistent", 5, 0)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestInvalidateCache_ClearsResults(t *testing.T) {
	store := newTestStore(t)
	seedPassages(t, store, "a.md", []string{"linked list traversal"})
	s := New(store, nil)

	_, err := s.HybridSearch(context.Background(), "linked list", 10, 0)
	require.NoError(t, err)

	s.InvalidateCache()
	assert.Zero(t, s.cache.Len())
}
