package frontend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func seedFile(t *testing.T, store storage.Store, filePath string, bodies []string) []int64 {
	t.Helper()
	ctx := context.Background()
	passages := make([]*types.Passage, len(bodies))
	for i, body := range bodies {
		passages[i] = &types.Passage{FilePath: filePath, Ordinal: i, Body: body, BodyLen: len(body)}
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

func TestGetFileTree_GroupsByDirectory(t *testing.T) {
	store := newTestStore(t)
	idsA := seedFile(t, store, "go/concurrency.md", []string{"one", "two"})
	idsB := seedFile(t, store, "go/testing.md", []string{"three"})
	idsC := seedFile(t, store, "rust/ownership.md", []string{"four"})

	svc := New(store, nil)
	tree, err := svc.GetFileTree(context.Background())
	require.NoError(t, err)

	require.Len(t, tree.Children, 2)
	assert.Equal(t, "go", tree.Children[0].Name)
	assert.True(t, tree.Children[0].IsDir)
	assert.Equal(t, "rust", tree.Children[1].Name)

	goDir := tree.Children[0]
	require.Len(t, goDir.Children, 2)
	assert.Equal(t, "concurrency.md", goDir.Children[0].Name)
	assert.False(t, goDir.Children[0].IsDir)
	assert.ElementsMatch(t, idsA, goDir.Children[0].PassageIDs)
	assert.ElementsMatch(t, idsB, goDir.Children[1].PassageIDs)

	allGoIDs := append(append([]int64{}, idsA...), idsB...)
	assert.ElementsMatch(t, allGoIDs, goDir.PassageIDs)

	rustDir := tree.Children[1]
	assert.ElementsMatch(t, idsC, rustDir.PassageIDs)
}

func TestGetFileTree_CachesUntilInvalidated(t *testing.T) {
	store := newTestStore(t)
	seedFile(t, store, "a.md", []string{"one"})

	svc := New(store, nil)
	first, err := svc.GetFileTree(context.Background())
	require.NoError(t, err)

	seedFile(t, store, "b.md", []string{"two"})

	cached, err := svc.GetFileTree(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, cached)
	assert.Len(t, cached.Children, 1)

	svc.invalidateDerivedState()

	refreshed, err := svc.GetFileTree(context.Background())
	require.NoError(t, err)
	assert.Len(t, refreshed.Children, 2)
}

func TestGetChunkAndListFileChunks(t *testing.T) {
	store := newTestStore(t)
	ids := seedFile(t, store, "a.md", []string{"one", "two"})

	svc := New(store, nil)
	chunk, err := svc.GetChunk(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, "one", chunk.Body)

	chunks, err := svc.ListFileChunks(context.Background(), "a.md")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, ids[1], chunks[1].ID)
}

func TestEmbedBuild_RequiresEmbedder(t *testing.T) {
	store := newTestStore(t)
	svc := New(store, nil)

	_, err := svc.EmbedBuild(context.Background(), "m", 8)
	require.Error(t, err)
}
