package cluster

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

func seedEmbeddedPassages(t *testing.T, store storage.Store, filePath string, bodies []string, vectors [][]float32) []int64 {
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
		require.NoError(t, store.UpsertEmbedding(ctx, &types.Embedding{
			PassageID: p.ID, Model: "test-model", Dims: len(vectors[i]), Vector: vectors[i],
		}))
	}
	return ids
}

func TestBuild_NoEmbeddingsReturnsEmptyStatistics(t *testing.T) {
	store := newTestStore(t)
	stats, err := Build(context.Background(), store, Config{Model: "test-model"})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ClustersCreated)
}

func TestBuild_RequiresModel(t *testing.T) {
	store := newTestStore(t)
	_, err := Build(context.Background(), store, Config{})
	assert.Error(t, err)
}

func TestBuild_CreatesClustersFromEmbeddings(t *testing.T) {
	store := newTestStore(t)
	seedEmbeddedPassages(t, store, "a.md",
		[]string{"linked list traversal notes", "linked list insertion notes"},
		[][]float32{unitVector(4, 0), unitVector(4, 0)},
	)
	seedEmbeddedPassages(t, store, "b.md",
		[]string{"binary search tree rotation", "binary search tree balance"},
		[][]float32{unitVector(4, 2), unitVector(4, 2)},
	)

	stats, err := Build(context.Background(), store, Config{Model: "test-model", K: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ClustersCreated)
	assert.Equal(t, 4, stats.PassagesSeen)

	clusters, err := store.ListClusters(context.Background(), "kmeans")
	require.NoError(t, err)
	assert.Len(t, clusters, 2)
}

func TestBuild_BuildLockRejectsConcurrentBuild(t *testing.T) {
	store := newTestStore(t)
	sqliteStore := store.(*storage.SQLiteStorage)
	require.True(t, sqliteStore.BuildLock().TryAcquire())
	defer sqliteStore.BuildLock().Release()

	_, err := Build(context.Background(), store, Config{Model: "test-model"})
	assert.ErrorIs(t, err, storage.ErrBuildBusy)
}

func TestTopByCentroidProximity_RanksByCosineAndTruncates(t *testing.T) {
	centroid := unitVector(4, 0)
	ids := []int64{10, 20, 30}
	vectors := [][]float32{
		unitVector(4, 1), // far from centroid
		unitVector(4, 0), // equal to centroid
		{0.9, 0.1, 0, 0}, // closer than id 10, further than id 20
	}

	top := topByCentroidProximity(ids, vectors, centroid, 2)
	require.Len(t, top, 2)
	assert.Equal(t, int64(20), top[0])
	assert.Equal(t, int64(30), top[1])
}

func TestTopByCentroidProximity_TiesBreakByLowerPassageID(t *testing.T) {
	centroid := unitVector(4, 0)
	ids := []int64{30, 10, 20}
	vectors := [][]float32{unitVector(4, 0), unitVector(4, 0), unitVector(4, 0)}

	top := topByCentroidProximity(ids, vectors, centroid, 10)
	require.Len(t, top, 3)
	assert.Equal(t, []int64{10, 20, 30}, top)
}

func TestBuild_ReplacesPriorClusters(t *testing.T) {
	store := newTestStore(t)
	seedEmbeddedPassages(t, store, "a.md",
		[]string{"first note", "second note"},
		[][]float32{unitVector(4, 0), unitVector(4, 1)},
	)

	_, err := Build(context.Background(), store, Config{Model: "test-model", K: 1})
	require.NoError(t, err)

	_, err = Build(context.Background(), store, Config{Model: "test-model", K: 1})
	require.NoError(t, err)

	clusters, err := store.ListClusters(context.Background(), "kmeans")
	require.NoError(t, err)
	assert.Len(t, clusters, 1)
}
