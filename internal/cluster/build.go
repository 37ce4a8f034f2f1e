package cluster

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"github.com/dshills/notekb/internal/storage"
	"github.com/dshills/notekb/pkg/types"
)

// Strategy selects how a cluster's Name/Summary are derived.
type Strategy int

const (
	// StrategyFrequency labels clusters from frequent non-stopword
	// heading/body tokens plus file-stem voting.
	StrategyFrequency Strategy = iota
	// StrategyTFIDF labels clusters from term-frequency/inverse-document-
	// frequency scores, more informative once a cluster has enough
	// distinct member documents.
	StrategyTFIDF
)

// Config controls one Build run.
type Config struct {
	Model    string   // embedding model whose vectors are clustered
	K        int      // 0 selects HeuristicK from the sample size
	Strategy Strategy // labeling strategy, default StrategyFrequency
}

// Statistics summarizes one Build run.
type Statistics struct {
	ClustersCreated int
	PassagesSeen    int
	Duration        time.Duration
}

// Build runs spherical k-means over every embedding under Config.Model,
// labels the resulting clusters, and atomically replaces the store's
// "kmeans" clusters. It shares the store's BuildLock with the ingestor and
// embed build, so at most one build runs at a time.
func Build(ctx context.Context, store storage.Store, cfg Config) (*Statistics, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("cluster build: model is required")
	}

	lockable, ok := store.(interface{ BuildLock() *storage.BuildLock })
	if ok {
		lock := lockable.BuildLock()
		if !lock.TryAcquire() {
			return nil, storage.ErrBuildBusy
		}
		defer lock.Release()
	}

	start := time.Now()

	embeddings, err := store.ListEmbeddings(ctx, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	if len(embeddings) == 0 {
		return &Statistics{Duration: time.Since(start)}, nil
	}

	sort.Slice(embeddings, func(i, j int) bool { return embeddings[i].PassageID < embeddings[j].PassageID })

	ids := make([]int64, len(embeddings))
	vectors := make([][]float32, len(embeddings))
	for i, e := range embeddings {
		ids[i] = e.PassageID
		vectors[i] = e.Vector
	}

	k := cfg.K
	if k <= 0 {
		k = HeuristicK(len(ids))
	}

	seed := corpusSeed(ids)
	result := KMeans(vectors, k, seed)

	membersByCluster := make([][]int64, result.K)
	vectorsByCluster := make([][][]float32, result.K)
	for i, label := range result.Labels {
		membersByCluster[label] = append(membersByCluster[label], ids[i])
		vectorsByCluster[label] = append(vectorsByCluster[label], vectors[i])
	}

	clusters := make([]*types.Cluster, 0, result.K)
	clusterMembers := make([][]int64, 0, result.K)

	for idx, passageIDs := range membersByCluster {
		labelIDs := topByCentroidProximity(passageIDs, vectorsByCluster[idx], result.Centroids[idx], labelTopN)
		members, err := loadMembers(ctx, store, labelIDs)
		if err != nil {
			return nil, fmt.Errorf("load cluster %d members: %w", idx, err)
		}

		var label Label
		switch cfg.Strategy {
		case StrategyTFIDF:
			label = LabelTFIDF(idx, members)
		default:
			label = LabelFrequency(idx, members)
		}

		summary := label.Summary
		clusters = append(clusters, &types.Cluster{
			Method:   "kmeans",
			K:        result.K,
			Name:     label.Name,
			Summary:  &summary,
			Size:     len(passageIDs),
			Centroid: result.Centroids[idx],
		})
		clusterMembers = append(clusterMembers, passageIDs)
	}

	if err := store.ReplaceClusters(ctx, "kmeans", clusters, clusterMembers); err != nil {
		return nil, fmt.Errorf("replace clusters: %w", err)
	}

	return &Statistics{
		ClustersCreated: len(clusters),
		PassagesSeen:    len(ids),
		Duration:        time.Since(start),
	}, nil
}

// labelTopN bounds how many of a cluster's passages are loaded for
// labeling: the labeler reads the passages nearest the centroid, not the
// whole membership, so a cluster of thousands doesn't pay the token-
// extraction cost for every member.
const labelTopN = 50

// topByCentroidProximity ranks passageIDs by cosine similarity of their
// vector to centroid, descending (ties broken by lower passage id), and
// returns at most topN of them. This is step (a) of the labeling
// algorithm: identify the representative passages before step (b) runs
// token extraction over them.
func topByCentroidProximity(passageIDs []int64, vectors [][]float32, centroid []float32, topN int) []int64 {
	type scored struct {
		id    int64
		score float64
	}
	ranked := make([]scored, len(passageIDs))
	for i, id := range passageIDs {
		ranked[i] = scored{id: id, score: storage.CosineSimilarity(vectors[i], centroid)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	out := make([]int64, len(ranked))
	for i, r := range ranked {
		out[i] = r.id
	}
	return out
}

func loadMembers(ctx context.Context, store storage.Store, passageIDs []int64) ([]Member, error) {
	members := make([]Member, 0, len(passageIDs))
	for _, id := range passageIDs {
		p, err := store.GetPassage(ctx, id)
		if err != nil {
			continue // passage deleted since the embedding was listed
		}
		members = append(members, Member{PassageID: p.ID, FilePath: p.FilePath, Heading: p.Heading, Body: p.Body})
	}
	return members, nil
}

// corpusSeed derives a deterministic RNG seed from the sorted passage id
// set, so rebuilding clusters over an unchanged corpus reproduces the
// same k-means run.
func corpusSeed(ids []int64) uint64 {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, id := range ids {
		binary.LittleEndian.PutUint64(buf, uint64(id))
		h.Write(buf)
	}
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}
