package frontend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dshills/notekb/internal/cluster"
	"github.com/dshills/notekb/internal/embedder"
	"github.com/dshills/notekb/internal/indexer"
	"github.com/dshills/notekb/internal/recommend"
	"github.com/dshills/notekb/internal/searcher"
	"github.com/dshills/notekb/internal/storage"
	"github.com/dshills/notekb/pkg/types"
)

// Service is the application-service layer sitting between a transport
// (MCP, HTTP, CLI) and the storage/indexer/searcher/cluster/recommend
// packages: it translates request parameters into calls against those
// packages and shapes their results for a client.
type Service struct {
	store       storage.Store
	ingestor    *indexer.Ingestor
	searcher    *searcher.Searcher
	recommender *recommend.Recommender
	embedder    embedder.Embedder

	treeGroup singleflight.Group
	treeMu    sync.RWMutex
	treeCache *FileTreeNode
}

// New creates a Service over the given store and embedder. emb may be
// nil; searches then run lexical-only.
func New(store storage.Store, emb embedder.Embedder) *Service {
	return &Service{
		store:       store,
		ingestor:    indexer.New(store),
		searcher:    searcher.New(store, emb),
		recommender: recommend.New(store),
		embedder:    emb,
	}
}

// IndexCorpus walks rootPath and indexes new or changed Markdown files,
// invalidating cached search results and the file-tree view afterward.
func (s *Service) IndexCorpus(ctx context.Context, rootPath string, config *indexer.Config) (*indexer.Statistics, error) {
	stats, err := s.ingestor.IngestCorpus(ctx, rootPath, config)
	if err != nil {
		return nil, err
	}
	s.invalidateDerivedState()
	return stats, nil
}

// EmbedBuild generates embeddings for passages lacking one under model.
func (s *Service) EmbedBuild(ctx context.Context, model string, batchSize int) (*indexer.EmbedStatistics, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("frontend: no embedder configured")
	}
	stats, err := indexer.EmbedBuild(ctx, s.store, s.embedder, model, batchSize)
	if err != nil {
		return nil, err
	}
	s.invalidateDerivedState()
	return stats, nil
}

// BuildClusters groups embedded passages into topics.
func (s *Service) BuildClusters(ctx context.Context, cfg cluster.Config) (*cluster.Statistics, error) {
	stats, err := cluster.Build(ctx, s.store, cfg)
	if err != nil {
		return nil, err
	}
	s.invalidateDerivedState()
	return stats, nil
}

func (s *Service) invalidateDerivedState() {
	s.searcher.InvalidateCache()
	s.treeMu.Lock()
	s.treeCache = nil
	s.treeMu.Unlock()
}

// SearchNotes runs the hybrid lexical+semantic search.
func (s *Service) SearchNotes(ctx context.Context, query string, limit, ftsK int) ([]types.HybridHit, error) {
	return s.searcher.HybridSearch(ctx, query, limit, ftsK)
}

// SuggestClusters returns the topics a query touches.
func (s *Service) SuggestClusters(ctx context.Context, query string, limit, ftsK int) ([]types.ClusterSuggestion, error) {
	return s.searcher.SuggestClusters(ctx, query, limit, ftsK)
}

// GetChunk fetches a single passage by id.
func (s *Service) GetChunk(ctx context.Context, passageID int64) (*types.Passage, error) {
	return s.store.GetPassage(ctx, passageID)
}

// ListFileChunks lists every passage belonging to filePath, in ordinal
// order.
func (s *Service) ListFileChunks(ctx context.Context, filePath string) ([]*types.Passage, error) {
	return s.store.ListPassagesByFile(ctx, filePath)
}

// GetRelated recommends passages related to passageID, by cluster
// co-membership (byCluster) or embedding-space nearest neighbor.
func (s *Service) GetRelated(ctx context.Context, passageID int64, k int, byCluster bool) ([]types.RelatedHit, error) {
	if byCluster {
		return s.recommender.RelatedByCluster(ctx, passageID, k)
	}
	return s.recommender.RelatedByEmbedding(ctx, passageID, k)
}

// GetRelatedFiles recommends files related to passageID, aggregated from
// passage-level hits.
func (s *Service) GetRelatedFiles(ctx context.Context, passageID int64, k int, byCluster bool) ([]types.RelatedFile, error) {
	return s.recommender.RelatedFiles(ctx, passageID, k, byCluster)
}

// ListClusters lists every cluster built under method (e.g. "kmeans").
func (s *Service) ListClusters(ctx context.Context, method string) ([]*types.Cluster, error) {
	return s.store.ListClusters(ctx, method)
}

// GetCluster fetches a single cluster by id.
func (s *Service) GetCluster(ctx context.Context, clusterID int64) (*types.Cluster, error) {
	return s.store.GetCluster(ctx, clusterID)
}

// GetStatus reports corpus size and index health.
func (s *Service) GetStatus(ctx context.Context) (*storage.Status, error) {
	return s.store.GetStatus(ctx)
}

// FileTreeNode is one directory or file entry in the corpus's file-tree
// view. Directory nodes aggregate the passage ids of every descendant
// file.
type FileTreeNode struct {
	Name       string
	Path       string
	IsDir      bool
	Children   []*FileTreeNode
	PassageIDs []int64
}

// GetFileTree builds the directory trie over every indexed file's path,
// memoized behind a single-flight guard so concurrent callers share one
// computation; IndexCorpus/EmbedBuild/BuildClusters invalidate the cache.
func (s *Service) GetFileTree(ctx context.Context) (*FileTreeNode, error) {
	s.treeMu.RLock()
	cached := s.treeCache
	s.treeMu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	result, err, _ := s.treeGroup.Do("file-tree", func() (interface{}, error) {
		tree, err := s.buildFileTree(ctx)
		if err != nil {
			return nil, err
		}
		s.treeMu.Lock()
		s.treeCache = tree
		s.treeMu.Unlock()
		return tree, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*FileTreeNode), nil
}

func (s *Service) buildFileTree(ctx context.Context) (*FileTreeNode, error) {
	files, err := s.store.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	root := &FileTreeNode{Name: "", Path: "", IsDir: true}
	for _, f := range files {
		passages, err := s.store.ListPassagesByFile(ctx, f.Path)
		if err != nil {
			return nil, fmt.Errorf("list passages for %s: %w", f.Path, err)
		}
		ids := make([]int64, len(passages))
		for i, p := range passages {
			ids[i] = p.ID
		}
		insertFileNode(root, f.Path, ids)
	}
	sortTree(root)
	return root, nil
}

func insertFileNode(root *FileTreeNode, filePath string, passageIDs []int64) {
	parts := strings.Split(filePath, "/")
	current := root
	current.PassageIDs = append(current.PassageIDs, passageIDs...)

	for i, part := range parts {
		isLeaf := i == len(parts)-1
		childPath := part
		if current.Path != "" {
			childPath = current.Path + "/" + part
		}

		var child *FileTreeNode
		for _, c := range current.Children {
			if c.Name == part {
				child = c
				break
			}
		}
		if child == nil {
			child = &FileTreeNode{Name: part, Path: childPath, IsDir: !isLeaf}
			current.Children = append(current.Children, child)
		}
		child.PassageIDs = append(child.PassageIDs, passageIDs...)
		current = child
	}
}

func sortTree(node *FileTreeNode) {
	sort.Slice(node.Children, func(i, j int) bool {
		a, b := node.Children[i], node.Children[j]
		if a.IsDir != b.IsDir {
			return a.IsDir // directories before files
		}
		return a.Name < b.Name
	})
	for _, c := range node.Children {
		sortTree(c)
	}
}
