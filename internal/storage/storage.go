package storage

import (
	"context"
	"time"

	"github.com/dshills/notekb/pkg/types"
)

// Store defines the interface for persisting and querying the indexed
// note corpus. All mutation methods are safe to call inside a Tx returned
// by BeginTx; calling them directly on a Store commits immediately.
//
// Unlike the AST-derived Symbol type this package used to carry, File,
// Passage, Embedding, Cluster, Module and FileModule have no shape that
// diverges between the domain model and a database row, so the store
// operates on pkg/types directly instead of mirroring them into
// storage-local structs.
type Store interface {
	// File operations
	UpsertFile(ctx context.Context, file *types.File) error
	GetFile(ctx context.Context, filePath string) (*types.File, error)
	DeleteFile(ctx context.Context, filePath string) error
	ListFiles(ctx context.Context) ([]*types.File, error)

	// Passage operations. ReplacePassages drops every passage currently
	// recorded for filePath and inserts the given set in one step,
	// assigning ids; callers pass the already dense 0-based ordinals
	// produced by the chunker.
	ReplacePassages(ctx context.Context, filePath string, passages []*types.Passage) error
	GetPassage(ctx context.Context, passageID int64) (*types.Passage, error)
	ListPassagesByFile(ctx context.Context, filePath string) ([]*types.Passage, error)
	CountPassages(ctx context.Context) (int, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *types.Embedding) error
	GetEmbedding(ctx context.Context, passageID int64) (*types.Embedding, error)
	ListEmbeddings(ctx context.Context, model string) ([]*types.Embedding, error)
	DeleteEmbeddingsByFile(ctx context.Context, filePath string) error

	// Search operations
	SearchText(ctx context.Context, query string, limit int, weights FieldWeights) ([]TextResult, error)

	// Cluster operations. ReplaceClusters drops every cluster previously
	// recorded under method and writes the given set (with membership)
	// atomically, the same all-or-nothing replace shape as
	// ReplacePassages. members[i] lists the passage ids belonging to
	// clusters[i].
	ReplaceClusters(ctx context.Context, method string, clusters []*types.Cluster, members [][]int64) error
	GetCluster(ctx context.Context, clusterID int64) (*types.Cluster, error)
	ListClusters(ctx context.Context, method string) ([]*types.Cluster, error)
	ListClusterMembers(ctx context.Context, clusterID int64) ([]int64, error)
	GetClusterForPassage(ctx context.Context, passageID int64) (clusterID int64, ok bool, err error)

	// Module operations
	UpsertModule(ctx context.Context, module *types.Module) error
	ListModules(ctx context.Context) ([]*types.Module, error)
	SetFileModule(ctx context.Context, fm *types.FileModule) error
	GetFileModule(ctx context.Context, filePath string) (*types.FileModule, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction. Commit or Rollback must be called
// exactly once; a Tx obtained from BeginTx does not support nesting.
type Tx interface {
	Commit() error
	Rollback() error
	Store
}

// FieldWeights controls the relative contribution of each FTS5 field to a
// lexical match's bm25 score. Larger weight means that field matters more;
// weights are passed straight through to bm25()'s per-column arguments.
type FieldWeights struct {
	Content  float64
	Heading  float64
	FilePath float64
}

// DefaultFieldWeights favors heading and file path matches over body
// matches, per the lexical searcher's field weighting rule.
var DefaultFieldWeights = FieldWeights{Content: 1.0, Heading: 3.0, FilePath: 2.0}

// TextResult is a single FTS5 match with its raw bm25 score (negative;
// closer to zero is a better match).
type TextResult struct {
	PassageID int64
	Score     float64
}

// Status summarizes corpus size and index health.
type Status struct {
	FilesCount      int
	PassagesCount   int
	EmbeddingsCount int
	ClustersCount   int
	IndexSizeMB     float64
	LastIndexedAt   time.Time
	Health          HealthStatus
}

// HealthStatus reports the health of the index's moving parts.
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	FTSIndexBuilt       bool
}
