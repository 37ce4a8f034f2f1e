package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/notekb/internal/chunker"
	"github.com/dshills/notekb/internal/embedder"
	"github.com/dshills/notekb/internal/parser"
	"github.com/dshills/notekb/internal/storage"
	"github.com/dshills/notekb/pkg/types"
)

// Ingestor coordinates the corpus ingestion pipeline: walk -> decode ->
// hash-check -> parse -> chunk -> per-file transaction upsert.
type Ingestor struct {
	parser  *parser.Parser
	chunker *chunker.Chunker
	store   storage.Store

	workers int
}

// Config controls one IngestCorpus run.
type Config struct {
	Workers       int  // concurrent file workers (default: runtime.NumCPU())
	IncludeHidden bool // whether to descend into dot-directories (default: false)
}

// Statistics summarizes one IngestCorpus run.
type Statistics struct {
	FilesIndexed    int
	FilesSkipped    int
	FilesFailed     int
	PassagesCreated int
	Duration        time.Duration
	ErrorMessages   []string
}

// New creates an Ingestor over store.
func New(store storage.Store) *Ingestor {
	return &Ingestor{
		parser:  parser.New(),
		chunker: chunker.New(),
		store:   store,
		workers: runtime.NumCPU(),
	}
}

// IngestCorpus walks rootPath for Markdown files and indexes every new or
// changed one. Only one build (ingest, embed, or cluster) may run against a
// store at a time; a concurrent call returns storage.ErrBuildBusy.
func (ing *Ingestor) IngestCorpus(ctx context.Context, rootPath string, config *Config) (*Statistics, error) {
	if config == nil {
		config = &Config{Workers: runtime.NumCPU()}
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	ing.workers = config.Workers

	lockable, ok := ing.store.(interface{ BuildLock() *storage.BuildLock })
	if ok {
		lock := lockable.BuildLock()
		if !lock.TryAcquire() {
			return nil, storage.ErrBuildBusy
		}
		defer lock.Release()
	}

	startTime := time.Now()
	stats := &Statistics{ErrorMessages: make([]string, 0)}

	files, err := ing.discoverFiles(rootPath, config)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}

	if err := ing.indexFiles(ctx, rootPath, files, stats); err != nil {
		return nil, fmt.Errorf("index files: %w", err)
	}

	stats.Duration = time.Since(startTime)
	return stats, nil
}

// discoverFiles finds all Markdown files under rootPath.
func (ing *Ingestor) discoverFiles(rootPath string, config *Config) ([]string, error) {
	var files []string

	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if !config.IncludeHidden && strings.HasPrefix(info.Name(), ".") && path != rootPath {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(path), ".md") {
			return nil
		}
		files = append(files, path)
		return nil
	})

	return files, err
}

// indexFiles indexes files concurrently, bounded by ing.workers. Each file
// commits in its own transaction (spec §4.1 step 5); one file's failure
// does not abort the others.
func (ing *Ingestor) indexFiles(ctx context.Context, rootPath string, files []string, stats *Statistics) error {
	semaphore := make(chan struct{}, ing.workers)

	var (
		indexed  int32
		skipped  int32
		failed   int32
		passages int32
	)

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex // protects stats.ErrorMessages

	for _, filePath := range files {
		filePath := filePath
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			if err := ing.indexFile(gctx, rootPath, filePath, &indexed, &skipped, &passages); err != nil {
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", filePath, err))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	stats.FilesIndexed = int(indexed)
	stats.FilesSkipped = int(skipped)
	stats.FilesFailed = int(failed)
	stats.PassagesCreated = int(passages)
	return nil
}

// indexFile ingests one Markdown file: hash, skip-if-unchanged, parse,
// chunk, upsert inside a single transaction.
func (ing *Ingestor) indexFile(ctx context.Context, rootPath, filePath string, indexed, skipped, passages *int32) error {
	relPath, err := filepath.Rel(rootPath, filePath)
	if err != nil {
		return err
	}

	content, hash, modTime, size, err := readAndHash(filePath)
	if err != nil {
		return err
	}

	unchanged, err := ing.fileUnchanged(ctx, relPath, hash)
	if err != nil {
		return err
	}
	if unchanged {
		atomic.AddInt32(skipped, 1)
		return nil
	}

	parseResult := ing.parser.ParseText(relPath, content)
	chunks := ing.chunker.ChunkFile(relPath, content, parseResult)

	tx, err := ing.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	file := &types.File{Path: relPath, MTime: modTime, Size: size, Hash: hash}
	if err := tx.UpsertFile(ctx, file); err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}
	if err := tx.ReplacePassages(ctx, relPath, chunks); err != nil {
		return fmt.Errorf("replace passages: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	atomic.AddInt32(indexed, 1)
	atomic.AddInt32(passages, int32(len(chunks)))
	return nil
}

// fileUnchanged reports whether relPath's stored content hash already
// matches hash.
func (ing *Ingestor) fileUnchanged(ctx context.Context, relPath, hash string) (bool, error) {
	existing, err := ing.store.GetFile(ctx, relPath)
	if err == storage.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return existing.Hash == hash, nil
}

// readAndHash reads filePath's content once and returns it alongside its
// hex-encoded SHA-256 hash, mtime, and size.
func readAndHash(filePath string) (content, hash string, modTime time.Time, size int64, err error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", "", time.Time{}, 0, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", "", time.Time{}, 0, err
	}

	raw, err := io.ReadAll(f)
	if err != nil {
		return "", "", time.Time{}, 0, err
	}

	sum := sha256.Sum256(raw)
	return string(raw), hex.EncodeToString(sum[:]), info.ModTime(), info.Size(), nil
}

// EmbedStatistics summarizes one EmbedBuild run.
type EmbedStatistics struct {
	PassagesEmbedded int
	Duration         time.Duration
}

// EmbedBuild generates embeddings for every passage that lacks one under
// model, in batches, sharing the same BuildLock as IngestCorpus and
// cluster.Build so at most one build runs at a time.
func EmbedBuild(ctx context.Context, store storage.Store, emb embedder.Embedder, model string, batchSize int) (*EmbedStatistics, error) {
	if batchSize <= 0 {
		batchSize = 20
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
	stats := &EmbedStatistics{}

	files, err := store.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	var pending []int64
	bodies := map[int64]string{}
	for _, f := range files {
		passages, err := store.ListPassagesByFile(ctx, f.Path)
		if err != nil {
			return nil, fmt.Errorf("list passages for %s: %w", f.Path, err)
		}
		for _, p := range passages {
			if e, err := store.GetEmbedding(ctx, p.ID); err == storage.ErrNotFound || (err == nil && model != "" && e.Model != model) {
				pending = append(pending, p.ID)
				bodies[p.ID] = p.Body
			} else if err != nil {
				return nil, fmt.Errorf("get embedding for passage %d: %w", p.ID, err)
			}
		}
	}

	for i := 0; i < len(pending); i += batchSize {
		end := i + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batchIDs := pending[i:end]

		texts := make([]string, len(batchIDs))
		for j, id := range batchIDs {
			texts[j] = bodies[id]
		}

		resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts, Model: model})
		if err != nil {
			return nil, fmt.Errorf("generate batch: %w", err)
		}
		if len(resp.Embeddings) != len(batchIDs) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(resp.Embeddings), len(batchIDs))
		}

		for j, id := range batchIDs {
			e := resp.Embeddings[j]
			vec := embedder.NormalizeVector(e.Vector)
			record := &types.Embedding{PassageID: id, Model: resp.Model, Dims: len(vec), Vector: vec}
			if err := store.UpsertEmbedding(ctx, record); err != nil {
				return nil, fmt.Errorf("upsert embedding for passage %d: %w", id, err)
			}
			stats.PassagesEmbedded++
		}

		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
	}

	stats.Duration = time.Since(start)
	return stats, nil
}
