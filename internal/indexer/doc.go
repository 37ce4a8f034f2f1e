// Package indexer coordinates the corpus ingestion pipeline: walk the
// corpus root for Markdown files, skip ones whose content hash is
// unchanged, parse and chunk the rest, and upsert the result one file per
// transaction.
//
// # Basic Usage
//
//	ing := indexer.New(store)
//
//	stats, err := ing.IngestCorpus(ctx, "/path/to/notes", &indexer.Config{
//	    Workers: 8,
//	})
//	fmt.Printf("Indexed %d files in %v\n", stats.FilesIndexed, stats.Duration)
//
// # Incremental Ingestion
//
// Only files whose content hash differs from the stored one are
// re-chunked:
//
//	// First run: processes every file
//	stats1, _ := ing.IngestCorpus(ctx, root, nil)
//	// Files: 247 indexed, 0 skipped
//
//	// Subsequent run: only changed files
//	stats2, _ := ing.IngestCorpus(ctx, root, nil)
//	// Files: 3 indexed, 244 skipped
//
// A changed file's ReplacePassages call drops its old passages (and their
// embeddings and cluster memberships, via FK cascade) before inserting the
// freshly chunked set.
//
// # Concurrency
//
// Files are processed by a bounded worker pool (default runtime.NumCPU());
// one failing file is recorded in Statistics.ErrorMessages and does not
// abort the others.
//
// # Build Exclusivity
//
// IngestCorpus and EmbedBuild both take the store's BuildLock for their
// duration, the same lock cluster.Build in internal/cluster uses: at most
// one build runs against a store at a time, and a concurrent attempt
// returns storage.ErrBuildBusy rather than blocking.
//
// # Embedding
//
// EmbedBuild is a separate pass over passages lacking an embedding under
// the requested model, run after ingestion:
//
//	stats, err := indexer.EmbedBuild(ctx, store, emb, "jina-embeddings-v2", 20)
package indexer
