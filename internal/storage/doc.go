// Package storage provides SQLite-based persistence for the indexed note
// corpus: files, their heading-bounded passages, passage embeddings,
// spherical k-means clusters, and the file-to-module classification.
//
// # Database Schema
//
// Tables:
//   - files: tracked Markdown files, keyed by path, with a content hash
//     used to detect unchanged files on reindex
//   - passages: heading-bounded sections, the addressable retrieval unit
//   - passages_fts: FTS5 full-text index over passage content/heading/path
//   - embeddings: one dense vector per passage
//   - clusters / cluster_members: spherical k-means groups
//   - modules / file_modules: coarse topical grouping over files
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(ctx, "~/.notekb/corpus.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.UpsertFile(ctx, &types.File{Path: "notes/lists.md", Hash: hash})
//	err = store.ReplacePassages(ctx, "notes/lists.md", passages)
//
// # Transactions
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.UpsertFile(ctx, file); err != nil {
//	    return err
//	}
//	if err := tx.ReplacePassages(ctx, file.Path, passages); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Incremental Reindexing
//
// A file is unchanged when its stored content hash matches the freshly
// computed one; the ingestor skips re-chunking and re-embedding such files
// entirely. On change, ReplacePassages drops every passage for that file
// (cascading to its embeddings and cluster memberships) and reinserts the
// freshly chunked set, rather than diffing passage by passage.
//
// # Vector Storage
//
// Embeddings and cluster centroids are packed as little-endian 32-bit
// IEEE-754 floats (dims*4 bytes) via serializeVector/deserializeVector.
// Cosine similarity is always computed in Go (CosineSimilarity), under
// either build tag; no SQL-level vector function is called.
//
// # Full-Text Search
//
// SearchText builds an FTS5 MATCH expression from free text (quoted
// segments become phrase queries, everything else becomes prefix terms)
// and ranks with a three-field weighted bm25(), favoring heading and
// file-path matches over body matches.
//
// # Build Tags
//
// CGO build (sqlite_vec tag): github.com/mattn/go-sqlite3,
// CGO_ENABLED=1 go build -tags "sqlite_vec,fts5".
//
// Pure Go build (purego tag, default): modernc.org/sqlite, Go-computed
// cosine similarity, CGO_ENABLED=0 go build -tags "purego".
package storage
