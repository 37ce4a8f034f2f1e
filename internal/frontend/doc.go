// Package frontend is the application-service layer between a transport
// (the MCP server, a CLI) and the corpus's storage/indexer/embedder/
// cluster/recommend/searcher packages.
//
// # Building the corpus
//
// IndexCorpus, EmbedBuild, and BuildClusters wrap the three build phases
// and invalidate derived state (the search cache and the file-tree view)
// once a build completes.
//
// # Reading the corpus
//
// SearchNotes, SuggestClusters, GetChunk, ListFileChunks, GetRelated,
// GetRelatedFiles, ListClusters, and GetCluster expose read operations
// directly against the underlying packages.
//
// # File tree
//
// GetFileTree builds a directory trie over every indexed file's path,
// aggregating descendant passage ids at each directory node. The trie is
// cached and recomputed lazily behind a singleflight guard, so concurrent
// callers during a cold cache share one computation instead of each
// re-walking the file list.
package frontend
