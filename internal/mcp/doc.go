// Package mcp implements the Model Context Protocol (MCP) server for notekb.
//
// The MCP server exposes the corpus's query frontend to AI assistants as
// eleven tools:
//   - index_corpus: index a directory of Markdown notes
//   - search_notes: hybrid lexical+semantic search
//   - get_chunk: fetch a single passage by id
//   - list_file_chunks: list a file's passages in order
//   - get_file_tree: fetch the corpus's directory/file tree
//   - get_related / get_related_notes: passage- and file-level relatedness
//   - list_clusters / get_cluster / suggest_clusters: topic clusters
//   - get_status: indexing status and statistics
//
// # Protocol overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Basic usage
//
// The server is started by running the binary with no arguments; it
// serves MCP over stdio:
//
//	notekb
//
// It then listens on stdin for MCP protocol messages and writes responses to
// stdout; all logging goes to stderr.
//
// # Tool: search_notes
//
//	Request:
//	{
//	  "name": "search_notes",
//	  "arguments": { "query": "goroutine leak detection", "limit": 10 }
//	}
//
//	Response:
//	{
//	  "items": [
//	    {
//	      "chunk_id": 42,
//	      "file_path": "go/concurrency.md",
//	      "heading": "Detecting goroutine leaks",
//	      "preview": "...",
//	      "score": 0.81,
//	      "lexical_score": -3.2,
//	      "semantic_score": 0.74,
//	      "match_class": "hybrid"
//	    }
//	  ]
//	}
//
// # Tool: get_status
//
//	Request:  {"name": "get_status", "arguments": {}}
//	Response: {"files_count": 247, "passages_count": 1830, "health": {...}}
//
// # Error handling
//
// Errors are returned as standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "Invalid params",
//	    "data": {"param": "query", "reason": "missing or empty"}
//	  }
//	}
//
// Error codes:
//   - -32602: invalid params (missing/invalid arguments)
//   - -32603: internal error (database, filesystem, etc.)
//   - -32001: requested chunk/file/cluster not found
//   - -32002: a build (index/embed/cluster) is already in progress
//   - -32004: query parameter is empty
//
// # Implementation
//
// Built on github.com/mark3labs/mcp-go; handlers delegate to
// internal/frontend rather than touching storage/indexer/searcher directly.
package mcp
