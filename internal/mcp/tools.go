package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/notekb/internal/frontend"
	"github.com/dshills/notekb/internal/indexer"
	"github.com/dshills/notekb/internal/storage"
)

// MCP error codes.
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound      = -32001 // Requested chunk/file/cluster does not exist
	ErrorCodeBuildBusy     = -32002 // Another build operation is already running
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleIndexCorpus handles the index_corpus tool invocation.
func (s *Server) handleIndexCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["root_path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "root_path parameter is required", map[string]interface{}{
			"param":  "root_path",
			"reason": "missing or empty",
		})
	}

	config := &indexer.Config{
		IncludeHidden: getBoolDefault(args, "include_hidden", false),
	}

	stats, err := s.app.IndexCorpus(ctx, path, config)
	if err != nil {
		if errors.Is(err, storage.ErrBuildBusy) {
			return nil, newMCPError(ErrorCodeBuildBusy, "a build is already in progress", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"files_indexed":    stats.FilesIndexed,
		"files_skipped":    stats.FilesSkipped,
		"files_failed":     stats.FilesFailed,
		"passages_created": stats.PassagesCreated,
		"duration_ms":      stats.Duration.Milliseconds(),
	}
	if len(stats.ErrorMessages) > 0 {
		response["errors"] = stats.ErrorMessages
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchNotes handles the search_notes tool invocation.
func (s *Server) handleSearchNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	ftsK := getIntDefault(args, "fts_k", 200)

	hits, err := s.app.SearchNotes(ctx, query, limit, ftsK)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, len(hits))
	for i, h := range hits {
		items[i] = map[string]interface{}{
			"chunk_id":       h.PassageID,
			"file_path":      h.FilePath,
			"heading":        h.Heading,
			"preview":        h.Preview,
			"score":          h.Score,
			"lexical_score":  h.LexicalScore,
			"semantic_score": h.SemanticScore,
			"match_class":    h.MatchClass,
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"items": items})), nil
}

// handleGetChunk handles the get_chunk tool invocation.
func (s *Server) handleGetChunk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, ok := intParam(args, "chunk_id")
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "chunk_id parameter is required", nil)
	}

	passage, err := s.app.GetChunk(ctx, id)
	if err != nil {
		return nil, newMCPError(ErrorCodeNotFound, "chunk not found", map[string]interface{}{
			"chunk_id": id,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"chunk_id":  passage.ID,
		"file_path": passage.FilePath,
		"heading":   passage.Heading,
		"body":      passage.Body,
		"ordinal":   passage.Ordinal,
	})), nil
}

// handleListFileChunks handles the list_file_chunks tool invocation.
func (s *Server) handleListFileChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	filePath, ok := args["file_path"].(string)
	if !ok || filePath == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "file_path parameter is required", nil)
	}

	passages, err := s.app.ListFileChunks(ctx, filePath)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list file chunks", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, len(passages))
	for i, p := range passages {
		items[i] = map[string]interface{}{
			"chunk_id": p.ID,
			"heading":  p.Heading,
			"ordinal":  p.Ordinal,
			"body":     p.Body,
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"items": items})), nil
}

// handleGetFileTree handles the get_file_tree tool invocation.
func (s *Server) handleGetFileTree(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tree, err := s.app.GetFileTree(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to build file tree", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"tree": treeToMap(tree)})), nil
}

func treeToMap(node *frontend.FileTreeNode) map[string]interface{} {
	children := make([]map[string]interface{}, len(node.Children))
	for i, c := range node.Children {
		children[i] = treeToMap(c)
	}
	return map[string]interface{}{
		"name":        node.Name,
		"path":        node.Path,
		"is_dir":      node.IsDir,
		"children":    children,
		"chunk_count": len(node.PassageIDs),
	}
}

// handleGetRelated handles the get_related tool invocation (passage-level
// relatedness).
func (s *Server) handleGetRelated(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, ok := intParam(args, "chunk_id")
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "chunk_id parameter is required", nil)
	}
	k := getIntDefault(args, "k", 10)
	mode := getStringDefault(args, "mode", "embedding")
	if mode != "embedding" && mode != "cluster" {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"allowed": []string{"embedding", "cluster"},
		})
	}

	hits, err := s.app.GetRelated(ctx, id, k, mode == "cluster")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get related chunks", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, len(hits))
	for i, h := range hits {
		items[i] = map[string]interface{}{
			"chunk_id":  h.PassageID,
			"file_path": h.FilePath,
			"heading":   h.Heading,
			"preview":   h.Preview,
			"score":     h.Score,
			"reason":    h.Reason,
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"items": items})), nil
}

// handleGetRelatedNotes handles the get_related_notes tool invocation
// (file-level relatedness).
func (s *Server) handleGetRelatedNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, ok := intParam(args, "chunk_id")
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "chunk_id parameter is required", nil)
	}
	k := getIntDefault(args, "k", 10)
	mode := getStringDefault(args, "mode", "embedding")
	if mode != "embedding" && mode != "cluster" {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"allowed": []string{"embedding", "cluster"},
		})
	}

	files, err := s.app.GetRelatedFiles(ctx, id, k, mode == "cluster")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get related files", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, len(files))
	for i, f := range files {
		items[i] = map[string]interface{}{
			"file_path":      f.FilePath,
			"score":          f.Score,
			"reason":         f.Reason,
			"matched_chunks": f.MatchedChunks,
			"top_chunk_ids":  f.TopPassageIDs,
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"items": items})), nil
}

// handleListClusters handles the list_clusters tool invocation.
func (s *Server) handleListClusters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	method := getStringDefault(args, "method", "kmeans")
	clusters, err := s.app.ListClusters(ctx, method)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list clusters", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, len(clusters))
	for i, c := range clusters {
		items[i] = map[string]interface{}{
			"cluster_id": c.ID,
			"name":       c.Name,
			"summary":    c.Summary,
			"size":       c.Size,
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"items": items})), nil
}

// handleGetCluster handles the get_cluster tool invocation.
func (s *Server) handleGetCluster(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, ok := intParam(args, "cluster_id")
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "cluster_id parameter is required", nil)
	}

	cluster, err := s.app.GetCluster(ctx, id)
	if err != nil {
		return nil, newMCPError(ErrorCodeNotFound, "cluster not found", map[string]interface{}{
			"cluster_id": id,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"cluster_id": cluster.ID,
		"name":       cluster.Name,
		"summary":    cluster.Summary,
		"size":       cluster.Size,
	})), nil
}

// handleSuggestClusters handles the suggest_clusters tool invocation.
func (s *Server) handleSuggestClusters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", nil)
	}
	limit := getIntDefault(args, "limit", 5)
	ftsK := getIntDefault(args, "fts_k", 200)

	suggestions, err := s.app.SuggestClusters(ctx, query, limit, ftsK)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "cluster suggestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, len(suggestions))
	for i, sug := range suggestions {
		items[i] = map[string]interface{}{
			"cluster_id": sug.ClusterID,
			"name":       sug.Name,
			"score":      sug.Score,
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"items": items})), nil
}

// handleGetStatus handles the get_status tool invocation.
func (s *Server) handleGetStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.app.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"files_count":      status.FilesCount,
		"passages_count":   status.PassagesCount,
		"embeddings_count": status.EmbeddingsCount,
		"clusters_count":   status.ClustersCount,
		"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
		"last_indexed_at":  status.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00"),
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"fts_index_built":      status.Health.FTSIndexBuilt,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error.
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error.
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON.
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value.
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value.
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value.
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// intParam extracts a required int64 parameter, accepting either a JSON
// number or a plain int.
func intParam(args map[string]interface{}, key string) (int64, bool) {
	if val, ok := args[key].(float64); ok {
		return int64(val), true
	}
	if val, ok := args[key].(int); ok {
		return int64(val), true
	}
	if val, ok := args[key].(int64); ok {
		return val, true
	}
	return 0, false
}
