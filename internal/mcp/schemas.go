package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexCorpusTool returns the tool definition for index_corpus.
func indexCorpusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_corpus",
		Description: "Index a directory of Markdown notes to make them searchable",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"root_path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the notes corpus root",
				},
				"include_hidden": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, descend into dot-directories",
					"default":     false,
				},
			},
			Required: []string{"root_path"},
		},
	}
}

// searchNotesTool returns the tool definition for search_notes.
func searchNotesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_notes",
		Description: "Search indexed notes with a hybrid lexical+semantic query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"fts_k": map[string]interface{}{
					"type":        "integer",
					"description": "Lexical candidate pool size feeding the fusion step",
					"default":     200,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getChunkTool returns the tool definition for get_chunk.
func getChunkTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_chunk",
		Description: "Fetch a single indexed passage by id, including its full body",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"chunk_id": map[string]interface{}{
					"type":        "integer",
					"description": "Passage id",
				},
			},
			Required: []string{"chunk_id"},
		},
	}
}

// listFileChunksTool returns the tool definition for list_file_chunks.
func listFileChunksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_file_chunks",
		Description: "List every passage belonging to a file, in document order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Indexed file path",
				},
			},
			Required: []string{"file_path"},
		},
	}
}

// getFileTreeTool returns the tool definition for get_file_tree.
func getFileTreeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_file_tree",
		Description: "Fetch the directory/file tree of the indexed corpus",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getRelatedTool returns the tool definition for get_related.
func getRelatedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_related",
		Description: "Find passages related to a given passage",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"chunk_id": map[string]interface{}{
					"type":        "integer",
					"description": "Passage id to find relations for",
				},
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of related passages to return",
					"default":     10,
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Relatedness strategy: embedding (cosine kNN) or cluster (topic co-membership)",
					"enum":        []string{"embedding", "cluster"},
					"default":     "embedding",
				},
			},
			Required: []string{"chunk_id"},
		},
	}
}

// getRelatedNotesTool returns the tool definition for get_related_notes.
func getRelatedNotesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_related_notes",
		Description: "Find files related to a given passage, aggregated from passage-level relatedness",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"chunk_id": map[string]interface{}{
					"type":        "integer",
					"description": "Passage id to find relations for",
				},
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of related files to return",
					"default":     10,
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Relatedness strategy: embedding (cosine kNN) or cluster (topic co-membership)",
					"enum":        []string{"embedding", "cluster"},
					"default":     "embedding",
				},
			},
			Required: []string{"chunk_id"},
		},
	}
}

// listClustersTool returns the tool definition for list_clusters.
func listClustersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_clusters",
		Description: "List every topic cluster built for the corpus",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"method": map[string]interface{}{
					"type":        "string",
					"description": "Clustering method to list",
					"default":     "kmeans",
				},
			},
		},
	}
}

// getClusterTool returns the tool definition for get_cluster.
func getClusterTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_cluster",
		Description: "Fetch a single topic cluster's metadata by id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"cluster_id": map[string]interface{}{
					"type":        "integer",
					"description": "Cluster id",
				},
			},
			Required: []string{"cluster_id"},
		},
	}
}

// suggestClustersTool returns the tool definition for suggest_clusters.
func suggestClustersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "suggest_clusters",
		Description: "Route a query to the topic clusters it best matches",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Query to route",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of clusters to report",
					"default":     5,
				},
				"fts_k": map[string]interface{}{
					"type":        "integer",
					"description": "Lexical candidate pool size feeding the fusion step",
					"default":     200,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status.
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query indexing status and statistics for the corpus",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
