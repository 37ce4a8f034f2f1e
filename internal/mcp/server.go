package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/notekb/internal/embedder"
	"github.com/dshills/notekb/internal/frontend"
	"github.com/dshills/notekb/internal/storage"
)

const (
	// ServerName is the MCP server name advertised during initialize.
	ServerName = "notekb-mcp"
	// ServerVersion is the current server version.
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the database.
	DefaultDBPath = "~/.notekb/index"
)

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp     *server.MCPServer
	storage storage.Store
	app     *frontend.Service
}

// NewServer creates a new MCP server instance backed by a SQLite file
// named notekb.db inside the directory dbPath (DefaultDBPath, under the
// home directory, if empty), creating the directory if needed, and the
// embedder selected by the process environment.
func NewServer(ctx context.Context, dbPath string) (*Server, error) {
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".notekb", "index")
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dbFile := filepath.Join(dbPath, "notekb.db")

	store, err := storage.NewSQLiteStorage(ctx, dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:     mcpServer,
		storage: store,
		app:     frontend.New(store, emb),
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers every MCP tool exposed by the server.
func (s *Server) registerTools() error {
	s.mcp.AddTool(indexCorpusTool(), s.handleIndexCorpus)
	s.mcp.AddTool(searchNotesTool(), s.handleSearchNotes)
	s.mcp.AddTool(getChunkTool(), s.handleGetChunk)
	s.mcp.AddTool(listFileChunksTool(), s.handleListFileChunks)
	s.mcp.AddTool(getFileTreeTool(), s.handleGetFileTree)
	s.mcp.AddTool(getRelatedTool(), s.handleGetRelated)
	s.mcp.AddTool(getRelatedNotesTool(), s.handleGetRelatedNotes)
	s.mcp.AddTool(listClustersTool(), s.handleListClusters)
	s.mcp.AddTool(getClusterTool(), s.handleGetCluster)
	s.mcp.AddTool(suggestClustersTool(), s.handleSuggestClusters)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	return nil
}
