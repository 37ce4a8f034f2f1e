package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_DefaultPathCreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	server, err := NewServer(context.Background(), "")
	require.NoError(t, err)
	defer server.storage.Close()

	assert.NotNil(t, server)
	assert.NotNil(t, server.storage)
	assert.NotNil(t, server.app)
}

func TestNewServer_CustomPath(t *testing.T) {
	tmpDir := t.TempDir()

	server, err := NewServer(context.Background(), tmpDir)
	require.NoError(t, err)
	defer server.storage.Close()

	assert.NotNil(t, server.mcp)
	assert.NotNil(t, server.storage)
	assert.NotNil(t, server.app)
}

func TestNewServer_RegistersAllTools(t *testing.T) {
	tmpDir := t.TempDir()

	server, err := NewServer(context.Background(), tmpDir)
	require.NoError(t, err)
	defer server.storage.Close()

	assert.NoError(t, server.registerTools())
}
