package main

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/notekb/internal/embedder"
	"github.com/dshills/notekb/internal/storage"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 4, exitCode(storage.ErrBuildBusy))
	assert.Equal(t, 4, exitCode(storage.ErrNotFound))
	assert.Equal(t, 4, exitCode(storage.ErrCorrupt))
	assert.Equal(t, 3, exitCode(os.ErrNotExist))
	assert.Equal(t, 2, exitCode(embedder.ErrEmptyText))
	assert.Equal(t, 4, exitCode(embedder.ErrOverloaded))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestRun_RequiresRootAndDB(t *testing.T) {
	assert.Equal(t, 2, run("", "/tmp/db", "", 20, 0, false, false))
	assert.Equal(t, 2, run("/tmp/root", "", "", 20, 0, false, false))
}

func TestRun_IndexesAndSkipsEmbed(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(root+"/note.md", []byte("# Title\n\nbody"), 0644); err != nil {
		t.Fatal(err)
	}
	dbPath := t.TempDir() + "/index.db"

	code := run(root, dbPath, "", 20, 0, true, true)
	assert.Equal(t, 0, code)
}

func TestRun_RequiresModelForEmbedPhase(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(root+"/note.md", []byte("# Title\n\nbody"), 0644); err != nil {
		t.Fatal(err)
	}
	dbPath := t.TempDir() + "/index.db"

	code := run(root, dbPath, "", 20, 0, false, false)
	assert.Equal(t, 2, code)
}
