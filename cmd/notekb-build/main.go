// Command notekb-build runs the corpus build pipeline (index, embed,
// cluster) against a notekb store without starting the MCP server.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/dshills/notekb/internal/cluster"
	"github.com/dshills/notekb/internal/config"
	"github.com/dshills/notekb/internal/embedder"
	"github.com/dshills/notekb/internal/frontend"
	"github.com/dshills/notekb/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Getenv("NOTEKB_CONFIG_FILE"))
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	var (
		rootPath  = flag.String("root", cfg.CorpusRoot, "corpus root directory to index")
		dbPath    = flag.String("db", cfg.DBPath, "path to the SQLite index file")
		model     = flag.String("model", "", "embedding model name (required for the embed/cluster phases)")
		batchSize = flag.Int("batch-size", cfg.EmbedBatchSize, "passages embedded per batch")
		k         = flag.Int("k", 0, "cluster count (0 selects a heuristic from corpus size)")
		skipEmbed = flag.Bool("skip-embed", false, "skip the embed phase")
		skipClust = flag.Bool("skip-cluster", false, "skip the cluster phase")
	)
	flag.Parse()

	runID := uuid.New()
	log.SetOutput(os.Stderr)
	log.Printf("build run %s starting", runID)

	os.Exit(run(*rootPath, *dbPath, *model, *batchSize, *k, *skipEmbed, *skipClust))
}

func run(rootPath, dbPath, model string, batchSize, k int, skipEmbed, skipCluster bool) int {
	if rootPath == "" || dbPath == "" {
		log.Println("both -root and -db (or NOTEKB_CORPUS_ROOT / NOTEKB_DB_PATH) are required")
		return 2
	}

	ctx := context.Background()
	start := time.Now()

	store, err := storage.NewSQLiteStorage(ctx, dbPath)
	if err != nil {
		log.Printf("open store: %v", err)
		return exitCode(err)
	}
	defer store.Close()

	emb, err := embedder.NewFromEnv()
	if err != nil {
		log.Printf("initialize embedder: %v", err)
		return exitCode(err)
	}
	defer emb.Close()

	app := frontend.New(store, emb)

	indexStats, err := app.IndexCorpus(ctx, rootPath, nil)
	if err != nil {
		log.Printf("index corpus: %v", err)
		return exitCode(err)
	}
	log.Printf("indexed %s files (%s skipped, %s failed) in %s",
		humanize.Comma(int64(indexStats.FilesIndexed)),
		humanize.Comma(int64(indexStats.FilesSkipped)),
		humanize.Comma(int64(indexStats.FilesFailed)),
		indexStats.Duration)

	if skipEmbed {
		log.Println("build complete (embed/cluster skipped)")
		return 0
	}
	if model == "" {
		log.Println("-model is required for the embed phase")
		return 2
	}

	embedStats, err := app.EmbedBuild(ctx, model, batchSize)
	if err != nil {
		log.Printf("embed build: %v", err)
		return exitCode(err)
	}
	log.Printf("embedded %d passages", embedStats.PassagesEmbedded)

	if skipCluster {
		return 0
	}

	clusterStats, err := app.BuildClusters(ctx, cluster.Config{Model: model, K: k})
	if err != nil {
		log.Printf("cluster build: %v", err)
		return exitCode(err)
	}
	log.Printf("built %d clusters over %d passages (%s total)",
		clusterStats.ClustersCreated, clusterStats.PassagesSeen, time.Since(start))

	return 0
}

// exitCode classifies an error from a build phase into the process exit
// code it should produce: 2 for usage errors, 3 for I/O errors, 4 for
// store/consistency errors (including a corrupt embedding detected on
// write or read), 1 for anything uncategorized.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, storage.ErrBuildBusy), errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrAlreadyExists), errors.Is(err, storage.ErrCorrupt):
		return 4
	case errors.Is(err, os.ErrNotExist), errors.Is(err, os.ErrPermission):
		return 3
	case errors.Is(err, embedder.ErrInvalidInput), errors.Is(err, embedder.ErrEmptyText), errors.Is(err, embedder.ErrUnsupportedModel):
		return 2
	case errors.Is(err, embedder.ErrOverloaded):
		return 4
	default:
		return 1
	}
}
