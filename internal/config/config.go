// Package config resolves notekb's runtime settings: corpus root, database
// path, embedding provider/credentials, worker counts, and search defaults.
//
// Resolution order follows the teacher's environment-variable-first pattern
// (internal/embedder/factory.go's NewFromEnv is the template): an optional
// TOML file supplies defaults, and environment variables always override
// them. There is no third layer — unset env vars and an absent/partial TOML
// file simply fall through to the package's hardcoded defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Default tunables used when neither a TOML file nor an environment
// variable supplies a value.
const (
	DefaultDBPath       = "~/.notekb/index"
	DefaultWorkers      = 0 // 0 selects runtime.NumCPU() at the call site
	DefaultEmbedBatch   = 20
	DefaultSearchLimit  = 10
	DefaultFTSK         = 200
	DefaultClusterLimit = 5
)

// Config is the fully resolved runtime configuration.
type Config struct {
	CorpusRoot        string `toml:"corpus_root"`
	DBPath            string `toml:"db_path"`
	EmbeddingProvider string `toml:"embedding_provider"`
	EmbeddingAPIKey   string `toml:"embedding_api_key"`
	Workers           int    `toml:"workers"`
	EmbedBatchSize    int    `toml:"embed_batch_size"`
	SearchLimit       int    `toml:"search_limit"`
	FTSK              int    `toml:"fts_k"`
	ClusterLimit      int    `toml:"cluster_limit"`
}

// defaults returns a Config populated with the package's hardcoded
// defaults.
func defaults() Config {
	return Config{
		DBPath:         DefaultDBPath,
		Workers:        DefaultWorkers,
		EmbedBatchSize: DefaultEmbedBatch,
		SearchLimit:    DefaultSearchLimit,
		FTSK:           DefaultFTSK,
		ClusterLimit:   DefaultClusterLimit,
	}
}

// Load resolves the runtime configuration: defaults, overridden by
// tomlPath if non-empty and present on disk, overridden by environment
// variables. tomlPath may be empty to skip the file layer entirely; a
// missing file at a non-empty path is an error, but a file that merely
// omits fields is not — omitted fields keep their prior value.
func Load(tomlPath string) (*Config, error) {
	cfg := defaults()

	if tomlPath != "" {
		data, err := os.ReadFile(tomlPath)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", tomlPath, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", tomlPath, err)
		}
	}

	applyEnv(&cfg)

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("NOTEKB_CORPUS_ROOT"); v != "" {
		cfg.CorpusRoot = v
	}
	if v := os.Getenv("NOTEKB_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("NOTEKB_EMBEDDING_PROVIDER"); v != "" {
		cfg.EmbeddingProvider = v
	}
	if v := os.Getenv("NOTEKB_EMBEDDING_API_KEY"); v != "" {
		cfg.EmbeddingAPIKey = v
	}
	if v := intEnv("NOTEKB_WORKERS"); v != nil {
		cfg.Workers = *v
	}
	if v := intEnv("NOTEKB_EMBED_BATCH_SIZE"); v != nil {
		cfg.EmbedBatchSize = *v
	}
	if v := intEnv("NOTEKB_SEARCH_LIMIT"); v != nil {
		cfg.SearchLimit = *v
	}
	if v := intEnv("NOTEKB_FTS_K"); v != nil {
		cfg.FTSK = *v
	}
	if v := intEnv("NOTEKB_CLUSTER_LIMIT"); v != nil {
		cfg.ClusterLimit = *v
	}
}

func intEnv(key string) *int {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}
