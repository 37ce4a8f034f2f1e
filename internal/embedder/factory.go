package embedder

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	CacheSize int
	// Concurrency bounds how many calls run against the provider at
	// once; QueueDepth bounds how many additional callers may wait for a
	// slot before being rejected with ErrOverloaded. Non-positive values
	// fall back to DefaultConcurrency/DefaultQueueDepth.
	Concurrency int
	QueueDepth  int
}

// NewFromEnv creates an embedder based on environment variables
// Priority:
// 1. NOTEKB_EMBEDDING_PROVIDER (jina, openai, local)
// 2. Check for API keys: JINA_API_KEY, OPENAI_API_KEY
// 3. Default to local if no API keys found
//
// The returned embedder is wrapped in a GuardedEmbedder sized from
// NOTEKB_EMBEDDER_CONCURRENCY / NOTEKB_EMBEDDER_QUEUE_DEPTH (falling back
// to DefaultConcurrency / DefaultQueueDepth when unset or invalid).
func NewFromEnv() (Embedder, error) {
	provider := os.Getenv("NOTEKB_EMBEDDING_PROVIDER")
	jinaKey := os.Getenv("JINA_API_KEY")
	openaiKey := os.Getenv("OPENAI_API_KEY")

	cache := NewCache(10000) // Default cache size

	inner, err := func() (Embedder, error) {
		// Explicit provider selection
		if provider != "" {
			switch strings.ToLower(provider) {
			case ProviderJina:
				return NewJinaProvider(jinaKey, cache)
			case ProviderOpenAI:
				return NewOpenAIProvider(openaiKey, cache)
			case ProviderLocal:
				return NewLocalProvider(cache)
			default:
				return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, provider)
			}
		}

		// Auto-detect based on available API keys
		if jinaKey != "" {
			return NewJinaProvider(jinaKey, cache)
		}
		if openaiKey != "" {
			return NewOpenAIProvider(openaiKey, cache)
		}

		// Fallback to local provider
		return NewLocalProvider(cache)
	}()
	if err != nil {
		return nil, err
	}

	width := envInt("NOTEKB_EMBEDDER_CONCURRENCY", DefaultConcurrency)
	depth := envInt("NOTEKB_EMBEDDER_QUEUE_DEPTH", DefaultQueueDepth)
	return NewGuardedEmbedder(inner, width, depth), nil
}

// New creates an embedder with explicit configuration, wrapped in a
// GuardedEmbedder per cfg.Concurrency/cfg.QueueDepth.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	var (
		inner Embedder
		err   error
	)
	switch strings.ToLower(cfg.Provider) {
	case ProviderJina:
		inner, err = NewJinaProvider(cfg.APIKey, cache)
	case ProviderOpenAI:
		inner, err = NewOpenAIProvider(cfg.APIKey, cache)
	case ProviderLocal:
		inner, err = NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewGuardedEmbedder(inner, cfg.Concurrency, cfg.QueueDepth), nil
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv("NOTEKB_EMBEDDING_PROVIDER")
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv("JINA_API_KEY") != "" {
		return ProviderJina
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return ProviderOpenAI
	}

	return ProviderLocal
}
