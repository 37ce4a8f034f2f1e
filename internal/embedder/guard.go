package embedder

import (
	"context"
	"errors"
)

// ErrOverloaded is returned when the embedder's bounded waiting queue is
// already full. The caller should back off and retry rather than block
// indefinitely for a provider slot.
var ErrOverloaded = errors.New("embedder: overloaded")

const (
	// DefaultConcurrency is the default number of embedder calls allowed
	// to run against a provider at once.
	DefaultConcurrency = 4
	// DefaultQueueDepth is the default number of callers allowed to wait
	// for a concurrency slot before new calls are rejected.
	DefaultQueueDepth = 32
)

// GuardedEmbedder wraps an Embedder with a bounded-width semaphore and a
// bounded waiting queue. At most width calls run against the underlying
// provider at once; at most queueDepth additional callers may wait for a
// slot before GenerateEmbedding/GenerateBatch return ErrOverloaded instead
// of blocking.
type GuardedEmbedder struct {
	inner Embedder
	sem   chan struct{}
	queue chan struct{}
}

// NewGuardedEmbedder wraps inner with the given concurrency width and
// queue depth. A non-positive value falls back to the package default.
func NewGuardedEmbedder(inner Embedder, width, queueDepth int) *GuardedEmbedder {
	if width <= 0 {
		width = DefaultConcurrency
	}
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	return &GuardedEmbedder{
		inner: inner,
		sem:   make(chan struct{}, width),
		queue: make(chan struct{}, queueDepth),
	}
}

// acquire reserves a waiting-queue slot (rejecting immediately with
// ErrOverloaded if the queue is full), then blocks for a concurrency slot
// until ctx is done. The returned func releases the concurrency slot.
func (g *GuardedEmbedder) acquire(ctx context.Context) (func(), error) {
	select {
	case g.queue <- struct{}{}:
	default:
		return nil, ErrOverloaded
	}
	defer func() { <-g.queue }()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case g.sem <- struct{}{}:
		return func() { <-g.sem }, nil
	}
}

func (g *GuardedEmbedder) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	release, err := g.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return g.inner.GenerateEmbedding(ctx, req)
}

func (g *GuardedEmbedder) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	release, err := g.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return g.inner.GenerateBatch(ctx, req)
}

func (g *GuardedEmbedder) Dimension() int   { return g.inner.Dimension() }
func (g *GuardedEmbedder) Provider() string { return g.inner.Provider() }
func (g *GuardedEmbedder) Model() string    { return g.inner.Model() }
func (g *GuardedEmbedder) Close() error     { return g.inner.Close() }
