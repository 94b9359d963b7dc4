package retrieval

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Embedding is the upstream operation that turns text into a vector.
type Embedding interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Embedder generates text embeddings via the upstream model.
type Embedder struct {
	upstream Embedding
}

// NewEmbedder creates an Embedder over the given embedding provider.
func NewEmbedder(upstream Embedding) *Embedder {
	return &Embedder{upstream: upstream}
}

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.upstream.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	return vec, nil
}

// EmbedBatch returns embedding vectors for multiple texts concurrently.
// Returns nil (not error) for empty/nil input.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency to avoid overwhelming the provider.

	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.upstream.Embed(gCtx, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			results[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
