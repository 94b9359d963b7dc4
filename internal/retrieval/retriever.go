package retrieval

import (
	"context"
	"time"
)

// Chunk is a retrieved context fragment with its similarity score.
type Chunk struct {
	ID         string    `json:"id"`
	FigureKey  string    `json:"figure_key"`
	SourceType string    `json:"source_type"`
	Question   string    `json:"question,omitempty"`
	Text       string    `json:"text"`
	Score      float32   `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}

// Retriever combines embedding and vector search to find relevant context.
type Retriever struct {
	embedder *Embedder
	store    VectorStore
}

// NewRetriever creates a Retriever backed by the given Embedder and VectorStore.
func NewRetriever(embedder *Embedder, store VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve embeds the query and returns the top-K most similar chunks. A
// non-empty figureKey restricts results to one figure's records.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, figureKey string) ([]Chunk, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	scored, err := r.store.Search(vec, topK, figureKey)
	if err != nil {
		return nil, err
	}

	return scoredToChunks(scored), nil
}

func scoredToChunks(scored []ScoredRecord) []Chunk {
	chunks := make([]Chunk, len(scored))
	for i, s := range scored {
		chunks[i] = Chunk{
			ID:         s.ID,
			FigureKey:  s.FigureKey,
			SourceType: s.SourceType,
			Question:   s.Question,
			Text:       s.TextChunk,
			Score:      s.Score,
			CreatedAt:  s.CreatedAt,
		}
	}
	return chunks
}
