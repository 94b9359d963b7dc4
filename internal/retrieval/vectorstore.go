package retrieval

import "time"

// VectorStore is the storage backend for figure embeddings. The default
// implementation is SQLite with brute-force cosine similarity, which is
// plenty for a per-figure corpus of Q&A pairs and a handful of documents.
type VectorStore interface {
	// Insert adds records.
	Insert(records []Record) error

	// Search returns the top-K records most similar to vector. A non-empty
	// figureKey restricts the search to one figure's records.
	Search(vector []float32, topK int, figureKey string) ([]ScoredRecord, error)

	// DeleteByFigure removes every record belonging to a figure.
	DeleteByFigure(figureKey string) error

	// Count returns the number of stored records.
	Count() (int, error)
}

// Record is one embedded text chunk tied to a figure.
type Record struct {
	ID         string
	FigureKey  string
	SourceType string // "qa" or "doc"
	Question   string // set for "qa" records
	TextChunk  string
	Embedding  []float32
	CreatedAt  time.Time
}

// ScoredRecord is a Record with a similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}
