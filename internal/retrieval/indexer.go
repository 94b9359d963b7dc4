package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talkwith/talkwith/internal/storage"
)

// chunkTargetLen is the rough character size of a document chunk. Paragraphs
// are packed together until a chunk crosses this size.
const chunkTargetLen = 1000

// Indexer embeds figure profiles and ingested documents into the vector store.
type Indexer struct {
	embedder  *Embedder
	store     VectorStore
	questions []string
}

// NewIndexer creates an Indexer. The question list controls the order in
// which Q&A pairs are embedded.
func NewIndexer(embedder *Embedder, store VectorStore, questions []string) *Indexer {
	return &Indexer{embedder: embedder, store: store, questions: questions}
}

// IndexFigure replaces a figure's Q&A vectors with one record per answered
// question. Each chunk carries both the question and its answer so a match
// retains the context it was asked in.
func (ix *Indexer) IndexFigure(ctx context.Context, f storage.Figure) error {
	var qs []string
	var texts []string
	for _, q := range ix.questions {
		a := strings.TrimSpace(f.Answers[q])
		if a == "" {
			continue
		}
		qs = append(qs, q)
		texts = append(texts, "Q: "+q+"\nA: "+a)
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding figure %s: %w", f.NameKey, err)
	}

	if err := ix.store.DeleteByFigure(f.NameKey); err != nil {
		return err
	}

	now := time.Now().UTC()
	records := make([]Record, len(texts))
	for i := range texts {
		records[i] = Record{
			ID:         uuid.Must(uuid.NewV7()).String(),
			FigureKey:  f.NameKey,
			SourceType: "qa",
			Question:   qs[i],
			TextChunk:  texts[i],
			Embedding:  vectors[i],
			CreatedAt:  now,
		}
	}
	return ix.store.Insert(records)
}

// IndexDocument chunks a document by paragraph and embeds each chunk under
// the figure's key. Unlike IndexFigure it appends rather than replaces, so
// multiple documents accumulate.
func (ix *Indexer) IndexDocument(ctx context.Context, figureKey, title, content string) (int, error) {
	chunks := chunkParagraphs(content)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		if title != "" {
			texts[i] = title + "\n" + c
		} else {
			texts[i] = c
		}
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding document for %s: %w", figureKey, err)
	}

	now := time.Now().UTC()
	records := make([]Record, len(texts))
	for i := range texts {
		records[i] = Record{
			ID:         uuid.Must(uuid.NewV7()).String(),
			FigureKey:  figureKey,
			SourceType: "doc",
			TextChunk:  texts[i],
			Embedding:  vectors[i],
			CreatedAt:  now,
		}
	}
	if err := ix.store.Insert(records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// chunkParagraphs splits text on blank lines and packs paragraphs into
// chunks of roughly chunkTargetLen characters. A single oversized paragraph
// becomes its own chunk rather than being split mid-sentence.
func chunkParagraphs(text string) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(para) > chunkTargetLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}
