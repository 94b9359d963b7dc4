// Package figure owns the profile lifecycle: first-time creation from an
// upstream model query, voice-summary backfill for older records, and
// in-character conversation.
package figure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/talkwith/talkwith/internal/extract"
	"github.com/talkwith/talkwith/internal/storage"
)

var (
	// ErrNotConfigured is returned when an operation needs the upstream
	// model but no API credential is configured.
	ErrNotConfigured = errors.New("upstream model credential is not configured")

	// ErrInvalidName is returned for empty or whitespace-only names.
	ErrInvalidName = errors.New("figure name must not be empty")
)

// Store is the storage surface the orchestrator needs.
type Store interface {
	GetFigure(nameKey string) (storage.Figure, error)
	SaveFigure(f storage.Figure) error
	SetVoiceSummary(nameKey, voiceSummary string) error
}

// Querier produces model text from a prompt.
type Querier interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SummaryFunc derives the voice summary for a figure. Implementations may be
// purely local or may call back into the model.
type SummaryFunc func(ctx context.Context, name string, answers map[string]string, rawResponse string) (string, error)

// Indexer receives newly created figures for best-effort vector indexing.
type Indexer interface {
	IndexFigure(ctx context.Context, f storage.Figure) error
}

// Orchestrator implements get-or-create over figure profiles. Concurrent
// first-time requests for the same name are collapsed into a single upstream
// call.
type Orchestrator struct {
	store     Store
	llm       Querier // nil when no credential is configured
	questions []string
	summarize SummaryFunc
	indexer   Indexer // optional

	group singleflight.Group
}

// New builds an Orchestrator. llm and indexer may be nil.
func New(store Store, llm Querier, qs []string, summarize SummaryFunc, indexer Indexer) *Orchestrator {
	return &Orchestrator{
		store:     store,
		llm:       llm,
		questions: qs,
		summarize: summarize,
		indexer:   indexer,
	}
}

// NormalizeKey maps a display name to its storage key.
func NormalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GetOrCreate returns the persisted figure for name, creating it via the
// upstream model on first request. Existing figures missing a voice summary
// get one backfilled before returning.
func (o *Orchestrator) GetOrCreate(ctx context.Context, name string) (storage.Figure, error) {
	key := NormalizeKey(name)
	if key == "" {
		return storage.Figure{}, ErrInvalidName
	}
	v, err, _ := o.group.Do(key, func() (any, error) {
		return o.getOrCreate(ctx, strings.TrimSpace(name), key)
	})
	if err != nil {
		return storage.Figure{}, err
	}
	return v.(storage.Figure), nil
}

func (o *Orchestrator) getOrCreate(ctx context.Context, name, key string) (storage.Figure, error) {
	existing, err := o.store.GetFigure(key)
	switch {
	case err == nil:
		if existing.VoiceSummary != "" {
			return existing, nil
		}
		return o.backfillSummary(ctx, existing)
	case !errors.Is(err, storage.ErrNotFound):
		return storage.Figure{}, fmt.Errorf("looking up figure: %w", err)
	}

	if o.llm == nil {
		return storage.Figure{}, ErrNotConfigured
	}

	raw, err := o.llm.Generate(ctx, BuildProfilePrompt(name, o.questions))
	if err != nil {
		return storage.Figure{}, fmt.Errorf("querying profile for %q: %w", name, err)
	}
	answers := extract.Answers(raw, o.questions)
	voiceSummary, err := o.summarize(ctx, name, answers, raw)
	if err != nil {
		return storage.Figure{}, fmt.Errorf("deriving voice summary for %q: %w", name, err)
	}

	f := o.buildFigureRecord(name, key, answers, raw, voiceSummary)
	if err := o.store.SaveFigure(f); err != nil {
		if errors.Is(err, storage.ErrExists) {
			// Lost a cross-process race; the winner's record is authoritative.
			return o.store.GetFigure(key)
		}
		return storage.Figure{}, fmt.Errorf("saving figure: %w", err)
	}

	if o.indexer != nil {
		if err := o.indexer.IndexFigure(ctx, f); err != nil {
			slog.Warn("vector indexing failed", "figure", key, "error", err)
		}
	}

	saved, err := o.store.GetFigure(key)
	if err != nil {
		return storage.Figure{}, fmt.Errorf("re-reading saved figure: %w", err)
	}
	return saved, nil
}

// backfillSummary derives and persists a voice summary for a figure created
// before summaries existed.
func (o *Orchestrator) backfillSummary(ctx context.Context, f storage.Figure) (storage.Figure, error) {
	voiceSummary, err := o.summarize(ctx, f.Name, f.Answers, f.RawResponse)
	if err != nil {
		return storage.Figure{}, fmt.Errorf("backfilling voice summary for %q: %w", f.Name, err)
	}
	if err := o.store.SetVoiceSummary(f.NameKey, voiceSummary); err != nil {
		return storage.Figure{}, fmt.Errorf("persisting voice summary: %w", err)
	}
	f.VoiceSummary = voiceSummary
	return f, nil
}

// buildFigureRecord is the single assembly point for new figure records.
func (o *Orchestrator) buildFigureRecord(name, key string, answers map[string]string, raw, voiceSummary string) storage.Figure {
	return storage.Figure{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Name:         name,
		NameKey:      key,
		Answers:      answers,
		RawResponse:  raw,
		VoiceSummary: voiceSummary,
	}
}
