// Package agents provisions spoken conversational agents for figures on the
// external voice provider and keeps the number of live agents under the
// provider's ceiling.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talkwith/talkwith/internal/elevenlabs"
	"github.com/talkwith/talkwith/internal/figure"
	"github.com/talkwith/talkwith/internal/knowledge"
	"github.com/talkwith/talkwith/internal/questions"
	"github.com/talkwith/talkwith/internal/storage"
	"github.com/talkwith/talkwith/internal/voices"
)

// DefaultMaxAgents is the provider's live-agent ceiling.
const DefaultMaxAgents = 30

// ErrNotConfigured is returned when no provider credential is configured.
var ErrNotConfigured = errors.New("voice provider credential is not configured")

// Store is the storage surface the manager needs.
type Store interface {
	GetFigure(nameKey string) (storage.Figure, error)
	ListFigures() ([]storage.Figure, error)
	ListFiguresWithAgents() ([]storage.Figure, error)
	SetAgent(nameKey, voiceID, agentID string) error
	ClearAgent(nameKey string) error
	ListKnowledgeDocs(figureKey string) ([]storage.KnowledgeDoc, error)
}

// Provider is the outbound voice/agent API surface.
type Provider interface {
	ListVoices(ctx context.Context) ([]elevenlabs.Voice, error)
	DesignVoice(ctx context.Context, description, sampleText string) (string, error)
	CreateVoice(ctx context.Context, name, description, generatedVoiceID string) (string, error)
	CreateAgent(ctx context.Context, name, voiceID, firstMessage, systemPrompt string) (string, error)
	AgentExists(ctx context.Context, agentID string) (bool, error)
	DeleteAgent(ctx context.Context, agentID string) error
	AddKnowledge(ctx context.Context, agentID, name, text string) error
}

// FigureSource yields (and creates on demand) figure profiles.
type FigureSource interface {
	GetOrCreate(ctx context.Context, name string) (storage.Figure, error)
}

// Manager provisions and evicts agents.
type Manager struct {
	store          Store
	provider       Provider // nil when unconfigured
	figures        FigureSource
	selector       *voices.Selector
	defaultVoiceID string
	maxAgents      int
}

// New builds a Manager. provider may be nil; every provisioning call then
// fails with ErrNotConfigured.
func New(store Store, provider Provider, figures FigureSource, selector *voices.Selector, defaultVoiceID string, maxAgents int) *Manager {
	if maxAgents <= 0 {
		maxAgents = DefaultMaxAgents
	}
	return &Manager{
		store:          store,
		provider:       provider,
		figures:        figures,
		selector:       selector,
		defaultVoiceID: defaultVoiceID,
		maxAgents:      maxAgents,
	}
}

// Result describes the outcome of one provisioning request.
type Result struct {
	PersonName string `json:"person_name"`
	VoiceID    string `json:"voice_id,omitempty"`
	AgentID    string `json:"agent_id,omitempty"`
	Status     string `json:"status"` // "created" or "existing"
}

// CreateForFigure provisions a voice and agent for a figure, creating the
// figure first when needed. Idempotent: a figure already holding an agent is
// returned as-is.
func (m *Manager) CreateForFigure(ctx context.Context, name string) (Result, error) {
	if m.provider == nil {
		return Result{}, ErrNotConfigured
	}
	f, err := m.figures.GetOrCreate(ctx, name)
	if err != nil {
		return Result{}, err
	}
	if f.HasAgent() {
		return Result{PersonName: f.Name, VoiceID: f.VoiceID, AgentID: f.AgentID, Status: "existing"}, nil
	}

	voiceID := m.resolveVoice(ctx, f)
	if voiceID == "" {
		return Result{}, fmt.Errorf("no voice could be created or selected for %q", f.Name)
	}

	agentID, err := m.provider.CreateAgent(ctx,
		f.Name+" Agent",
		voiceID,
		figure.FirstMessage(f.Name),
		figure.BuildAgentSystemPrompt(f.Name, f.VoiceSummary),
	)
	if err != nil {
		return Result{}, fmt.Errorf("creating agent for %q: %w", f.Name, err)
	}

	if doc := m.knowledgeDocument(f); doc != "" {
		if err := m.provider.AddKnowledge(ctx, agentID, f.Name+" Profile", doc); err != nil {
			slog.Warn("knowledge upload failed", "figure", f.NameKey, "agent_id", agentID, "error", err)
		}
	}

	if err := m.store.SetAgent(f.NameKey, voiceID, agentID); err != nil {
		return Result{}, fmt.Errorf("recording agent for %q: %w", f.Name, err)
	}

	if err := m.EnsureCapacity(ctx); err != nil {
		slog.Warn("capacity enforcement failed", "error", err)
	}

	return Result{PersonName: f.Name, VoiceID: voiceID, AgentID: agentID, Status: "created"}, nil
}

// resolveVoice finds or builds a provider voice for the figure: an existing
// voice carrying the figure's name, then a freshly designed one, then
// selection from the library, then the configured default, then the first
// available voice.
func (m *Manager) resolveVoice(ctx context.Context, f storage.Figure) string {
	library, err := m.provider.ListVoices(ctx)
	if err != nil {
		slog.Warn("listing voices failed", "error", err)
	}
	for _, v := range library {
		if strings.Contains(strings.ToLower(v.Name), f.NameKey) {
			return v.VoiceID
		}
	}

	sanitized := voices.SanitizeDescription(f.VoiceSummary)
	if genID, err := m.provider.DesignVoice(ctx, sanitized, sampleText(f.Name)); err != nil {
		slog.Warn("voice design failed", "figure", f.NameKey, "error", err)
	} else if voiceID, err := m.provider.CreateVoice(ctx, f.Name+" Voice", f.VoiceSummary, genID); err != nil {
		slog.Warn("saving designed voice failed", "figure", f.NameKey, "error", err)
	} else {
		return voiceID
	}

	if id := m.selector.Select(ctx, library, f.VoiceSummary); id != "" {
		return id
	}
	if m.defaultVoiceID != "" {
		return m.defaultVoiceID
	}
	if len(library) > 0 {
		return library[0].VoiceID
	}
	return ""
}

// knowledgeDocument assembles the agent's knowledge base from the figure's
// answers plus any ingested documents.
func (m *Manager) knowledgeDocument(f storage.Figure) string {
	docs, err := m.store.ListKnowledgeDocs(f.NameKey)
	if err != nil {
		slog.Warn("listing knowledge docs failed", "figure", f.NameKey, "error", err)
	}
	return knowledge.BuildDocument(questions.All(), f.Answers, docs)
}

// Status is the liveness report for a figure's agent.
type Status struct {
	PersonName      string `json:"person_name"`
	Exists          bool   `json:"exists"`
	HasAgent        bool   `json:"has_agent"`
	AgentID         string `json:"agent_id,omitempty"`
	VoiceID         string `json:"voice_id,omitempty"`
	AgentValid      bool   `json:"agent_valid"`
	HasVoiceSummary bool   `json:"has_voice_summary"`
	Ready           bool   `json:"ready"`
}

// AgentStatus reports whether a figure exists, holds an agent, and whether
// that agent is still live on the provider side.
func (m *Manager) AgentStatus(ctx context.Context, name string) (Status, error) {
	key := figure.NormalizeKey(name)
	f, err := m.store.GetFigure(key)
	if errors.Is(err, storage.ErrNotFound) {
		return Status{PersonName: name}, nil
	}
	if err != nil {
		return Status{}, err
	}

	st := Status{
		PersonName:      f.Name,
		Exists:          true,
		HasAgent:        f.HasAgent(),
		AgentID:         f.AgentID,
		VoiceID:         f.VoiceID,
		HasVoiceSummary: f.VoiceSummary != "",
	}
	if st.HasAgent && m.provider != nil {
		valid, err := m.provider.AgentExists(ctx, f.AgentID)
		if err != nil {
			slog.Warn("agent liveness probe failed", "agent_id", f.AgentID, "error", err)
		}
		st.AgentValid = valid
	}
	st.Ready = st.HasAgent && st.AgentValid
	return st, nil
}

// BatchItem is one entry in a create-all run.
type BatchItem struct {
	PersonName string `json:"person_name"`
	Status     string `json:"status"` // "created", "existing", "skipped" or "error"
	AgentID    string `json:"agent_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CreateAll provisions agents for every stored figure that lacks one.
func (m *Manager) CreateAll(ctx context.Context) ([]BatchItem, error) {
	if m.provider == nil {
		return nil, ErrNotConfigured
	}
	figs, err := m.store.ListFigures()
	if err != nil {
		return nil, fmt.Errorf("listing figures: %w", err)
	}

	items := make([]BatchItem, 0, len(figs))
	for _, f := range figs {
		if f.HasAgent() {
			items = append(items, BatchItem{PersonName: f.Name, Status: "skipped", AgentID: f.AgentID})
			continue
		}
		res, err := m.CreateForFigure(ctx, f.Name)
		if err != nil {
			items = append(items, BatchItem{PersonName: f.Name, Status: "error", Error: err.Error()})
			continue
		}
		items = append(items, BatchItem{PersonName: f.Name, Status: res.Status, AgentID: res.AgentID})
	}
	return items, nil
}

// EnsureCapacity evicts the oldest live agents until at most maxAgents
// remain. Remote deletion is best-effort; local bookkeeping always runs.
func (m *Manager) EnsureCapacity(ctx context.Context) error {
	figs, err := m.store.ListFiguresWithAgents()
	if err != nil {
		return fmt.Errorf("listing figures with agents: %w", err)
	}
	if len(figs) <= m.maxAgents {
		return nil
	}

	sort.SliceStable(figs, func(i, j int) bool {
		return effectiveTimestamp(figs[i]).Before(effectiveTimestamp(figs[j]))
	})

	var lastErr error
	for _, f := range figs[:len(figs)-m.maxAgents] {
		if m.provider != nil {
			if err := m.provider.DeleteAgent(ctx, f.AgentID); err != nil {
				slog.Warn("remote agent delete failed", "figure", f.NameKey, "agent_id", f.AgentID, "error", err)
			} else {
				slog.Info("evicted agent", "figure", f.NameKey, "agent_id", f.AgentID)
			}
		}
		if err := m.store.ClearAgent(f.NameKey); err != nil {
			slog.Error("clearing evicted agent failed", "figure", f.NameKey, "error", err)
			lastErr = err
		}
	}
	return lastErr
}

// effectiveTimestamp orders figures for eviction: last update, else creation
// time, else the timestamp embedded in a UUIDv7 id.
func effectiveTimestamp(f storage.Figure) time.Time {
	if !f.UpdatedAt.IsZero() {
		return f.UpdatedAt
	}
	if !f.CreatedAt.IsZero() {
		return f.CreatedAt
	}
	if id, err := uuid.Parse(f.ID); err == nil && id.Version() == 7 {
		sec, nsec := id.Time().UnixTime()
		return time.Unix(sec, nsec)
	}
	return time.Time{}
}

// sampleText is the narration used when designing a voice. The design API
// requires a minimum length, so this stays comfortably above it.
func sampleText(name string) string {
	return fmt.Sprintf("Hello, I am %s. It is a pleasure to speak with you today. "+
		"Let me tell you about my life, my work, and the times I lived through. "+
		"Ask me anything you wish to know, and I shall answer as best I can.", name)
}
