package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/talkwith/talkwith/internal/agents"
	"github.com/talkwith/talkwith/internal/elevenlabs"
	"github.com/talkwith/talkwith/internal/figure"
	"github.com/talkwith/talkwith/internal/knowledge"
	"github.com/talkwith/talkwith/internal/retrieval"
	"github.com/talkwith/talkwith/internal/retry"
	"github.com/talkwith/talkwith/internal/storage"
)

const maxRequestBodySize = 1 << 20   // 1MB
const maxDocumentBodySize = 10 << 20 // 10MB, PDFs arrive base64-encoded

type AppDeps struct {
	Store       *storage.Store
	Figures     *figure.Orchestrator
	Agents      *agents.Manager
	Retriever   *retrieval.Retriever // nil when no embedding credential is configured
	Indexer     *retrieval.Indexer   // nil when no embedding credential is configured
	DefaultTopK int
	CORSOrigins []string
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(CORS(deps.CORSOrigins))

	r.Get("/health", handleHealth)
	r.Get("/figure/{name}", handleGetFigure(deps))
	r.Get("/figures", handleListFigures(deps))
	r.Get("/figures/search", handleSearchFigures(deps))
	r.Post("/conversation/{name}", handleConversation(deps))
	r.Post("/figure/{name}/create-agent", handleCreateAgent(deps))
	r.Get("/figure/{name}/agent-status", handleAgentStatus(deps))
	r.Post("/create-all-agents", handleCreateAllAgents(deps))
	r.Post("/figure/{name}/documents", handleAddDocument(deps))
	r.Post("/vector-search", handleVectorSearch(deps))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// ProfileResponse is the JSON shape of a figure profile.
type ProfileResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Answers      map[string]string `json:"answers"`
	VoiceSummary string            `json:"voice_summary"`
	VoiceID      string            `json:"voice_id,omitempty"`
	AgentID      string            `json:"agent_id,omitempty"`
}

func profileResponse(f storage.Figure) ProfileResponse {
	return ProfileResponse{
		ID:           f.ID,
		Name:         f.Name,
		Answers:      f.Answers,
		VoiceSummary: f.VoiceSummary,
		VoiceID:      f.VoiceID,
		AgentID:      f.AgentID,
	}
}

// FigureSummary is the JSON shape of one entry in a figure listing.
type FigureSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	HasAgent bool   `json:"has_agent"`
	AgentID  string `json:"agent_id,omitempty"`
	VoiceID  string `json:"voice_id,omitempty"`
}

func figureSummaries(figs []storage.Figure) []FigureSummary {
	out := make([]FigureSummary, len(figs))
	for i, f := range figs {
		out[i] = FigureSummary{
			ID:       f.ID,
			Name:     f.Name,
			HasAgent: f.HasAgent(),
			AgentID:  f.AgentID,
			VoiceID:  f.VoiceID,
		}
	}
	return out
}

func handleGetFigure(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := deps.Figures.GetOrCreate(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, profileResponse(f))
	}
}

func handleListFigures(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		figs, err := deps.Store.ListFigures()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list figures: %v", err)
			return
		}
		writeJSON(w, figureSummaries(figs))
	}
}

func handleSearchFigures(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query parameter q is required")
			return
		}
		figs, err := deps.Store.SearchFigures(q)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to search figures: %v", err)
			return
		}
		writeJSON(w, figureSummaries(figs))
	}
}

type ConversationRequest struct {
	Message string        `json:"message"`
	History []figure.Turn `json:"history"`
}

type ConversationResponse struct {
	Person              string        `json:"person"`
	UserMessage         string        `json:"user_message"`
	Response            string        `json:"response"`
	ConversationHistory []figure.Turn `json:"conversation_history"`
}

func handleConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Message == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}

		name := chi.URLParam(r, "name")
		response, history, err := deps.Figures.Converse(r.Context(), name, req.Message, req.History)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, ConversationResponse{
			Person:              name,
			UserMessage:         req.Message,
			Response:            response,
			ConversationHistory: history,
		})
	}
}

func handleCreateAgent(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := deps.Agents.CreateForFigure(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, result)
	}
}

func handleAgentStatus(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := deps.Agents.AgentStatus(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, status)
	}
}

func handleCreateAllAgents(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := deps.Agents.CreateAll(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if items == nil {
			items = []agents.BatchItem{}
		}
		writeJSON(w, items)
	}
}

type DocumentRequest struct {
	Type    string `json:"type"` // "text" (default), "url" or "pdf"
	Title   string `json:"title"`
	Content string `json:"content"` // raw text, or base64 for pdf
	URL     string `json:"url"`
}

type DocumentResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Indexed int    `json:"indexed_chunks"`
}

func handleAddDocument(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBodySize)
		defer r.Body.Close()

		var req DocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Content == "" && req.URL == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "at least one of content or url is required")
			return
		}
		if req.Type == "" {
			req.Type = "text"
		}

		// The figure must exist (or be creatable) before documents attach to it.
		f, err := deps.Figures.GetOrCreate(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		var content string
		switch req.Type {
		case "url":
			if req.URL == "" {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "url is required for type url")
				return
			}
			content, err = knowledge.FetchURL(r.Context(), req.URL)
			if err != nil {
				httpError(w, http.StatusBadGateway, "provider_error", "failed to fetch url: %v", err)
				return
			}
			if req.Title == "" {
				req.Title = req.URL
			}
		case "pdf":
			data, err := base64.StdEncoding.DecodeString(req.Content)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 content")
				return
			}
			content, err = knowledge.FromPDF(data)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to extract pdf text: %v", err)
				return
			}
		case "text":
			content = req.Content
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown document type %q", req.Type)
			return
		}

		doc := storage.KnowledgeDoc{
			ID:        uuid.Must(uuid.NewV7()).String(),
			FigureKey: f.NameKey,
			Title:     req.Title,
			Content:   content,
			Source:    req.Type,
		}
		if err := deps.Store.SaveKnowledgeDoc(doc); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save document: %v", err)
			return
		}

		indexed := 0
		if deps.Indexer != nil {
			indexed, err = deps.Indexer.IndexDocument(r.Context(), f.NameKey, req.Title, content)
			if err != nil {
				httpError(w, http.StatusBadGateway, "upstream_error", "document saved but indexing failed: %v", err)
				return
			}
		}

		writeJSON(w, DocumentResponse{ID: doc.ID, Title: req.Title, Indexed: indexed})
	}
}

type VectorSearchRequest struct {
	Query  string `json:"query"`
	Person string `json:"person"`
	TopK   int    `json:"top_k"`
}

func handleVectorSearch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		if deps.Retriever == nil {
			httpError(w, http.StatusInternalServerError, "configuration_error", "embedding credential is not configured")
			return
		}

		var req VectorSearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		topK := req.TopK
		if topK <= 0 {
			topK = deps.DefaultTopK
		}

		figureKey := ""
		if req.Person != "" {
			figureKey = figure.NormalizeKey(req.Person)
		}

		chunks, err := deps.Retriever.Retrieve(r.Context(), req.Query, topK, figureKey)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if chunks == nil {
			chunks = []retrieval.Chunk{}
		}
		writeJSON(w, chunks)
	}
}

// writeDomainError maps domain sentinel and typed errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var retryErr *retry.Error
	var apiErr *elevenlabs.APIError
	switch {
	case errors.Is(err, figure.ErrInvalidName):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
	case errors.Is(err, figure.ErrNotConfigured), errors.Is(err, agents.ErrNotConfigured):
		httpError(w, http.StatusInternalServerError, "configuration_error", "%v", err)
	case errors.As(err, &retryErr):
		httpError(w, http.StatusBadGateway, "upstream_error", "%v", err)
	case errors.As(err, &apiErr):
		httpError(w, http.StatusBadGateway, "provider_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
