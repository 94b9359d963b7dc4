package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWithBaseURL("test-key", srv.URL)
}

func TestListVoices(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("xi-api-key = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"voices": []map[string]string{
				{"voice_id": "v1", "name": "Daniel", "description": "Deep male voice"},
				{"voice_id": "v2", "name": "Alice", "description": "Bright female voice"},
			},
		})
	}))

	voices, err := c.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 2 || voices[0].VoiceID != "v1" || voices[1].Name != "Alice" {
		t.Errorf("voices = %+v", voices)
	}
}

func TestDesignVoiceTruncatesDescription(t *testing.T) {
	long := make([]byte, 1500)
	for i := range long {
		long[i] = 'x'
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-voice/design" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req designRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.ModelID != designModelID {
			t.Errorf("model_id = %q", req.ModelID)
		}
		if len(req.VoiceDescription) != 1000 {
			t.Errorf("voice_description length = %d, want 1000", len(req.VoiceDescription))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"previews": []map[string]string{{"generated_voice_id": "gen-1"}},
		})
	}))

	got, err := c.DesignVoice(context.Background(), string(long), "Hello, I am a sample.")
	if err != nil {
		t.Fatalf("DesignVoice: %v", err)
	}
	if got != "gen-1" {
		t.Errorf("generated id = %q", got)
	}
}

func TestDesignVoiceNoPreviews(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"previews": []any{}})
	}))
	if _, err := c.DesignVoice(context.Background(), "desc", "sample"); err == nil {
		t.Fatal("want error on empty previews")
	}
}

func TestCreateAgentPayload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/convai/agents/create" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req createAgentRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Name != "Nikola Tesla Agent" {
			t.Errorf("name = %q", req.Name)
		}
		if req.ConversationConfig.TTS.VoiceID != "v1" {
			t.Errorf("voice_id = %q", req.ConversationConfig.TTS.VoiceID)
		}
		if req.ConversationConfig.Agent.Language != "en" {
			t.Errorf("language = %q", req.ConversationConfig.Agent.Language)
		}
		if req.ConversationConfig.Agent.Prompt.LLM != agentLLM {
			t.Errorf("llm = %q", req.ConversationConfig.Agent.Prompt.LLM)
		}
		json.NewEncoder(w).Encode(map[string]string{"agent_id": "agent-1"})
	}))

	id, err := c.CreateAgent(context.Background(), "Nikola Tesla Agent", "v1", "Hello.", "You ARE Nikola Tesla.")
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if id != "agent-1" {
		t.Errorf("agent id = %q", id)
	}
}

func TestAgentExists(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/convai/agents/live":
			w.WriteHeader(http.StatusOK)
		case "/convai/agents/gone":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))

	if ok, err := c.AgentExists(context.Background(), "live"); err != nil || !ok {
		t.Errorf("live agent: ok=%v err=%v", ok, err)
	}
	if ok, err := c.AgentExists(context.Background(), "gone"); err != nil || ok {
		t.Errorf("gone agent: ok=%v err=%v", ok, err)
	}
	if _, err := c.AgentExists(context.Background(), "broken"); err == nil {
		t.Error("server error should propagate")
	}
}

func TestDeleteAgent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	if err := c.DeleteAgent(context.Background(), "agent-1"); err != nil {
		t.Fatalf("DeleteAgent: %v", err)
	}
}

func TestAddKnowledgeTriesFallbackEndpoints(t *testing.T) {
	var paths []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/convai/agents/a1/knowledge-base" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	if err := c.AddKnowledge(context.Background(), "a1", "Profile", "doc text"); err != nil {
		t.Fatalf("AddKnowledge: %v", err)
	}
	want := []string{"/convai/agents/a1/knowledge", "/convai/agents/a1/knowledge-base"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestAddKnowledgeAllEndpointsFail(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	if err := c.AddKnowledge(context.Background(), "a1", "Profile", "doc text"); err == nil {
		t.Fatal("want error when every endpoint fails")
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	_, err := c.ListVoices(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("status = %d", apiErr.Status)
	}
}
