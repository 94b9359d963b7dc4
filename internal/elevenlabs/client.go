// Package elevenlabs is a minimal HTTP client for the ElevenLabs voice and
// conversational-agent APIs, covering only the endpoints this service uses.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"

	// designModelID is the text-to-voice model used for voice design.
	designModelID = "eleven_multilingual_ttv_v2"

	// agentLLM is the model backing created conversational agents.
	agentLLM = "gemini-2.5-flash"

	descriptionMaxLen = 1000
	voiceDescMaxLen   = 500
)

// APIError is a non-2xx response from the provider.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs: status %d: %s", e.Status, e.Body)
}

// Voice is one entry from the voice library.
type Voice struct {
	VoiceID     string `json:"voice_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Client talks to the ElevenLabs API. Safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a Client with the production base URL.
func New(apiKey string) *Client {
	return NewWithBaseURL(apiKey, defaultBaseURL)
}

// NewWithBaseURL creates a Client against an arbitrary base URL (used by tests).
func NewWithBaseURL(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type voicesResponse struct {
	Voices []Voice `json:"voices"`
}

// ListVoices returns the account's voice library.
func (c *Client) ListVoices(ctx context.Context) ([]Voice, error) {
	var out voicesResponse
	if err := c.do(ctx, http.MethodGet, "/voices", nil, &out); err != nil {
		return nil, fmt.Errorf("listing voices: %w", err)
	}
	return out.Voices, nil
}

type designRequest struct {
	ModelID          string `json:"model_id"`
	VoiceDescription string `json:"voice_description"`
	Text             string `json:"text"`
}

type designResponse struct {
	Previews []struct {
		GeneratedVoiceID string `json:"generated_voice_id"`
	} `json:"previews"`
}

// DesignVoice generates voice previews from a description and sample text,
// returning the generated voice id of the first preview.
func (c *Client) DesignVoice(ctx context.Context, description, sampleText string) (string, error) {
	req := designRequest{
		ModelID:          designModelID,
		VoiceDescription: clip(description, descriptionMaxLen),
		Text:             sampleText,
	}
	var out designResponse
	if err := c.do(ctx, http.MethodPost, "/text-to-voice/design", req, &out); err != nil {
		return "", fmt.Errorf("designing voice: %w", err)
	}
	if len(out.Previews) == 0 {
		return "", fmt.Errorf("designing voice: no previews returned")
	}
	return out.Previews[0].GeneratedVoiceID, nil
}

type createVoiceRequest struct {
	VoiceName        string `json:"voice_name"`
	VoiceDescription string `json:"voice_description"`
	GeneratedVoiceID string `json:"generated_voice_id"`
}

type createVoiceResponse struct {
	VoiceID string `json:"voice_id"`
}

// CreateVoice saves a previously designed voice to the library.
func (c *Client) CreateVoice(ctx context.Context, name, description, generatedVoiceID string) (string, error) {
	req := createVoiceRequest{
		VoiceName:        name,
		VoiceDescription: clip(description, voiceDescMaxLen),
		GeneratedVoiceID: generatedVoiceID,
	}
	var out createVoiceResponse
	if err := c.do(ctx, http.MethodPost, "/text-to-voice/create", req, &out); err != nil {
		return "", fmt.Errorf("creating voice: %w", err)
	}
	if out.VoiceID == "" {
		return "", fmt.Errorf("creating voice: empty voice_id in response")
	}
	return out.VoiceID, nil
}

type createAgentRequest struct {
	Name               string      `json:"name"`
	ConversationConfig agentConfig `json:"conversation_config"`
}

type agentConfig struct {
	Agent agentSection `json:"agent"`
	TTS   ttsSection   `json:"tts"`
}

type agentSection struct {
	FirstMessage string      `json:"first_message"`
	Language     string      `json:"language"`
	Prompt       agentPrompt `json:"prompt"`
}

type agentPrompt struct {
	Prompt string `json:"prompt"`
	LLM    string `json:"llm"`
}

type ttsSection struct {
	VoiceID string `json:"voice_id"`
}

type createAgentResponse struct {
	AgentID string `json:"agent_id"`
}

// CreateAgent creates a conversational agent bound to a voice.
func (c *Client) CreateAgent(ctx context.Context, name, voiceID, firstMessage, systemPrompt string) (string, error) {
	req := createAgentRequest{
		Name: name,
		ConversationConfig: agentConfig{
			Agent: agentSection{
				FirstMessage: firstMessage,
				Language:     "en",
				Prompt:       agentPrompt{Prompt: systemPrompt, LLM: agentLLM},
			},
			TTS: ttsSection{VoiceID: voiceID},
		},
	}
	var out createAgentResponse
	if err := c.do(ctx, http.MethodPost, "/convai/agents/create", req, &out); err != nil {
		return "", fmt.Errorf("creating agent: %w", err)
	}
	if out.AgentID == "" {
		return "", fmt.Errorf("creating agent: empty agent_id in response")
	}
	return out.AgentID, nil
}

// AgentExists probes whether an agent id is still live on the provider side.
func (c *Client) AgentExists(ctx context.Context, agentID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.do(ctx, http.MethodGet, "/convai/agents/"+agentID, nil, nil)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return false, nil
	}
	return false, err
}

// DeleteAgent removes an agent from the provider.
func (c *Client) DeleteAgent(ctx context.Context, agentID string) error {
	if err := c.do(ctx, http.MethodDelete, "/convai/agents/"+agentID, nil, nil); err != nil {
		return fmt.Errorf("deleting agent %s: %w", agentID, err)
	}
	return nil
}

// knowledgeAttempts are the endpoint/payload combinations tried in order for
// the knowledge-base upload; the API surface for this has moved between
// provider releases.
var knowledgeAttempts = []struct {
	path    string
	payload func(agentID, name, text string) map[string]string
}{
	{"/convai/agents/%s/knowledge", func(_, name, text string) map[string]string {
		return map[string]string{"content": text, "name": name}
	}},
	{"/convai/agents/%s/knowledge-base", func(_, name, text string) map[string]string {
		return map[string]string{"text": text, "name": name}
	}},
	{"/agents/%s/knowledge", func(_, _, text string) map[string]string {
		return map[string]string{"document": text}
	}},
}

// AddKnowledge uploads a knowledge document to an agent, trying each known
// endpoint variant until one succeeds.
func (c *Client) AddKnowledge(ctx context.Context, agentID, name, text string) error {
	var lastErr error
	for _, attempt := range knowledgeAttempts {
		path := fmt.Sprintf(attempt.path, agentID)
		if err := c.do(ctx, http.MethodPost, path, attempt.payload(agentID, name, text), nil); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("uploading knowledge to agent %s: %w", agentID, lastErr)
}

// do performs one JSON request. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// clip truncates s to at most n bytes without splitting a UTF-8 sequence.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
