// Package gemini wraps the Google GenAI SDK behind the three operations this
// service needs: free-text generation, text embedding, and model resolution.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/talkwith/talkwith/internal/retry"
)

const (
	// DefaultEmbedModel is used when no embedding model is configured.
	DefaultEmbedModel = "gemini-embedding-001"

	defaultTimeout = 300 * time.Second
)

// preferredModels is the resolution order when no model is configured.
// The first preferred model the account can use wins; otherwise the first
// model supporting content generation is taken.
var preferredModels = []string{"gemini-1.5-flash", "gemini-1.5-pro", "gemini-pro"}

// Config carries the knobs for a Client.
type Config struct {
	APIKey      string
	Model       string // empty means resolve from the live model list
	EmbedModel  string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// Client talks to the Gemini API. Safe for concurrent use.
type Client struct {
	client     *genai.Client
	model      string
	embedModel string
	timeout    time.Duration
	retry      *retry.Caller

	mu       sync.Mutex
	resolved string
}

// New creates a Client. Fails when no API key is configured.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &Client{
		client:     gc,
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		timeout:    cfg.Timeout,
		retry:      retry.New(cfg.MaxAttempts, cfg.RetryDelay),
	}, nil
}

// Generate sends prompt to the resolved model and returns the text reply.
// Transient upstream failures are retried with exponential backoff; each
// attempt runs under the configured per-call timeout.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	model, err := c.ResolveModel(ctx)
	if err != nil {
		return "", err
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopP:            genai.Ptr[float32](0.95),
		TopK:            genai.Ptr[float32](40),
		MaxOutputTokens: 8192,
	}
	var text string
	err = c.retry.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		resp, err := c.client.Models.GenerateContent(callCtx, model, genai.Text(prompt), cfg)
		if err != nil {
			return fmt.Errorf("generating content: %w", err)
		}
		text = strings.TrimSpace(resp.Text())
		if text == "" {
			return errors.New("empty response from model")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	result, err := c.client.Models.EmbedContent(ctx, c.embedModel, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, fmt.Errorf("embedding content: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, errors.New("no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}

// ResolveModel returns the generation model to use. A configured model is
// returned as-is; otherwise the live model list is consulted once and the
// choice memoized for the lifetime of the client.
func (c *Client) ResolveModel(ctx context.Context) (string, error) {
	if c.model != "" {
		return c.model, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved != "" {
		return c.resolved, nil
	}

	var available []string
	for m, err := range c.client.Models.All(ctx) {
		if err != nil {
			return "", fmt.Errorf("listing models: %w", err)
		}
		if !slices.Contains(m.SupportedActions, "generateContent") {
			continue
		}
		available = append(available, strings.TrimPrefix(m.Name, "models/"))
	}
	if len(available) == 0 {
		return "", errors.New("no generation-capable models available")
	}

	choice := available[0]
	for _, p := range preferredModels {
		if slices.Contains(available, p) {
			choice = p
			break
		}
	}
	c.resolved = choice
	slog.Info("resolved generation model", "model", choice)
	return choice, nil
}
