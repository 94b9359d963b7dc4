package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/talkwith/talkwith/internal/figure"
	"github.com/talkwith/talkwith/internal/retrieval"
	"github.com/talkwith/talkwith/internal/storage"
)

type mockMCPRetriever struct {
	chunks    []retrieval.Chunk
	err       error
	lastKey   string
	lastLimit int
}

func (m *mockMCPRetriever) Retrieve(_ context.Context, _ string, topK int, figureKey string) ([]retrieval.Chunk, error) {
	m.lastKey = figureKey
	m.lastLimit = topK
	return m.chunks, m.err
}

func newTestMCPDeps(t *testing.T) MCPDeps {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	orch := figure.New(store, &fakeQuerier{}, testQuestions, localSummary, nil)

	return MCPDeps{
		Store:     store,
		Figures:   orch,
		Retriever: &mockMCPRetriever{},
		TopK:      5,
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPLookupFigure(t *testing.T) {
	deps := newTestMCPDeps(t)
	handler := mcpLookupFigure(deps)

	result, err := handler(context.Background(), makeCallToolRequest("lookup_figure", map[string]interface{}{
		"name": "Nikola Tesla",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var profile ProfileResponse
	if err := json.Unmarshal([]byte(toolText(t, result)), &profile); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if profile.Name != "Nikola Tesla" {
		t.Errorf("Name = %q", profile.Name)
	}
}

func TestMCPLookupFigure_MissingName(t *testing.T) {
	handler := mcpLookupFigure(newTestMCPDeps(t))

	result, err := handler(context.Background(), makeCallToolRequest("lookup_figure", nil))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for missing name")
	}
}

func TestMCPTalkToFigure(t *testing.T) {
	handler := mcpTalkToFigure(newTestMCPDeps(t))

	result, err := handler(context.Background(), makeCallToolRequest("talk_to_figure", map[string]interface{}{
		"name":    "Nikola Tesla",
		"message": "Tell me about alternating current.",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}
	if got := toolText(t, result); got != "An in-character reply." {
		t.Errorf("reply = %q", got)
	}
}

func TestMCPSearchFigures(t *testing.T) {
	deps := newTestMCPDeps(t)

	if _, err := deps.Figures.GetOrCreate(context.Background(), "Nikola Tesla"); err != nil {
		t.Fatal(err)
	}

	handler := mcpSearchFigures(deps)
	result, err := handler(context.Background(), makeCallToolRequest("search_figures", map[string]interface{}{
		"query": "tesla",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	var list []FigureSummary
	if err := json.Unmarshal([]byte(toolText(t, result)), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Nikola Tesla" {
		t.Errorf("list = %+v", list)
	}
}

func TestMCPFigureRecall(t *testing.T) {
	deps := newTestMCPDeps(t)
	mock := &mockMCPRetriever{chunks: []retrieval.Chunk{
		{ID: "r1", FigureKey: "nikola tesla", SourceType: "qa", Text: "Q: x\nA: y", Score: 0.8},
	}}
	deps.Retriever = mock

	handler := mcpFigureRecall(deps)
	result, err := handler(context.Background(), makeCallToolRequest("figure_recall", map[string]interface{}{
		"query": "inventions",
		"name":  "Nikola Tesla",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	if mock.lastKey != "nikola tesla" {
		t.Errorf("figure key = %q, want normalized name", mock.lastKey)
	}
	if mock.lastLimit != 5 {
		t.Errorf("limit = %d, want default 5", mock.lastLimit)
	}
	if !strings.Contains(toolText(t, result), `"r1"`) {
		t.Errorf("result text = %s", toolText(t, result))
	}
}

func TestMCPFigureRecall_Errors(t *testing.T) {
	deps := newTestMCPDeps(t)
	deps.Retriever = &mockMCPRetriever{err: errors.New("embedding offline")}

	handler := mcpFigureRecall(deps)
	result, err := handler(context.Background(), makeCallToolRequest("figure_recall", map[string]interface{}{
		"query": "anything",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error when retriever fails")
	}

	deps.Retriever = nil
	handler = mcpFigureRecall(deps)
	result, err = handler(context.Background(), makeCallToolRequest("figure_recall", map[string]interface{}{
		"query": "anything",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error when retriever is not configured")
	}
}

func TestMCPResourceFigures(t *testing.T) {
	deps := newTestMCPDeps(t)
	if _, err := deps.Figures.GetOrCreate(context.Background(), "Marie Curie"); err != nil {
		t.Fatal(err)
	}

	handler := mcpResourceFigures(deps)
	contents, err := handler(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "figures://list"},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	var list []FigureSummary
	if err := json.Unmarshal([]byte(text.Text), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Marie Curie" {
		t.Errorf("list = %+v", list)
	}
}
