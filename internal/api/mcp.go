package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/talkwith/talkwith/internal/figure"
	"github.com/talkwith/talkwith/internal/retrieval"
	"github.com/talkwith/talkwith/internal/storage"
)

// MCPRetriever abstracts semantic search for the MCP layer.
type MCPRetriever interface {
	Retrieve(ctx context.Context, query string, topK int, figureKey string) ([]retrieval.Chunk, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store     *storage.Store
	Figures   *figure.Orchestrator
	Retriever MCPRetriever // optional; figure_recall errors when nil
	TopK      int
}

// NewMCPServer creates an MCP server with all talkwith tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"talkwith",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("talkwith — biographical profiles of historical figures and in-character conversation."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("lookup_figure",
			mcp.WithDescription("Fetch the biographical profile of a historical figure, generating it on first request."),
			mcp.WithString("name", mcp.Description("Name of the historical figure"), mcp.Required()),
		),
		mcpLookupFigure(deps),
	)

	s.AddTool(
		mcp.NewTool("talk_to_figure",
			mcp.WithDescription("Send a message to a historical figure and receive an in-character reply."),
			mcp.WithString("name", mcp.Description("Name of the historical figure"), mcp.Required()),
			mcp.WithString("message", mcp.Description("Message to send"), mcp.Required()),
		),
		mcpTalkToFigure(deps),
	)

	s.AddTool(
		mcp.NewTool("search_figures",
			mcp.WithDescription("Search stored historical figures by name substring."),
			mcp.WithString("query", mcp.Description("Case-insensitive name fragment"), mcp.Required()),
		),
		mcpSearchFigures(deps),
	)

	s.AddTool(
		mcp.NewTool("figure_recall",
			mcp.WithDescription("Semantically search a figure's profile and ingested documents."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithString("name", mcp.Description("Restrict to one figure (optional)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpFigureRecall(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"figures://list",
			"Stored Figures",
			mcp.WithResourceDescription("All stored historical figure profiles as JSON summaries"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceFigures(deps),
	)

	return s
}

func mcpLookupFigure(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}

		f, err := deps.Figures.GetOrCreate(ctx, name)
		if err != nil {
			return mcpError(fmt.Sprintf("lookup failed: %v", err)), nil
		}

		b, err := json.Marshal(profileResponse(f))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal profile: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpTalkToFigure(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}

		response, _, err := deps.Figures.Converse(ctx, name, message, nil)
		if err != nil {
			return mcpError(fmt.Sprintf("conversation failed: %v", err)), nil
		}
		return mcpText(response), nil
	}
}

func mcpSearchFigures(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		figs, err := deps.Store.SearchFigures(query)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		b, err := json.Marshal(figureSummaries(figs))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpFigureRecall(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Retriever == nil {
			return mcpError("semantic recall not available: embedding credential is not configured"), nil
		}

		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", deps.TopK)
		if limit <= 0 {
			limit = 5
		}
		if limit > 50 {
			limit = 50
		}

		figureKey := ""
		if name := req.GetString("name", ""); name != "" {
			figureKey = figure.NormalizeKey(name)
		}

		chunks, err := deps.Retriever.Retrieve(ctx, query, limit, figureKey)
		if err != nil {
			return mcpError(fmt.Sprintf("recall failed: %v", err)), nil
		}
		if len(chunks) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(chunks)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceFigures(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		figs, err := deps.Store.ListFigures()
		if err != nil {
			return nil, fmt.Errorf("failed to list figures: %w", err)
		}

		b, err := json.Marshal(figureSummaries(figs))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal figures: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
