package library

import (
	"context"
	"encoding/json"

	"github.com/hazyhaar/biblio/kit"
	"github.com/hazyhaar/biblio/internal/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the read-side catalog tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerSearchTool(srv)
	s.registerGetTool(srv)
	s.registerStatsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (s *Service) mcpEndpoint(name string, endpoint kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(s.logger, name))(endpoint)
}

// --- library_search ---

type searchReq struct {
	Query    string `json:"query"`
	Lang     string `json:"lang"`
	Category string `json:"category"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

type searchResp struct {
	Total int           `json:"total"`
	Items []*store.Book `json:"items"`
}

func (s *Service) registerSearchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "library_search",
		Description: "Search the book catalog by text, language, and category",
		InputSchema: inputSchema(map[string]any{
			"query":    map[string]any{"type": "string", "description": "Full-text query over title, author, and tags"},
			"lang":     map[string]any{"type": "string", "description": "Exact language code filter, e.g. en"},
			"category": map[string]any{"type": "string", "description": "Exact category filter"},
			"limit":    map[string]any{"type": "integer", "description": "Page size, default 60"},
			"offset":   map[string]any{"type": "integer", "description": "Page offset"},
		}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*searchReq)
		books, total, err := s.Search(ctx, store.Query{
			Text:     p.Query,
			Lang:     p.Lang,
			Category: p.Category,
			Limit:    p.Limit,
			Offset:   p.Offset,
		})
		if err != nil {
			return nil, err
		}
		return &searchResp{Total: total, Items: books}, nil
	}

	decode := func(r *mcp.CallToolRequest) (any, error) {
		var p searchReq
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}

	kit.RegisterMCPTool(srv, tool, s.mcpEndpoint("library_search", endpoint), decode)
}

// --- library_get ---

type getReq struct {
	ID int64 `json:"id"`
}

func (s *Service) registerGetTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "library_get",
		Description: "Fetch one catalog entry by id",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "integer", "description": "Book id"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		return s.Get(ctx, r.(*getReq).ID)
	}

	decode := func(r *mcp.CallToolRequest) (any, error) {
		var p getReq
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}

	kit.RegisterMCPTool(srv, tool, s.mcpEndpoint("library_get", endpoint), decode)
}

// --- library_stats ---

func (s *Service) registerStatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "library_stats",
		Description: "Aggregate catalog counters: books, languages, categories",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.Stats(ctx)
	}

	decode := func(_ *mcp.CallToolRequest) (any, error) { return nil, nil }

	kit.RegisterMCPTool(srv, tool, s.mcpEndpoint("library_stats", endpoint), decode)
}
