package library

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hazyhaar/biblio/internal/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testMCPImpl = &mcp.Implementation{Name: "biblio-test", Version: "0.1.0"}

func mcpSession(t *testing.T, svc *Service) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	svc.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if result.IsError {
		t.Fatalf("CallTool(%s) tool error: %v", name, result.Content)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_Search(t *testing.T) {
	// WHAT: library_search returns total plus matching items over MCP.
	// WHY: Agents browse the catalog through this tool.
	svc, st := testService(t, &fakeFeed{})
	ctx := context.Background()
	st.Upsert(ctx, &store.Book{SourceChatID: testChatID, SourceMessageID: 1,
		FileID: "f1", Title: "Dune", Author: "Frank Herbert", Lang: "en"})
	st.Upsert(ctx, &store.Book{SourceChatID: testChatID, SourceMessageID: 2,
		FileID: "f2", Title: "三体", Author: "刘慈欣", Lang: "zh"})

	session := mcpSession(t, svc)
	text := mcpCallTool(t, session, "library_search", map[string]any{"query": "dune"})

	var resp struct {
		Total int `json:"total"`
		Items []struct {
			Title string `json:"title"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 1 || len(resp.Items) != 1 || resp.Items[0].Title != "Dune" {
		t.Errorf("search result: %+v", resp)
	}

	// Lang filter without text.
	text = mcpCallTool(t, session, "library_search", map[string]any{"lang": "zh"})
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 1 || resp.Items[0].Title != "三体" {
		t.Errorf("lang filter result: %+v", resp)
	}
}

func TestMCP_Get(t *testing.T) {
	// WHAT: library_get returns the row; a miss is a tool error.
	// WHY: Not-found must not become a JSON-RPC protocol error.
	svc, st := testService(t, &fakeFeed{})
	b, err := st.Upsert(context.Background(), &store.Book{
		SourceChatID: testChatID, SourceMessageID: 1, FileID: "f1", Title: "Dune"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	session := mcpSession(t, svc)
	text := mcpCallTool(t, session, "library_get", map[string]any{"id": b.ID})

	var got struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != b.ID || got.Title != "Dune" {
		t.Errorf("row: %+v", got)
	}

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "library_get",
		Arguments: map[string]any{"id": 9999},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for unknown id")
	}
}

func TestMCP_Stats(t *testing.T) {
	// WHAT: library_stats returns the aggregate counters.
	// WHY: Cheapest way for an agent to size the catalog.
	svc, st := testService(t, &fakeFeed{})
	st.Upsert(context.Background(), &store.Book{
		SourceChatID: testChatID, SourceMessageID: 1, FileID: "f1", Lang: "en", Category: "fiction"})

	session := mcpSession(t, svc)
	text := mcpCallTool(t, session, "library_stats", map[string]any{})

	var stats struct {
		Books      int64 `json:"books"`
		Languages  int64 `json:"languages"`
		Categories int64 `json:"categories"`
	}
	if err := json.Unmarshal([]byte(text), &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stats.Books != 1 || stats.Languages != 1 || stats.Categories != 1 {
		t.Errorf("stats: %+v", stats)
	}
}
