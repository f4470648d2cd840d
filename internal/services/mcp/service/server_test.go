package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/louisbranch/taleweave/internal/services/mcp/domain"
	"github.com/louisbranch/taleweave/internal/story/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// decodeStructuredContent decodes structured MCP content into the target type.
func decodeStructuredContent[T any](t *testing.T, value any) T {
	t.Helper()

	data, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	var output T
	if err := json.Unmarshal(data, &output); err != nil {
		t.Fatalf("unmarshal structured content: %v", err)
	}
	return output
}

func startTestServer(t *testing.T) *mcp.ClientSession {
	t.Helper()

	server, err := New(store.New())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.serveWithTransport(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer connectCancel()

	session, err := client.Connect(connectCtx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	t.Cleanup(func() {
		session.Close()
		cancel()
		select {
		case err := <-serveErr:
			if err != nil {
				t.Errorf("serve returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("serve did not stop after cancel")
		}
	})
	return session
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil store")
	}
}

// TestServerToolRoundTrip drives a short story turn through a connected MCP
// client and checks the structured results.
func TestServerToolRoundTrip(t *testing.T) {
	session := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(tools.Tools) != 7 {
		t.Fatalf("tool count = %d, want 7", len(tools.Tools))
	}

	created, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: "story_create",
		Arguments: map[string]any{
			"document": map[string]any{"title": "The Hollow Keep"},
		},
	})
	if err != nil {
		t.Fatalf("call story_create: %v", err)
	}
	if created == nil || created.IsError {
		t.Fatalf("story_create failed: %+v", created)
	}
	createdView := decodeStructuredContent[domain.SessionView](t, created.StructuredContent)
	if createdView.ID == "" {
		t.Fatal("expected session id")
	}

	updated, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: "story_update",
		Arguments: map[string]any{
			"session_id": createdView.ID,
			"field":      "characters[0].name",
			"value":      "Mira",
		},
	})
	if err != nil {
		t.Fatalf("call story_update: %v", err)
	}
	if updated == nil || updated.IsError {
		t.Fatalf("story_update failed: %+v", updated)
	}
	updatedView := decodeStructuredContent[domain.SessionView](t, updated.StructuredContent)
	if len(updatedView.PendingDeltas) != 1 {
		t.Fatalf("deltas = %d, want 1", len(updatedView.PendingDeltas))
	}
	if updatedView.PendingDeltas[0].Field != "characters[0].name" {
		t.Fatalf("delta field = %q", updatedView.PendingDeltas[0].Field)
	}

	res, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: "story://sessions"})
	if err != nil {
		t.Fatalf("read sessions resource: %v", err)
	}
	if res == nil || len(res.Contents) == 0 || res.Contents[0].Text == "" {
		t.Fatal("sessions resource response missing content")
	}
	var payload domain.SessionListPayload
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &payload); err != nil {
		t.Fatalf("unmarshal session list payload: %v", err)
	}
	if len(payload.Sessions) != 1 || payload.Sessions[0].ID != createdView.ID {
		t.Fatalf("payload = %+v", payload)
	}
}

// TestServerToolErrorSurface checks that store failures come back as MCP tool
// errors rather than protocol failures.
func TestServerToolErrorSurface(t *testing.T) {
	session := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "story_get",
		Arguments: map[string]any{"session_id": "missing"},
	})
	if err != nil {
		t.Fatalf("call story_get: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatalf("expected tool error, got %+v", result)
	}
}

func TestAddMCPToolRejectsUnknownHandler(t *testing.T) {
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "1.0"}, nil)
	err := addMCPTool(server, &mcp.Tool{Name: "bogus"}, func() {})
	if err == nil {
		t.Fatal("expected error for unsupported handler type")
	}
}

func TestResourceSubscribeHandlers(t *testing.T) {
	if err := resourceSubscribeHandler(context.Background(), &mcp.SubscribeRequest{Params: &mcp.SubscribeParams{URI: "story://sessions"}}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := resourceSubscribeHandler(context.Background(), &mcp.SubscribeRequest{Params: &mcp.SubscribeParams{}}); err == nil {
		t.Fatal("expected error for empty subscribe uri")
	}
	if err := resourceUnsubscribeHandler(context.Background(), &mcp.UnsubscribeRequest{Params: &mcp.UnsubscribeParams{URI: "story://sessions"}}); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if err := resourceUnsubscribeHandler(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil unsubscribe request")
	}
}

func TestCompletionHandlerReturnsEmpty(t *testing.T) {
	result, err := completionHandler(context.Background(), nil)
	if err != nil {
		t.Fatalf("completion: %v", err)
	}
	if result == nil || len(result.Completion.Values) != 0 {
		t.Fatalf("completion result = %+v", result)
	}
}
