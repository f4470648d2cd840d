package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/taleweave/internal/platform/errors"
	"github.com/louisbranch/taleweave/internal/story/session"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SessionStore is the story store surface the MCP tools drive.
type SessionStore interface {
	Create(ctx context.Context, initialDocument map[string]any) (session.Session, error)
	Get(ctx context.Context, sessionID string) (session.Session, error)
	List(ctx context.Context) ([]session.Session, error)
	Mutate(ctx context.Context, sessionID, pathExpr string, value any) (session.Session, error)
	AdvanceNarrative(ctx context.Context, sessionID, text string) (session.Session, error)
	OfferChoices(ctx context.Context, sessionID string, options []string) (session.Session, error)
	SelectChoice(ctx context.Context, sessionID, selectedOption string, selectedIndex int) (session.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// StoryCreateInput represents the MCP tool input for creating a session.
type StoryCreateInput struct {
	Document map[string]any `json:"document,omitempty" jsonschema:"initial game document; any JSON object, no schema enforced"`
}

// StoryCreateTool defines the MCP tool schema for creating a session.
func StoryCreateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "story_create",
		Description: "Creates a new story session from an arbitrary initial game document and returns the full session.",
	}
}

// StoryCreateHandler executes a session create request.
func StoryCreateHandler(store SessionStore) mcp.ToolHandlerFor[StoryCreateInput, SessionView] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input StoryCreateInput) (*mcp.CallToolResult, SessionView, error) {
		if store == nil {
			return nil, SessionView{}, fmt.Errorf("session store is not configured")
		}

		created, err := store.Create(ctx, input.Document)
		if err != nil {
			return nil, SessionView{}, errors.HandleError(err)
		}
		return nil, NewSessionView(created), nil
	}
}

// StoryGetInput represents the MCP tool input for reading a session.
type StoryGetInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
}

// StoryGetTool defines the MCP tool schema for reading a session.
func StoryGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "story_get",
		Description: "Returns the full session, including document, pending deltas, history, and active choices. Pure read.",
	}
}

// StoryGetHandler executes a session read request.
func StoryGetHandler(store SessionStore) mcp.ToolHandlerFor[StoryGetInput, SessionView] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input StoryGetInput) (*mcp.CallToolResult, SessionView, error) {
		if store == nil {
			return nil, SessionView{}, fmt.Errorf("session store is not configured")
		}
		sessionID := strings.TrimSpace(input.SessionID)
		if sessionID == "" {
			return nil, SessionView{}, fmt.Errorf("session_id is required")
		}

		loaded, err := store.Get(ctx, sessionID)
		if err != nil {
			return nil, SessionView{}, errors.HandleError(err)
		}
		return nil, NewSessionView(loaded), nil
	}
}

// StoryUpdateInput represents the MCP tool input for mutating a field.
type StoryUpdateInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
	Field     string `json:"field" jsonschema:"path expression to write, e.g. characters[0].hp or world.location"`
	Value     any    `json:"value" jsonschema:"new value; any JSON value, overwrites whatever was there"`
}

// StoryUpdateTool defines the MCP tool schema for mutating a field.
func StoryUpdateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "story_update",
		Description: "Writes a value at a path expression inside the game document, creating nested structure as needed, and records the change in the pending delta log.",
	}
}

// StoryUpdateHandler executes a field mutation request.
func StoryUpdateHandler(store SessionStore) mcp.ToolHandlerFor[StoryUpdateInput, SessionView] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input StoryUpdateInput) (*mcp.CallToolResult, SessionView, error) {
		if store == nil {
			return nil, SessionView{}, fmt.Errorf("session store is not configured")
		}
		sessionID := strings.TrimSpace(input.SessionID)
		if sessionID == "" {
			return nil, SessionView{}, fmt.Errorf("session_id is required")
		}

		updated, err := store.Mutate(ctx, sessionID, input.Field, input.Value)
		if err != nil {
			return nil, SessionView{}, errors.HandleError(err)
		}
		return nil, NewSessionView(updated), nil
	}
}

// StoryAdvanceInput represents the MCP tool input for advancing the narrative.
type StoryAdvanceInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
	Text      string `json:"text" jsonschema:"narrative text to show the player"`
}

// StoryAdvanceTool defines the MCP tool schema for advancing the narrative.
func StoryAdvanceTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "story_advance",
		Description: "Records the narrative text shown to the player. Produces no delta entry; narration is not a tracked field mutation.",
	}
}

// StoryAdvanceHandler executes a narrative advance request.
func StoryAdvanceHandler(store SessionStore) mcp.ToolHandlerFor[StoryAdvanceInput, SessionView] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input StoryAdvanceInput) (*mcp.CallToolResult, SessionView, error) {
		if store == nil {
			return nil, SessionView{}, fmt.Errorf("session store is not configured")
		}
		sessionID := strings.TrimSpace(input.SessionID)
		if sessionID == "" {
			return nil, SessionView{}, fmt.Errorf("session_id is required")
		}

		updated, err := store.AdvanceNarrative(ctx, sessionID, input.Text)
		if err != nil {
			return nil, SessionView{}, errors.HandleError(err)
		}
		return nil, NewSessionView(updated), nil
	}
}

// StoryDeleteInput represents the MCP tool input for deleting a session.
type StoryDeleteInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
}

// StoryDeleteResult represents the MCP tool output for deleting a session.
type StoryDeleteResult struct {
	SessionID string `json:"session_id" jsonschema:"identifier of the deleted session"`
	Deleted   bool   `json:"deleted" jsonschema:"true when the session was removed"`
}

// StoryDeleteTool defines the MCP tool schema for deleting a session.
func StoryDeleteTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "story_delete",
		Description: "Removes a session from the store. Sessions otherwise live until the process ends.",
	}
}

// StoryDeleteHandler executes a session delete request.
func StoryDeleteHandler(store SessionStore) mcp.ToolHandlerFor[StoryDeleteInput, StoryDeleteResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input StoryDeleteInput) (*mcp.CallToolResult, StoryDeleteResult, error) {
		if store == nil {
			return nil, StoryDeleteResult{}, fmt.Errorf("session store is not configured")
		}
		sessionID := strings.TrimSpace(input.SessionID)
		if sessionID == "" {
			return nil, StoryDeleteResult{}, fmt.Errorf("session_id is required")
		}

		if err := store.Delete(ctx, sessionID); err != nil {
			return nil, StoryDeleteResult{}, errors.HandleError(err)
		}
		return nil, StoryDeleteResult{SessionID: sessionID, Deleted: true}, nil
	}
}
