package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/taleweave/internal/platform/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ChoicesOfferInput represents the MCP tool input for offering choices.
type ChoicesOfferInput struct {
	SessionID string   `json:"session_id" jsonschema:"session identifier"`
	Options   []string `json:"options" jsonschema:"ordered choice texts to offer the player; must be non-empty"`
}

// ChoicesOfferTool defines the MCP tool schema for offering choices.
func ChoicesOfferTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "story_offer_choices",
		Description: "Offers a choice set to the player and clears the pending delta log. The result still carries the deltas accumulated since choices were last offered; read them from this result before the next call.",
	}
}

// ChoicesOfferHandler executes a choice offer request.
func ChoicesOfferHandler(store SessionStore) mcp.ToolHandlerFor[ChoicesOfferInput, SessionView] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ChoicesOfferInput) (*mcp.CallToolResult, SessionView, error) {
		if store == nil {
			return nil, SessionView{}, fmt.Errorf("session store is not configured")
		}
		sessionID := strings.TrimSpace(input.SessionID)
		if sessionID == "" {
			return nil, SessionView{}, fmt.Errorf("session_id is required")
		}

		offered, err := store.OfferChoices(ctx, sessionID, input.Options)
		if err != nil {
			return nil, SessionView{}, errors.HandleError(err)
		}
		return nil, NewSessionView(offered), nil
	}
}

// ChoiceSelectInput represents the MCP tool input for recording a selection.
type ChoiceSelectInput struct {
	SessionID      string `json:"session_id" jsonschema:"session identifier"`
	SelectedOption string `json:"selected_option" jsonschema:"text of the chosen option"`
	SelectedIndex  int    `json:"selected_index" jsonschema:"zero-based index of the chosen option"`
}

// ChoiceSelectTool defines the MCP tool schema for recording a selection.
func ChoiceSelectTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "story_select_choice",
		Description: "Records which offered option the player chose, appending a decision point to the rolling history. Requires a prior story_advance and story_offer_choices.",
	}
}

// ChoiceSelectHandler executes a choice selection request.
func ChoiceSelectHandler(store SessionStore) mcp.ToolHandlerFor[ChoiceSelectInput, SessionView] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ChoiceSelectInput) (*mcp.CallToolResult, SessionView, error) {
		if store == nil {
			return nil, SessionView{}, fmt.Errorf("session store is not configured")
		}
		sessionID := strings.TrimSpace(input.SessionID)
		if sessionID == "" {
			return nil, SessionView{}, fmt.Errorf("session_id is required")
		}

		chosen, err := store.SelectChoice(ctx, sessionID, input.SelectedOption, input.SelectedIndex)
		if err != nil {
			return nil, SessionView{}, errors.HandleError(err)
		}
		return nil, NewSessionView(chosen), nil
	}
}
