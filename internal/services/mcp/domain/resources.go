package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/louisbranch/taleweave/internal/platform/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SessionListPayload represents the MCP resource payload for session listings.
type SessionListPayload struct {
	Sessions []SessionListEntry `json:"sessions"`
}

// SessionListEntry is one row of the session listing resource.
type SessionListEntry struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Narrative string `json:"narrative,omitempty"`
}

// SessionListResource defines the MCP resource for listing sessions.
func SessionListResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "story_sessions",
		Title:       "Story Sessions",
		Description: "Readable listing of all story sessions in the store",
		MIMEType:    "application/json",
		URI:         "story://sessions",
	}
}

// SessionListResourceHandler returns a readable session listing resource.
func SessionListResourceHandler(store SessionStore) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if store == nil {
			return nil, fmt.Errorf("session store is not configured")
		}

		uri := SessionListResource().URI
		if req != nil && req.Params != nil && req.Params.URI != "" {
			uri = req.Params.URI
		}

		sessions, err := store.List(ctx)
		if err != nil {
			return nil, errors.HandleError(err)
		}

		payload := SessionListPayload{Sessions: []SessionListEntry{}}
		for _, s := range sessions {
			payload.Sessions = append(payload.Sessions, SessionListEntry{
				ID:        s.ID,
				CreatedAt: formatTimestamp(s.CreatedAt),
				UpdatedAt: formatTimestamp(s.UpdatedAt),
				Narrative: s.LastNarrative(),
			})
		}

		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal session list: %w", err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(data),
				},
			},
		}, nil
	}
}

// SessionResourceTemplate defines the MCP resource template for one session.
func SessionResourceTemplate() *mcp.ResourceTemplate {
	return &mcp.ResourceTemplate{
		Name:        "story_session",
		Title:       "Story Session",
		Description: "Readable full session state. URI format: story://sessions/{session_id}",
		MIMEType:    "application/json",
		URITemplate: "story://sessions/{session_id}",
	}
}

// SessionResourceHandler returns a readable single-session resource.
func SessionResourceHandler(store SessionStore) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if store == nil {
			return nil, fmt.Errorf("session store is not configured")
		}
		if req == nil || req.Params == nil || req.Params.URI == "" {
			return nil, fmt.Errorf("session ID is required; use URI format story://sessions/{session_id}")
		}
		uri := req.Params.URI

		sessionID, err := parseSessionIDFromURI(uri)
		if err != nil {
			return nil, fmt.Errorf("parse session ID from URI: %w", err)
		}

		loaded, err := store.Get(ctx, sessionID)
		if err != nil {
			return nil, errors.HandleError(err)
		}

		data, err := json.MarshalIndent(NewSessionView(loaded), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal session: %w", err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(data),
				},
			},
		}, nil
	}
}

// parseSessionIDFromURI extracts the session ID from a URI of the form
// story://sessions/{session_id}.
func parseSessionIDFromURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "story://sessions/")
	if !ok {
		return "", fmt.Errorf("URI %q does not match story://sessions/{session_id}", uri)
	}
	sessionID := strings.TrimSpace(rest)
	if sessionID == "" || strings.Contains(sessionID, "/") {
		return "", fmt.Errorf("URI %q does not contain a valid session ID", uri)
	}
	return sessionID, nil
}
