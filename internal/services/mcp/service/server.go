package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/taleweave/internal/services/mcp/domain"
	"github.com/louisbranch/taleweave/internal/story/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "taleweave"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// Server hosts the MCP server over an in-memory session store.
type Server struct {
	mcpServer *mcp.Server
	store     domain.SessionStore
}

// New creates a configured MCP server with all story tool and resource
// handlers bound to the provided session store.
func New(sessionStore domain.SessionStore) (*Server, error) {
	if sessionStore == nil {
		return nil, fmt.Errorf("session store is required")
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, &mcp.ServerOptions{
		CompletionHandler:  completionHandler,
		SubscribeHandler:   resourceSubscribeHandler,
		UnsubscribeHandler: resourceUnsubscribeHandler,
	})

	for _, module := range newMCPRegistrationModules(sessionStore) {
		if err := module.register(mcpServerRegistrationAdapter{server: mcpServer}); err != nil {
			return nil, fmt.Errorf("register MCP module %q: %w", module.name, err)
		}
	}

	return &Server{mcpServer: mcpServer, store: sessionStore}, nil
}

// completionHandler handles completion/complete requests with empty results.
// Story tool arguments are free-form path expressions and narrative text, so
// there is no stable vocabulary to complete from.
func completionHandler(ctx context.Context, req *mcp.CompleteRequest) (*mcp.CompleteResult, error) {
	return &mcp.CompleteResult{
		Completion: mcp.CompletionResultDetails{
			Values: []string{},
		},
	}, nil
}

// resourceSubscribeHandler accepts resource subscriptions with a valid URI.
func resourceSubscribeHandler(_ context.Context, req *mcp.SubscribeRequest) error {
	if req == nil || req.Params == nil || strings.TrimSpace(req.Params.URI) == "" {
		return fmt.Errorf("resource uri is required")
	}
	return nil
}

// resourceUnsubscribeHandler accepts resource unsubscriptions with a valid URI.
func resourceUnsubscribeHandler(_ context.Context, req *mcp.UnsubscribeRequest) error {
	if req == nil || req.Params == nil || strings.TrimSpace(req.Params.URI) == "" {
		return fmt.Errorf("resource uri is required")
	}
	return nil
}

// Store returns the session store backing the server.
func (s *Server) Store() domain.SessionStore {
	if s == nil {
		return nil
	}
	return s.store
}

// Serve starts the MCP server on stdio and blocks until it stops or the
// context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// serveWithTransport starts the MCP server using the provided transport.
// Context cancellation is the normal shutdown path and is not an error.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// Run is the service entrypoint for MCP and blocks until context cancellation.
// Sessions live in process memory, so each run starts from an empty store.
func Run(ctx context.Context) error {
	server, err := New(store.New())
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}
