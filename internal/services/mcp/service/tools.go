package service

import (
	"fmt"

	"github.com/louisbranch/taleweave/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type mcpRegistrationTarget interface {
	AddTool(*mcp.Tool, any) error
	AddResourceTemplate(*mcp.ResourceTemplate, mcp.ResourceHandler)
	AddResource(*mcp.Resource, mcp.ResourceHandler)
}

func registerStoryTools(registrar mcpRegistrationTarget, store domain.SessionStore) error {
	registrations := []struct {
		tool    *mcp.Tool
		handler any
	}{
		{tool: domain.StoryCreateTool(), handler: domain.StoryCreateHandler(store)},
		{tool: domain.StoryGetTool(), handler: domain.StoryGetHandler(store)},
		{tool: domain.StoryUpdateTool(), handler: domain.StoryUpdateHandler(store)},
		{tool: domain.StoryAdvanceTool(), handler: domain.StoryAdvanceHandler(store)},
		{tool: domain.StoryDeleteTool(), handler: domain.StoryDeleteHandler(store)},
	}
	for _, registration := range registrations {
		if err := registerTool(registrar, registration.tool, registration.handler); err != nil {
			return err
		}
	}
	return nil
}

func registerChoiceTools(registrar mcpRegistrationTarget, store domain.SessionStore) error {
	if err := registerTool(registrar, domain.ChoicesOfferTool(), domain.ChoicesOfferHandler(store)); err != nil {
		return err
	}
	return registerTool(registrar, domain.ChoiceSelectTool(), domain.ChoiceSelectHandler(store))
}

func registerTool(registrar mcpRegistrationTarget, tool *mcp.Tool, handler any) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	return registrar.AddTool(tool, handler)
}

// registerSessionResources registers readable session MCP resources.
func registerSessionResources(registrar mcpRegistrationTarget, store domain.SessionStore) {
	registrar.AddResource(domain.SessionListResource(), domain.SessionListResourceHandler(store))
	registrar.AddResourceTemplate(domain.SessionResourceTemplate(), domain.SessionResourceHandler(store))
}
