// Package domain translates MCP tool calls into story store operations.
//
// The package is intentionally explicit about that mapping:
// - decode MCP tool input into store arguments,
// - route calls to the session store,
// - and surface the full session as structured output MCP clients can render.
//
// Every tool returns the complete session, including the bookkeeping the
// store derives from mutations; the narrator decides what to show next.
package domain
