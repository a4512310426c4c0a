// Package mcpserver exposes posts and editor sessions to AI agents over the
// Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"folio/internal/service"
)

// Server is the MCP server for folio. Tools drive editor sessions the same
// way the admin HTTP routes do; resources expose the stored posts.
type Server struct {
	mcp      *server.MCPServer
	posts    *service.PostService
	sessions *service.SessionRegistry
	emitter  service.EventEmitter
	logger   *log.Logger
}

// Deps holds everything the MCP server needs from the app layer.
type Deps struct {
	Posts    *service.PostService
	Sessions *service.SessionRegistry
	Emitter  service.EventEmitter
	Logger   *log.Logger
	Version  string
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{
		posts:    deps.Posts,
		sessions: deps.Sessions,
		emitter:  deps.Emitter,
		logger:   logger.WithPrefix("mcp"),
	}

	s.mcp = server.NewMCPServer(
		"folio-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerPostTools()
	s.registerEditorTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio runs the server over stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving over stdio")
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for transports other than stdio.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

func (s *Server) emit(ctx context.Context, event string, data any) {
	if s.emitter != nil {
		s.emitter.Emit(ctx, event, data)
	}
}

// ── Result helpers ─────────────────────────────────────────

// textResult wraps text in a tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// errorResult reports a tool-level failure the agent can read and react to.
func errorResult(err error) *mcp.CallToolResult {
	res := textResult(err.Error())
	res.IsError = true
	return res
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
