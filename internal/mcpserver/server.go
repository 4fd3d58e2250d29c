// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes timestamp tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/frontmatter"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/state"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/storage"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/tracker"
)

// Server wraps the MCP server with the daemon's tools.
type Server struct {
	mcp     *server.MCPServer
	store   storage.Provider
	tracker *tracker.Tracker
	stamper tracker.Stamper
	db      state.Store

	createdKey  string
	modifiedKey string
}

// New creates a new MCP server with all tools registered.
func New(store storage.Provider, tr *tracker.Tracker, st tracker.Stamper, db state.Store, createdKey, modifiedKey string) *Server {
	s := &Server{
		store:       store,
		tracker:     tr,
		stamper:     st,
		db:          db,
		createdKey:  createdKey,
		modifiedKey: modifiedKey,
	}

	s.mcp = server.NewMCPServer(
		"FrontMatterTimestamps",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("touch_note",
		mcp.WithDescription("Update the modified timestamp in a note's front matter."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.touchNote)

	s.mcp.AddTool(mcp.NewTool("note_times",
		mcp.WithDescription("Read the created and modified timestamps from a note's front matter."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note")),
	), s.noteTimes)

	s.mcp.AddTool(mcp.NewTool("set_active_note",
		mcp.WithDescription("Report the currently focused note so edits to the previous one are stamped."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the newly focused note")),
	), s.setActiveNote)

	s.mcp.AddTool(mcp.NewTool("sync_vault",
		mcp.WithDescription("Scan the vault for documents changed since the last run and stamp them."),
	), s.syncVault)

	s.mcp.AddTool(mcp.NewTool("stamp_history",
		mcp.WithDescription("List recent timestamp stamp events, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of events to return (default 50)")),
	), s.stampHistory)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) touchNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.stamper.StampModified(ctx, path); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stamp failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("stamped %s", path)), nil
}

func (s *Server) noteTimes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}

	times := map[string]string{}
	if v, ok := frontmatter.Get(data, s.createdKey); ok {
		times[s.createdKey] = v
	}
	if v, ok := frontmatter.Get(data, s.modifiedKey); ok {
		times[s.modifiedKey] = v
	}
	out, _ := json.MarshalIndent(times, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) setActiveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.tracker.OnActiveChange(ctx, path)
	return mcp.NewToolResultText(fmt.Sprintf("active: %s", s.tracker.Active())), nil
}

func (s *Server) syncVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stamped, err := s.tracker.Sync(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("sync failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("stamped %d documents", stamped)), nil
}

func (s *Server) stampHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 50)
	stamps, err := s.db.RecentStamps(limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	out, _ := json.MarshalIndent(stamps, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
