// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes a generated knowledge base over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notex/internal/index"
	"github.com/starford/notex/internal/noteservice"
)

const defaultSearchLimit = 20

// Server wraps the MCP server with read-only knowledge base tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"notex",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through the generated files."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("category", mcp.Description("Restrict hits to one category folder")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of hits (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read one generated file with its outgoing links and backlinks."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path relative to the output root (e.g. mathematics/linear_algebra.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List generated files, optionally restricted to one top-level category."),
		mcp.WithString("category", mcp.Description("Category folder (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all files that link to the specified file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_layout",
		mcp.WithDescription("Explains how generated files are named, merged and cross-linked. "+
			"Same text as the "+LayoutURI+" resource."),
	), s.getLayout)

	s.mcp.AddResource(
		mcp.NewResource(LayoutURI, "Knowledge Base Layout",
			mcp.WithResourceDescription("How generated files are named, merged and cross-linked."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, index.SearchQuery{
		Text:     query,
		Category: req.GetString("category", ""),
		Limit:    req.GetInt("limit", defaultSearchLimit),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", path, err)), nil
	}

	var b strings.Builder
	b.WriteString(note.Content)
	if len(note.Links) > 0 || len(note.Backlinks) > 0 {
		b.WriteString("\n\n<!-- links -->\n")
		for _, l := range note.Links {
			fmt.Fprintf(&b, "-> %s\n", l.Target)
		}
		for _, p := range note.Backlinks {
			fmt.Fprintf(&b, "<- %s\n", p)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := strings.Trim(req.GetString("category", ""), "/")

	// The catalog pages; walk until every row is collected.
	const page = 500
	var paths []string
	for offset := 0; ; offset += page {
		items, total, err := s.svc.ListNotes(ctx, page, offset, category)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		for _, it := range items {
			paths = append(paths, it.Path)
		}
		if len(items) == 0 || offset+len(items) >= total {
			break
		}
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no files"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getLayout(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LayoutGuide), nil
}

func (s *Server) readLayoutResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LayoutURI,
			MIMEType: "text/markdown",
			Text:     LayoutGuide,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}
