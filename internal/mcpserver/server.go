// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Lesari annotation tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/arnaldur/lesari/internal/annotations"
)

// Server wraps the MCP server with Lesari tools.
type Server struct {
	mcp   *server.MCPServer
	store *annotations.Store
}

// New creates a new MCP server with all Lesari tools registered.
func New(store *annotations.Store) *Server {
	s := &Server{store: store}

	s.mcp = server.NewMCPServer(
		"Lesari",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_annotations",
		mcp.WithDescription("List a reader's annotations, scoped to a book and optionally a chapter or section."),
		mcp.WithString("book", mcp.Required(), mcp.Description("Book slug")),
		mcp.WithString("chapter", mcp.Description("Optional chapter slug")),
		mcp.WithString("section", mcp.Description("Optional section slug (requires chapter)")),
	), s.listAnnotations)

	s.mcp.AddTool(mcp.NewTool("get_annotation",
		mcp.WithDescription("Read one annotation by id, including its text anchor."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Annotation id (e.g. ann-V1StGXR8_Z5jdHi6B-myT)")),
	), s.getAnnotation)

	s.mcp.AddTool(mcp.NewTool("search_annotations",
		mcp.WithDescription("Substring search over highlighted text and notes."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchAnnotations)

	s.mcp.AddTool(mcp.NewTool("annotation_stats",
		mcp.WithDescription("Aggregate annotation counts: total, by color, by chapter, with notes."),
		mcp.WithString("book", mcp.Description("Optional book slug to scope the statistics")),
	), s.annotationStats)

	s.mcp.AddTool(mcp.NewTool("export_annotations",
		mcp.WithDescription("Export a book's annotations as a markdown document."),
		mcp.WithString("book", mcp.Required(), mcp.Description("Book slug")),
	), s.exportAnnotations)

	// Resource: anchor format contract.
	s.mcp.AddResource(
		mcp.NewResource("lesari://anchor-format", "Text Anchor Contract",
			mcp.WithResourceDescription("The portable text anchor format annotations are stored in."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readAnchorFormatResource,
	)

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

func (s *Server) listAnnotations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	book, err := req.RequireString("book")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	chapter := ""
	if v, err := req.RequireString("chapter"); err == nil {
		chapter = v
	}
	section := ""
	if v, err := req.RequireString("section"); err == nil {
		section = v
	}

	var items any
	switch {
	case chapter != "" && section != "":
		items = s.store.ForSection(ctx, book, chapter, section)
	case chapter != "":
		items = s.store.ForChapter(ctx, book, chapter)
	case section != "":
		return mcp.NewToolResultError("section requires chapter"), nil
	default:
		items = s.store.ForBook(ctx, book)
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getAnnotation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, ok := s.store.ByID(ctx, id)
	if !ok {
		return mcp.NewToolResultError("not found: " + id), nil
	}
	out, _ := json.MarshalIndent(a, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchAnnotations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	needle := strings.ToLower(query)

	var hits []string
	for _, a := range s.store.All(ctx) {
		if strings.Contains(strings.ToLower(a.SelectedText), needle) ||
			strings.Contains(strings.ToLower(a.Note), needle) {
			hits = append(hits, a.ID+"\t"+a.BookSlug+"/"+a.ChapterSlug+"/"+a.SectionSlug+"\t"+a.SelectedText)
		}
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("no annotations matched"), nil
	}
	return mcp.NewToolResultText(strings.Join(hits, "\n")), nil
}

func (s *Server) annotationStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	book := ""
	if v, err := req.RequireString("book"); err == nil {
		book = v
	}
	out, _ := json.MarshalIndent(s.store.Stats(ctx, book), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) exportAnnotations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	book, err := req.RequireString("book")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.store.Export(ctx, book)), nil
}

func (s *Server) readAnchorFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "lesari://anchor-format",
			MIMEType: "text/markdown",
			Text:     AnchorFormatContract,
		},
	}, nil
}
