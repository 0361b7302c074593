// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes edital tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/edital/internal/apperr"
	"github.com/starford/edital/internal/tracker"
)

const formatURI = "edital://outline-format"

// Server wraps the MCP server with edital tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *tracker.Service
	owner string
}

// New creates a new MCP server with all edital tools registered. owner is
// used when a tool call does not name one.
func New(svc *tracker.Service, owner string) *Server {
	s := &Server{svc: svc, owner: owner}

	s.mcp = server.NewMCPServer(
		"Edital",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	ownerArg := mcp.WithString("owner", mcp.Description("Owner id (defaults to the configured owner)"))
	idArg := mcp.WithString("id", mcp.Required(), mcp.Description("Subject id"))

	s.mcp.AddTool(mcp.NewTool("list_subjects",
		mcp.WithDescription("List the owner's subjects with their completion percentage."),
		ownerArg,
	), s.listSubjects)

	s.mcp.AddTool(mcp.NewTool("create_subject",
		mcp.WithDescription("Create a subject from an outline. The outline MUST follow the "+
			"edital outline format; read it first via get_outline_contract or the "+
			formatURI+" resource."),
		ownerArg,
		mcp.WithString("name", mcp.Required(), mcp.Description("Subject name")),
		mcp.WithString("outline", mcp.Required(), mcp.Description("Outline text, one topic per line")),
	), s.createSubject)

	s.mcp.AddTool(mcp.NewTool("get_outline",
		mcp.WithDescription("Return a subject's topics as editable outline text, with (lido) on done topics."),
		ownerArg, idArg,
	), s.getOutline)

	s.mcp.AddTool(mcp.NewTool("update_subject",
		mcp.WithDescription("Replace a subject's name and whole topic tree from edited outline text."),
		ownerArg, idArg,
		mcp.WithString("name", mcp.Required(), mcp.Description("Subject name")),
		mcp.WithString("outline", mcp.Required(), mcp.Description("Edited outline text")),
		mcp.WithString("revision", mcp.Description("Expected current revision; the update fails if it changed")),
	), s.updateSubject)

	s.mcp.AddTool(mcp.NewTool("toggle_topic",
		mcp.WithDescription("Flip the done mark of one topic."),
		ownerArg, idArg,
		mcp.WithArray("path", mcp.Required(),
			mcp.Description("Zero-based indexes: top-level topic first, then children"),
			mcp.Items(map[string]any{"type": "integer", "minimum": 0}),
		),
	), s.toggleTopic)

	s.mcp.AddTool(mcp.NewTool("delete_subject",
		mcp.WithDescription("Delete a subject."),
		ownerArg, idArg,
	), s.deleteSubject)

	s.mcp.AddTool(mcp.NewTool("import_outline",
		mcp.WithDescription("Create a subject from an outline file at an http(s) URL or in a "+
			"text/plain data URI. The subject is named after the file unless name is given."),
		ownerArg,
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:text/plain;base64,... URI")),
		mcp.WithString("name", mcp.Description("Subject name")),
	), s.importOutline)

	s.mcp.AddTool(mcp.NewTool("get_outline_contract",
		mcp.WithDescription("Returns the edital outline format. "+
			"Call this before creating or updating subjects."),
	), s.getOutlineContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Outline Format Contract",
			mcp.WithResourceDescription("Outline text format used for subjects and topics."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readOutlineFormatResource,
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

func (s *Server) ownerOf(req mcp.CallToolRequest) string {
	return req.GetString("owner", s.owner)
}

// toolError turns a domain error into a tool error result.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("revision mismatch: read the subject again")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

type subjectSummary struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
	Items      int     `json:"items"`
	Done       int     `json:"done"`
	Revision   string  `json:"revision"`
}

func summary(d tracker.SubjectDetail) subjectSummary {
	return subjectSummary{
		ID:         d.ID,
		Name:       d.Name,
		Percentage: d.Percentage,
		Items:      d.Items,
		Done:       d.Done,
		Revision:   d.Revision,
	}
}

func (s *Server) listSubjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.List(ctx, s.ownerOf(req))
	if err != nil {
		return toolError(err), nil
	}
	out := make([]subjectSummary, len(items))
	for i := range items {
		out[i] = summary(items[i])
	}
	return jsonResult(out), nil
}

func (s *Server) createSubject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("outline")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Create(ctx, s.ownerOf(req), name, text)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(summary(*d)), nil
}

func (s *Server) getOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.svc.EditText(ctx, s.ownerOf(req), id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) updateSubject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("outline")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Update(ctx, s.ownerOf(req), id, name, text, req.GetString("revision", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(summary(*d)), nil
}

func (s *Server) toggleTopic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireIntSlice("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Toggle(ctx, s.ownerOf(req), id, path)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(summary(*d)), nil
}

func (s *Server) deleteSubject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, s.ownerOf(req), id); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) getOutlineContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(OutlineFormatContract), nil
}

func (s *Server) readOutlineFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     OutlineFormatContract,
		},
	}, nil
}

// trimExt drops a .txt or .md extension.
func trimExt(name string) string {
	for _, ext := range []string{".txt", ".md"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}
