// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Chronicle vault tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/chronicle/internal/apperr"
	"github.com/starford/chronicle/internal/engine"
	"github.com/starford/chronicle/internal/search"
)

// ContractURI is the resource URI of the note format contract.
const ContractURI = "chronicle://note-format"

// Server wraps the MCP server with Chronicle tools.
type Server struct {
	mcp    *server.MCPServer
	e      *engine.Engine
	logger *slog.Logger
}

// New creates a new MCP server with all Chronicle tools registered.
func New(e *engine.Engine, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{e: e, logger: logger}

	s.mcp = server.NewMCPServer(
		"Chronicle",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search note bodies line by line. Returns one hit per matching line with a highlighted snippet."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text, or a regular expression when regex is true")),
		mcp.WithBoolean("regex", mcp.Description("Treat query as a regular expression")),
		mcp.WithBoolean("case_sensitive", mcp.Description("Match case exactly")),
		mcp.WithString("type", mcp.Description("Only documents of this frontmatter type")),
		mcp.WithString("path", mcp.Description("Only documents under this path prefix")),
		mcp.WithNumber("page", mcp.Description("1-based result page")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note together with its checksum."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path to the note (e.g. projects/plan.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("save_note",
		mcp.WithDescription("Create or overwrite a Markdown note. "+
			"Content MUST follow the note format contract. Read it first via "+
			"the get_note_contract tool or the "+ContractURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path for the note (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full Markdown content including frontmatter")),
		mcp.WithString("if_match", mcp.Description("Checksum from read_note; the save fails if the note changed since")),
	), s.saveNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the Chronicle note format contract. "+
			"Call this before creating or updating notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List every note with its title, type and tags."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Return the page tree of the vault as nested JSON."),
	), s.getTree)

	s.mcp.AddTool(mcp.NewTool("check_links",
		mcp.WithDescription("Find relative links whose target does not exist, with a suggested replacement."),
	), s.checkLinks)

	s.mcp.AddTool(mcp.NewTool("gc_preview",
		mcp.WithDescription("List unreferenced images that asset garbage collection would delete. Deletes nothing."),
	), s.gcPreview)

	s.mcp.AddTool(mcp.NewTool("create_daily",
		mcp.WithDescription("Create the daily report for a date, carrying over open tasks from the previous report."),
		mcp.WithString("date", mcp.Description("YYYY-MM-DD; empty means today")),
	), s.createDaily)

	s.mcp.AddTool(mcp.NewTool("git_log",
		mcp.WithDescription("List vault history, newest first."),
		mcp.WithNumber("page", mcp.Description("1-based page")),
		mcp.WithNumber("per_page", mcp.Description("Commits per page")),
	), s.gitLog)

	s.mcp.AddTool(mcp.NewTool("git_commit",
		mcp.WithDescription("Commit vault changes. Without files the whole vault is committed after asset garbage collection."),
		mcp.WithString("message", mcp.Required(), mcp.Description("Commit message")),
		mcp.WithArray("files", mcp.WithStringItems(), mcp.Description("Optional vault-relative paths to commit")),
	), s.gitCommit)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Store an image from an http(s) URL or a base64 data URI in the vault. "+
			"Returns a markdownImage field ready to paste into a note."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Original file name, used to pick the extension")),
		mcp.WithString("note", mcp.Description("Note that will embed the image; the returned link is relative to it")),
	), s.uploadAsset)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Note Format Contract",
			mcp.WithResourceDescription("Markdown note format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

// toolError turns an engine failure into a tool error result. Unexpected
// failures are logged and reported generically.
func (s *Server) toolError(op string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrInvalidPath),
		errors.Is(err, apperr.ErrInvalidQuery), errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrUpstream):
		return mcp.NewToolResultError(err.Error())
	default:
		s.logger.Error("mcp "+op+" failed", slog.String("error", err.Error()))
		return mcp.NewToolResultError(op + ": internal error")
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.e.Search.Search(ctx, search.Query{
		Q:             query,
		Regex:         req.GetBool("regex", false),
		CaseSensitive: req.GetBool("case_sensitive", false),
		Type:          req.GetString("type", ""),
		Path:          req.GetString("path", ""),
		Page:          req.GetInt("page", 1),
	})
	if err != nil {
		return s.toolError("search", err), nil
	}
	return jsonResult(page), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.e.Notes.Get(ctx, path)
	if err != nil {
		return s.toolError("read note", err), nil
	}
	return jsonResult(note), nil
}

func (s *Server) saveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.e.Notes.Save(ctx, path, []byte(content), req.GetString("if_match", ""))
	if err != nil {
		return s.toolError("save note", err), nil
	}
	return jsonResult(map[string]string{"path": note.Path, "checksum": note.Checksum}), nil
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.e.Notes.List(ctx)
	if err != nil {
		return s.toolError("list notes", err), nil
	}
	return jsonResult(items), nil
}

func (s *Server) getTree(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := s.e.Tree.Build(ctx)
	if err != nil {
		return s.toolError("tree", err), nil
	}
	return jsonResult(root), nil
}

func (s *Server) checkLinks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	broken, err := s.e.Links.Check(ctx)
	if err != nil {
		return s.toolError("check links", err), nil
	}
	if len(broken) == 0 {
		return mcp.NewToolResultText("no broken links found"), nil
	}
	return jsonResult(broken), nil
}

func (s *Server) gcPreview(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.e.GC.Preview(ctx)
	if err != nil {
		return s.toolError("gc preview", err), nil
	}
	return jsonResult(rep), nil
}

func (s *Server) createDaily(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.e.Daily.CreateToday(ctx, req.GetString("date", ""))
	if err != nil {
		return s.toolError("create daily", err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) gitLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.e.History.Log(ctx, req.GetInt("page", 1), req.GetInt("per_page", 0))
	if err != nil {
		return s.toolError("git log", err), nil
	}
	return jsonResult(page), nil
}

func (s *Server) gitCommit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.e.History.Commit(ctx, msg, req.GetStringSlice("files", nil))
	if err != nil {
		return s.toolError("git commit", err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) getNoteContract(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
