// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Jera tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/jera/internal/postservice"
	"github.com/starford/jera/internal/storage"
)

// Server wraps the MCP server with Jera tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *postservice.Service
	store storage.Provider
}

// New creates a new MCP server with all Jera tools registered.
func New(svc *postservice.Service, store storage.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"Jera",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_posts",
		mcp.WithDescription("Full-text search through post content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPosts)

	s.mcp.AddTool(mcp.NewTool("read_post",
		mcp.WithDescription("Read the full content of a post document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the post (e.g. 2025-11-01-my-post/index.md)")),
	), s.readPost)

	s.mcp.AddTool(mcp.NewTool("create_post",
		mcp.WithDescription("Scaffold a new post bundle: a date-prefixed directory with an "+
			"entry document and an assets directory. Content MUST follow the canonical post "+
			"format (YAML frontmatter with title and date, bundle-relative image references). "+
			"Read the contract first via the get_post_contract tool or the jera://post-format resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Post title (drives the bundle slug)")),
		mcp.WithString("date", mcp.Description("Publication date YYYY-MM-DD (defaults to today)")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithBoolean("draft", mcp.Description("Mark the post as a draft")),
		mcp.WithString("body", mcp.Description("Markdown body following the Jera post format contract")),
	), s.createPost)

	s.mcp.AddTool(mcp.NewTool("get_post_contract",
		mcp.WithDescription("Returns the canonical Jera post format contract. "+
			"Call this before creating or updating posts to ensure correct structure."),
	), s.getPostContract)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List posts, optionally filtered by tag or draft status."),
		mcp.WithString("tag", mcp.Description("Optional tag to filter by")),
		mcp.WithString("drafts", mcp.Description("Draft filter: 'only' or 'exclude' (empty for all)")),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("check_bundle",
		mcp.WithDescription("Check asset-reference integrity: every reference in a post must "+
			"be bundle-relative and resolve to an existing file inside the bundle."),
		mcp.WithString("bundle", mcp.Description("Bundle directory to check (empty checks every bundle)")),
	), s.checkBundle)

	s.mcp.AddTool(mcp.NewTool("migrate_post",
		mcp.WithDescription("Convert a legacy flat Markdown post into a page bundle."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the flat post (e.g. 2021-05-05-old-post.md)")),
	), s.migratePost)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download or decode an asset and store it inside a bundle's assets "+
			"directory. Returns a bundle-relative markdownImage snippet to paste into the post body."),
		mcp.WithString("bundle", mcp.Required(), mcp.Description("Bundle directory the asset belongs to")),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP(S) URL or base64 data URI of the asset")),
		mcp.WithString("filename", mcp.Description("Optional filename override")),
	), s.uploadAsset)

	// Resource: post format contract.
	s.mcp.AddResource(
		mcp.NewResource("jera://post-format", "Post Format Contract",
			mcp.WithResourceDescription("Canonical page-bundle post format that all posts must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPostFormatResource,
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

func (s *Server) searchPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	post, err := s.svc.GetPost(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(post.Content), nil
}

func (s *Server) createPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := postservice.CreateInput{Title: title}
	if v, dErr := req.RequireString("date"); dErr == nil && v != "" {
		d, pErr := time.Parse("2006-01-02", v)
		if pErr != nil {
			return mcp.NewToolResultError("date must be YYYY-MM-DD"), nil
		}
		in.Date = d
	}
	if v, tErr := req.RequireString("tags"); tErr == nil && v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				in.Tags = append(in.Tags, tag)
			}
		}
	}
	if v, bErr := req.RequireBool("draft"); bErr == nil {
		in.Draft = v
	}
	if v, bErr := req.RequireString("body"); bErr == nil {
		in.Body = v
	}

	post, err := s.svc.CreatePost(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", post.Path)), nil
}

func (s *Server) listPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := ""
	if v, err := req.RequireString("tag"); err == nil {
		tag = v
	}
	drafts := ""
	if v, err := req.RequireString("drafts"); err == nil {
		drafts = v
	}

	items, _, err := s.svc.ListPosts(ctx, 0, 0, tag, drafts, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) checkBundle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := ""
	if v, err := req.RequireString("bundle"); err == nil {
		dir = v
	}

	if dir != "" {
		rep, err := s.svc.CheckBundle(ctx, dir)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, _ := json.MarshalIndent(rep, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	}

	reports, err := s.svc.CheckAll(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(reports, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) migratePost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, err := s.svc.MigratePost(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("migrated: %s -> %s", path, dir)), nil
}

func (s *Server) getPostContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PostFormatContract), nil
}

func (s *Server) readPostFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "jera://post-format",
			MIMEType: "text/markdown",
			Text:     PostFormatContract,
		},
	}, nil
}
