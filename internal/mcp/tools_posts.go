package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"folio/internal/domain"
	"folio/internal/grid"
	"folio/internal/templates"
)

func (s *Server) registerPostTools() {
	// ── list_posts ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List posts. By default only published posts, pinned first."),
		mcp.WithBoolean("all", mcp.Description("Include drafts (optional)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of published posts (optional)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListPosts)

	// ── get_post ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_post",
		mcp.WithDescription("Get a post by slug, normalized to its grid or markup shape"),
		mcp.WithString("slug", mcp.Description("Post slug"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetPost)

	// ── render_post ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("render_post",
		mcp.WithDescription("Render a post in read or editable mode. Returns the grid view, or HTML with format=html."),
		mcp.WithString("slug", mcp.Description("Post slug"), mcp.Required()),
		mcp.WithString("mode", mcp.Description("read (default) or editable")),
		mcp.WithString("format", mcp.Description("view (default) or html")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleRenderPost)

	// ── list_templates ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List the layout templates a new post can start from"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListTemplates)
}

type postSummary struct {
	ID          string        `json:"id"`
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Status      domain.Status `json:"status"`
	PinPosition *int          `json:"pinPosition,omitempty"`
	Blocks      int           `json:"blocks"`
	Markup      bool          `json:"markup"`
}

func summarizePost(n *domain.StudyNote) postSummary {
	return postSummary{
		ID:          n.ID,
		Slug:        n.Slug,
		Title:       n.Title,
		Status:      n.Status,
		PinPosition: n.PinPosition,
		Blocks:      len(n.Blocks),
		Markup:      n.IsMarkup(),
	}
}

func (s *Server) handleListPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	var (
		notes []*domain.StudyNote
		err   error
	)
	if all, _ := args["all"].(bool); all {
		notes, err = s.posts.ListAll(ctx)
	} else {
		notes, err = s.posts.ListPublished(ctx, optInt(args, "limit", 0))
	}
	if err != nil {
		return errorResult(err), nil
	}
	out := make([]postSummary, len(notes))
	for i, n := range notes {
		out[i] = summarizePost(n)
	}
	return jsonResult(out)
}

func (s *Server) handleGetPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := stringArg(req.GetArguments(), "slug")
	if err != nil {
		return errorResult(err), nil
	}
	n, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(n)
}

func (s *Server) handleRenderPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	slug, err := stringArg(args, "slug")
	if err != nil {
		return errorResult(err), nil
	}
	mode, err := grid.ParseMode(optString(args, "mode", string(grid.ModeRead)))
	if err != nil {
		return errorResult(err), nil
	}
	n, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return errorResult(err), nil
	}

	view := s.posts.Render(n, mode)
	if optString(args, "format", "view") == "html" {
		out, err := view.HTML()
		if err != nil {
			return errorResult(err), nil
		}
		return textResult(out), nil
	}
	return jsonResult(view)
}

type templateSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slots int    `json:"slots"`
}

func (s *Server) handleListTemplates(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list := templates.List()
	out := make([]templateSummary, len(list))
	for i, t := range list {
		out[i] = templateSummary{ID: t.ID, Name: t.Name, Slots: t.Slots()}
	}
	return jsonResult(out)
}
