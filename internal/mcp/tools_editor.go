package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"folio/internal/domain"
	"folio/internal/grid"
	"folio/internal/service"
)

func (s *Server) registerEditorTools() {
	// ── open_session ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_session",
		mcp.WithDescription("Open an editor session on an existing post (postId) or on a new draft, optionally seeded from a template"),
		mcp.WithString("postId", mcp.Description("Existing post ID (optional)")),
		mcp.WithString("template", mcp.Description("Template ID for a new draft (optional)")),
	), s.handleOpenSession)

	// ── apply_template ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("apply_template",
		mcp.WithDescription("Replace the session's layout and blocks with a template"),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
		mcp.WithString("template", mcp.Description("Template ID"), mcp.Required()),
	), s.handleApplyTemplate)

	// ── add_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_block",
		mcp.WithDescription("Append a block below the existing content"),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
		mcp.WithString("type", mcp.Description("Block type: text, markdown, code, image"), mcp.Required()),
		mcp.WithString("content", mcp.Description("Initial content (optional, a type default is used otherwise)")),
	), s.handleAddBlock)

	// ── update_block_content ───────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block_content",
		mcp.WithDescription("Replace the content of a block"),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("content", mcp.Description("New content"), mcp.Required()),
	), s.handleUpdateBlockContent)

	// ── update_block_language ──────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block_language",
		mcp.WithDescription("Set the language of a code block"),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("language", mcp.Description("Language name, e.g. go or javascript"), mcp.Required()),
	), s.handleUpdateBlockLanguage)

	// ── delete_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove a block and its layout entry from the draft"),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
		mcp.WithString("blockId", mcp.Description("Block ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)

	// ── update_layout ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_layout",
		mcp.WithDescription("Replace the whole layout. Pass a JSON array of {i, x, y, w, h} items; every i must name an existing block."),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
		mcp.WithString("layout", mcp.Description("JSON array of layout items"), mcp.Required()),
	), s.handleUpdateLayout)

	// ── save_session ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_session",
		mcp.WithDescription("Persist the session's draft. Inserts a new post or updates the existing one."),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
	), s.handleSaveSession)

	// ── undo / redo ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Revert the session's last edit"),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Reapply the last edit reverted with undo"),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
	), s.handleRedo)
}

// sessionState is what every editor tool answers with.
type sessionState struct {
	Session  string            `json:"session"`
	Note     *domain.StudyNote `json:"note"`
	View     grid.View         `json:"view"`
	Selected string            `json:"selected,omitempty"`
	Dirty    bool              `json:"dirty"`
}

func (s *Server) state(sess *service.EditorSession) (*mcp.CallToolResult, error) {
	n := sess.Note()
	return jsonResult(sessionState{
		Session:  sess.ID(),
		Note:     n,
		View:     s.posts.Render(n, grid.ModeEditable),
		Selected: sess.Selected(),
		Dirty:    sess.Dirty(),
	})
}

// withSession resolves sessionId and applies fn. Service errors are reported
// as tool errors so the agent can correct its arguments.
func (s *Server) withSession(req mcp.CallToolRequest, fn func(args map[string]any, sess *service.EditorSession) error) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sid, err := stringArg(args, "sessionId")
	if err != nil {
		return errorResult(err), nil
	}
	sess, err := s.sessions.Get(sid)
	if err != nil {
		return errorResult(err), nil
	}
	if err := fn(args, sess); err != nil {
		return errorResult(err), nil
	}
	return s.state(sess)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleOpenSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sess, err := s.sessions.Open(ctx, service.OpenInput{
		PostID:   optString(args, "postId", ""),
		Template: optString(args, "template", ""),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return s.state(sess)
}

func (s *Server) handleApplyTemplate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withSession(req, func(args map[string]any, sess *service.EditorSession) error {
		id, err := stringArg(args, "template")
		if err != nil {
			return err
		}
		return sess.ApplyTemplate(id)
	})
}

func (s *Server) handleAddBlock(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withSession(req, func(args map[string]any, sess *service.EditorSession) error {
		typ, err := stringArg(args, "type")
		if err != nil {
			return err
		}
		b, _, err := sess.AddBlock(domain.BlockType(typ))
		if err != nil {
			return err
		}
		if content, ok := args["content"].(string); ok && content != "" {
			return sess.UpdateBlockContent(b.ID, content)
		}
		return nil
	})
}

func (s *Server) handleUpdateBlockContent(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withSession(req, func(args map[string]any, sess *service.EditorSession) error {
		id, err := stringArg(args, "blockId")
		if err != nil {
			return err
		}
		content, ok := args["content"].(string)
		if !ok {
			return fmt.Errorf("content is required")
		}
		return sess.UpdateBlockContent(id, content)
	})
}

func (s *Server) handleUpdateBlockLanguage(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withSession(req, func(args map[string]any, sess *service.EditorSession) error {
		id, err := stringArg(args, "blockId")
		if err != nil {
			return err
		}
		lang, err := stringArg(args, "language")
		if err != nil {
			return err
		}
		return sess.UpdateBlockLanguage(id, lang)
	})
}

func (s *Server) handleDeleteBlock(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withSession(req, func(args map[string]any, sess *service.EditorSession) error {
		id, err := stringArg(args, "blockId")
		if err != nil {
			return err
		}
		return sess.DeleteBlock(id)
	})
}

func (s *Server) handleUpdateLayout(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withSession(req, func(args map[string]any, sess *service.EditorSession) error {
		raw, err := stringArg(args, "layout")
		if err != nil {
			return err
		}
		var layout domain.Layout
		if err := parseJSON(raw, &layout); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidLayout, err)
		}
		if layout == nil {
			layout = domain.Layout{}
		}
		return sess.ReplaceLayout(layout)
	})
}

func (s *Server) handleSaveSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withSession(req, func(_ map[string]any, sess *service.EditorSession) error {
		n, err := sess.Save(ctx)
		if err != nil {
			return err
		}
		s.logger.Info("post saved", "id", n.ID, "slug", n.Slug, "session", sess.ID())
		return nil
	})
}

func (s *Server) handleUndo(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withSession(req, func(_ map[string]any, sess *service.EditorSession) error {
		return sess.Undo()
	})
}

func (s *Server) handleRedo(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withSession(req, func(_ map[string]any, sess *service.EditorSession) error {
		return sess.Redo()
	})
}
