package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("draft_post",
		mcp.WithPromptDescription("Guide through drafting a new study note on the grid"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("Topic or title of the note"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("template",
			mcp.ArgumentDescription("Template to start from (default two-columns)"),
		),
	), s.handleDraftPostPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("rearrange_post",
		mcp.WithPromptDescription("Rework the layout of an existing post without changing its content"),
		mcp.WithArgument("slug",
			mcp.ArgumentDescription("Slug of the post to rearrange"),
			mcp.RequiredArgument(),
		),
	), s.handleRearrangePrompt)
}

func (s *Server) handleDraftPostPrompt(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	tmpl := req.Params.Arguments["template"]
	if tmpl == "" {
		tmpl = "two-columns"
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Draft a note about: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Draft a study note about "%s". Follow these steps:

1. Call open_session with template "%s" (use list_templates if unsure which fits)
2. Fill each block with update_block_content. Use markdown blocks for prose and code blocks for examples
3. Set the language of every code block with update_block_language
4. Add more blocks with add_block if the template runs out of room; new blocks land below the content
5. Call save_session once the note reads well

The grid has 12 columns. Keep related blocks on the same row.`, topic, tmpl),
				},
			},
		},
	}, nil
}

func (s *Server) handleRearrangePrompt(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	slug := req.Params.Arguments["slug"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Rearrange the layout of %s", slug),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Rearrange the post "%s". Follow these steps:

1. Call get_post to read its blocks and layout, then open_session with its id
2. Plan a new arrangement on the 12-column grid: x in 0..11, w at least 1, rows of 30px
3. Call update_layout once with the full layout. Every item must reference an existing block
4. Check the result with render_post in editable mode, then call save_session

Do not change block content.`, slug),
				},
			},
		},
	}, nil
}
