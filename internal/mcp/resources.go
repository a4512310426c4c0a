package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	postsURI         = "folio://posts"
	postMarkupURI    = "folio://post/{slug}/markup"
	postURIPrefix    = "folio://post/"
	postMarkupSuffix = "/markup"
)

func (s *Server) registerResources() {
	// ── folio://posts ──────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		postsURI,
		"All Posts",
		mcp.WithResourceDescription("Every stored post, drafts included"),
		mcp.WithMIMEType("application/json"),
	), s.handlePostsResource)

	// ── folio://post/{slug}/markup ─────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			postMarkupURI,
			"Post Markup",
			mcp.WithTemplateMIMEType("text/html"),
		),
		s.handlePostMarkupResource,
	)
}

func (s *Server) handlePostsResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	notes, err := s.posts.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]postSummary, len(notes))
	for i, n := range notes {
		summaries[i] = summarizePost(n)
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      postsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handlePostMarkupResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	slug := slugFromURI(uri)
	if slug == "" {
		return nil, fmt.Errorf("could not extract slug from URI: %s", uri)
	}

	n, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/html",
			Text:     s.posts.Markup(n),
		},
	}, nil
}

// slugFromURI extracts the slug from "folio://post/{slug}/markup".
func slugFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, postURIPrefix)
	if !ok {
		return ""
	}
	slug, ok := strings.CutSuffix(rest, postMarkupSuffix)
	if !ok || strings.Contains(slug, "/") {
		return ""
	}
	return slug
}
