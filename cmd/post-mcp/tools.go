package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-post-generator/internal/api"
	"github.com/fpang/ai-post-generator/internal/cli"
	"github.com/fpang/ai-post-generator/internal/composer"
	"github.com/fpang/ai-post-generator/internal/imaging"
	"github.com/fpang/ai-post-generator/internal/post"
	"github.com/fpang/ai-post-generator/internal/slot"
)

// AnalyzeInput is the argument object for analyze_post_style.
type AnalyzeInput struct {
	ImagePaths    []string `json:"imagePaths" jsonschema:"local paths of screenshots of previous posts, in display order"`
	Persona       string   `json:"persona,omitempty" jsonschema:"who the author is"`
	PostPurpose   string   `json:"postPurpose,omitempty" jsonschema:"what the new post is for"`
	PersonalStory string   `json:"personalStory,omitempty" jsonschema:"personal story to weave into the post"`
}

// RegenerateInput is the argument object for regenerate_post.
type RegenerateInput struct {
	Persona           string `json:"persona,omitempty" jsonschema:"who the author is"`
	PostPurpose       string `json:"postPurpose,omitempty" jsonschema:"what the new post is for"`
	PersonalStory     string `json:"personalStory,omitempty" jsonschema:"personal story to weave into the post"`
	LastGeneratedPost string `json:"lastGeneratedPost,omitempty" jsonschema:"post to revise; defaults to the last one generated"`
}

// PostOutput is the structured result of both tools.
type PostOutput struct {
	Post string `json:"post"`
}

type tools struct {
	gen  api.Generator
	slot composer.Slot
}

func (t *tools) register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_post_style",
		Description: "Analyze the writing style of screenshots of previous social media posts and draft a new post in that style.",
	}, t.analyze)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "regenerate_post",
		Description: "Revise the last generated post using the same style, persona and purpose.",
	}, t.regenerate)
}

func (t *tools) analyze(ctx context.Context, req *mcp.CallToolRequest, in AnalyzeInput) (*mcp.CallToolResult, PostOutput, error) {
	if len(in.ImagePaths) == 0 {
		return nil, PostOutput{}, post.ErrNoFiles
	}
	paths, err := cli.ResolveFiles(in.ImagePaths)
	if err != nil {
		return nil, PostOutput{}, err
	}

	files := make([]post.ImageFile, len(paths))
	for i, p := range paths {
		files[i] = post.ImageFile{Path: p, MIMEType: imaging.MIMEType(p), DisplayName: filepath.Base(p)}
	}

	text, err := t.gen.Analyze(ctx, files, userContext(in.Persona, in.PostPurpose, in.PersonalStory))
	if err != nil {
		return nil, PostOutput{}, fmt.Errorf("analyze: %w", err)
	}
	if err := t.slot.Put(ctx, slot.LastGeneratedPost, text); err != nil {
		log.Warn().Err(err).Msg("Failed to store generated post")
	}
	return textResult(text), PostOutput{Post: text}, nil
}

func (t *tools) regenerate(ctx context.Context, req *mcp.CallToolRequest, in RegenerateInput) (*mcp.CallToolResult, PostOutput, error) {
	lastPost := in.LastGeneratedPost
	if strings.TrimSpace(lastPost) == "" {
		stored, ok, err := t.slot.Get(ctx, slot.LastGeneratedPost)
		if err != nil {
			return nil, PostOutput{}, fmt.Errorf("read last generated post: %w", err)
		}
		if !ok {
			return nil, PostOutput{}, errors.New("no post to regenerate: call analyze_post_style first")
		}
		lastPost = stored
	}

	text, err := t.gen.Regenerate(ctx, userContext(in.Persona, in.PostPurpose, in.PersonalStory), lastPost)
	if err != nil {
		return nil, PostOutput{}, fmt.Errorf("regenerate: %w", err)
	}
	return textResult(text), PostOutput{Post: text}, nil
}

func userContext(persona, purpose, story string) post.UserContext {
	return post.UserContext{Persona: persona, Purpose: purpose, Story: story}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
