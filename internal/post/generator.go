package post

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fpang/ai-post-generator/internal/assets"
	"github.com/fpang/ai-post-generator/internal/chat"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"
)

// Operation labels used in logs and metrics.
const (
	OpStyleAnalysis    = "styleAnalysis"
	OpPostGeneration   = "postGeneration"
	OpPostRegeneration = "postRegeneration"
)

// Generator runs the analyze and regenerate flows against a chat.Service.
type Generator struct {
	svc  *chat.Service
	opts Options
}

// NewGenerator returns a Generator sharing svc.
func NewGenerator(svc *chat.Service, opts Options) *Generator {
	if opts.Platform == "" {
		opts.Platform = assets.DefaultPlatform
	}
	return &Generator{svc: svc, opts: opts}
}

// Analyze uploads every image, derives a style analysis from them and
// generates a new post in that style. Uploads run concurrently and all of
// them complete (or one fails) before the first model call is made. Images
// appear in the analysis request in the order given.
func (g *Generator) Analyze(ctx context.Context, files []ImageFile, uc UserContext) (string, error) {
	if len(files) == 0 {
		return "", ErrNoFiles
	}
	logger := log.Ctx(ctx)
	start := time.Now()

	refs, err := g.uploadAll(ctx, files)
	if !g.opts.KeepRemoteFiles {
		defer g.deleteAll(context.WithoutCancel(ctx), refs)
	}
	if err != nil {
		return "", fmt.Errorf("upload images: %w", err)
	}
	logger.Debug().
		Int("count", len(refs)).
		Dur("duration", time.Since(start)).
		Msg("All images uploaded")

	data := g.promptData(uc)
	parts := make([]*genai.Part, 0, len(refs)+2)
	parts = append(parts, genai.NewPartFromText(assets.RenderStyleAnalysisInput(data)))
	for _, ref := range refs {
		parts = append(parts, ref.Part())
	}
	parts = append(parts, genai.NewPartFromText(assets.RenderStyleAnalysisOutput(data)))

	params := chat.AnalysisParams()
	rawAnalysis, err := g.svc.Generate(ctx, OpStyleAnalysis, parts, params)
	if err != nil {
		return "", fmt.Errorf("style analysis: %w", err)
	}

	analysis := ParseStyleAnalysis(rawAnalysis)
	logger.Info().
		Bool("structured", analysis.IsStructured()).
		Int("attributes", len(analysis.Structured())).
		Int("length", len(rawAnalysis)).
		Msg("Style analysis complete")

	data.Analysis = analysis.Serialize()
	text, err := g.svc.Generate(ctx, OpPostGeneration,
		[]*genai.Part{genai.NewPartFromText(assets.RenderPostGeneration(data))}, params)
	if err != nil {
		return "", fmt.Errorf("generate post: %w", err)
	}

	logger.Info().
		Int("images", len(files)).
		Int("post_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Post generated")
	return nonEmpty(text)
}

// Regenerate revises lastPost without repeating style analysis.
func (g *Generator) Regenerate(ctx context.Context, uc UserContext, lastPost string) (string, error) {
	if strings.TrimSpace(lastPost) == "" {
		return "", ErrNoPriorPost
	}

	data := g.promptData(uc)
	data.LastPost = lastPost

	var params chat.GenerationParams
	if g.opts.RegenerateWithAnalysisParams {
		params = chat.AnalysisParams()
	}

	start := time.Now()
	text, err := g.svc.Generate(ctx, OpPostRegeneration,
		[]*genai.Part{genai.NewPartFromText(assets.RenderPostRegeneration(data))}, params)
	if err != nil {
		return "", fmt.Errorf("regenerate post: %w", err)
	}

	log.Ctx(ctx).Info().
		Int("post_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Post regenerated")
	return nonEmpty(text)
}

func (g *Generator) promptData(uc UserContext) assets.PromptData {
	return assets.PromptData{
		Platform: g.opts.Platform,
		Persona:  uc.Persona,
		Purpose:  uc.Purpose,
		Story:    uc.Story,
	}
}

// uploadAll uploads files concurrently. The returned slice is index-aligned
// with files; on error it still holds every file that reached the Files API,
// including ones that failed while processing, so the caller can clean them up.
func (g *Generator) uploadAll(ctx context.Context, files []ImageFile) ([]chat.FileRef, error) {
	refs := make([]chat.FileRef, len(files))

	eg, egCtx := errgroup.WithContext(ctx)
	if g.opts.UploadConcurrency > 0 {
		eg.SetLimit(g.opts.UploadConcurrency)
	}
	for i, f := range files {
		eg.Go(func() error {
			ref, err := g.svc.UploadFile(egCtx, f.Path, f.MIMEType, f.DisplayName)
			refs[i] = ref
			return err
		})
	}
	return refs, eg.Wait()
}

func (g *Generator) deleteAll(ctx context.Context, refs []chat.FileRef) {
	for _, ref := range refs {
		if ref.Name != "" {
			g.svc.DeleteFile(ctx, ref.Name)
		}
	}
}
