// Package app wires configuration into the long-lived services shared by
// the server, Lambda and MCP commands.
package app

import (
	"context"
	"io"

	"github.com/fpang/ai-post-generator/internal/api"
	"github.com/fpang/ai-post-generator/internal/auth"
	"github.com/fpang/ai-post-generator/internal/chat"
	"github.com/fpang/ai-post-generator/internal/config"
	"github.com/fpang/ai-post-generator/internal/metrics"
	"github.com/fpang/ai-post-generator/internal/post"
	"github.com/rs/zerolog/log"
)

// Services is built once per process and shared by every request.
type Services struct {
	Config    *config.Config
	Chat      *chat.Service
	Generator *post.Generator

	// Emitter is nil when metrics are disabled.
	Emitter *metrics.Emitter
}

// New connects to Gemini with apiKey. When cfg.Metrics is set, EMF lines
// are written to metricsOut.
func New(ctx context.Context, cfg *config.Config, apiKey string, metricsOut io.Writer) (*Services, error) {
	var emitter *metrics.Emitter
	if cfg.Metrics {
		emitter = metrics.NewEmitter(metricsOut, metrics.Namespace)
	}

	client, err := chat.NewGeminiClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	svc := chat.NewGeminiService(client, cfg.Model, chat.WithMetrics(emitter))

	if cfg.ValidateAPIKey {
		if err := auth.ValidateAPIKey(ctx, chat.ClientModels{Client: client}, cfg.Model, emitter); err != nil {
			return nil, err
		}
	}

	return Assemble(cfg, svc, emitter), nil
}

// Assemble builds Services around an existing chat.Service.
func Assemble(cfg *config.Config, svc *chat.Service, emitter *metrics.Emitter) *Services {
	gen := post.NewGenerator(svc, post.Options{
		Platform:                     cfg.Platform,
		RegenerateWithAnalysisParams: cfg.RegenerateWithAnalysisParams,
		KeepRemoteFiles:              cfg.KeepRemoteFiles,
		UploadConcurrency:            cfg.UploadConcurrency,
	})
	log.Debug().
		Str("model", svc.ModelName()).
		Str("platform", cfg.Platform).
		Msg("Post generator ready")
	return &Services{Config: cfg, Chat: svc, Generator: gen, Emitter: emitter}
}

// HTTPHandler returns the API handler configured from s.Config.
func (s *Services) HTTPHandler() *api.Server {
	return api.NewServer(s.Generator, api.Config{
		UploadDir:      s.Config.UploadDir,
		StaticDir:      s.Config.StaticDir,
		AllowedOrigins: s.Config.AllowedOrigins,
		MaxUploadBytes: s.Config.MaxUploadBytes,
		Metrics:        s.Emitter,
	})
}
