package cli

import (
	"context"
	"io"

	"github.com/fpang/ai-post-generator/internal/app"
	"github.com/fpang/ai-post-generator/internal/auth"
	"github.com/fpang/ai-post-generator/internal/config"
	"github.com/rs/zerolog/log"
)

// InitServices retrieves the API key and builds the shared services,
// validating the key first when cfg asks for it. Exits fatally on failure.
// The returned source says where the key came from, for the startup log.
func InitServices(ctx context.Context, cfg *config.Config, metricsOut io.Writer) (*app.Services, string) {
	apiKey, source, err := auth.LookupAPIKey()
	if err != nil {
		HandleValidationError(err)
	}

	services, err := app.New(ctx, cfg, apiKey, metricsOut)
	if err != nil {
		HandleValidationError(err)
	}

	log.Info().Str("model", cfg.Model).Msg("Gemini client initialized")
	return services, source
}
