package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fpang/ai-post-generator/internal/auth"
	"github.com/rs/zerolog/log"
)

// ResolveFiles checks that every path exists and is a regular file, then
// returns the absolute paths in the given order.
func ResolveFiles(paths []string) ([]string, error) {
	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("file not found: %s", p)
			}
			return nil, fmt.Errorf("failed to access %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("path is a directory: %s", p)
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		resolved = append(resolved, p)
	}
	return resolved, nil
}

// HandleValidationError logs a key lookup or validation failure with
// user-facing guidance and exits.
func HandleValidationError(err error) {
	if errors.Is(err, auth.ErrNoAPIKey) {
		log.Fatal().Msg("No API key configured. Set GEMINI_API_KEY or store it in ~/.ai-post-generator/credentials.gpg")
	}

	var validationErr *auth.ValidationError
	if !errors.As(err, &validationErr) {
		log.Fatal().Err(err).Msg("Failed to initialize Gemini client")
	}
	switch validationErr.Type {
	case auth.ErrTypeInvalidKey:
		log.Fatal().Err(err).Msg("Invalid API key. Please check your API key and try again")
	case auth.ErrTypeNetworkError:
		log.Fatal().Err(err).Msg("Network error. Please check your internet connection")
	case auth.ErrTypeQuotaExceeded:
		log.Fatal().Err(err).Msg("API quota exceeded. Please try again later or check your usage limits")
	default:
		log.Fatal().Err(err).Msg("API key validation failed")
	}
	os.Exit(1)
}
