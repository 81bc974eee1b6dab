package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fpang/ai-post-generator/internal/metrics"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when Gemini answers without any text.
var ErrEmptyResponse = errors.New("received empty response from Gemini API")

// Models is the subset of genai.Models used here.
type Models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Files is the subset of genai.Files used here.
type Files interface {
	Upload(ctx context.Context, r io.Reader, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

// NewGeminiClient creates a Gemini API client for the given key.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// ClientModels adapts a *genai.Client to Models.
type ClientModels struct{ Client *genai.Client }

func (c ClientModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return c.Client.Models.GenerateContent(ctx, model, contents, config)
}

// ClientFiles adapts a *genai.Client to Files.
type ClientFiles struct{ Client *genai.Client }

func (c ClientFiles) Upload(ctx context.Context, r io.Reader, config *genai.UploadFileConfig) (*genai.File, error) {
	return c.Client.Files.Upload(ctx, r, config)
}

func (c ClientFiles) Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error) {
	return c.Client.Files.Get(ctx, name, config)
}

func (c ClientFiles) Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error) {
	return c.Client.Files.Delete(ctx, name, config)
}

// FileRef identifies a file held by the Gemini Files API.
type FileRef struct {
	Name     string
	URI      string
	MIMEType string
}

// Part returns the FileData content part referencing f.
func (f FileRef) Part() *genai.Part {
	return &genai.Part{FileData: &genai.FileData{FileURI: f.URI, MIMEType: f.MIMEType}}
}

// Service is the process-wide handle on the generative backend. It is
// built once at startup and shared by reference; it holds no per-request state.
type Service struct {
	models       Models
	files        Files
	modelName    string
	pollInterval time.Duration
	emitter      *metrics.Emitter
}

// Option customises a Service.
type Option func(*Service)

// WithPollInterval sets how often an uploaded file's processing state is polled.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) { s.pollInterval = d }
}

// WithMetrics attaches an EMF emitter for Gemini call metrics.
func WithMetrics(e *metrics.Emitter) Option {
	return func(s *Service) { s.emitter = e }
}

// NewService binds the model name to the given backends.
func NewService(models Models, files Files, modelName string, opts ...Option) *Service {
	s := &Service{
		models:       models,
		files:        files,
		modelName:    modelName,
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewGeminiService is NewService over a real client.
func NewGeminiService(client *genai.Client, modelName string, opts ...Option) *Service {
	return NewService(ClientModels{client}, ClientFiles{client}, modelName, opts...)
}

// ModelName returns the configured model.
func (s *Service) ModelName() string {
	return s.modelName
}

// UploadFile streams a local file to the Files API and waits until it is
// ready to be referenced from a prompt. If the upload succeeded but the file
// never became ready, the returned FileRef carries its Name alongside the error.
func (s *Service) UploadFile(ctx context.Context, path, mimeType, displayName string) (FileRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileRef{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	uploadStart := time.Now()
	file, err := s.files.Upload(ctx, f, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	if err != nil {
		return FileRef{}, fmt.Errorf("upload file %s: %w", displayName, err)
	}

	// From here on the file exists remotely, so failures still return its
	// name for the caller to delete.
	uploaded := FileRef{Name: file.Name, URI: file.URI, MIMEType: file.MIMEType}
	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return uploaded, ctx.Err()
		case <-time.After(s.pollInterval):
		}
		file, err = s.files.Get(ctx, uploaded.Name, nil)
		if err != nil {
			return uploaded, fmt.Errorf("get file state: %w", err)
		}
	}

	if file.State == genai.FileStateFailed {
		return uploaded, fmt.Errorf("gemini file processing failed: %s", file.Name)
	}

	ref := FileRef{Name: file.Name, URI: file.URI, MIMEType: file.MIMEType}
	if ref.MIMEType == "" {
		ref.MIMEType = mimeType
	}

	log.Debug().
		Str("name", ref.Name).
		Str("uri", ref.URI).
		Str("display_name", displayName).
		Dur("duration", time.Since(uploadStart)).
		Msg("File uploaded to Gemini")

	return ref, nil
}

// DeleteFile removes a file from the Files API. Failures are logged only.
func (s *Service) DeleteFile(ctx context.Context, name string) {
	if _, err := s.files.Delete(ctx, name, nil); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("Failed to delete uploaded Gemini file")
		return
	}
	log.Debug().Str("file", name).Msg("Uploaded Gemini file deleted")
}

// Generate sends parts as a single user turn and returns the response text.
// operation labels the call in logs and metrics.
func (s *Service) Generate(ctx context.Context, operation string, parts []*genai.Part, params GenerationParams) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	log.Debug().
		Str("model", s.modelName).
		Str("operation", operation).
		Int("part_count", len(parts)).
		Bool("default_params", params.IsDefault()).
		Msg("Starting Gemini API call")

	start := time.Now()
	resp, err := s.models.GenerateContent(ctx, s.modelName, contents, params.config())
	elapsed := time.Since(start)

	m := s.emitter.New().
		Dimension("Operation", operation).
		Metric("GeminiApiLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("GeminiApiCalls")
	if err != nil {
		m.Count("GeminiApiErrors")
	}
	if resp != nil && resp.UsageMetadata != nil {
		m.Metric("GeminiInputTokens", float64(resp.UsageMetadata.PromptTokenCount), metrics.UnitCount)
		m.Metric("GeminiOutputTokens", float64(resp.UsageMetadata.CandidatesTokenCount), metrics.UnitCount)
	}
	m.Flush()

	if err != nil {
		log.Error().Err(err).Str("operation", operation).Dur("duration", elapsed).Msg("Failed to generate content")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		log.Warn().Str("operation", operation).Dur("duration", elapsed).Msg("Received empty response from Gemini")
		return "", ErrEmptyResponse
	}

	text := resp.Text()
	log.Debug().
		Str("operation", operation).
		Int("response_length", len(text)).
		Dur("duration", elapsed).
		Msg("Gemini API response received")

	return text, nil
}
