package chat

import "google.golang.org/genai"

// GenerationParams are the optional sampling parameters for one call.
// Nil pointers and empty strings leave the service defaults in place, so the
// zero value means "use whatever the model defaults to".
type GenerationParams struct {
	Temperature      *float32
	TopP             *float32
	TopK             *float32
	MaxOutputTokens  int32
	ResponseMIMEType string
}

// AnalysisParams returns the fixed parameters used for both analyze stages.
func AnalysisParams() GenerationParams {
	return GenerationParams{
		Temperature:      ptr[float32](1),
		TopP:             ptr[float32](0.95),
		TopK:             ptr[float32](64),
		MaxOutputTokens:  8192,
		ResponseMIMEType: "text/plain",
	}
}

// IsDefault reports whether p leaves every parameter to the service.
func (p GenerationParams) IsDefault() bool {
	return p.Temperature == nil && p.TopP == nil && p.TopK == nil &&
		p.MaxOutputTokens == 0 && p.ResponseMIMEType == ""
}

// config converts p into a request config; nil when every field is default.
func (p GenerationParams) config() *genai.GenerateContentConfig {
	if p.IsDefault() {
		return nil
	}
	return &genai.GenerateContentConfig{
		Temperature:      p.Temperature,
		TopP:             p.TopP,
		TopK:             p.TopK,
		MaxOutputTokens:  p.MaxOutputTokens,
		ResponseMIMEType: p.ResponseMIMEType,
	}
}

func ptr[T any](v T) *T {
	return &v
}
