package chat

// Gemini Model IDs
//
// | Model Name             | API Model ID           | Use Case                      |
// |------------------------|------------------------|-------------------------------|
// | Gemini 2.5 Pro         | gemini-2.5-pro         | Stable, high-reasoning tasks  |
// | Gemini 2.5 Flash       | gemini-2.5-flash       | Stable, balanced performance  |
// | Gemini 2.5 Flash-Lite  | gemini-2.5-flash-lite  | High-throughput, lowest cost  |
// | Gemini 3 Flash Preview | gemini-3-flash-preview | Best for speed + intelligence |
const (
	ModelGemini25Pro         = "gemini-2.5-pro"
	ModelGemini25Flash       = "gemini-2.5-flash"
	ModelGemini25FlashLite   = "gemini-2.5-flash-lite"
	ModelGemini3FlashPreview = "gemini-3-flash-preview"
)

// DefaultModelName is the model used for style analysis and post generation.
// Both stages accept image file references, so any multimodal model works.
const DefaultModelName = ModelGemini25Flash
