package post

import (
	"encoding/json"

	"github.com/fpang/ai-post-generator/internal/jsonutil"
)

// StyleAnalysis is the stage-one result. It is either a structured mapping
// of style attributes or, when the model's answer is not a JSON object, the
// raw text. Both shapes are permanent, valid outcomes: stage two only needs
// a textual rendering, which Serialize provides for either variant.
type StyleAnalysis struct {
	structured map[string]any
	raw        string
}

// ParseStyleAnalysis never fails. Text that is exactly one JSON object,
// optionally inside a markdown fence, yields the structured variant. Anything
// else, including prose that merely contains an object, is kept raw.
func ParseStyleAnalysis(raw string) StyleAnalysis {
	text := jsonutil.StripMarkdownFences(raw)
	if extracted, err := jsonutil.ExtractJSON(text); err != nil || extracted != text {
		return StyleAnalysis{raw: raw}
	}
	m, err := jsonutil.ParseJSON[map[string]any](text)
	if err != nil || m == nil {
		return StyleAnalysis{raw: raw}
	}
	return StyleAnalysis{structured: m}
}

// IsStructured reports which variant is held.
func (a StyleAnalysis) IsStructured() bool {
	return a.structured != nil
}

// Structured returns the mapping, or nil for the raw variant.
func (a StyleAnalysis) Structured() map[string]any {
	return a.structured
}

// Raw returns the unparsed text, or "" for the structured variant.
func (a StyleAnalysis) Raw() string {
	return a.raw
}

// Serialize renders the analysis as JSON. The raw variant is wrapped as
// {"text": raw} so stage two always receives a JSON document.
func (a StyleAnalysis) Serialize() string {
	var v any = map[string]string{"text": a.raw}
	if a.structured != nil {
		v = a.structured
	}
	data, err := json.Marshal(v)
	if err != nil {
		// Values decoded from JSON always re-encode; keep the raw text as a last resort.
		return a.raw
	}
	return string(data)
}
