// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at
// compile time so wording changes never require touching Go code.
package assets

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

// DefaultPlatform is the social network named in prompts when none is configured.
const DefaultPlatform = "LinkedIn"

//go:embed prompts/style-analysis-input.txt
var styleAnalysisInputTemplate string

//go:embed prompts/style-analysis-output.txt
var styleAnalysisOutputTemplate string

//go:embed prompts/post-generation.txt
var postGenerationTemplate string

//go:embed prompts/post-regeneration.txt
var postRegenerationTemplate string

// Pre-parsed templates. template.Must panics on malformed templates,
// catching errors at program startup rather than at call time.
var (
	styleAnalysisInputTmpl  = template.Must(template.New("style-analysis-input").Parse(styleAnalysisInputTemplate))
	styleAnalysisOutputTmpl = template.Must(template.New("style-analysis-output").Parse(styleAnalysisOutputTemplate))
	postGenerationTmpl      = template.Must(template.New("post-generation").Parse(postGenerationTemplate))
	postRegenerationTmpl    = template.Must(template.New("post-regeneration").Parse(postRegenerationTemplate))
)

// PromptData holds the dynamic values injected into prompt templates.
// Fields a template does not reference are ignored.
type PromptData struct {
	Platform string
	Persona  string
	Purpose  string
	Story    string

	// Analysis is the serialized stage-one style analysis.
	Analysis string

	// LastPost is the previously generated post used as regeneration context.
	LastPost string
}

// RenderStyleAnalysisInput renders the text part placed before the post images.
func RenderStyleAnalysisInput(data PromptData) string {
	return render(styleAnalysisInputTmpl, data)
}

// RenderStyleAnalysisOutput renders the instruction placed after the post images.
func RenderStyleAnalysisOutput(data PromptData) string {
	return render(styleAnalysisOutputTmpl, data)
}

// RenderPostGeneration renders the stage-two generation prompt.
func RenderPostGeneration(data PromptData) string {
	return render(postGenerationTmpl, data)
}

// RenderPostRegeneration renders the regeneration prompt.
func RenderPostRegeneration(data PromptData) string {
	return render(postRegenerationTmpl, data)
}

func render(tmpl *template.Template, data PromptData) string {
	if data.Platform == "" {
		data.Platform = DefaultPlatform
	}
	var buf bytes.Buffer
	// Execution only fails on a broken writer or template, neither of which
	// can happen with a bytes.Buffer and the embedded templates.
	_ = tmpl.Execute(&buf, data)
	return strings.TrimSpace(buf.String())
}
