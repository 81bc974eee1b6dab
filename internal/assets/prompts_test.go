package assets

import (
	"strings"
	"testing"
)

func TestRenderPostGeneration(t *testing.T) {
	got := RenderPostGeneration(PromptData{
		Persona:  "Startup Founder",
		Purpose:  "announce funding",
		Story:    "started in a garage",
		Analysis: `{"tone":"motivational"}`,
	})

	for _, want := range []string{
		"persona: Startup Founder",
		`analytics data: {"tone":"motivational"}`,
		`"announce funding"`,
		`"started in a garage"`,
		"LinkedIn post",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("generation prompt missing %q:\n%s", want, got)
		}
	}
}

func TestRenderPostRegeneration(t *testing.T) {
	got := RenderPostRegeneration(PromptData{
		Platform: "Mastodon",
		Persona:  "Engineer",
		Purpose:  "celebrate team",
		Story:    "shipped on Friday",
		LastPost: "We did it!",
	})

	for _, want := range []string{
		"Regenerate the Mastodon post",
		"persona: Engineer",
		`previous post as context: "We did it!"`,
		`"celebrate team"`,
		`"shipped on Friday"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("regeneration prompt missing %q:\n%s", want, got)
		}
	}
}

func TestRenderStyleAnalysis(t *testing.T) {
	in := RenderStyleAnalysisInput(PromptData{})
	if !strings.HasPrefix(in, "input:") || !strings.Contains(in, "LinkedIn") {
		t.Errorf("unexpected input prompt: %s", in)
	}

	out := RenderStyleAnalysisOutput(PromptData{})
	for _, want := range []string{"Tone", "Structure", "phrases", "Call-to-action", "JSON"} {
		if !strings.Contains(out, want) {
			t.Errorf("analysis instruction missing %q:\n%s", want, out)
		}
	}
}
