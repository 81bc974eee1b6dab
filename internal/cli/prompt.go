package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-post-generator/internal/imaging"
)

// Prompter asks for missing values on an interactive terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints label and returns the trimmed answer, or def when the answer
// is empty or input is exhausted.
func (p *Prompter) Ask(label, def string) string {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}

	input, err := p.in.ReadString('\n')
	if err != nil && input == "" {
		if err != io.EOF {
			log.Warn().Err(err).Msg("Failed to read input, using default")
		}
		return def
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return def
	}
	return input
}

// PickImages opens the native multi-file dialog filtered to supported
// images. A cancelled dialog returns no paths and no error.
func PickImages() ([]string, error) {
	patterns := make([]string, 0, len(imaging.SupportedImageExtensions))
	for ext := range imaging.SupportedImageExtensions {
		patterns = append(patterns, "*"+ext)
	}

	paths, err := zenity.SelectFileMultiple(
		zenity.Title("Select post screenshots"),
		zenity.FileFilters{{Name: "Images", Patterns: patterns, CaseFold: true}},
	)
	if errors.Is(err, zenity.ErrCanceled) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file dialog: %w", err)
	}
	return paths, nil
}
