package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fpang/ai-post-generator/internal/cli"
	"github.com/fpang/ai-post-generator/internal/composer"
	"github.com/fpang/ai-post-generator/internal/post"
	"github.com/fpang/ai-post-generator/internal/slot"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	personaFlag    string
	purposeFlag    string
	storyFlag      string
	pickFlag       bool
	previewDirFlag string
	refreshFlag    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [images...]",
	Short: "Analyze screenshots of past posts and draft a new post",
	RunE:  runAnalyze,
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Revise the last generated post",
	Args:  cobra.NoArgs,
	RunE:  runRegenerate,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the last generated post",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Clear the stored post so the next run starts from analyze",
	Args:  cobra.NoArgs,
	RunE:  runForget,
}

func init() {
	for _, cmd := range []*cobra.Command{analyzeCmd, regenerateCmd} {
		cmd.Flags().StringVar(&personaFlag, "persona", "", "Who you are, e.g. \"Software Engineer\"")
		cmd.Flags().StringVar(&purposeFlag, "purpose", "", "What the post is for")
		cmd.Flags().StringVar(&storyFlag, "story", "", "Personal story to weave in")
	}
	analyzeCmd.Flags().BoolVar(&pickFlag, "pick", false, "Choose screenshots with the native file dialog")
	analyzeCmd.Flags().StringVar(&previewDirFlag, "preview-dir", "", "Write JPEG thumbnails of the selection here")
	regenerateCmd.Flags().BoolVar(&refreshFlag, "refresh", false, "Store the regenerated post as the new last post")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	paths := args
	if pickFlag {
		picked, err := cli.PickImages()
		if err != nil {
			return err
		}
		paths = append(paths, picked...)
	}
	if len(paths) == 0 {
		return composer.ErrNoImagesSelected
	}
	files, err := cli.ResolveFiles(paths)
	if err != nil {
		return err
	}

	store, err := openSlot()
	if err != nil {
		return err
	}
	defer store.Close()

	c := newComposer(store, false)
	previews := c.SelectFiles(files)
	printSelection(cmd, previews)
	if previewDirFlag != "" {
		if err := writePreviews(previewDirFlag, previews); err != nil {
			return err
		}
	}

	start := time.Now()
	text, err := c.Analyze(cmd.Context(), userContext(cmd))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	fmt.Fprintf(cmd.ErrOrStderr(), "\nGenerated in %s. Run \"post-cli regenerate\" to revise it.\n", cli.FormatDurationShort(time.Since(start)))
	return nil
}

func runRegenerate(cmd *cobra.Command, args []string) error {
	store, err := openSlot()
	if err != nil {
		return err
	}
	defer store.Close()

	refresh := cfg.RefreshSlotOnRegenerate
	if cmd.Flags().Changed("refresh") {
		refresh = refreshFlag
	}
	c := newComposer(store, refresh)

	start := time.Now()
	text, err := c.Regenerate(cmd.Context(), userContext(cmd))
	if errors.Is(err, composer.ErrNoStoredPost) {
		return fmt.Errorf("%w: run \"post-cli analyze\" first", err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	fmt.Fprintf(cmd.ErrOrStderr(), "\nRegenerated in %s.\n", cli.FormatDurationShort(time.Since(start)))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	store, err := openSlot()
	if err != nil {
		return err
	}
	defer store.Close()

	text, ok, err := store.Get(cmd.Context(), slot.LastGeneratedPost)
	if err != nil {
		return err
	}
	if !ok {
		return composer.ErrNoStoredPost
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func runForget(cmd *cobra.Command, args []string) error {
	store, err := openSlot()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), slot.LastGeneratedPost); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Stored post cleared.")
	return nil
}

func newComposer(store composer.Slot, refresh bool) *composer.Composer {
	return composer.New(store, composer.Options{
		BaseURL:                 cfg.APIURL,
		RefreshSlotOnRegenerate: refresh,
	})
}

// userContext takes the context fields from flags, prompting on an
// interactive terminal for any that were not given.
func userContext(cmd *cobra.Command) post.UserContext {
	uc := post.UserContext{Persona: personaFlag, Purpose: purposeFlag, Story: storyFlag}
	if !isTerminal(os.Stdin) {
		return uc
	}

	p := cli.NewPrompter(os.Stdin, cmd.ErrOrStderr())
	if !cmd.Flags().Changed("persona") {
		uc.Persona = p.Ask("Persona", uc.Persona)
	}
	if !cmd.Flags().Changed("purpose") {
		uc.Purpose = p.Ask("Post purpose", uc.Purpose)
	}
	if !cmd.Flags().Changed("story") {
		uc.Story = p.Ask("Personal story", uc.Story)
	}
	return uc
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func printSelection(cmd *cobra.Command, previews []composer.Preview) {
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Selected %d image(s):\n", len(previews))
	for i, pv := range previews {
		line := fmt.Sprintf("  %d. %s", i+1, pv.Name)
		if pv.Exif != "" {
			line += "  (" + pv.Exif + ")"
		}
		if pv.Err != nil {
			line += "  [no preview]"
		}
		fmt.Fprintln(out, line)
	}
}

// writePreviews saves each thumbnail as <n>-<name>.jpg under dir.
func writePreviews(dir string, previews []composer.Preview) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preview dir: %w", err)
	}
	for i, pv := range previews {
		if pv.Thumbnail == nil {
			continue
		}
		base := strings.TrimSuffix(pv.Name, filepath.Ext(pv.Name))
		path := filepath.Join(dir, fmt.Sprintf("%02d-%s.jpg", i+1, base))
		if err := os.WriteFile(path, pv.Thumbnail, 0o644); err != nil {
			return fmt.Errorf("write preview %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("Preview written")
	}
	return nil
}
