package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fpang/ai-post-generator/internal/config"
	"github.com/fpang/ai-post-generator/internal/logging"
	"github.com/fpang/ai-post-generator/internal/slot"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Persistent flags
var (
	configFlag string
	apiURLFlag string
	stateFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "post-cli",
	Short: "Generate social media posts from screenshots",
	Long: `Post CLI sends screenshots of your previous posts to a running post-web
server, which analyzes your writing style and drafts a new post. The last
generated post is remembered so it can be regenerated later.

Examples:
  post-cli analyze shot1.png shot2.png --persona "Engineer" --purpose "Launch"
  post-cli analyze --pick
  post-cli regenerate
  post-cli show
  post-cli forget`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var cfg *config.Config

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "YAML config file (default: $POSTGEN_CONFIG)")
	flags.StringVar(&apiURLFlag, "api-url", "", "Post generator API root (default: http://localhost:3000)")
	flags.StringVar(&stateFlag, "state", "", "Path of the local state database")

	rootCmd.AddCommand(analyzeCmd, regenerateCmd, showCmd, forgetCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	logging.Init()

	loaded, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api-url") {
		loaded.APIURL = apiURLFlag
	}
	if cmd.Flags().Changed("state") {
		loaded.StatePath = stateFlag
	}
	logging.Configure(loaded.LogLevel, loaded.LogFormat, os.Stderr)

	cfg = loaded
	log.Debug().Str("api_url", cfg.APIURL).Str("commit", commitHash).Msg("post-cli starting")
	return nil
}

// openSlot opens the configured state database, or the default one.
func openSlot() (*slot.Store, error) {
	path := cfg.StatePath
	if path == "" {
		var err error
		if path, err = slot.DefaultPath(); err != nil {
			return nil, err
		}
	}
	store, err := slot.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open state %s: %w", path, err)
	}
	return store, nil
}
