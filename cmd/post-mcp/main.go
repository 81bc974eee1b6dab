// Package main exposes the post generator as MCP tools over stdio, so an
// assistant can analyze screenshots on the local disk and revise the result.
// Logs go to stderr; stdout carries the protocol.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ai-post-generator/internal/cli"
	"github.com/fpang/ai-post-generator/internal/config"
	"github.com/fpang/ai-post-generator/internal/logging"
	"github.com/fpang/ai-post-generator/internal/slot"
)

var (
	configFlag string
	modelFlag  string
	stateFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "post-mcp",
	Short: "MCP server for post style analysis and generation",
	Long: `Post MCP serves the analyze_post_style and regenerate_post tools over
stdio. Image paths are read from the local disk.

Example client entry:
  {"command": "post-mcp", "args": ["--model", "gemini-3-flash-preview"]}`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "YAML config file (default: $POSTGEN_CONFIG)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini model to use")
	rootCmd.Flags().StringVar(&stateFlag, "state", "", "Path of the local state database")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load(configFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = modelFlag
	}
	if cmd.Flags().Changed("state") {
		cfg.StatePath = stateFlag
	}
	logging.Configure(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// EMF lines would corrupt the protocol stream.
	cfg.Metrics = false
	services, keySource := cli.InitServices(ctx, cfg, os.Stderr)

	statePath := cfg.StatePath
	if statePath == "" {
		if statePath, err = slot.DefaultPath(); err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve state path")
		}
	}
	store, err := slot.Open(statePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", statePath).Msg("Failed to open state")
	}
	defer store.Close()

	server := mcp.NewServer(&mcp.Implementation{Name: "post-mcp", Version: commitHash}, nil)
	(&tools{gen: services.Generator, slot: store}).register(server)

	logging.NewStartupLogger("post-mcp").
		CommitHash(commitHash).
		BuildTime(buildTime).
		Secret("GEMINI_API_KEY", keySource).
		Config("model", cfg.Model).
		Config("platform", cfg.Platform).
		Config("state", statePath).
		InitDuration(time.Since(initStart)).
		Log()

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("MCP server stopped")
	}
}
