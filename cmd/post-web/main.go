package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fpang/ai-post-generator/internal/chat"
	"github.com/fpang/ai-post-generator/internal/cli"
	"github.com/fpang/ai-post-generator/internal/config"
	"github.com/fpang/ai-post-generator/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// CLI flags
var (
	configFlag      string
	portFlag        int
	modelFlag       string
	platformFlag    string
	staticDirFlag   string
	validateKeyFlag bool
	metricsFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "post-web",
	Short: "HTTP backend for the post generator",
	Long: `Post Web serves the /analyze and /regenerate endpoints used by the
post composer, plus the built front end when --static-dir is set.

Examples:
  post-web
  post-web --port 8080 --static-dir ./web/dist
  post-web --config ~/.ai-post-generator/config.yaml --validate-key`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "YAML config file (default: $POSTGEN_CONFIG)")
	rootCmd.Flags().IntVarP(&portFlag, "port", "p", config.DefaultPort, "Port to listen on")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", chat.DefaultModelName, "Gemini model to use")
	rootCmd.Flags().StringVar(&platformFlag, "platform", "", "Target platform named in the prompts")
	rootCmd.Flags().StringVar(&staticDirFlag, "static-dir", "", "Directory of front end files to serve at /")
	rootCmd.Flags().BoolVar(&validateKeyFlag, "validate-key", false, "Validate the API key with a test call at startup")
	rootCmd.Flags().BoolVar(&metricsFlag, "metrics", false, "Write CloudWatch EMF metrics to stdout")
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
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid settings")
	}
	logging.Configure(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, keySource := cli.InitServices(ctx, cfg, os.Stdout)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      services.HTTPHandler().Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	logging.NewStartupLogger("post-web").
		CommitHash(commitHash).
		BuildTime(buildTime).
		Secret("GEMINI_API_KEY", keySource).
		Config("model", cfg.Model).
		Config("platform", cfg.Platform).
		Config("port", strconv.Itoa(cfg.Port)).
		Config("allowedOrigins", strings.Join(cfg.AllowedOrigins, ",")).
		Feature("staticFiles", cfg.StaticDir != "").
		Feature("metrics", cfg.Metrics).
		Feature("keepRemoteFiles", cfg.KeepRemoteFiles).
		Feature("regenerateWithAnalysisParams", cfg.RegenerateWithAnalysisParams).
		InitDuration(time.Since(initStart)).
		Log()

	fmt.Printf("\n  Post generator API: http://localhost:%d\n\n", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// applyFlags lets explicitly set flags win over the file and environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = portFlag
	}
	if flags.Changed("model") {
		cfg.Model = modelFlag
	}
	if flags.Changed("platform") {
		cfg.Platform = platformFlag
	}
	if flags.Changed("static-dir") {
		cfg.StaticDir = staticDirFlag
	}
	if flags.Changed("validate-key") {
		cfg.ValidateAPIKey = validateKeyFlag
	}
	if flags.Changed("metrics") {
		cfg.Metrics = metricsFlag
	}
}
