// Package main runs the post generator API on AWS Lambda behind an
// API Gateway HTTP API.
//
// Endpoints:
//
//	POST /analyze     multipart screenshots plus user context
//	POST /regenerate  JSON user context plus the last generated post
//	GET  /health      health check
//
// The Gemini API key comes from GEMINI_API_KEY or SSM Parameter Store.
// Uploads are staged under /tmp, the only writable path in Lambda.
package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-post-generator/internal/app"
	"github.com/fpang/ai-post-generator/internal/auth"
	"github.com/fpang/ai-post-generator/internal/config"
	"github.com/fpang/ai-post-generator/internal/lambdaboot"
	"github.com/fpang/ai-post-generator/internal/logging"
)

var services *app.Services

func init() {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg.Metrics = true
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(os.TempDir(), "post-uploads")
	}

	ctx := context.Background()
	clients, err := lambdaboot.InitAWS(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	keySource, err := lambdaboot.LoadGeminiKey(ctx, clients.SSM)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load Gemini API key")
	}

	apiKey, err := auth.GetAPIKey()
	if err != nil {
		log.Fatal().Err(err).Msg("Gemini API key unavailable")
	}

	services, err = app.New(ctx, cfg, apiKey, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	lambdaboot.StartupLog("post-lambda", initStart).
		CommitHash(commitHash).
		BuildTime(buildTime).
		Secret("GEMINI_API_KEY", keySource).
		Config("model", cfg.Model).
		Config("platform", cfg.Platform).
		Config("region", clients.Config.Region).
		Config("uploadDir", cfg.UploadDir).
		Feature("validateAPIKey", cfg.ValidateAPIKey).
		Feature("keepRemoteFiles", cfg.KeepRemoteFiles).
		Feature("regenerateWithAnalysisParams", cfg.RegenerateWithAnalysisParams).
		Log()
}

func main() {
	adapter := httpadapter.NewV2(services.HTTPHandler().Handler())
	lambda.Start(adapter.ProxyWithContext)
}
