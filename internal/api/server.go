// Package api exposes the post generator over HTTP.
//
// Endpoints:
//
//	POST /analyze      multipart images plus user context, returns the generated post
//	POST /regenerate   JSON user context plus the last post, returns a revised post
//	GET  /health       liveness probe
//
// Successful responses are text/plain. Failures carry a fixed, client-safe
// message; the underlying error is only logged.
package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/fpang/ai-post-generator/internal/metrics"
	"github.com/fpang/ai-post-generator/internal/post"
	"github.com/klauspost/compress/gzhttp"
)

// Generator is the orchestrator behind the two POST endpoints.
type Generator interface {
	Analyze(ctx context.Context, files []post.ImageFile, uc post.UserContext) (string, error)
	Regenerate(ctx context.Context, uc post.UserContext, lastPost string) (string, error)
}

const (
	// DefaultMaxUploadBytes caps the total /analyze request body.
	DefaultMaxUploadBytes int64 = 64 << 20

	// DefaultMultipartMemory is how much of a multipart body is held in
	// memory before parts spill to temporary files.
	DefaultMultipartMemory int64 = 32 << 20

	maxJSONBodyBytes int64 = 1 << 20
)

// Config holds the HTTP-layer settings.
type Config struct {
	// UploadDir receives staged images for the duration of one request.
	// Defaults to a directory under os.TempDir().
	UploadDir string

	// StaticDir, when set, is served at "/".
	StaticDir string

	// AllowedOrigins lists CORS origins; "*" allows any. Empty allows
	// localhost and 127.0.0.1 only.
	AllowedOrigins []string

	MaxUploadBytes  int64
	MultipartMemory int64

	// Metrics receives per-request EMF metrics. Nil disables them.
	Metrics *metrics.Emitter
}

// Server routes requests to a Generator.
type Server struct {
	gen Generator
	cfg Config
}

// NewServer fills defaults into cfg.
func NewServer(gen Generator, cfg Config) *Server {
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(os.TempDir(), "ai-post-generator-uploads")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.MultipartMemory <= 0 {
		cfg.MultipartMemory = DefaultMultipartMemory
	}
	return &Server{gen: gen, cfg: cfg}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/regenerate", s.handleRegenerate)
	mux.HandleFunc("/health", handleHealth)

	if s.cfg.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(s.cfg.StaticDir))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			fileServer.ServeHTTP(w, r)
		})
	}

	var h http.Handler = mux
	h = withCORS(s.cfg.AllowedOrigins, h)
	h = withMetrics(s.cfg.Metrics, h)
	h = withLogging(h)
	h = withRequestID(h)
	return gzhttp.GzipHandler(h)
}

// GET /health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	respondText(w, http.StatusOK, "ok")
}
