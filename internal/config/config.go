// Package config loads process settings shared by the server, Lambda and
// client commands. Values are layered: built-in defaults, then an optional
// YAML file, then POSTGEN_* environment variables. Commands apply their
// flags on top.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fpang/ai-post-generator/internal/assets"
	"github.com/fpang/ai-post-generator/internal/chat"
	"gopkg.in/yaml.v3"
)

// DefaultPort matches the port the web front end expects.
const DefaultPort = 3000

// Config is the full set of tunables.
type Config struct {
	Port     int    `yaml:"port"`
	Model    string `yaml:"model"`
	Platform string `yaml:"platform"`

	UploadDir         string   `yaml:"upload_dir"`
	StaticDir         string   `yaml:"static_dir"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
	MaxUploadBytes    int64    `yaml:"max_upload_bytes"`
	UploadConcurrency int      `yaml:"upload_concurrency"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Metrics   bool   `yaml:"metrics"`

	// ValidateAPIKey makes one cheap model call at startup.
	ValidateAPIKey bool `yaml:"validate_api_key"`

	KeepRemoteFiles              bool `yaml:"keep_remote_files"`
	RegenerateWithAnalysisParams bool `yaml:"regenerate_with_analysis_params"`
	RefreshSlotOnRegenerate      bool `yaml:"refresh_slot_on_regenerate"`

	// Client settings.
	APIURL    string `yaml:"api_url"`
	StatePath string `yaml:"state_path"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Port:           DefaultPort,
		Model:          chat.DefaultModelName,
		Platform:       assets.DefaultPlatform,
		MaxUploadBytes: 64 << 20,
		LogLevel:       "info",
		APIURL:         fmt.Sprintf("http://localhost:%d", DefaultPort),
	}
}

// Load builds a Config from defaults, the YAML file at path (or
// $POSTGEN_CONFIG when path is empty; no file when both are empty) and the
// environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("POSTGEN_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables. PORT is honoured for platforms
// that inject it; POSTGEN_PORT wins when both are set.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	integer("PORT", &c.Port)
	integer("POSTGEN_PORT", &c.Port)
	str("GEMINI_MODEL", &c.Model)
	str("POSTGEN_PLATFORM", &c.Platform)
	str("POSTGEN_UPLOAD_DIR", &c.UploadDir)
	str("POSTGEN_STATIC_DIR", &c.StaticDir)
	if v, ok := lookup("POSTGEN_ALLOWED_ORIGINS"); ok && v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("POSTGEN_MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("POSTGEN_MAX_UPLOAD_BYTES: %w", err))
		} else {
			c.MaxUploadBytes = n
		}
	}
	integer("POSTGEN_UPLOAD_CONCURRENCY", &c.UploadConcurrency)
	str("POSTGEN_LOG_LEVEL", &c.LogLevel)
	str("POSTGEN_LOG_FORMAT", &c.LogFormat)
	boolean("POSTGEN_METRICS", &c.Metrics)
	boolean("POSTGEN_VALIDATE_API_KEY", &c.ValidateAPIKey)
	boolean("POSTGEN_KEEP_REMOTE_FILES", &c.KeepRemoteFiles)
	boolean("POSTGEN_REGENERATE_WITH_ANALYSIS_PARAMS", &c.RegenerateWithAnalysisParams)
	boolean("POSTGEN_REFRESH_SLOT_ON_REGENERATE", &c.RefreshSlotOnRegenerate)
	str("POSTGEN_API_URL", &c.APIURL)
	str("POSTGEN_STATE_PATH", &c.StatePath)

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("model must not be empty"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes))
	}
	if c.UploadConcurrency < 0 {
		errs = append(errs, fmt.Errorf("upload_concurrency must not be negative, got %d", c.UploadConcurrency))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log_format must be json or console, got %q", c.LogFormat))
	}
	if c.StaticDir != "" {
		if fi, err := os.Stat(c.StaticDir); err != nil || !fi.IsDir() {
			errs = append(errs, fmt.Errorf("static_dir %q is not a directory", c.StaticDir))
		}
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
