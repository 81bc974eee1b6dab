// Package composer is the client side of the post generator: it holds the
// selected screenshots, talks to the HTTP API and remembers the last
// generated post in a durable slot so it can be revised later.
package composer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fpang/ai-post-generator/internal/imaging"
	"github.com/fpang/ai-post-generator/internal/post"
	"github.com/fpang/ai-post-generator/internal/slot"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoImagesSelected is returned by Analyze before any request is made.
	ErrNoImagesSelected = errors.New("no images selected")

	// ErrRequestFailed covers every non-200 response and transport failure.
	ErrRequestFailed = errors.New("request failed")

	// ErrNoStoredPost is returned by Regenerate when the slot is empty.
	ErrNoStoredPost = errors.New("no previously generated post to regenerate")
)

// Mode is the action the primary control currently performs.
type Mode int

const (
	ModeAnalyze Mode = iota
	ModeRegenerate
)

func (m Mode) String() string {
	if m == ModeRegenerate {
		return "regenerate"
	}
	return "analyze"
}

// Slot is the durable storage the composer reads and writes.
type Slot interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// Options configure a Composer.
type Options struct {
	// BaseURL is the API root, e.g. http://localhost:3000.
	BaseURL string

	HTTPClient *http.Client

	// RefreshSlotOnRegenerate stores regenerated posts in the slot, so the
	// next regeneration revises the latest text instead of the analyze result.
	RefreshSlotOnRegenerate bool

	// ThumbnailMaxDimension bounds preview size; 0 uses the imaging default.
	ThumbnailMaxDimension int
}

// Preview is the display data for one selected file.
type Preview struct {
	Path      string
	Name      string
	Thumbnail []byte
	Exif      string

	// Err is set when the file could not be previewed. The file stays selected.
	Err error
}

// Composer is safe for concurrent use, though a UI normally drives it from
// one goroutine.
type Composer struct {
	baseURL string
	client  *http.Client
	slot    Slot
	opts    Options

	mu    sync.Mutex
	files []string
	mode  Mode
	text  string
}

// New returns a Composer in ModeAnalyze with nothing selected.
func New(s Slot, opts Options) *Composer {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	if opts.ThumbnailMaxDimension <= 0 {
		opts.ThumbnailMaxDimension = imaging.DefaultThumbnailMaxDimension
	}
	return &Composer{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  client,
		slot:    s,
		opts:    opts,
	}
}

// SelectFiles replaces the current selection and returns a preview per
// file in the same order. Count, size and type are not validated.
func (c *Composer) SelectFiles(paths []string) []Preview {
	previews := make([]Preview, 0, len(paths))
	for _, p := range paths {
		previews = append(previews, c.preview(p))
	}

	c.mu.Lock()
	c.files = append([]string(nil), paths...)
	c.mu.Unlock()

	log.Debug().Int("count", len(paths)).Msg("Files selected")
	return previews
}

func (c *Composer) preview(path string) Preview {
	pv := Preview{Path: path, Name: filepath.Base(path)}
	pv.Thumbnail, pv.Err = imaging.Thumbnail(path, c.opts.ThumbnailMaxDimension)
	if pv.Err != nil {
		log.Warn().Err(pv.Err).Str("path", path).Msg("Failed to generate preview")
		return pv
	}
	if meta, err := imaging.ReadExif(path); err == nil {
		pv.Exif = meta.Summary()
	}
	return pv
}

// Files returns the current selection.
func (c *Composer) Files() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.files...)
}

// Mode returns the current primary action.
func (c *Composer) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Text returns the post currently on display.
func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Analyze uploads the selection with uc. On success the post is stored in
// the slot and on display, and the mode switches to ModeRegenerate.
func (c *Composer) Analyze(ctx context.Context, uc post.UserContext) (string, error) {
	files := c.Files()
	if len(files) == 0 {
		return "", ErrNoImagesSelected
	}

	body, contentType, err := analyzeBody(files, uc)
	if err != nil {
		return "", err
	}

	text, err := c.do(ctx, "/analyze", contentType, body)
	if err != nil {
		return "", err
	}

	if err := c.slot.Put(ctx, slot.LastGeneratedPost, text); err != nil {
		log.Warn().Err(err).Msg("Failed to store generated post")
	}

	c.mu.Lock()
	c.text = text
	c.mode = ModeRegenerate
	c.mu.Unlock()

	log.Info().Int("images", len(files)).Int("post_length", len(text)).Msg("Post generated")
	return text, nil
}

// Regenerate revises the post held in the slot. The slot itself only
// changes when RefreshSlotOnRegenerate is set.
func (c *Composer) Regenerate(ctx context.Context, uc post.UserContext) (string, error) {
	lastPost, ok, err := c.slot.Get(ctx, slot.LastGeneratedPost)
	if err != nil {
		return "", fmt.Errorf("read last generated post: %w", err)
	}
	if !ok || strings.TrimSpace(lastPost) == "" {
		return "", ErrNoStoredPost
	}

	payload, err := json.Marshal(map[string]string{
		"persona":           uc.Persona,
		"postPurpose":       uc.Purpose,
		"personalStory":     uc.Story,
		"lastGeneratedPost": lastPost,
	})
	if err != nil {
		return "", fmt.Errorf("encode regenerate request: %w", err)
	}

	text, err := c.do(ctx, "/regenerate", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	if c.opts.RefreshSlotOnRegenerate {
		if err := c.slot.Put(ctx, slot.LastGeneratedPost, text); err != nil {
			log.Warn().Err(err).Msg("Failed to store regenerated post")
		}
	}

	c.mu.Lock()
	c.text = text
	c.mu.Unlock()

	log.Info().Int("post_length", len(text)).Msg("Post regenerated")
	return text, nil
}

// do POSTs body and returns the response text. Any failure collapses into
// ErrRequestFailed; the detail is logged.
func (c *Composer) do(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to build request")
		return "", ErrRequestFailed
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Request failed")
		return "", ErrRequestFailed
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to read response")
		return "", ErrRequestFailed
	}
	if resp.StatusCode != http.StatusOK {
		log.Warn().
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("body", string(data)).
			Str("request_id", resp.Header.Get("X-Request-Id")).
			Msg("Server rejected request")
		return "", ErrRequestFailed
	}

	log.Debug().Str("path", path).Dur("duration", time.Since(start)).Msg("Request complete")
	return string(data), nil
}

// analyzeBody builds the /analyze multipart form. Each file is opened and
// closed in turn.
func analyzeBody(files []string, uc post.UserContext) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, path := range files {
		if err := writeImagePart(mw, path); err != nil {
			return nil, "", err
		}
	}
	for name, value := range map[string]string{
		"persona":       uc.Persona,
		"postPurpose":   uc.Purpose,
		"personalStory": uc.Story,
	} {
		if err := mw.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("finish multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func writeImagePart(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, filepath.Base(path)))
	h.Set("Content-Type", imaging.MIMEType(path))
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part for %s: %w", path, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
