package composer

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fpang/ai-post-generator/internal/api"
	"github.com/fpang/ai-post-generator/internal/post"
	"github.com/fpang/ai-post-generator/internal/slot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var founder = post.UserContext{
	Persona: "Startup Founder",
	Purpose: "announce funding",
	Story:   "started in a garage",
}

func newSlot(t *testing.T) *slot.Store {
	t.Helper()
	s, err := slot.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

// recordingAPI is a stand-in server that records request bodies.
type recordingAPI struct {
	status int
	reply  string

	mu          sync.Mutex
	analyzeHits int
	regenerate  []map[string]string
	imageNames  []string
}

func (a *recordingAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch r.URL.Path {
	case "/analyze":
		a.analyzeHits++
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for _, fh := range r.MultipartForm.File["images"] {
				a.imageNames = append(a.imageNames, fh.Filename)
			}
		}
	case "/regenerate":
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		a.regenerate = append(a.regenerate, body)
	}

	status := a.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	io.WriteString(w, a.reply)
}

func newComposer(t *testing.T, h http.Handler, s Slot, opts Options) *Composer {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	return New(s, opts)
}

func TestSelectFiles_Previews(t *testing.T) {
	dir := t.TempDir()
	good := writeImage(t, dir, "post.png")
	bad := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(bad, []byte("text"), 0o600))

	c := New(newSlot(t), Options{BaseURL: "http://unused"})
	previews := c.SelectFiles([]string{good, bad})

	require.Len(t, previews, 2)
	assert.Equal(t, "post.png", previews[0].Name)
	assert.NoError(t, previews[0].Err)
	assert.NotEmpty(t, previews[0].Thumbnail)
	assert.Error(t, previews[1].Err)
	assert.Equal(t, []string{good, bad}, c.Files())

	c.SelectFiles([]string{good})
	assert.Equal(t, []string{good}, c.Files())
}

func TestAnalyze_NoImagesSelected(t *testing.T) {
	rec := &recordingAPI{reply: "unused"}
	c := newComposer(t, rec, newSlot(t), Options{})

	_, err := c.Analyze(context.Background(), founder)

	assert.ErrorIs(t, err, ErrNoImagesSelected)
	assert.Equal(t, "no images selected", err.Error())
	assert.Zero(t, rec.analyzeHits)
	assert.Equal(t, ModeAnalyze, c.Mode())
}

func TestAnalyze_StoresPostAndSwitchesMode(t *testing.T) {
	rec := &recordingAPI{reply: "We raised our seed round!"}
	store := newSlot(t)
	c := newComposer(t, rec, store, Options{})

	dir := t.TempDir()
	c.SelectFiles([]string{writeImage(t, dir, "a.png"), writeImage(t, dir, "b.png")})

	text, err := c.Analyze(context.Background(), founder)
	require.NoError(t, err)
	assert.Equal(t, "We raised our seed round!", text)
	assert.Equal(t, text, c.Text())
	assert.Equal(t, ModeRegenerate, c.Mode())
	assert.Equal(t, []string{"a.png", "b.png"}, rec.imageNames)

	stored, ok, err := store.Get(context.Background(), slot.LastGeneratedPost)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "We raised our seed round!", stored)
}

func TestAnalyze_FailureLeavesModeAndSlot(t *testing.T) {
	rec := &recordingAPI{status: http.StatusInternalServerError, reply: "Internal Server Error"}
	store := newSlot(t)
	c := newComposer(t, rec, store, Options{})
	c.SelectFiles([]string{writeImage(t, t.TempDir(), "a.png")})

	_, err := c.Analyze(context.Background(), founder)

	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Equal(t, ModeAnalyze, c.Mode())
	_, ok, _ := store.Get(context.Background(), slot.LastGeneratedPost)
	assert.False(t, ok)
}

func TestAnalyze_TransportFailure(t *testing.T) {
	c := New(newSlot(t), Options{BaseURL: "http://127.0.0.1:1"})
	c.SelectFiles([]string{writeImage(t, t.TempDir(), "a.png")})

	_, err := c.Analyze(context.Background(), founder)
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestRegenerate_EmptySlot(t *testing.T) {
	rec := &recordingAPI{reply: "unused"}
	c := newComposer(t, rec, newSlot(t), Options{})

	_, err := c.Regenerate(context.Background(), founder)

	assert.ErrorIs(t, err, ErrNoStoredPost)
	assert.Empty(t, rec.regenerate)
}

func TestRegenerate_TwiceSendsSameStoredPost(t *testing.T) {
	rec := &recordingAPI{reply: "a fresh take"}
	store := newSlot(t)
	require.NoError(t, store.Put(context.Background(), slot.LastGeneratedPost, "We did it!"))
	c := newComposer(t, rec, store, Options{})

	for i := 0; i < 2; i++ {
		text, err := c.Regenerate(context.Background(), founder)
		require.NoError(t, err)
		assert.Equal(t, "a fresh take", text)
	}

	require.Len(t, rec.regenerate, 2)
	assert.Equal(t, "We did it!", rec.regenerate[0]["lastGeneratedPost"])
	assert.Equal(t, "We did it!", rec.regenerate[1]["lastGeneratedPost"])
	assert.Equal(t, "Startup Founder", rec.regenerate[0]["persona"])
	assert.Equal(t, "announce funding", rec.regenerate[0]["postPurpose"])
	assert.Equal(t, "started in a garage", rec.regenerate[0]["personalStory"])

	stored, _, _ := store.Get(context.Background(), slot.LastGeneratedPost)
	assert.Equal(t, "We did it!", stored)
	assert.Equal(t, "a fresh take", c.Text())
}

func TestRegenerate_RefreshSlotOnRegenerate(t *testing.T) {
	var n atomic.Int32
	var seen []string
	var mu sync.Mutex
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		seen = append(seen, body["lastGeneratedPost"])
		mu.Unlock()
		if n.Add(1) == 1 {
			io.WriteString(w, "version two")
			return
		}
		io.WriteString(w, "version three")
	})

	store := newSlot(t)
	require.NoError(t, store.Put(context.Background(), slot.LastGeneratedPost, "version one"))
	c := newComposer(t, h, store, Options{RefreshSlotOnRegenerate: true})

	_, err := c.Regenerate(context.Background(), founder)
	require.NoError(t, err)
	_, err = c.Regenerate(context.Background(), founder)
	require.NoError(t, err)

	assert.Equal(t, []string{"version one", "version two"}, seen)
	stored, _, _ := store.Get(context.Background(), slot.LastGeneratedPost)
	assert.Equal(t, "version three", stored)
}

func TestRegenerate_ServerRejects(t *testing.T) {
	rec := &recordingAPI{status: http.StatusBadRequest, reply: "Last generated post is required."}
	store := newSlot(t)
	require.NoError(t, store.Put(context.Background(), slot.LastGeneratedPost, "We did it!"))
	c := newComposer(t, rec, store, Options{})

	_, err := c.Regenerate(context.Background(), founder)
	assert.ErrorIs(t, err, ErrRequestFailed)
}

// fakeGenerator backs a real api.Server for the round-trip test.
type fakeGenerator struct{}

func (fakeGenerator) Analyze(_ context.Context, files []post.ImageFile, uc post.UserContext) (string, error) {
	if len(files) == 0 {
		return "", post.ErrNoFiles
	}
	return "post for " + uc.Persona, nil
}

func (fakeGenerator) Regenerate(_ context.Context, uc post.UserContext, lastPost string) (string, error) {
	if lastPost == "" {
		return "", errors.New("unexpected empty post")
	}
	return "revised: " + lastPost, nil
}

func TestRoundTripAgainstAPIServer(t *testing.T) {
	h := api.NewServer(fakeGenerator{}, api.Config{UploadDir: t.TempDir()}).Handler()
	c := newComposer(t, h, newSlot(t), Options{})
	c.SelectFiles([]string{writeImage(t, t.TempDir(), "a.png")})

	text, err := c.Analyze(context.Background(), founder)
	require.NoError(t, err)
	assert.Equal(t, "post for Startup Founder", text)

	text, err = c.Regenerate(context.Background(), founder)
	require.NoError(t, err)
	assert.Equal(t, "revised: post for Startup Founder", text)
}
