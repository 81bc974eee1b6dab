package post

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fpang/ai-post-generator/internal/chat"
	"github.com/fpang/ai-post-generator/internal/chat/chattest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var founder = UserContext{
	Persona: "Startup Founder",
	Purpose: "announce funding",
	Story:   "started in a garage",
}

func newTestGenerator(models *chattest.Models, files *chattest.Files, opts Options) *Generator {
	svc := chat.NewService(models, files, "test-model", chat.WithPollInterval(time.Millisecond))
	return NewGenerator(svc, opts)
}

func stageImages(t *testing.T, names ...string) []ImageFile {
	t.Helper()
	dir := t.TempDir()
	files := make([]ImageFile, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("image bytes of "+name), 0o600))
		files = append(files, ImageFile{Path: path, MIMEType: "image/png", DisplayName: name})
	}
	return files
}

func TestAnalyze_NoFilesMakesNoCalls(t *testing.T) {
	models := &chattest.Models{}
	files := &chattest.Files{}
	g := newTestGenerator(models, files, Options{})

	_, err := g.Analyze(context.Background(), nil, founder)

	assert.ErrorIs(t, err, ErrNoFiles)
	assert.Empty(t, models.Calls())
	assert.Empty(t, files.Uploads())
}

func TestAnalyze_TwoStageFlow(t *testing.T) {
	models := &chattest.Models{
		Respond: func(n int, call chattest.Call) (string, error) {
			if n == 1 {
				return "```json\n{\"tone\":\"motivational\"}\n```", nil
			}
			return "We raised our seed round!", nil
		},
	}
	files := &chattest.Files{}
	g := newTestGenerator(models, files, Options{})

	text, err := g.Analyze(context.Background(), stageImages(t, "a.png", "b.png"), founder)
	require.NoError(t, err)
	assert.Equal(t, "We raised our seed round!", text)

	calls := models.Calls()
	require.Len(t, calls, 2)

	analysis := calls[0]
	parts := analysis.Contents[0].Parts
	require.Len(t, parts, 4)
	assert.True(t, strings.HasPrefix(parts[0].Text, "input:"))
	assert.True(t, strings.HasPrefix(parts[3].Text, "output:"))
	assert.Len(t, analysis.FileURIs(), 2)

	for i, call := range calls {
		require.NotNil(t, call.Config, "call %d", i)
		assert.Equal(t, float32(1), *call.Config.Temperature)
		assert.Equal(t, float32(0.95), *call.Config.TopP)
		assert.Equal(t, float32(64), *call.Config.TopK)
		assert.Equal(t, int32(8192), call.Config.MaxOutputTokens)
		assert.Equal(t, "text/plain", call.Config.ResponseMIMEType)
	}

	generation := calls[1].Text()
	assert.Contains(t, generation, "persona: Startup Founder")
	assert.Contains(t, generation, `{"tone":"motivational"}`)
	assert.Contains(t, generation, "announce funding")
	assert.Contains(t, generation, "started in a garage")
	assert.Empty(t, calls[1].FileURIs())

	assert.ElementsMatch(t, []string{"files/a.png", "files/b.png"}, files.Deleted())
}

func TestAnalyze_UnparseableAnalysisStillSucceeds(t *testing.T) {
	models := &chattest.Models{
		Respond: func(n int, call chattest.Call) (string, error) {
			if n == 1 {
				return "not json", nil
			}
			return "final post", nil
		},
	}
	g := newTestGenerator(models, &chattest.Files{}, Options{})

	text, err := g.Analyze(context.Background(), stageImages(t, "a.png"), founder)
	require.NoError(t, err)
	assert.Equal(t, "final post", text)

	calls := models.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].Text(), `{"text":"not json"}`)
}

func TestAnalyze_PreservesImageOrder(t *testing.T) {
	files := &chattest.Files{
		Delay: map[string]time.Duration{
			"first.png":  30 * time.Millisecond,
			"second.png": 15 * time.Millisecond,
		},
	}
	models := &chattest.Models{}
	g := newTestGenerator(models, files, Options{})

	_, err := g.Analyze(context.Background(), stageImages(t, "first.png", "second.png", "third.png"), founder)
	require.NoError(t, err)

	calls := models.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, []string{
		"https://generativelanguage.test/v1beta/files/first.png",
		"https://generativelanguage.test/v1beta/files/second.png",
		"https://generativelanguage.test/v1beta/files/third.png",
	}, calls[0].FileURIs())
}

func TestAnalyze_UploadFailureSkipsGeneration(t *testing.T) {
	files := &chattest.Files{
		FailUpload: map[string]error{"bad.png": errors.New("quota exceeded")},
		Delay:      map[string]time.Duration{"bad.png": 10 * time.Millisecond},
	}
	models := &chattest.Models{}
	g := newTestGenerator(models, files, Options{})

	_, err := g.Analyze(context.Background(), stageImages(t, "good.png", "bad.png"), founder)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Empty(t, models.Calls())
	assert.Equal(t, []string{"files/good.png"}, files.Deleted())
}

func TestAnalyze_FailureDuringProcessingStillDeletesRemoteFile(t *testing.T) {
	files := &chattest.Files{
		FailUpload:      map[string]error{"a.png": errors.New("boom")},
		Delay:           map[string]time.Duration{"a.png": 20 * time.Millisecond},
		ProcessingPolls: 1000,
	}
	models := &chattest.Models{}
	g := newTestGenerator(models, files, Options{})

	_, err := g.Analyze(context.Background(), stageImages(t, "a.png", "b.png"), founder)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Empty(t, models.Calls())

	require.Len(t, files.Uploads(), 1)
	assert.Equal(t, []string{"files/b.png"}, files.Deleted(),
		"a file still processing when its sibling failed must be deleted")
}

func TestAnalyze_GenerationFailureStillDeletesRemoteFiles(t *testing.T) {
	models := &chattest.Models{
		Respond: func(n int, call chattest.Call) (string, error) {
			return "", errors.New("model overloaded")
		},
	}
	files := &chattest.Files{}
	g := newTestGenerator(models, files, Options{})

	_, err := g.Analyze(context.Background(), stageImages(t, "a.png"), founder)
	require.Error(t, err)
	assert.Len(t, models.Calls(), 1)
	assert.Equal(t, []string{"files/a.png"}, files.Deleted())
}

func TestAnalyze_KeepRemoteFiles(t *testing.T) {
	files := &chattest.Files{}
	g := newTestGenerator(&chattest.Models{}, files, Options{KeepRemoteFiles: true})

	_, err := g.Analyze(context.Background(), stageImages(t, "a.png"), founder)
	require.NoError(t, err)
	assert.Empty(t, files.Deleted())
}

func TestAnalyze_EmptyPostIsAnError(t *testing.T) {
	models := &chattest.Models{
		Respond: func(n int, call chattest.Call) (string, error) {
			if n == 1 {
				return `{"tone":"dry"}`, nil
			}
			return "  \n", nil
		},
	}
	g := newTestGenerator(models, &chattest.Files{}, Options{})

	_, err := g.Analyze(context.Background(), stageImages(t, "a.png"), founder)
	assert.ErrorIs(t, err, ErrEmptyPost)
}

func TestRegenerate_BlankPostMakesNoCalls(t *testing.T) {
	for _, last := range []string{"", "   "} {
		models := &chattest.Models{}
		g := newTestGenerator(models, &chattest.Files{}, Options{})

		_, err := g.Regenerate(context.Background(), founder, last)
		assert.ErrorIs(t, err, ErrNoPriorPost)
		assert.Empty(t, models.Calls())
	}
}

func TestRegenerate_UsesDefaultParams(t *testing.T) {
	models := &chattest.Models{
		Respond: func(n int, call chattest.Call) (string, error) {
			return "a fresh take", nil
		},
	}
	g := newTestGenerator(models, &chattest.Files{}, Options{})

	text, err := g.Regenerate(context.Background(), founder, "We did it!")
	require.NoError(t, err)
	assert.Equal(t, "a fresh take", text)

	calls := models.Calls()
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0].Config)
	assert.Contains(t, calls[0].Text(), `previous post as context: "We did it!"`)
	assert.Contains(t, calls[0].Text(), "persona: Startup Founder")
}

func TestRegenerate_WithAnalysisParams(t *testing.T) {
	models := &chattest.Models{}
	g := newTestGenerator(models, &chattest.Files{}, Options{RegenerateWithAnalysisParams: true, Platform: "Mastodon"})

	_, err := g.Regenerate(context.Background(), founder, "We did it!")
	require.NoError(t, err)

	calls := models.Calls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].Config)
	assert.Equal(t, int32(8192), calls[0].Config.MaxOutputTokens)
	assert.Contains(t, calls[0].Text(), "Mastodon post")
}
