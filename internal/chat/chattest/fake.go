// Package chattest provides in-memory fakes for chat.Models and chat.Files.
package chattest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

// Call records one GenerateContent invocation.
type Call struct {
	Model    string
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

// Text concatenates every text part of the call.
func (c Call) Text() string {
	var sb strings.Builder
	for _, content := range c.Contents {
		for _, p := range content.Parts {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// FileURIs lists the FileData URIs of the call in order.
func (c Call) FileURIs() []string {
	var uris []string
	for _, content := range c.Contents {
		for _, p := range content.Parts {
			if p.FileData != nil {
				uris = append(uris, p.FileData.FileURI)
			}
		}
	}
	return uris
}

// Models is a fake chat.Models. Respond is called with the 1-based call
// number; when nil every call answers "generated text #n".
type Models struct {
	Respond func(n int, call Call) (string, error)

	mu    sync.Mutex
	calls []Call
}

// GenerateContent implements chat.Models.
func (m *Models) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	call := Call{Model: model, Contents: contents, Config: config}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	n := len(m.calls)
	m.mu.Unlock()

	text := fmt.Sprintf("generated text #%d", n)
	if m.Respond != nil {
		var err error
		text, err = m.Respond(n, call)
		if err != nil {
			return nil, err
		}
	}
	return TextResponse(text), nil
}

// Calls returns a copy of the recorded calls.
func (m *Models) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// TextResponse builds a single-candidate response carrying text.
func TextResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: int32(len(text)),
		},
	}
}

// Files is a fake chat.Files. Files named in FailUpload fail to upload;
// Delay maps a display name to an artificial upload latency; ProcessingPolls
// makes every file report PROCESSING that many times before turning ACTIVE.
type Files struct {
	FailUpload      map[string]error
	Delay           map[string]time.Duration
	ProcessingPolls int

	mu      sync.Mutex
	uploads []*genai.UploadFileConfig
	sizes   map[string]int
	polls   map[string]int
	deleted []string
}

// Upload implements chat.Files.
func (f *Files) Upload(ctx context.Context, r io.Reader, config *genai.UploadFileConfig) (*genai.File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if d := f.Delay[config.DisplayName]; d > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}
	if err := f.FailUpload[config.DisplayName]; err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	name := fmt.Sprintf("files/%s", config.DisplayName)
	if f.sizes == nil {
		f.sizes = make(map[string]int)
		f.polls = make(map[string]int)
	}
	f.sizes[name] = len(data)
	f.uploads = append(f.uploads, config)

	state := genai.FileStateActive
	if f.ProcessingPolls > 0 {
		state = genai.FileStateProcessing
	}
	return &genai.File{
		Name:     name,
		URI:      "https://generativelanguage.test/v1beta/" + name,
		MIMEType: config.MIMEType,
		State:    state,
	}, nil
}

// Get implements chat.Files.
func (f *Files) Get(_ context.Context, name string, _ *genai.GetFileConfig) (*genai.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sizes[name]; !ok {
		return nil, fmt.Errorf("file %s not found", name)
	}
	f.polls[name]++
	state := genai.FileStateProcessing
	if f.polls[name] >= f.ProcessingPolls {
		state = genai.FileStateActive
	}
	return &genai.File{
		Name:  name,
		URI:   "https://generativelanguage.test/v1beta/" + name,
		State: state,
	}, nil
}

// Delete implements chat.Files.
func (f *Files) Delete(_ context.Context, name string, _ *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return &genai.DeleteFileResponse{}, nil
}

// Uploads returns the upload configs in completion order.
func (f *Files) Uploads() []*genai.UploadFileConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*genai.UploadFileConfig(nil), f.uploads...)
}

// Size returns the number of bytes uploaded under name.
func (f *Files) Size(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sizes[name]
}

// Deleted returns the names passed to Delete.
func (f *Files) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}
