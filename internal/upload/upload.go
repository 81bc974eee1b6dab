// Package upload stages multipart image uploads on local disk for the
// lifetime of one request.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fpang/ai-post-generator/internal/imaging"
	"github.com/fpang/ai-post-generator/internal/post"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Batch is the set of files staged for one request. Release must be called
// on every exit path; the usual pattern is a defer right after Stage.
type Batch struct {
	files []post.ImageFile

	once sync.Once
}

// Files returns the staged images in upload order.
func (b *Batch) Files() []post.ImageFile {
	if b == nil {
		return nil
	}
	return b.files
}

// Release removes every staged file. It is safe to call more than once and
// on a nil Batch.
func (b *Batch) Release() {
	if b == nil {
		return
	}
	b.once.Do(func() {
		for _, f := range b.files {
			if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("path", f.Path).Msg("Failed to remove staged upload")
			}
		}
		log.Debug().Int("count", len(b.files)).Msg("Staged uploads released")
	})
}

// Stage copies each uploaded part into dir under a random name. If any part
// fails, the files already written are removed before the error is returned.
func Stage(dir string, headers []*multipart.FileHeader) (*Batch, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	b := &Batch{files: make([]post.ImageFile, 0, len(headers))}
	for _, fh := range headers {
		f, err := stageOne(dir, fh)
		if err != nil {
			b.Release()
			return nil, err
		}
		b.files = append(b.files, f)
	}
	return b, nil
}

func stageOne(dir string, fh *multipart.FileHeader) (post.ImageFile, error) {
	src, err := fh.Open()
	if err != nil {
		return post.ImageFile{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	path := filepath.Join(dir, uuid.NewString()+ext)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return post.ImageFile{}, fmt.Errorf("create staged file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return post.ImageFile{}, fmt.Errorf("write staged file %s: %w", fh.Filename, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return post.ImageFile{}, fmt.Errorf("close staged file %s: %w", fh.Filename, err)
	}

	return post.ImageFile{
		Path:        path,
		MIMEType:    mimeType(fh),
		DisplayName: filepath.Base(fh.Filename),
	}, nil
}

// mimeType prefers the part's declared Content-Type and falls back to the
// file extension.
func mimeType(fh *multipart.FileHeader) string {
	declared := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if declared != "" && declared != imaging.FallbackMIMEType {
		return declared
	}
	return imaging.MIMEType(fh.Filename)
}
