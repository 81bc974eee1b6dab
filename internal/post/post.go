// Package post orchestrates the two-stage post generation flow:
//
//  1. Style analysis: uploaded post screenshots are sent to Gemini, which
//     describes their tone, structure, phrasing and call-to-action technique.
//  2. Generation: the analysis is combined with the author's persona, the
//     post's purpose and a personal story into a single finished post.
//
// Regeneration skips stage one and revises a previously generated post.
// A Generator holds no per-request state and is safe for concurrent use.
package post

import (
	"errors"
	"strings"
)

var (
	// ErrNoFiles is returned by Analyze when called without images.
	ErrNoFiles = errors.New("no files uploaded")

	// ErrNoPriorPost is returned by Regenerate when there is no post to revise.
	ErrNoPriorPost = errors.New("last generated post is required")

	// ErrEmptyPost is returned when the model produced only whitespace.
	ErrEmptyPost = errors.New("model returned an empty post")
)

// UserContext is the author-supplied context sent with every request.
// Fields are free text and are not validated beyond presence.
type UserContext struct {
	Persona string `json:"persona"`
	Purpose string `json:"postPurpose"`
	Story   string `json:"personalStory"`
}

// ImageFile is one staged upload: a local path plus the metadata the
// client declared for it.
type ImageFile struct {
	Path        string
	MIMEType    string
	DisplayName string
}

// Options tune behaviour that has no single obviously-right answer.
type Options struct {
	// Platform names the social network in prompts (default LinkedIn).
	Platform string

	// RegenerateWithAnalysisParams makes Regenerate use the same fixed
	// sampling parameters as Analyze instead of the model defaults.
	RegenerateWithAnalysisParams bool

	// KeepRemoteFiles leaves uploaded images in the Gemini Files API after
	// Analyze returns. They expire server-side after 48 hours either way.
	KeepRemoteFiles bool

	// UploadConcurrency caps parallel uploads per request; 0 means unlimited.
	UploadConcurrency int
}

func nonEmpty(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyPost
	}
	return text, nil
}
