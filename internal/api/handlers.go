package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fpang/ai-post-generator/internal/post"
	"github.com/fpang/ai-post-generator/internal/upload"
	"github.com/rs/zerolog/log"
)

// Client-facing error messages.
const (
	msgNoFiles          = "No files uploaded."
	msgNoPriorPost      = "Last generated post is required."
	msgAnalyzeFailed    = "Internal Server Error"
	msgRegenerateFailed = "Failed to regenerate post"
	msgBadRequest       = "Invalid request body."
	msgTooLarge         = "Upload too large."
)

// regenerateRequest is the /regenerate JSON body.
type regenerateRequest struct {
	Persona           string `json:"persona"`
	PostPurpose       string `json:"postPurpose"`
	PersonalStory     string `json:"personalStory"`
	LastGeneratedPost string `json:"lastGeneratedPost"`
}

// POST /analyze
//
// Multipart fields: images (repeated), persona, postPurpose, personalStory.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(r, w, http.StatusRequestEntityTooLarge, msgTooLarge, err.Error())
			return
		}
		// A body that is not multipart carries no files.
		httpError(r, w, http.StatusBadRequest, msgNoFiles, err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["images"]
	if len(headers) == 0 {
		httpError(r, w, http.StatusBadRequest, msgNoFiles)
		return
	}

	batch, err := upload.Stage(s.cfg.UploadDir, headers)
	if err != nil {
		httpError(r, w, http.StatusInternalServerError, msgAnalyzeFailed, err.Error())
		return
	}
	defer batch.Release()

	uc := post.UserContext{
		Persona: r.FormValue("persona"),
		Purpose: r.FormValue("postPurpose"),
		Story:   r.FormValue("personalStory"),
	}

	log.Ctx(r.Context()).Info().
		Int("images", len(headers)).
		Bool("has_persona", uc.Persona != "").
		Msg("Analyze request accepted")

	text, err := s.gen.Analyze(r.Context(), batch.Files(), uc)
	if errors.Is(err, post.ErrNoFiles) {
		httpError(r, w, http.StatusBadRequest, msgNoFiles)
		return
	}
	if err != nil {
		httpError(r, w, http.StatusInternalServerError, msgAnalyzeFailed, err.Error())
		return
	}

	respondText(w, http.StatusOK, text)
}

// POST /regenerate
func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req regenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&req); err != nil {
		httpError(r, w, http.StatusBadRequest, msgBadRequest, err.Error())
		return
	}

	uc := post.UserContext{
		Persona: req.Persona,
		Purpose: req.PostPurpose,
		Story:   req.PersonalStory,
	}
	text, err := s.gen.Regenerate(r.Context(), uc, req.LastGeneratedPost)
	if errors.Is(err, post.ErrNoPriorPost) {
		httpError(r, w, http.StatusBadRequest, msgNoPriorPost)
		return
	}
	if err != nil {
		httpError(r, w, http.StatusInternalServerError, msgRegenerateFailed, err.Error())
		return
	}

	respondText(w, http.StatusOK, text)
}
