package api

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

func respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

// httpError sends a plain-text error response. The clientMsg is returned to
// the caller. Optional internalDetails are logged server-side but never sent
// to the client.
func httpError(r *http.Request, w http.ResponseWriter, status int, clientMsg string, internalDetails ...string) {
	event := log.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = log.Ctx(r.Context()).Error()
	}
	event.
		Int("status", status).
		Str("clientMsg", clientMsg).
		Strs("internalDetails", internalDetails).
		Msg("Request failed")
	respondText(w, status, clientMsg)
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	respondText(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}
