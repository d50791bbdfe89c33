// Package handler serves the wiki HTTP surface: streamed generation over
// SSE or WebSocket, cached wiki lookup and grounded chat.
package handler

import (
	"context"
	"net/http"
	"regexp"
	"strconv"

	"repowiki/internal/apperr"
	"repowiki/internal/pipeline"
	"repowiki/internal/types"
	"repowiki/internal/util/jsonutil"
)

// Generator is the pipeline as seen by the transport.
type Generator interface {
	Generate(ctx context.Context, owner, repo string, emit pipeline.EmitFunc) (*types.Wiki, error)
	Cached(owner, repo string) (*types.Wiki, bool)
}

// Chatter answers questions about a cached wiki.
type Chatter interface {
	Chat(ctx context.Context, req pipeline.ChatRequest, onChunk func(string)) error
	Cached(owner, repo string) (*types.Wiki, bool)
}

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// repoParams reads and validates the {owner}/{repo} path values.
func repoParams(r *http.Request) (owner, repo string, ok bool) {
	owner, repo = r.PathValue("owner"), r.PathValue("repo")
	return owner, repo, namePattern.MatchString(owner) && namePattern.MatchString(repo)
}

type errorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter *int   `json:"retryAfter,omitempty"`
}

// writeError renders err as JSON with the status of its code.
func writeError(w http.ResponseWriter, err error) {
	e := apperr.Classify(err)
	body := errorBody{Code: string(e.Code), Message: apperr.UserMessage(e)}
	if e.Code == apperr.CodeRateLimited && e.RetryAfter > 0 {
		ra := e.RetryAfter
		body.RetryAfter = &ra
		w.Header().Set("Retry-After", strconv.Itoa(ra))
	}
	writeJSON(w, apperr.HTTPStatus(e.Code), body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := jsonutil.MarshalNoEscape(v)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
