package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"repowiki/internal/pipeline"
)

type ChatHandler struct {
	chat Chatter
	log  *log.Logger
}

func NewChatHandler(chat Chatter, logger *log.Logger) *ChatHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &ChatHandler{chat: chat, log: logger}
}

// Handle answers one chat turn, streaming plain-text tokens.
func (h *ChatHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req pipeline.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, ok := h.chat.Cached(req.Owner, req.Repo); !ok {
		writeError(w, pipeline.ErrWikiNotCached())
		return
	}

	flusher, _ := w.(http.Flusher)
	started := false
	err := h.chat.Chat(r.Context(), req, func(chunk string) {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := w.Write([]byte(chunk)); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	})
	if err == nil {
		if !started {
			w.WriteHeader(http.StatusOK)
		}
		return
	}
	h.log.Printf("chat: %s/%s: %v", req.Owner, req.Repo, err)
	if !started {
		writeError(w, err)
	}
}
