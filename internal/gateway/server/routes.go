package server

import (
	"net/http"

	"repowiki/internal/gateway/handler"
	"repowiki/internal/gateway/middleware"
)

func NewMux(wiki *handler.WikiHandler, chat *handler.ChatHandler, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()

	// Generation
	mux.HandleFunc("GET /api/wiki/{owner}/{repo}", wiki.Stream)
	mux.HandleFunc("GET /api/wiki/{owner}/{repo}/ws", wiki.StreamWS)
	mux.HandleFunc("GET /api/wikis/{owner}/{repo}", wiki.Get)

	// Chat
	mux.HandleFunc("POST /api/chat", chat.Handle)

	// Ops
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	mux.HandleFunc("GET /healthz", handler.Health)

	return middleware.CORS(mux)
}
