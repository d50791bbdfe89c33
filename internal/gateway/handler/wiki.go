package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"repowiki/internal/apperr"
	"repowiki/internal/pipeline"
)

const (
	defaultKeepAlive = 15 * time.Second

	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type WikiHandler struct {
	gen       Generator
	keepAlive time.Duration
	log       *log.Logger
}

func NewWikiHandler(gen Generator, keepAlive time.Duration, logger *log.Logger) *WikiHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WikiHandler{gen: gen, keepAlive: keepAlive, log: logger}
}

// Stream runs (or joins, or serves from cache) a generation and streams
// its events as SSE. A client disconnect stops delivery but not the run.
func (h *WikiHandler) Stream(w http.ResponseWriter, r *http.Request) {
	owner, repo, ok := repoParams(r)
	if !ok {
		http.Error(w, "Invalid owner or repo", http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := newSSESink(w, flusher)
	defer sink.close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := h.gen.Generate(context.WithoutCancel(r.Context()), owner, repo, sink.send)
		if err != nil {
			h.log.Printf("wiki: %s/%s: %v", owner, repo, err)
		}
	}()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			h.log.Printf("wiki: client left %s/%s, run continues", owner, repo)
			return
		case <-ticker.C:
			sink.keepAlive()
		}
	}
}

// Get returns a cached wiki as JSON.
func (h *WikiHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, repo, ok := repoParams(r)
	if !ok {
		http.Error(w, "Invalid owner or repo", http.StatusBadRequest)
		return
	}
	wiki, ok := h.gen.Cached(owner, repo)
	if !ok {
		writeError(w, apperr.New(apperr.CodeNotFound, "wiki not generated"))
		return
	}
	writeJSON(w, http.StatusOK, wiki)
}

type wsOutbound struct {
	Type string         `json:"type"`
	Data pipeline.Event `json:"data"`
}

// StreamWS carries the same events as Stream over a WebSocket, one JSON
// message per event, with ping keep-alive.
func (h *WikiHandler) StreamWS(w http.ResponseWriter, r *http.Request) {
	owner, repo, ok := repoParams(r)
	if !ok {
		http.Error(w, "Invalid owner or repo", http.StatusBadRequest)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		h.log.Printf("wiki ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// Reader: only used to notice the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	writeCh := make(chan wsOutbound, 64)
	go func() {
		_, err := h.gen.Generate(context.WithoutCancel(ctx), owner, repo, func(e pipeline.Event) {
			select {
			case writeCh <- wsOutbound{Type: e.EventName(), Data: e}:
			case <-ctx.Done():
			}
		})
		if err != nil {
			h.log.Printf("wiki ws: %s/%s: %v", owner, repo, err)
		}
	}()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-writeCh:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(out); err != nil {
				return
			}
			if out.Type == "complete" || out.Type == "error" {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteWait))
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
