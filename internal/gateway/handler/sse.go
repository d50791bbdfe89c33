package handler

import (
	"fmt"
	"net/http"
	"sync"

	"repowiki/internal/pipeline"
	"repowiki/internal/util/jsonutil"
)

// sseSink writes events to one SSE response. Once closed, writes are
// dropped; the run that feeds it may outlive the request.
type sseSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

func newSSESink(w http.ResponseWriter, f http.Flusher) *sseSink {
	return &sseSink{w: w, flusher: f}
}

func (s *sseSink) send(e pipeline.Event) {
	data, err := jsonutil.MarshalNoEscape(e)
	if err != nil {
		return
	}
	s.write(fmt.Sprintf("event: %s\ndata: %s\n\n", e.EventName(), data))
}

func (s *sseSink) keepAlive() {
	s.write(": keep-alive\n\n")
}

func (s *sseSink) write(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		s.closed = true
		return
	}
	s.flusher.Flush()
}

func (s *sseSink) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
