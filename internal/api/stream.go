package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/banshee-data/yardwatch/internal/yard"
)

// StatusHub fans the published yard status out to stream clients. Each
// client holds at most one pending status; a slow client skips to the latest.
type StatusHub struct {
	mu     sync.Mutex
	subs   map[chan yard.Status]struct{}
	last   yard.Status
	seen   bool
	closed bool
}

var _ yard.Publisher = (*StatusHub)(nil)

func NewStatusHub() *StatusHub {
	return &StatusHub{subs: make(map[chan yard.Status]struct{})}
}

// PublishStatus implements yard.Publisher. It never blocks the engine.
func (h *StatusHub) PublishStatus(s yard.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last, h.seen = s, true
	for ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// Subscribe returns a channel primed with the latest status, if any.
func (h *StatusHub) Subscribe() chan yard.Status {
	ch := make(chan yard.Status, 1)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	if h.seen {
		ch <- h.last
	}
	h.subs[ch] = struct{}{}
	return ch
}

func (h *StatusHub) Unsubscribe(ch chan yard.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Close ends every stream.
func (h *StatusHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		close(ch)
	}
	h.subs = map[chan yard.Status]struct{}{}
	h.closed = true
}

// Subscribers returns the number of connected clients.
func (h *StatusHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// serveStream handles GET /api/status/stream as server-sent events.
func (h *StatusHub) serveStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	_, _ = w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(st)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
