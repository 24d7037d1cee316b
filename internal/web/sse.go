package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// ── SSE Writer ──

// sseWriter wraps an http.ResponseWriter with SSE event writing and
// client disconnect detection.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
}

// newSSEWriter prepares SSE headers and returns a writer.
// Returns nil if streaming is not supported.
func newSSEWriter(w http.ResponseWriter, r *http.Request) *sseWriter {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &sseWriter{w: w, flusher: flusher, ctx: r.Context()}
}

// Send writes an SSE event. Returns false if the client has disconnected.
func (s *sseWriter) Send(event string, data any) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("[SSE] JSON marshal error: %v", err)
		return false
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		log.Printf("[SSE] Write error (client disconnected?): %v", err)
		return false
	}
	s.flusher.Flush()
	return true
}

// ── SSE Event Types ──

const (
	sseEventStart = "start"
	sseEventStage = "stage"
	sseEventDone  = "done"
	sseEventError = "error"
)

type sseStartEvent struct {
	URL     string `json:"url"`
	VideoID string `json:"video_id"`
}

type sseStageEvent struct {
	Kind      string `json:"kind"`
	Flow      string `json:"flow"`
	Stage     string `json:"stage"`
	Step      int    `json:"step"`
	Action    string `json:"action,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

type sseDoneEvent struct {
	ReportID  string `json:"report_id"`
	ReportURL string `json:"report_url"`
	Title     string `json:"title"`
	Topics    int    `json:"topics"`
	Notice    string `json:"notice,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

type sseErrorEvent struct {
	Message string `json:"message"`
}
