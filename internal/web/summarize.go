package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pocketomega/pocket-eli5/internal/core"
	"github.com/pocketomega/pocket-eli5/internal/pipeline"
	"github.com/pocketomega/pocket-eli5/internal/youtube"
)

const (
	maxRequestBody   = 1 << 20          // 1MB max request body
	summarizeTimeout = 10 * time.Minute // global timeout for one pipeline run
)

// Runner executes the pipeline for one URL. pipeline.Run bound to its
// dependencies satisfies it.
type Runner func(ctx context.Context, url string) (*pipeline.State, error)

// SummarizeHandler serves POST /api/summarize, streaming stage progress as
// SSE and finishing with a done event that points at the stored report.
type SummarizeHandler struct {
	run     Runner
	reports *ReportStore
	timeout time.Duration
}

// NewSummarizeHandler creates a handler storing finished reports in reports.
func NewSummarizeHandler(run Runner, reports *ReportStore) *SummarizeHandler {
	return &SummarizeHandler{run: run, reports: reports, timeout: summarizeTimeout}
}

type summarizeRequest struct {
	URL string `json:"url"`
}

// HandleSummarize handles POST /api/summarize.
func (h *SummarizeHandler) HandleSummarize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	url, err := readURL(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	videoID, err := youtube.ExtractVideoID(url)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sse := newSSEWriter(w, r)
	if sse == nil {
		return
	}
	sse.Send(sseEventStart, sseStartEvent{URL: url, VideoID: videoID})

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// Events arrive synchronously on this goroutine, so writing is safe.
	ctx = core.ContextWithObserver(ctx, func(e core.Event) {
		ev := sseStageEvent{
			Kind:      string(e.Kind),
			Flow:      e.Flow,
			Stage:     e.Stage,
			Step:      e.Step,
			Action:    string(e.Action),
			ElapsedMs: e.Elapsed.Milliseconds(),
		}
		if e.Err != nil {
			ev.Error = e.Err.Error()
		}
		sse.Send(sseEventStage, ev)
	})

	started := time.Now()
	state, err := h.run(ctx, url)
	if err != nil {
		log.Printf("[Web] summarize %s failed: %v", url, err)
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "summary timed out"
		}
		sse.Send(sseEventError, sseErrorEvent{Message: msg})
		return
	}

	h.reports.Put(state.RunID, state.VideoInfo.Title, state.HTML)
	sse.Send(sseEventDone, sseDoneEvent{
		ReportID:  state.RunID,
		ReportURL: "/report/" + state.RunID,
		Title:     state.VideoInfo.Title,
		Topics:    len(state.Topics),
		Notice:    state.VideoInfo.Error,
		ElapsedMs: time.Since(started).Milliseconds(),
	})
}

// readURL accepts either a JSON body {"url": ...} or a form field "url".
func readURL(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var url string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req summarizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", errors.New("invalid JSON body")
		}
		url = req.URL
	} else {
		if err := r.ParseForm(); err != nil {
			return "", errors.New("invalid form body")
		}
		url = r.FormValue("url")
	}

	url = strings.TrimSpace(url)
	if url == "" {
		return "", errors.New("url is required")
	}
	return url, nil
}
