package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pocketomega/pocket-eli5/internal/pipeline"
	"github.com/pocketomega/pocket-eli5/internal/youtube"
)

type sseEvent struct {
	Name string
	Data string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	for _, chunk := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		var ev sseEvent
		for _, line := range strings.Split(chunk, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.Name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.Data = strings.TrimPrefix(line, "data: ")
			}
		}
		events = append(events, ev)
	}
	return events
}

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, url string) youtube.VideoInfo {
	return youtube.VideoInfo{
		URL:        url,
		VideoID:    "dQw4w9WgXcQ",
		Title:      "Test Video",
		Transcript: "Plants take sunlight and turn it into food. Water moves up from the roots.",
	}
}

// fakeRunner runs the real pipeline offline: stub fetcher, placeholder text.
func fakeRunner(ctx context.Context, url string) (*pipeline.State, error) {
	return pipeline.Run(ctx, pipeline.Deps{Fetcher: stubFetcher{}}, url)
}

func newTestServer(t *testing.T, run Runner) *Server {
	t.Helper()
	s, err := NewServer(run, HealthInfo{LLMModel: "gpt-test", Mode: "batch-node"})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func TestSummarize_StreamsStagesAndStoresReport(t *testing.T) {
	s := newTestServer(t, fakeRunner)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/summarize", "application/json",
		strings.NewReader(`{"url":"https://youtu.be/dQw4w9WgXcQ"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	events := parseSSE(t, string(body))
	var names []string
	for _, ev := range events {
		names = append(names, ev.Name)
	}
	if len(names) < 3 || names[0] != "start" || names[len(names)-1] != "done" {
		t.Fatalf("events = %v", names)
	}
	for _, n := range names[1 : len(names)-1] {
		if n != "stage" {
			t.Fatalf("unexpected event %q in %v", n, names)
		}
	}

	var start sseStartEvent
	if err := json.Unmarshal([]byte(events[0].Data), &start); err != nil {
		t.Fatalf("start payload: %v", err)
	}
	if start.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("start video id = %q", start.VideoID)
	}

	var stage sseStageEvent
	if err := json.Unmarshal([]byte(events[1].Data), &stage); err != nil {
		t.Fatalf("stage payload: %v", err)
	}
	if stage.Kind != "stage_started" || stage.Stage != "process_video" {
		t.Errorf("stage event = %+v", stage)
	}

	var done sseDoneEvent
	if err := json.Unmarshal([]byte(events[len(events)-1].Data), &done); err != nil {
		t.Fatalf("done payload: %v", err)
	}
	if done.ReportID == "" || done.ReportURL != "/report/"+done.ReportID || done.Topics == 0 || done.Title != "Test Video" {
		t.Errorf("done event = %+v", done)
	}

	rep, err := http.Get(ts.URL + done.ReportURL)
	if err != nil {
		t.Fatalf("GET report: %v", err)
	}
	repBody, _ := io.ReadAll(rep.Body)
	rep.Body.Close()
	if rep.StatusCode != http.StatusOK || !strings.Contains(string(repBody), "Test Video - ELI5 Summary") {
		t.Errorf("report status=%d body=%q", rep.StatusCode, repBody)
	}
}

func TestSummarize_FormBody(t *testing.T) {
	s := newTestServer(t, fakeRunner)
	req := httptest.NewRequest(http.MethodPost, "/api/summarize",
		strings.NewReader("url=https%3A%2F%2Fwww.youtube.com%2Fwatch%3Fv%3DdQw4w9WgXcQ"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "event: done") {
		t.Errorf("expected done event, got %q", rec.Body.String())
	}
}

func TestSummarize_RejectsBadInput(t *testing.T) {
	called := false
	run := func(ctx context.Context, url string) (*pipeline.State, error) {
		called = true
		return nil, nil
	}
	s := newTestServer(t, run)

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"empty url", http.MethodPost, `{"url":"  "}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, `{url`, http.StatusBadRequest},
		{"not youtube", http.MethodPost, `{"url":"https://example.com/video"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/summarize", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if called {
		t.Error("runner should not be called for invalid input")
	}
}

func TestSummarize_RunErrorSendsErrorEvent(t *testing.T) {
	run := func(ctx context.Context, url string) (*pipeline.State, error) {
		return nil, errors.New("boom")
	}
	s := newTestServer(t, run)
	req := httptest.NewRequest(http.MethodPost, "/api/summarize",
		strings.NewReader(`{"url":"dQw4w9WgXcQ"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	events := parseSSE(t, rec.Body.String())
	last := events[len(events)-1]
	if last.Name != "error" || !strings.Contains(last.Data, "boom") {
		t.Errorf("last event = %+v", last)
	}
	if s.reports.Len() != 0 {
		t.Error("failed run must not store a report")
	}
}

func TestReport_NotFound(t *testing.T) {
	s := newTestServer(t, fakeRunner)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestReportStore_EvictsOldest(t *testing.T) {
	store := NewReportStore(2)
	store.Put("a", "A", "<a>")
	store.Put("b", "B", "<b>")
	store.Put("a", "A2", "<a2>") // replace, no eviction
	store.Put("c", "C", "<c>")

	if store.Len() != 2 {
		t.Fatalf("Len = %d, want 2", store.Len())
	}
	if _, ok := store.Get("a"); ok {
		t.Error("oldest report should be evicted")
	}
	if r, ok := store.Get("c"); !ok || r.HTML != "<c>" {
		t.Errorf("Get(c) = %+v, %v", r, ok)
	}
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, fakeRunner)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "YouTube Made Simple") {
		t.Errorf("index status=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		model      string
		wantStatus string
		wantLLM    string
	}{
		{"with model", "gpt-test", "ok", "ok"},
		{"placeholder", "", "degraded", "placeholder"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewServer(fakeRunner, HealthInfo{LLMModel: tt.model, Mode: "batch-flow"})
			if err != nil {
				t.Fatal(err)
			}
			s.reports.Put("x", "X", "<x>")

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			var resp healthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantStatus || resp.Components.LLM.Status != tt.wantLLM {
				t.Errorf("health = %+v", resp)
			}
			if resp.Components.Pipeline.Mode != "batch-flow" || resp.Components.Pipeline.Reports != 1 {
				t.Errorf("pipeline component = %+v", resp.Components.Pipeline)
			}
		})
	}
}
