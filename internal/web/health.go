package web

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthInfo holds runtime status for the health endpoint.
type HealthInfo struct {
	LLMModel    string // empty when running on placeholder text
	Mode        string // topic processing mode
	ReportCount func() int
}

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	info      HealthInfo
	startTime time.Time
}

// NewHealthHandler creates a health handler recording the server start time.
func NewHealthHandler(info HealthInfo) *HealthHandler {
	return &HealthHandler{info: info, startTime: time.Now()}
}

type healthResponse struct {
	Status     string           `json:"status"`
	UptimeSecs int64            `json:"uptime_seconds"`
	Components healthComponents `json:"components"`
}

type healthComponents struct {
	LLM      healthLLM      `json:"llm"`
	Pipeline healthPipeline `json:"pipeline"`
}

type healthLLM struct {
	Status string `json:"status"`
	Model  string `json:"model,omitempty"`
}

type healthPipeline struct {
	Mode    string `json:"mode"`
	Reports int    `json:"reports"`
}

// ServeHTTP handles GET /api/health. Without a model the service still
// works on placeholder text, so it reports "degraded" rather than failing.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	status, llmStatus := "ok", "ok"
	if h.info.LLMModel == "" {
		status, llmStatus = "degraded", "placeholder"
	}

	reports := 0
	if h.info.ReportCount != nil {
		reports = h.info.ReportCount()
	}

	resp := healthResponse{
		Status:     status,
		UptimeSecs: int64(time.Since(h.startTime).Seconds()),
		Components: healthComponents{
			LLM:      healthLLM{Status: llmStatus, Model: h.info.LLMModel},
			Pipeline: healthPipeline{Mode: h.info.Mode, Reports: reports},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
