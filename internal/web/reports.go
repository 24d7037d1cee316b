package web

import (
	"net/http"
	"sync"
	"time"
)

const defaultReportCapacity = 50

// storedReport is one rendered report kept for GET /report/{id}.
type storedReport struct {
	HTML    string
	Title   string
	Created time.Time
}

// ReportStore keeps the most recent reports in memory, evicting the oldest
// once capacity is reached. Safe for concurrent use.
type ReportStore struct {
	mu       sync.RWMutex
	capacity int
	reports  map[string]storedReport
	order    []string // insertion order, oldest first
}

// NewReportStore creates a store holding at most capacity reports
// (a non-positive capacity selects the default).
func NewReportStore(capacity int) *ReportStore {
	if capacity <= 0 {
		capacity = defaultReportCapacity
	}
	return &ReportStore{capacity: capacity, reports: make(map[string]storedReport)}
}

// Put stores html under id, replacing any previous report with that id.
func (s *ReportStore) Put(id, title, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[id]; !exists {
		s.order = append(s.order, id)
	}
	s.reports[id] = storedReport{HTML: html, Title: title, Created: time.Now()}

	for len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.reports, oldest)
	}
}

// Get returns the report stored under id.
func (s *ReportStore) Get(id string) (storedReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	return r, ok
}

// Len returns the number of stored reports.
func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// ServeHTTP handles GET /report/{id}.
func (s *ReportStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.Get(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(rep.HTML))
}
