package web

import (
	"context"
	"embed"
	"html/template"
	"log"
	"net/http"
	"time"
)

//go:embed templates/index.html
var content embed.FS

const shutdownTimeout = 10 * time.Second

// Server holds the HTTP server and its dependencies.
type Server struct {
	tmpl      *template.Template
	mux       *http.ServeMux
	summarize *SummarizeHandler
	reports   *ReportStore
	health    *HealthHandler
}

// NewServer creates the web server. Finished reports are kept in an
// in-memory store and served from /report/{id}.
func NewServer(run Runner, info HealthInfo) (*Server, error) {
	tmpl, err := template.ParseFS(content, "templates/index.html")
	if err != nil {
		return nil, err
	}

	reports := NewReportStore(0)
	if info.ReportCount == nil {
		info.ReportCount = reports.Len
	}

	s := &Server{
		tmpl:      tmpl,
		mux:       http.NewServeMux(),
		summarize: NewSummarizeHandler(run, reports),
		reports:   reports,
		health:    NewHealthHandler(info),
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/api/summarize", s.summarize.HandleSummarize)
	s.mux.Handle("GET /report/{id}", s.reports)
	s.mux.Handle("/api/health", s.health)
}

// handleIndex serves the main page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, nil); err != nil {
		log.Printf("[Web] Template render error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// Start listens on addr until ctx is cancelled, then waits up to 10s for
// in-flight requests to complete.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Printf("[Web] Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Web] Graceful shutdown error: %v", err)
		}
	}()

	log.Printf("[Web] ELI5 server running at http://localhost%s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		log.Println("[Web] Server stopped")
		return nil
	}
	return err
}
