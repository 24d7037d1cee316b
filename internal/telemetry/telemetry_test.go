package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestSetup_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Settings{})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown returned %v", err)
	}
}

func TestNewProvider_ExportsToCollector(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tp, err := NewProvider(context.Background(), Settings{Endpoint: srv.URL, ServiceName: "test"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	_, span := tp.Tracer("test").Start(context.Background(), "work")
	span.End()

	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) == 0 {
		t.Fatal("collector received no export request")
	}
	if paths[0] != "/v1/traces" {
		t.Errorf("unexpected export path %q", paths[0])
	}
}
