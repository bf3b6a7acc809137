// Package server hosts the rendered report on a local HTTP port so the
// analysis can be viewed in a browser without leaving files behind.
package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/samatild/sosparser/internal/report"
)

// Server is a local HTTP server for one analyzed bundle.
type Server struct {
	mu         sync.RWMutex
	reportHTML string
	data       report.Data
	httpServer *http.Server
}

// New creates a Server for the given rendered report.
func New(data report.Data, html string) *Server {
	return &Server{
		reportHTML: html,
		data:       data,
	}
}

// Start begins listening on the given port (0 = OS-assigned). Returns "host:port".
func (s *Server) Start(port int) (string, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/findings.json", s.handleFindings)
	mux.HandleFunc("/", s.handleReport)

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}

	s.httpServer = &http.Server{Handler: mux}
	go s.httpServer.Serve(ln) //nolint:errcheck

	return ln.Addr().String(), nil
}

// Stop shuts down the server.
func (s *Server) Stop() {
	if s.httpServer != nil {
		s.httpServer.Close()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := s.data.Health
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"status":         "ok",
		"overall_status": h.OverallStatus,
		"critical_count": h.CriticalCount,
		"warning_count":  h.WarningCount,
	})
}

func (s *Server) handleFindings(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data) //nolint:errcheck
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	html := s.reportHTML
	s.mu.RUnlock()

	if html == "" {
		http.Error(w, "report not ready", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

// Update replaces the served report (thread-safe).
func (s *Server) Update(data report.Data, html string) {
	s.mu.Lock()
	s.data = data
	s.reportHTML = html
	s.mu.Unlock()
}
