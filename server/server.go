package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"comic-bridge/models"
	"comic-bridge/publisher"
)

// Publisher is the publish pipeline consumed by the HTTP boundary.
type Publisher interface {
	Publish(ctx context.Context, req *models.PublishRequest) (*models.PublishResult, error)
}

// ReadyReporter exposes the session readiness flag for the liveness probe.
type ReadyReporter interface {
	IsReady() bool
}

// Server is the HTTP boundary of the bridge.
type Server struct {
	pub            Publisher
	ready          ReadyReporter
	publishTimeout time.Duration

	httpServer *http.Server
}

// New creates a Server listening on addr.
func New(addr string, pub Publisher, ready ReadyReporter, publishTimeout time.Duration) *Server {
	s := &Server{
		pub:            pub,
		ready:          ready,
		publishTimeout: publishTimeout,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/publish", s.handlePublish)
	// Legacy path kept for existing callers.
	mux.HandleFunc("/api/publish", s.handlePublish)
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	log.Printf("HTTP API listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleRoot is the liveness probe. It reports whether the Discord session is
// ready to take publish requests.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		writeDetail(w, http.StatusMethodNotAllowed, "only GET is supported")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "running",
		"ready":  s.ready.IsReady(),
	})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeDetail(w, http.StatusMethodNotAllowed, "only POST is supported")
		return
	}

	var req models.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeDetail(w, http.StatusBadRequest, "title is required")
		return
	}

	log.Printf("Publish request received | title: %s | comic_id: %s", req.Title, req.ComicID)

	ctx, cancel := context.WithTimeout(r.Context(), s.publishTimeout)
	defer cancel()

	result, err := s.pub.Publish(ctx, &req)
	if err != nil {
		status := statusFor(err)
		log.Printf("Publish failed (%d): %v", status, err)
		writeDetail(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// statusFor maps the publisher's error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var attachmentErr *publisher.AttachmentNotFoundError
	switch {
	case errors.As(err, &attachmentErr):
		return http.StatusBadRequest
	case errors.Is(err, publisher.ErrNotForumChannel):
		return http.StatusBadRequest
	case errors.Is(err, publisher.ErrSessionNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, publisher.ErrChannelUnavailable):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
