// Package server implements webhunt's optional status/metrics HTTP
// surface: a chi router exposing health probes, version, and a live
// throttler/run-stats snapshot, with JSON error envelopes for 404/405.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/3leaps/webhunt/internal/apperrors"
	"github.com/3leaps/webhunt/internal/server/handlers"
	"github.com/3leaps/webhunt/internal/server/middleware"
)

// Server is webhunt's status/metrics HTTP surface.
type Server struct {
	host   string
	port   int
	router chi.Router
}

// New builds a Server bound to host:port. source may be nil if no run
// has started yet; StatusSource's fields can be updated by the caller
// once internal/cmd starts a run.
func New(host string, port int, source *handlers.StatusSource) *Server {
	if source == nil {
		source = &handlers.StatusSource{}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)

	r.NotFound(notFoundHandler)
	r.MethodNotAllowed(methodNotAllowedHandler)

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", handlers.VersionHandler(webhuntVersion))
	r.Get("/status", handlers.StatusHandler(source))

	return &Server{host: host, port: port, router: r}
}

// webhuntVersion is the version /version reports. It can be set with
// -ldflags -X at build time and defaults to "dev"; the version
// cmd/webhunt passes to cmd.SetVersionInfo does not reach it.
var webhuntVersion = "dev"

// Handler returns the Server's root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// Port returns the port the Server was constructed with.
func (s *Server) Port() int { return s.port }

// Addr returns the host:port address ListenAndServe should bind.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

func writeJSONError(w http.ResponseWriter, envelope *apperrors.ErrorEnvelope, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(apperrors.HTTPErrorResponse{Error: *envelope})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	envelope := apperrors.NewErrorEnvelope("NOT_FOUND", "resource not found")
	writeJSONError(w, envelope, http.StatusNotFound)
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	envelope := apperrors.NewErrorEnvelope("METHOD_NOT_ALLOWED", "method not allowed")
	writeJSONError(w, envelope, http.StatusMethodNotAllowed)
}
