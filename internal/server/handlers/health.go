// Package handlers implements the status server's HTTP handlers:
// health probes, version, and the throttler/run-stats status surface.
package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/3leaps/webhunt/internal/apperrors"
)

// Checker reports whether a dependency the status server cares about
// is healthy.
type Checker interface {
	CheckHealth(ctx context.Context) error
}

// HealthResponse is the /health family's JSON body.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// HealthManager tracks named Checkers and renders their combined
// status.
type HealthManager struct {
	version string

	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewHealthManager builds an empty HealthManager reporting the given
// version string.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{version: version, checkers: make(map[string]Checker)}
}

// RegisterChecker adds or replaces a named Checker.
func (m *HealthManager) RegisterChecker(name string, checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = checker
}

func (m *HealthManager) runChecks(ctx context.Context) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make(map[string]string, len(m.checkers))
	for name, checker := range m.checkers {
		if err := checker.CheckHealth(ctx); err != nil {
			results[name] = "unhealthy"
			continue
		}
		results[name] = "healthy"
	}
	return results
}

// determineOverallStatus folds individual check results into one
// summary status: any unhealthy check fails the whole probe; a
// timeout is reported as merely degraded rather than failing it.
func (m *HealthManager) determineOverallStatus(checks map[string]string) string {
	degraded := false
	for _, status := range checks {
		switch status {
		case "unhealthy":
			return "unhealthy"
		case "timeout":
			degraded = true
		}
	}
	if degraded {
		return "degraded"
	}
	return "healthy"
}

// HealthHandler serves the combined health probe: 200 with a status
// summary when healthy or degraded, 503 with a detailed error
// envelope when any checker reports unhealthy.
func (m *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks := m.runChecks(r.Context())
	status := m.determineOverallStatus(checks)

	if status == "unhealthy" {
		envelope := apperrors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "one or more health checks failed").
			WithDetails(map[string]interface{}{"checks": toAnyMap(checks)})
		writeJSONError(w, envelope, http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  status,
		Version: m.version,
		Checks:  checks,
	})
}

// LivenessHandler reports only whether the process is alive: no
// dependency checks are run.
func (m *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Version: m.version})
}

// ReadinessHandler reports whether the process is ready to serve
// traffic, running every registered checker.
func (m *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	m.HealthHandler(w, r)
}

// StartupHandler reports whether the process has finished starting
// up; webhunt has no staged startup sequence so this mirrors
// liveness.
func (m *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	m.LivenessHandler(w, r)
}

var globalHealthManager *HealthManager

// InitHealthManager installs the process-wide HealthManager used by
// the package-level handler funcs below.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the process-wide HealthManager, or nil if
// InitHealthManager has never been called.
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

func uninitializedResponse(w http.ResponseWriter) {
	envelope := apperrors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "health manager not initialized")
	writeJSONError(w, envelope, http.StatusServiceUnavailable)
}

// HealthHandler is the package-level health probe bound to the global
// manager; it responds 503 if the manager hasn't been initialized.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		uninitializedResponse(w)
		return
	}
	globalHealthManager.HealthHandler(w, r)
}

// LivenessHandler is the package-level liveness probe.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		uninitializedResponse(w)
		return
	}
	globalHealthManager.LivenessHandler(w, r)
}

// ReadinessHandler is the package-level readiness probe.
func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		uninitializedResponse(w)
		return
	}
	globalHealthManager.ReadinessHandler(w, r)
}

// StartupHandler is the package-level startup probe.
func StartupHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		uninitializedResponse(w)
		return
	}
	globalHealthManager.StartupHandler(w, r)
}

func toAnyMap(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
