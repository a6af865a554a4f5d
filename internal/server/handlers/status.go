package handlers

import (
	"net/http"

	"github.com/3leaps/webhunt/pkg/engine"
	"github.com/3leaps/webhunt/pkg/throttle"
)

// StatusResponse is the /status handler's JSON body: the live
// ThrottlerMetrics and RunStats snapshot for a run in progress.
type StatusResponse struct {
	Throttler throttle.Metrics        `json:"throttler"`
	Run       engine.RunStatsSnapshot `json:"run"`
}

// StatusSource supplies the live values a StatusHandler reports; it is
// satisfied by *throttle.WithMetrics and *engine.RunStats respectively,
// wired in by internal/cmd once a run starts.
type StatusSource struct {
	Throttler *throttle.WithMetrics
	Run       *engine.RunStats
}

// StatusHandler reports the current throttler and run-stats metrics
// for an in-progress (or just-finished) run. If source.Throttler or
// source.Run is nil (no run has started yet) the corresponding section
// is reported as its zero value.
func StatusHandler(source *StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{}
		if source.Throttler != nil {
			resp.Throttler = source.Throttler.Snapshot()
		}
		if source.Run != nil {
			resp.Run = source.Run.Snapshot()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
