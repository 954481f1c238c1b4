// Package metrics records operational counters into an rcrowley/go-metrics
// registry (the same library cmd/kcn/main.go wires up) and exposes the
// process's Prometheus metrics via github.com/prometheus/client_golang,
// mirroring the pack's dual metrics/prometheus wiring.
package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	gometrics "github.com/rcrowley/go-metrics"

	"github.com/iskay-network/usdc-flow-tracker/internal/model"
	"github.com/iskay-network/usdc-flow-tracker/internal/store"
)

// Registry is the process-wide go-metrics registry.
var Registry = gometrics.NewRegistry()

var (
	pollerIterations = gometrics.GetOrRegisterCounter("poller/iterations", Registry)
	stageTimeouts    = gometrics.GetOrRegisterCounter("poller/stageTimeouts", Registry)
	stageConfirmed   = gometrics.GetOrRegisterCounter("poller/stageConfirmed", Registry)
	queueDepth       = gometrics.GetOrRegisterGauge("queue/depth", Registry)
	httpRequestTimer = gometrics.GetOrRegisterTimer("http/requestLatency", Registry)
)

// IncPollerIteration records one poller loop iteration (one fetched block
// or one getLogs call).
func IncPollerIteration() { pollerIterations.Inc(1) }

// IncStageTimeout records one stage reaching its timeout.
func IncStageTimeout() { stageTimeouts.Inc(1) }

// IncStageConfirmed records one stage confirming a match.
func IncStageConfirmed() { stageConfirmed.Inc(1) }

// SetQueueDepth records the current count of waiting+delayed jobs.
func SetQueueDepth(n int64) { queueDepth.Update(n) }

// TimeHTTPRequest runs f, recording its duration.
func TimeHTTPRequest(f func()) { httpRequestTimer.Time(f) }

// Handler serves the default Prometheus registry's exposition format on
// /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// FlowCountsHandler serves GET /metrics/flows: a small JSON aggregate of
// flow counts by status (spec.md §6 ADDENDUM), independent of the
// Prometheus exposition format since it's consumed by operator
// dashboards expecting plain JSON rather than a scrape target.
func FlowCountsHandler(repo store.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		counts, err := repo.CountFlowsByStatus(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out := struct {
			Pending      int `json:"pending"`
			Completed    int `json:"completed"`
			Failed       int `json:"failed"`
			Undetermined int `json:"undetermined"`
		}{
			Pending:      counts[model.StatusPending],
			Completed:    counts[model.StatusCompleted],
			Failed:       counts[model.StatusFailed],
			Undetermined: counts[model.StatusUndetermined],
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}
