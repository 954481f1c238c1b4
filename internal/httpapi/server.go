// Package httpapi implements the HTTP and WebSocket surface of spec.md
// §6, routed with github.com/julienschmidt/httprouter (the teacher's
// declared router) and wrapped with github.com/rs/cors.
package httpapi

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/iskay-network/usdc-flow-tracker/internal/events"
	"github.com/iskay-network/usdc-flow-tracker/internal/metrics"
	"github.com/iskay-network/usdc-flow-tracker/internal/queue"
	"github.com/iskay-network/usdc-flow-tracker/internal/store"
	"github.com/iskay-network/usdc-flow-tracker/internal/worker"
	"github.com/iskay-network/usdc-flow-tracker/internal/xlog"
)

var logger = xlog.New("httpapi")

// Server wires the Repository, Queue, event Hub, and worker enqueue path
// into an http.Handler.
type Server struct {
	repo         store.Repository
	q            *queue.Queue
	hub          *events.Hub
	w            *worker.Worker
	corsOrigins  []string
}

// New constructs a Server. corsOrigins is the CORS_ORIGINS allow-list
// (empty means allow all, matching a permissive dev default).
func New(repo store.Repository, q *queue.Queue, hub *events.Hub, w *worker.Worker, corsOrigins []string) *Server {
	return &Server{repo: repo, q: q, hub: hub, w: w, corsOrigins: corsOrigins}
}

// Handler builds the routed, CORS-wrapped http.Handler.
func (s *Server) Handler() http.Handler {
	r := httprouter.New()

	r.POST("/api/track/flow", s.withMetrics(s.handleTrackFlow))
	r.GET("/api/flow/:id", s.withMetrics(s.handleGetFlow))
	r.GET("/api/flow/:id/status", s.withMetrics(s.handleGetStatus))
	r.GET("/api/flow/:id/logs", s.withMetrics(s.handleGetLogs))
	r.GET("/api/flow/:id/job", s.withMetrics(s.handleGetJobs))
	r.POST("/api/flow/:id/stage", s.withMetrics(s.handlePostStage))
	r.GET("/api/flow/by-hash/:chain/:hash", s.withMetrics(s.handleGetByHash))
	r.GET("/api/health", s.handleHealth)
	r.Handler(http.MethodGet, "/metrics", metrics.Handler())
	r.GET("/metrics/flows", s.withMetrics(wrapJSONHandler(metrics.FlowCountsHandler(s.repo))))
	r.GET("/ws", s.handleWebSocket)

	corsCfg := cors.New(cors.Options{
		AllowedOrigins: originsOrWildcard(s.corsOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return corsCfg.Handler(r)
}

func originsOrWildcard(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func wrapJSONHandler(h http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h(w, r)
	}
}

// withMetrics times every request into the ambient http/requestLatency
// timer (spec.md AMBIENT STACK: metrics).
func (s *Server) withMetrics(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		metrics.TimeHTTPRequest(func() { h(w, r, ps) })
		logger.Debug("handled request", "method", r.Method, "path", r.URL.Path, "elapsedMs", time.Since(start).Milliseconds())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
