// Package worker is the durable worker of spec.md §4.5: it claims jobs
// from the queue, runs the tracker engine for each, and feeds the
// result back into the queue's retry policy. It also implements
// resume-on-startup.
package worker

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/iskay-network/usdc-flow-tracker/internal/engine"
	"github.com/iskay-network/usdc-flow-tracker/internal/metrics"
	"github.com/iskay-network/usdc-flow-tracker/internal/model"
	"github.com/iskay-network/usdc-flow-tracker/internal/queue"
	"github.com/iskay-network/usdc-flow-tracker/internal/store"
	"github.com/iskay-network/usdc-flow-tracker/internal/xlog"
)

var logger = xlog.New("worker")

// Config tunes the worker's concurrency and polling cadence.
type Config struct {
	Concurrency  int           // at-most-N jobs running at once (spec.md §4.5: 5)
	RatePerSec   int           // at-most-N claims per second (spec.md §4.5: 10)
	ClaimTimeout time.Duration // how long one Claim blocks waiting for work
	TickInterval time.Duration // how often PromoteDue runs
}

// DefaultConfig is 5 concurrent jobs, 10/sec claim rate (spec.md §4.5).
var DefaultConfig = Config{
	Concurrency:  5,
	RatePerSec:   10,
	ClaimTimeout: 2 * time.Second,
	TickInterval: time.Second,
}

// Worker runs the job loop.
type Worker struct {
	q      *queue.Queue
	repo   store.Repository
	eng    *engine.Engine
	cfg    Config
	limiter *rateLimiter
}

// New constructs a Worker.
func New(q *queue.Queue, repo store.Repository, eng *engine.Engine, cfg Config) *Worker {
	return &Worker{q: q, repo: repo, eng: eng, cfg: cfg, limiter: newRateLimiter(cfg.RatePerSec)}
}

// Resume enqueues a resume job, delayed by one second, for every
// non-terminal flow found at startup (spec.md §4.5: "survive process
// restarts"). Job ids are "resume-<flowId>-<now>", with <now> in Unix
// milliseconds, so each startup enqueues fresh jobs; a duplicate run of
// one flow is harmless because the engine's per-process lock and
// terminal-status check turn it into a no-op.
func (w *Worker) Resume(ctx context.Context) (int, error) {
	flows, err := w.repo.ListNonTerminalFlows(ctx)
	if err != nil {
		return 0, err
	}
	now := strconv.FormatInt(time.Now().UnixNano()/int64(time.Millisecond), 10)
	for _, flow := range flows {
		jobID := "resume-" + flow.ID + "-" + now
		if _, err := w.q.Enqueue(ctx, jobID, queue.Payload{FlowID: flow.ID, FlowType: string(flow.FlowType)}, time.Second); err != nil {
			logger.Warn("failed to enqueue resume job", "flowId", flow.ID, "err", err)
			continue
		}
	}
	logger.Info("resume-on-startup complete", "flowCount", len(flows))
	return len(flows), nil
}

// Run drives the claim/dispatch loop until ctx is cancelled. It blocks.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.TickInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case <-ticker.C:
			if _, err := w.q.PromoteDue(ctx); err != nil {
				logger.Warn("promoteDue failed", "err", err)
			}
			if depth, err := w.q.Depth(ctx); err != nil {
				logger.Warn("queue depth check failed", "err", err)
			} else {
				metrics.SetQueueDepth(depth)
			}
		default:
		}

		if !w.limiter.Allow() {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		job, err := w.q.Claim(ctx, w.cfg.ClaimTimeout)
		if err != nil {
			logger.Warn("claim failed", "err", err)
			continue
		}
		if job == nil {
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			w.runJob(ctx, job)
		}()
	}
}

func (w *Worker) runJob(ctx context.Context, job *queue.Job) {
	logger.Info("running job", "jobId", job.ID, "flowId", job.Payload.FlowID)
	err := w.eng.Run(ctx, job.Payload.FlowID)
	if err != nil {
		logger.Warn("job run failed", "jobId", job.ID, "flowId", job.Payload.FlowID, "err", err)
		if ferr := w.q.Fail(ctx, job.ID, err); ferr != nil {
			logger.Error("failed to record job failure", "jobId", job.ID, "err", ferr)
		}
		return
	}
	if cerr := w.q.Complete(ctx, job.ID); cerr != nil {
		logger.Error("failed to mark job completed", "jobId", job.ID, "err", cerr)
	}
}

// EnsureTracking enqueues a job for a freshly-created or re-submitted
// flow (spec.md §4.5, POST /track/flow). newFlow distinguishes a
// just-created flow (immediate enqueue) from an idempotent re-submission
// of an existing flow already mid-flight (no-op: its run is already
// queued or active).
func (w *Worker) EnsureTracking(ctx context.Context, flow *model.Flow, newFlow bool) error {
	if !newFlow {
		return nil
	}
	_, err := w.q.Enqueue(ctx, "", queue.Payload{FlowID: flow.ID, FlowType: string(flow.FlowType)}, 0)
	return err
}
