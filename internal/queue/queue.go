// Package queue is the durable job queue of spec.md §4.5, backed by
// github.com/go-redis/redis/v7 — the teacher's declared Redis client.
// Ready jobs live on a list (LPUSH to enqueue, BRPOP to claim), delayed
// and retry jobs live on a sorted set scored by ready-unix-time, and each
// job's record (attempts, state, lastError) lives in a JSON string key. Concurrency
// and rate limiting are enforced client-side by the worker pulling from
// this queue, not inside Redis itself.
package queue

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"

	"github.com/iskay-network/usdc-flow-tracker/internal/xlog"
)

var logger = xlog.New("queue")

// State is a job's lifecycle state (spec.md §6 ADDENDUM, GET /flow/:id/job).
type State string

const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateDelayed   State = "delayed"
)

// Payload is the body of one tracking job (spec.md §4.5).
type Payload struct {
	FlowID   string `json:"flowId"`
	FlowType string `json:"flowType"`
}

// Job is a queued unit of work together with its bookkeeping.
type Job struct {
	ID           string    `json:"id"`
	Payload      Payload   `json:"payload"`
	State        State     `json:"state"`
	AttemptsMade int       `json:"attemptsMade"`
	MaxAttempts  int       `json:"maxAttempts"`
	LastError    string    `json:"lastError,omitempty"`
	EnqueuedAt   time.Time `json:"enqueuedAt"`
	ProcessedAt  time.Time `json:"processedAt,omitempty"`
}

// Policy configures retry backoff and retention (spec.md §4.5).
type Policy struct {
	MaxAttempts         int
	BackoffBase         time.Duration
	CompletedRetention  time.Duration
	CompletedKeepCount  int64
	FailedRetention     time.Duration
}

// DefaultPolicy is 3 attempts, 2s exponential backoff, 24h/1000 completed
// retention, 7 days failed retention (spec.md §4.5).
var DefaultPolicy = Policy{
	MaxAttempts:        3,
	BackoffBase:        2 * time.Second,
	CompletedRetention: 24 * time.Hour,
	CompletedKeepCount: 1000,
	FailedRetention:    7 * 24 * time.Hour,
}

const (
	keyReady   = "flowtracker:queue:ready"
	keyDelayed = "flowtracker:queue:delayed"
	keyJob     = "flowtracker:queue:job:"   // + jobId
	keyByFlow  = "flowtracker:queue:flow:"  // + flowId -> set of jobIds
)

// Queue is the Redis-backed job queue.
type Queue struct {
	rdb    *redis.Client
	policy Policy
}

// New constructs a Queue against an already-connected client.
func New(rdb *redis.Client, policy Policy) *Queue {
	return &Queue{rdb: rdb, policy: policy}
}

// Dial connects to redisURL (REDIS_URL) and returns a ready Queue.
func Dial(redisURL string, policy Policy) (*Queue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse REDIS_URL")
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping().Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return New(rdb, policy), nil
}

// Enqueue adds a ready-to-run job for payload, with an optional delay (0
// for immediate). The caller supplies jobID so callers needing a
// deterministic id (resume jobs: "resume-<flowId>-<now>") can set one.
func (q *Queue) Enqueue(ctx context.Context, jobID string, payload Payload, delay time.Duration) (*Job, error) {
	if jobID == "" {
		jobID = uuid.NewV4().String()
	}
	job := &Job{
		ID:          jobID,
		Payload:     payload,
		State:       StateWaiting,
		MaxAttempts: q.policy.MaxAttempts,
		EnqueuedAt:  time.Now(),
	}
	if delay > 0 {
		job.State = StateDelayed
	}

	if err := q.saveJob(job); err != nil {
		return nil, err
	}
	if err := q.rdb.SAdd(keyByFlow+payload.FlowID, jobID).Err(); err != nil {
		logger.Warn("failed to index job by flow", "jobId", jobID, "flowId", payload.FlowID, "err", err)
	}

	if delay > 0 {
		readyAt := float64(time.Now().Add(delay).Unix())
		if err := q.rdb.ZAdd(keyDelayed, &redis.Z{Score: readyAt, Member: jobID}).Err(); err != nil {
			return nil, errors.Wrap(err, "schedule delayed job")
		}
	} else {
		if err := q.rdb.LPush(keyReady, jobID).Err(); err != nil {
			return nil, errors.Wrap(err, "push ready job")
		}
	}
	return job, nil
}

// PromoteDue moves every delayed job whose ready-time has passed onto the
// ready list. The worker calls this once per poll tick.
func (q *Queue) PromoteDue(ctx context.Context) (int, error) {
	now := float64(time.Now().Unix())
	ids, err := q.rdb.ZRangeByScore(keyDelayed, &redis.ZRangeBy{Min: "-inf", Max: formatScore(now)}).Result()
	if err != nil {
		return 0, errors.Wrap(err, "scan delayed jobs")
	}
	moved := 0
	for _, id := range ids {
		if err := q.rdb.ZRem(keyDelayed, id).Err(); err != nil {
			continue
		}
		if err := q.rdb.LPush(keyReady, id).Err(); err != nil {
			continue
		}
		q.setState(id, StateWaiting, "")
		moved++
	}
	return moved, nil
}

// Claim pops the next ready job (blocking up to timeout), marking it
// active. Returns nil, nil on timeout with no job available.
func (q *Queue) Claim(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.rdb.BRPop(timeout, keyReady).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "claim job")
	}
	// BRPop returns [key, value]
	jobID := res[1]
	job, err := q.loadJob(jobID)
	if err != nil {
		return nil, err
	}
	job.State = StateActive
	job.ProcessedAt = time.Now()
	if err := q.saveJob(job); err != nil {
		return nil, err
	}
	return job, nil
}

// Complete marks job as completed. The job record then expires after
// Policy.CompletedRetention; Policy.CompletedKeepCount is not enforced.
func (q *Queue) Complete(ctx context.Context, jobID string) error {
	return q.setState(jobID, StateCompleted, "")
}

// Fail records runErr against job. If attempts remain under the retry
// policy, the job is rescheduled with exponential backoff (delayed state);
// otherwise it is marked failed permanently.
func (q *Queue) Fail(ctx context.Context, jobID string, runErr error) error {
	job, err := q.loadJob(jobID)
	if err != nil {
		return err
	}
	job.AttemptsMade++
	job.LastError = runErr.Error()

	if job.AttemptsMade < job.MaxAttempts {
		backoff := q.policy.BackoffBase << uint(job.AttemptsMade-1)
		job.State = StateDelayed
		if err := q.saveJob(job); err != nil {
			return err
		}
		readyAt := float64(time.Now().Add(backoff).Unix())
		return q.rdb.ZAdd(keyDelayed, &redis.Z{Score: readyAt, Member: jobID}).Err()
	}

	job.State = StateFailed
	return q.saveJob(job)
}

// Depth returns the number of jobs currently waiting or delayed, for the
// ambient queue/depth gauge.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	ready, err := q.rdb.LLen(keyReady).Result()
	if err != nil {
		return 0, errors.Wrap(err, "count ready jobs")
	}
	delayed, err := q.rdb.ZCard(keyDelayed).Result()
	if err != nil {
		return 0, errors.Wrap(err, "count delayed jobs")
	}
	return ready + delayed, nil
}

// JobsForFlow returns every job ever enqueued for flowID, most recent
// last, backing GET /flow/:id/job.
func (q *Queue) JobsForFlow(ctx context.Context, flowID string) ([]*Job, error) {
	ids, err := q.rdb.SMembers(keyByFlow + flowID).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list jobs for flow")
	}
	out := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, err := q.loadJob(id)
		if err != nil {
			continue // job fell out of retention; skip rather than fail the whole list
		}
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAt.Before(out[j].EnqueuedAt) })
	return out, nil
}

func (q *Queue) setState(jobID string, state State, lastError string) error {
	job, err := q.loadJob(jobID)
	if err != nil {
		return err
	}
	job.State = state
	if lastError != "" {
		job.LastError = lastError
	}
	return q.saveJob(job)
}

func (q *Queue) saveJob(job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	ttl := retentionFor(q.policy, job.State)
	if err := q.rdb.Set(keyJob+job.ID, raw, ttl).Err(); err != nil {
		return errors.Wrap(err, "save job")
	}
	return nil
}

func (q *Queue) loadJob(jobID string) (*Job, error) {
	raw, err := q.rdb.Get(keyJob + jobID).Bytes()
	if err == redis.Nil {
		return nil, errors.Errorf("job %s not found", jobID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "load job")
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func retentionFor(p Policy, state State) time.Duration {
	switch state {
	case StateFailed:
		return p.FailedRetention
	case StateCompleted:
		return p.CompletedRetention
	default:
		return 0 // no expiry while waiting/active/delayed
	}
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', 0, 64)
}
