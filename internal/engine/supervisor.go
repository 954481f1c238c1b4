package engine

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	gset "gopkg.in/fatih/set.v0"
)

// Supervisor is the per-process registry of active flow runs (spec.md
// §4.5 "cross-process queue sharing" decision: the terminal-status guard
// is the cross-process safety net; this registry only prevents a single
// process from running the same flow twice concurrently). active is a
// fatih/set of flow ids currently locked; cancels holds each active run's
// cancellation channel; recentlyMatched is a bounded LRU of (flow, stage)
// pairs the engine can consult to skip re-announcing a match it already
// recorded in this process's lifetime.
type Supervisor struct {
	mu              sync.Mutex
	active          *gset.Set
	cancels         map[string]chan struct{}
	recentlyMatched *lru.Cache
}

// NewSupervisor builds an empty Supervisor.
func NewSupervisor() *Supervisor {
	cache, _ := lru.New(4096)
	return &Supervisor{
		active:          gset.New(),
		cancels:         make(map[string]chan struct{}),
		recentlyMatched: cache,
	}
}

// TryAcquire locks flowID for this process. Returns false if another
// goroutine in this process already holds it.
func (s *Supervisor) TryAcquire(flowID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active.Has(flowID) {
		return false
	}
	s.active.Add(flowID)
	s.cancels[flowID] = make(chan struct{})
	return true
}

// Release unlocks flowID.
func (s *Supervisor) Release(flowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active.Remove(flowID)
	delete(s.cancels, flowID)
}

// CancelChan returns the cancellation channel for an in-progress run of
// flowID. Closed by RequestCancel.
func (s *Supervisor) CancelChan(flowID string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.cancels[flowID]
	if !ok {
		ch = make(chan struct{})
		close(ch)
	}
	return ch
}

// RequestCancel signals an in-progress run of flowID to stop at its next
// check point. A no-op if no run is active.
func (s *Supervisor) RequestCancel(flowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.cancels[flowID]; ok {
		select {
		case <-ch:
			// already closed
		default:
			close(ch)
		}
	}
}

// MarkMatched records that flowID/stage has already been confirmed in
// this process, so a duplicate poll result for the same stage (e.g. a
// retried run racing its predecessor) can be recognized as already-done
// without a store round trip.
func (s *Supervisor) MarkMatched(flowID, stage string) {
	s.recentlyMatched.Add(flowID+"/"+stage, struct{}{})
}

// WasMatched reports whether MarkMatched was previously called for
// flowID/stage and hasn't been evicted.
func (s *Supervisor) WasMatched(flowID, stage string) bool {
	_, ok := s.recentlyMatched.Get(flowID + "/" + stage)
	return ok
}
