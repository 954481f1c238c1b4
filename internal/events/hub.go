// Package events implements the in-process, topic-per-flow event fan-out
// of spec.md §4.3/§9: best-effort, at-most-once delivery per subscriber.
// Subscribers that miss events must reconcile by re-reading
// GET /flow/:id/status — the hub makes no durability guarantee.
package events

import (
	"sync"

	gset "gopkg.in/fatih/set.v0"

	"github.com/iskay-network/usdc-flow-tracker/internal/model"
)

// StatusUpdate is published to a flow's subscribers after every stage
// transition (spec.md §6, WebSocket StatusUpdate shape).
type StatusUpdate struct {
	FlowID     string                 `json:"flowId"`
	Chain      model.ChainKey         `json:"chain"`
	Stage      string                 `json:"stage"`
	Status     model.ChainStatus      `json:"status"`
	Message    string                 `json:"message,omitempty"`
	TxHash     string                 `json:"txHash,omitempty"`
	OccurredAt string                 `json:"occurredAt"`
	Source     model.StageSource      `json:"source"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Subscriber receives status updates for flows it has subscribed to.
type Subscriber interface {
	ID() string
	Notify(update StatusUpdate)
}

// Hub is the process-wide topic-per-flow publish/subscribe registry. A
// topic is a flow id; the subscriber set per topic is a gopkg.in/fatih/set
// string set of subscriber ids, mirroring common/cache.go's use of
// hashicorp/golang-lru elsewhere in the pack for small in-memory
// registries — here a set rather than a cache, since membership (not
// eviction) is what matters.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber       // subscriber id -> subscriber
	topics      map[string]*gset.Set        // flowId -> set of subscriber ids
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]Subscriber),
		topics:      make(map[string]*gset.Set),
	}
}

// Register makes sub known to the hub so it can later Subscribe to topics.
func (h *Hub) Register(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub.ID()] = sub
}

// Unregister removes sub and drops it from every topic it was subscribed
// to. Safe to call on disconnect even if the subscriber never subscribed
// to anything.
func (h *Hub) Unregister(subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, subID)
	for _, set := range h.topics {
		set.Remove(subID)
	}
}

// Subscribe adds subID to flowId's topic.
func (h *Hub) Subscribe(flowID, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.topics[flowID]
	if !ok {
		set = gset.New()
		h.topics[flowID] = set
	}
	set.Add(subID)
}

// Unsubscribe removes subID from flowId's topic.
func (h *Hub) Unsubscribe(flowID, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.topics[flowID]; ok {
		set.Remove(subID)
	}
}

// Publish delivers update to every subscriber currently on update.FlowID's
// topic. Delivery is best-effort: a panic in one subscriber's Notify is
// recovered and does not stop delivery to the others, and a subscriber
// registered after Publish returns simply missed the event. Notify calls
// run one after another in the caller's goroutine, so a Notify that blocks
// also holds up the subscribers after it and Publish itself.
func (h *Hub) Publish(update StatusUpdate) {
	h.mu.RLock()
	set, ok := h.topics[update.FlowID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	ids := set.List()
	subs := make([]Subscriber, 0, len(ids))
	for _, id := range ids {
		if sub, ok := h.subscribers[id.(string)]; ok {
			subs = append(subs, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		notifyOne(sub, update)
	}
}

func notifyOne(sub Subscriber, update StatusUpdate) {
	defer func() {
		_ = recover() // a misbehaving subscriber must never break the fan-out.
	}()
	sub.Notify(update)
}
