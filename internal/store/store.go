// Package store is the relational persistence layer for Flow,
// ChainProgressEntry, Stage, and StatusLog (spec.md §3), backed by
// github.com/jinzhu/gorm over github.com/go-sql-driver/mysql — the
// teacher's own declared relational stack.
package store

import (
	"context"
	"time"

	"github.com/iskay-network/usdc-flow-tracker/internal/model"
)

// ErrNotFound is returned by GetFlow and related lookups when no matching
// row exists.
var ErrNotFound = newStoreError("flow not found")

type storeError struct{ msg string }

func (e *storeError) Error() string { return e.msg }
func newStoreError(msg string) error { return &storeError{msg: msg} }

// Repository is the durable store the tracker engine, HTTP layer, and
// worker depend on.
//go:generate mockgen -destination=./mocks/repository_mock.go -package=mocks github.com/iskay-network/usdc-flow-tracker/internal/store Repository
type Repository interface {
	// CreateFlow inserts flow. If flow.TxHash is non-empty and a flow
	// with that tx hash already exists, CreateFlow does not insert a
	// duplicate; it populates flow in place with the existing record and
	// returns (true, nil) (spec.md §3 invariant 6, §8 property 5: the
	// endpoint is idempotent on txHash).
	CreateFlow(ctx context.Context, flow *model.Flow) (existed bool, err error)

	// GetFlow loads a flow by id.
	GetFlow(ctx context.Context, id string) (*model.Flow, error)

	// GetFlowByChainTxHash looks up a flow by a chain-specific tx hash
	// recorded against it — the initiating tx hash or a chain entry's tx
	// hash — regardless of the flow's current status (spec.md §9 Open
	// Question: include terminal flows). Tx hashes that appear only on
	// individual stages are not indexed and are not found.
	GetFlowByChainTxHash(ctx context.Context, chain model.ChainKey, hash string) (*model.Flow, error)

	// UpdateFlow performs an atomic read-modify-write transaction on the
	// flow row (spec.md §5: "the Flow row is the unit of serializable
	// progress"). mutate receives the current, freshly-reloaded flow and
	// mutates it in place; the result is persisted within the same
	// transaction. mutate may return ErrNoop to abort the write (e.g. the
	// terminal-status guard deciding nothing should change).
	UpdateFlow(ctx context.Context, flowID string, mutate func(*model.Flow) error) error

	// AppendStatusLog inserts one append-only audit row (invariant 5).
	AppendStatusLog(ctx context.Context, entry *model.StatusLog) error

	// ListStatusLogs returns a flow's StatusLog rows ordered by createdAt
	// ascending (spec.md §3).
	ListStatusLogs(ctx context.Context, flowID string) ([]model.StatusLog, error)

	// ListNonTerminalFlows returns every flow whose status is pending, for
	// resume-on-startup (spec.md §4.5).
	ListNonTerminalFlows(ctx context.Context) ([]*model.Flow, error)

	// CountFlowsByStatus backs GET /metrics/flows.
	CountFlowsByStatus(ctx context.Context) (map[model.FlowStatus]int, error)
}

// ErrNoop signals UpdateFlow's mutate callback chose to make no change;
// UpdateFlow treats it as success without writing.
var ErrNoop = newStoreError("no-op update")

// touch stamps UpdatedAt (and CreatedAt, if unset) on flow.
func touch(flow *model.Flow, now time.Time) {
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}
	flow.UpdatedAt = now
}
