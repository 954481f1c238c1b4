// Package model defines the durable flow state: Flow, ChainProgressEntry,
// Stage, and StatusLog, per spec.md §3. The chain-progress map keyed by
// string is replaced by a fixed record with three optional typed
// sub-records (the key set — evm, noble, namada — is closed), and the
// free-form metadata mapping is projected into a typed TrackingParams by
// DeriveTrackingParams (see params.go) rather than consulted ad hoc by
// control flow.
package model

import "time"

// FlowType is the shape of the cross-chain operation.
type FlowType string

const (
	FlowTypeDeposit FlowType = "deposit"
	FlowTypePayment FlowType = "payment"
)

// ChainKey identifies one of the three chains a flow can touch.
type ChainKey string

const (
	ChainEVM    ChainKey = "evm"
	ChainNoble  ChainKey = "noble"
	ChainNamada ChainKey = "namada"
)

// ChainType is the adapter family a chain id resolves to.
type ChainType string

const (
	ChainTypeEVM        ChainType = "evm"
	ChainTypeTendermint ChainType = "tendermint"
)

// FlowStatus is the overall flow lifecycle state (spec.md §3 invariant 4).
type FlowStatus string

const (
	StatusPending      FlowStatus = "pending"
	StatusCompleted    FlowStatus = "completed"
	StatusFailed       FlowStatus = "failed"
	StatusUndetermined FlowStatus = "undetermined"
)

// Terminal reports whether no further polling work is possible for this
// status (spec.md §3 invariant 1).
func (s FlowStatus) Terminal() bool {
	return s != StatusPending
}

// ChainStatus is the per-chain progress state.
type ChainStatus string

const (
	ChainStatusPending   ChainStatus = "pending"
	ChainStatusConfirmed ChainStatus = "confirmed"
	ChainStatusFailed    ChainStatus = "failed"
)

// StageSource distinguishes poller-observed stages from client-reported
// (gasless) ones.
type StageSource string

const (
	SourcePoller StageSource = "poller"
	SourceClient StageSource = "client"
)

// StageKind selects which per-chain sequence a client-reported stage is
// appended to (spec.md §6, POST /flow/:id/stage "kind" field).
type StageKind string

const (
	StageKindNormal  StageKind = "normal"
	StageKindGasless StageKind = "gasless"
)

// Stage is one observation within a chain's progress (spec.md §3).
// Stages are append-only: existing entries are never mutated (invariant 3).
type Stage struct {
	Stage      string                 `json:"stage"`
	Status     ChainStatus            `json:"status"`
	Message    string                 `json:"message,omitempty"`
	TxHash     string                 `json:"txHash,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
	Source     StageSource            `json:"source"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// ChainProgressEntry is the per-chain sub-state of a Flow.
type ChainProgressEntry struct {
	Status        ChainStatus `json:"status"`
	TxHash        string      `json:"txHash,omitempty"`
	StartBlock    *uint64     `json:"startBlock,omitempty"`
	LastCheckedAt *time.Time  `json:"lastCheckedAt,omitempty"`
	Stages        []Stage     `json:"stages,omitempty"`
	GaslessStages []Stage     `json:"gaslessStages,omitempty"`
}

// ChainProgress is the closed set of per-chain sub-states a Flow can carry.
// Which fields are non-nil is determined by FlowType (spec.md §3): a
// deposit starts with noble+namada and optionally gains evm; a payment
// carries namada+noble+evm.
type ChainProgress struct {
	EVM    *ChainProgressEntry `json:"evm,omitempty"`
	Noble  *ChainProgressEntry `json:"noble,omitempty"`
	Namada *ChainProgressEntry `json:"namada,omitempty"`
}

// Entry returns the entry for key, or nil if that chain isn't part of this
// flow yet.
func (cp *ChainProgress) Entry(key ChainKey) *ChainProgressEntry {
	switch key {
	case ChainEVM:
		return cp.EVM
	case ChainNoble:
		return cp.Noble
	case ChainNamada:
		return cp.Namada
	default:
		return nil
	}
}

// SetEntry installs (or replaces) the entry for key.
func (cp *ChainProgress) SetEntry(key ChainKey, e *ChainProgressEntry) {
	switch key {
	case ChainEVM:
		cp.EVM = e
	case ChainNoble:
		cp.Noble = e
	case ChainNamada:
		cp.Namada = e
	}
}

// AllTxHashes returns the tx hash recorded against every chain entry that
// is currently present, keyed by chain. Used to keep a secondary
// chain-tx-hash lookup table in sync with a Flow row.
func (cp ChainProgress) AllTxHashes() map[ChainKey]string {
	out := make(map[ChainKey]string, 3)
	if cp.EVM != nil {
		out[ChainEVM] = cp.EVM.TxHash
	}
	if cp.Noble != nil {
		out[ChainNoble] = cp.Noble.TxHash
	}
	if cp.Namada != nil {
		out[ChainNamada] = cp.Namada.TxHash
	}
	return out
}

// ErrorState describes the last terminal error recorded on a flow.
type ErrorState struct {
	Reason     string    `json:"reason,omitempty"` // "timeout" for stage timeouts
	Stage      string    `json:"stage,omitempty"`
	TimeoutMs  int64     `json:"timeoutMs,omitempty"`
	ElapsedMs  int64     `json:"elapsedMs,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Flow is one tracked cross-chain operation (spec.md §3).
type Flow struct {
	ID                string     `json:"id"`
	TxHash            string     `json:"txHash,omitempty"`
	FlowType          FlowType   `json:"flowType"`
	InitialChain      string     `json:"initialChain"`
	DestinationChain  string     `json:"destinationChain"`
	Status            FlowStatus `json:"status"`
	ChainProgress     ChainProgress          `json:"chainProgress"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	ErrorState        *ErrorState            `json:"errorState,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

// StatusLog is one append-only audit row of a stage change (spec.md §3
// invariant 5: every stage transition writes exactly one row).
type StatusLog struct {
	ID        uint64                 `json:"id"`
	FlowID    string                 `json:"flowId"`
	Stage     string                 `json:"stage"`
	Chain     ChainKey               `json:"chain"`
	Source    StageSource            `json:"source"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// InitialChainKeys returns the chain keys that must be present in
// ChainProgress from the start for the given flow type (spec.md §3).
func InitialChainKeys(ft FlowType) []ChainKey {
	switch ft {
	case FlowTypeDeposit:
		return []ChainKey{ChainNoble, ChainNamada}
	case FlowTypePayment:
		return []ChainKey{ChainNamada, ChainNoble, ChainEVM}
	default:
		return nil
	}
}

// InitiatingChainKey returns the chain whose transaction starts this flow
// (the first entry of its StageOrder): EVM for a deposit, Namada for a
// payment. Used to index the flow's own TxHash for chain-tx-hash lookup.
func (f Flow) InitiatingChainKey() ChainKey {
	order := StageOrder(f.FlowType)
	if len(order) == 0 {
		return ""
	}
	return order[0]
}

// StageOrder returns the ordered stage sequence for a flow type, per
// spec.md §4.3: deposit is EVM burn -> Noble deposit -> Namada receive;
// payment is Namada IBC -> Noble payment -> EVM mint.
func StageOrder(ft FlowType) []ChainKey {
	switch ft {
	case FlowTypeDeposit:
		return []ChainKey{ChainEVM, ChainNoble, ChainNamada}
	case FlowTypePayment:
		return []ChainKey{ChainNamada, ChainNoble, ChainEVM}
	default:
		return nil
	}
}
