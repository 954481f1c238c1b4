// Package engine is the per-flow tracker orchestrator of spec.md §4.3: it
// walks a flow's chains in order, invokes the matching poller for each,
// and persists every transition as one Flow update plus one StatusLog row.
package engine

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/iskay-network/usdc-flow-tracker/internal/apperr"
	"github.com/iskay-network/usdc-flow-tracker/internal/chainadapter"
	"github.com/iskay-network/usdc-flow-tracker/internal/chainregistry"
	"github.com/iskay-network/usdc-flow-tracker/internal/events"
	"github.com/iskay-network/usdc-flow-tracker/internal/model"
	"github.com/iskay-network/usdc-flow-tracker/internal/poller"
	"github.com/iskay-network/usdc-flow-tracker/internal/store"
	"github.com/iskay-network/usdc-flow-tracker/internal/xlog"
)

var logger = xlog.New("engine")

// Adapters bundles the one configured adapter per chain key a deployment
// talks to. A deployment tracks exactly one EVM network, one Noble
// endpoint, and one Namada endpoint at a time (spec.md §4.1 chain
// registry is per chain id, but a given running engine is wired to one
// active id per chain family).
type Adapters struct {
	EVM    chainadapter.EVMAdapter
	Noble  chainadapter.TendermintAdapter
	Namada chainadapter.TendermintAdapter
}

// Engine runs flows to completion, one chain stage at a time.
type Engine struct {
	adapters   Adapters
	store      store.Repository
	hub        *events.Hub
	registry   chainregistry.Registry
	pollCfg    chainregistry.PollingConfigs
	supervisor *Supervisor
}

// New constructs an Engine.
func New(adapters Adapters, repo store.Repository, hub *events.Hub, registry chainregistry.Registry, pollCfg chainregistry.PollingConfigs) *Engine {
	return &Engine{
		adapters:   adapters,
		store:      repo,
		hub:        hub,
		registry:   registry,
		pollCfg:    pollCfg,
		supervisor: NewSupervisor(),
	}
}

// Run drives flowID's chain-by-chain progression to a terminal status.
// It is reentrant: calling Run again for a flow already in progress in
// this process is a no-op (the supervisor's per-process lock, spec.md
// §4.5), and calling it for a flow whose stored status is already
// terminal is a no-op: Run returns as soon as it loads a terminal status.
func (e *Engine) Run(ctx context.Context, flowID string) error {
	if !e.supervisor.TryAcquire(flowID) {
		logger.Debug("run already in progress in this process, skipping", "flowId", flowID)
		return nil
	}
	defer e.supervisor.Release(flowID)

	cancel := e.supervisor.CancelChan(flowID)

	for {
		flow, err := e.store.GetFlow(ctx, flowID)
		if err != nil {
			return errors.Wrap(err, "load flow")
		}
		if flow.Status.Terminal() {
			return nil
		}

		order := model.StageOrder(flow.FlowType)
		params := model.DeriveTrackingParams(flow)
		chain, done := nextChain(flow, order, params)
		if done {
			final := model.ChainKey("")
			if len(order) > 0 {
				final = order[len(order)-1]
			}
			return e.finish(ctx, flowID, final, "flow_completed", model.StatusCompleted, nil)
		}

		if err := e.runStage(ctx, flow, chain, params, cancel); err != nil {
			if apperr.Is(err, apperr.KindFatalWorker) {
				return err
			}
			logger.Warn("stage run ended in error, stopping this run", "flowId", flowID, "chain", chain, "err", err)
			return err
		}

		if cancelled(ctx, cancel) {
			return nil
		}
	}
}

// Cancel requests that an in-process run for flowID stop advancing after
// its current poll iteration (spec.md supplemented graceful-shutdown
// behavior).
func (e *Engine) Cancel(flowID string) {
	e.supervisor.RequestCancel(flowID)
}

func cancelled(ctx context.Context, cancel <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-cancel:
		return true
	default:
		return false
	}
}

// nextChain returns the first chain in order that is neither confirmed nor
// missing its prerequisite parameters, or done=true if every chain in order
// is confirmed or was skipped for missing prerequisites (spec.md §4.3:
// "each stage is gated on the prerequisite parameters being present; absent
// prerequisites are logged and the stage is skipped").
func nextChain(flow *model.Flow, order []model.ChainKey, params model.TrackingParams) (model.ChainKey, bool) {
	for _, key := range order {
		entry := flow.ChainProgress.Entry(key)
		if entry != nil && entry.Status == model.ChainStatusConfirmed {
			continue
		}
		if !stagePrerequisitesMet(key, flow.FlowType, params) {
			logger.Info("stage prerequisites absent, skipping", "flowId", flow.ID, "chain", key)
			continue
		}
		return key, false
	}
	return "", true
}

// stagePrerequisitesMet reports whether the tracking params needed to run
// chain's poller for this flow type are present (spec.md §4.3/§4.4).
func stagePrerequisitesMet(chain model.ChainKey, ft model.FlowType, p model.TrackingParams) bool {
	switch chain {
	case model.ChainEVM:
		return p.AmountBaseUnits != "" && p.Recipient != "" && p.UsdcAddress != ""
	case model.ChainNoble:
		if ft == model.FlowTypeDeposit {
			return p.ForwardingAddress != "" && p.NamadaReceiver != "" && p.ExpectedAmountUusdc != ""
		}
		return p.MemoJson != "" && p.AmountBaseUnits != "" && p.Recipient != ""
	case model.ChainNamada:
		if ft == model.FlowTypeDeposit {
			return p.ForwardingAddress != "" && p.NamadaReceiver != ""
		}
		return true // client-reported stage; waitForClientStage has no poller prerequisites.
	default:
		return false
	}
}

// runStage advances one chain's stage for flow: ensures a start block,
// invokes the matching poller, and persists the result.
func (e *Engine) runStage(ctx context.Context, flow *model.Flow, chain model.ChainKey, params model.TrackingParams, cancel <-chan struct{}) error {
	chainID := chainIDFor(flow, chain)
	cfg := e.pollCfg.Get(chainID)

	startBlock, err := e.ensureStartBlock(ctx, flow, chain, chainID, cfg)
	if err != nil {
		return err
	}

	p := poller.PollParams{
		FlowID:     flow.ID,
		Chain:      string(chain),
		StartBlock: startBlock,
		Timeout:    time.Duration(cfg.MaxDurationMin) * time.Minute,
		Interval:   time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		BlockDelay: time.Duration(cfg.BlockRequestDelayMs) * time.Millisecond,
		Cancel:     cancel,
		Params:     params,
	}

	onUpdate := func(update poller.StatusUpdate) {
		e.recordStage(ctx, flow.ID, chain, update.Stage, model.ChainStatusPending, update.TxHash, model.SourcePoller, nil)
	}

	result, err := e.dispatch(ctx, chain, flow.FlowType, p, onUpdate)
	if err != nil {
		if apperr.Is(err, apperr.KindPermanentRPC) || apperr.Is(err, apperr.KindFatalWorker) {
			return e.finish(ctx, flow.ID, chain, string(chain)+"_failed", model.StatusFailed, err)
		}
		return err
	}

	switch {
	case result.Matched:
		return e.confirmChain(ctx, flow.ID, chain, result)
	case result.TimedOut:
		return e.timeoutChain(ctx, flow.ID, chain, cfg)
	case cancelled(ctx, cancel):
		// Cancelled mid-poll: stop this run without changing flow status.
		return nil
	default:
		// Stage incomplete: the poller returned without a match and without
		// timing out on its own (e.g. a present-but-malformed tracking
		// param it couldn't act on) — spec.md §7 "Stage incomplete",
		// invariant 6: failed, not undetermined.
		reason := apperr.New(apperr.KindStageIncomplete, errors.Errorf("stage %q ended without match or timeout", chain))
		if err := e.finish(ctx, flow.ID, chain, string(chain)+"_failed", model.StatusFailed, reason); err != nil {
			return err
		}
		return reason
	}
}

// dispatch invokes the poller for chain/flowType. Chains without a
// dedicated poller in this deployment (the payment flow's initiating
// Namada leg, which is gasless-client-reported per spec.md §6
// POST /flow/:id/stage) are satisfied by waitForClientStage instead of an
// active chain scan.
func (e *Engine) dispatch(ctx context.Context, chain model.ChainKey, ft model.FlowType, p poller.PollParams, onUpdate poller.OnUpdate) (poller.PollResult, error) {
	switch chain {
	case model.ChainEVM:
		return poller.PollUsdcMint(ctx, e.adapters.EVM, p, onUpdate)
	case model.ChainNoble:
		if ft == model.FlowTypeDeposit {
			return poller.NoblePollForDeposit(ctx, e.adapters.Noble, p, onUpdate)
		}
		return poller.NoblePollForOrbiter(ctx, e.adapters.Noble, p, onUpdate)
	case model.ChainNamada:
		if ft == model.FlowTypeDeposit {
			return poller.NamadaPollForDeposit(ctx, e.adapters.Namada, p, onUpdate)
		}
		return e.waitForClientStage(ctx, p)
	default:
		return poller.PollResult{}, apperr.New(apperr.KindData, errors.Errorf("unknown chain %q", chain))
	}
}

// waitForClientStage polls the store for a client-reported (gasless)
// confirmation on this stage instead of scanning a chain, for legs the
// client itself submits (spec.md §6 POST /flow/:id/stage, kind=gasless).
func (e *Engine) waitForClientStage(ctx context.Context, p poller.PollParams) (poller.PollResult, error) {
	deadline := time.Now().Add(p.Timeout)
	chain := model.ChainKey(p.Chain)
	for {
		select {
		case <-ctx.Done():
			return poller.PollResult{}, nil
		case <-p.Cancel:
			return poller.PollResult{}, nil
		default:
		}
		if time.Now().After(deadline) {
			return poller.PollResult{TimedOut: true}, nil
		}

		flow, err := e.store.GetFlow(ctx, p.FlowID)
		if err != nil {
			return poller.PollResult{}, err
		}
		entry := flow.ChainProgress.Entry(chain)
		if entry != nil && entry.Status == model.ChainStatusConfirmed {
			return poller.PollResult{Matched: true, TxHash: entry.TxHash}, nil
		}

		t := time.NewTimer(p.Interval)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return poller.PollResult{}, nil
		case <-p.Cancel:
			t.Stop()
			return poller.PollResult{}, nil
		}
	}
}

func chainIDFor(flow *model.Flow, key model.ChainKey) string {
	order := model.StageOrder(flow.FlowType)
	if len(order) > 0 && order[0] == key {
		return flow.InitialChain
	}
	if len(order) > 0 && order[len(order)-1] == key {
		return flow.DestinationChain
	}
	return string(key)
}

// ensureStartBlock returns the chain entry's recorded start block,
// computing and persisting it on first use as tip minus the configured
// backscan window (spec.md §4.3 step 2).
func (e *Engine) ensureStartBlock(ctx context.Context, flow *model.Flow, chain model.ChainKey, chainID string, cfg chainregistry.PollingConfig) (uint64, error) {
	if entry := flow.ChainProgress.Entry(chain); entry != nil && entry.StartBlock != nil {
		return *entry.StartBlock, nil
	}

	tip, err := e.currentTip(ctx, chain)
	if err != nil {
		return 0, err
	}
	start := uint64(0)
	if tip > uint64(cfg.BlockWindowBackscan) {
		start = tip - uint64(cfg.BlockWindowBackscan)
	}

	err = e.store.UpdateFlow(ctx, flow.ID, func(f *model.Flow) error {
		entry := f.ChainProgress.Entry(chain)
		if entry == nil {
			entry = &model.ChainProgressEntry{Status: model.ChainStatusPending}
		}
		if entry.StartBlock != nil {
			return store.ErrNoop
		}
		entry.StartBlock = &start
		f.ChainProgress.SetEntry(chain, entry)
		return nil
	})
	if err != nil {
		return 0, err
	}
	*flow = *mustReload(ctx, e.store, flow.ID)
	return start, nil
}

func (e *Engine) currentTip(ctx context.Context, chain model.ChainKey) (uint64, error) {
	switch chain {
	case model.ChainEVM:
		return e.adapters.EVM.GetBlockNumber(ctx)
	case model.ChainNoble:
		h, err := e.adapters.Noble.GetLatestBlockHeight(ctx)
		return uint64(h), err
	case model.ChainNamada:
		h, err := e.adapters.Namada.GetLatestBlockHeight(ctx)
		return uint64(h), err
	default:
		return 0, apperr.New(apperr.KindData, errors.Errorf("unknown chain %q", chain))
	}
}

func mustReload(ctx context.Context, repo store.Repository, flowID string) *model.Flow {
	flow, err := repo.GetFlow(ctx, flowID)
	if err != nil {
		logger.Error("failed to reload flow after update", "flowId", flowID, "err", err)
		return &model.Flow{ID: flowID}
	}
	return flow
}

// confirmChain marks chain confirmed on flowID, appends its StatusLog row,
// and publishes the update.
func (e *Engine) confirmChain(ctx context.Context, flowID string, chain model.ChainKey, result poller.PollResult) error {
	err := e.store.UpdateFlow(ctx, flowID, func(f *model.Flow) error {
		if f.Status.Terminal() {
			return store.ErrNoop
		}
		entry := f.ChainProgress.Entry(chain)
		if entry == nil {
			entry = &model.ChainProgressEntry{}
		}
		if entry.Status == model.ChainStatusConfirmed {
			return store.ErrNoop
		}
		now := time.Now()
		entry.Status = model.ChainStatusConfirmed
		entry.TxHash = result.TxHash
		entry.LastCheckedAt = &now
		entry.Stages = append(entry.Stages, model.Stage{
			Stage: string(chain) + "_confirmed", Status: model.ChainStatusConfirmed,
			TxHash: result.TxHash, OccurredAt: now, Source: model.SourcePoller,
		})
		f.ChainProgress.SetEntry(chain, entry)
		return nil
	})
	if err != nil {
		return err
	}
	e.recordStage(ctx, flowID, chain, string(chain)+"_confirmed", model.ChainStatusConfirmed, result.TxHash, model.SourcePoller, nil)
	return nil
}

// timeoutChain marks flowID undetermined with a stage-timeout ErrorState
// (spec.md §4.3 handlePollingTimeout, §7, invariant 6: a stage timeout is
// never recorded as failed — only stage incompleteness without a timeout
// is).
func (e *Engine) timeoutChain(ctx context.Context, flowID string, chain model.ChainKey, cfg chainregistry.PollingConfig) error {
	timeoutMs := int64(time.Duration(cfg.MaxDurationMin) * time.Minute / time.Millisecond)
	reason := apperr.New(apperr.KindStageTimeout, errors.Errorf("stage %q timed out after %dms", chain, timeoutMs))
	err := e.finish(ctx, flowID, chain, string(chain)+"_timeout", model.StatusUndetermined, reason)
	if err != nil {
		return err
	}
	return reason
}

// finish sets flowID's overall status to terminal, recording cause (if
// any) into ErrorState, appends the closing StatusLog row (spec.md §3
// invariant 5: every stage transition writes exactly one row), and
// publishes a final status update. A flow already terminal is left
// untouched — no double log, no status overwrite.
func (e *Engine) finish(ctx context.Context, flowID string, chain model.ChainKey, stage string, status model.FlowStatus, cause error) error {
	alreadyTerminal := false
	err := e.store.UpdateFlow(ctx, flowID, func(f *model.Flow) error {
		if f.Status.Terminal() {
			alreadyTerminal = true
			return store.ErrNoop
		}
		f.Status = status
		if cause != nil {
			reason := string(apperr.KindOf(cause))
			if apperr.Is(cause, apperr.KindStageTimeout) {
				reason = "timeout"
			}
			f.ErrorState = &model.ErrorState{
				Reason: reason, Error: cause.Error(), OccurredAt: time.Now(),
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if alreadyTerminal {
		return nil
	}

	var detail map[string]interface{}
	if cause != nil {
		detail = map[string]interface{}{"error": cause.Error()}
	}
	if err := e.store.AppendStatusLog(ctx, &model.StatusLog{
		FlowID: flowID, Stage: stage, Chain: chain, Source: model.SourcePoller,
		Detail: detail, CreatedAt: time.Now(),
	}); err != nil {
		logger.Error("failed to append terminal status log", "flowId", flowID, "stage", stage, "err", err)
	}

	e.hub.Publish(events.StatusUpdate{
		FlowID: flowID, Stage: "flow_" + string(status),
		OccurredAt: time.Now().Format(time.RFC3339), Source: model.SourcePoller,
	})
	return nil
}

// recordStage appends a StatusLog row and publishes a status update for
// one stage transition (spec.md §3 invariant 5: every transition writes
// exactly one row).
func (e *Engine) recordStage(ctx context.Context, flowID string, chain model.ChainKey, stage string, status model.ChainStatus, txHash string, source model.StageSource, detail map[string]interface{}) {
	entry := &model.StatusLog{
		FlowID: flowID, Stage: stage, Chain: chain, Source: source,
		Detail: detail, CreatedAt: time.Now(),
	}
	if err := e.store.AppendStatusLog(ctx, entry); err != nil {
		logger.Error("failed to append status log", "flowId", flowID, "stage", stage, "err", err)
	}
	e.hub.Publish(events.StatusUpdate{
		FlowID: flowID, Chain: chain, Stage: stage, Status: status,
		TxHash: txHash, OccurredAt: entry.CreatedAt.Format(time.RFC3339), Source: source,
	})
}
