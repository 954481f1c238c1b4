package poller

import (
	"context"
	"time"

	"github.com/iskay-network/usdc-flow-tracker/internal/chainadapter"
)

// visitFunc inspects one block's results and reports whether the overall
// match condition is now satisfied.
type visitFunc func(br *chainadapter.BlockResults) (matched bool, result PollResult)

// scanBlocks implements the general Tendermint scanning protocol of
// spec.md §4.2: read the tip, advance block by block calling visit,
// sleeping blockDelay between fetches and interval when caught up with the
// tip, terminating on match, deadline, or cancellation. A permanent error
// for a height is logged and skipped; a transient error surviving the
// adapter's own retries is logged and skipped too, so the scan never
// stalls on one bad height.
func scanBlocks(ctx context.Context, adapter chainadapter.TendermintAdapter, p PollParams, visit visitFunc) (PollResult, error) {
	deadline := time.Now().Add(p.Timeout)
	nextHeight := int64(p.StartBlock)

	for {
		if cancelled(ctx, p.Cancel) {
			return PollResult{}, nil
		}
		if time.Now().After(deadline) {
			return PollResult{TimedOut: true}, nil
		}

		tip, err := adapter.GetLatestBlockHeight(ctx)
		if err != nil {
			logger.Warn("scanBlocks: getLatestBlockHeight failed", "flowId", p.FlowID, "chain", p.Chain, "err", err)
			if sleep(ctx, p.Interval, p.Cancel) {
				return PollResult{}, nil
			}
			continue
		}

		if nextHeight > tip {
			if sleep(ctx, p.Interval, p.Cancel) {
				return PollResult{}, nil
			}
			continue
		}

		for h := nextHeight; h <= tip; h++ {
			if cancelled(ctx, p.Cancel) {
				return PollResult{}, nil
			}
			if time.Now().After(deadline) {
				return PollResult{TimedOut: true}, nil
			}

			br, err := adapter.GetBlockResults(ctx, h)
			if err != nil {
				logger.Warn("scanBlocks: getBlockResults failed, skipping height", "flowId", p.FlowID, "chain", p.Chain, "height", h, "err", err)
				nextHeight = h + 1
				if sleep(ctx, p.BlockDelay, p.Cancel) {
					return PollResult{}, nil
				}
				continue
			}
			if br == nil {
				// height not yet available; stop advancing and wait for
				// the tip to catch up.
				break
			}

			if matched, result := visit(br); matched {
				return result, nil
			}
			nextHeight = h + 1
			if sleep(ctx, p.BlockDelay, p.Cancel) {
				return PollResult{}, nil
			}
		}

		if sleep(ctx, p.Interval, p.Cancel) {
			return PollResult{}, nil
		}
	}
}
