package poller

import (
	"context"
	"math/big"
	"time"

	"github.com/iskay-network/usdc-flow-tracker/internal/chainadapter"
)

// PollUsdcMint watches for an ERC-20 Transfer from the zero address to the
// expected recipient on usdcAddress, whose value equals amountBaseUnits
// (spec.md §4.2, "EVM poller — pollUsdcMint"). It is used both for the
// deposit flow's final EVM mint and for the payment flow's EVM mint.
func PollUsdcMint(ctx context.Context, adapter chainadapter.EVMAdapter, p PollParams, onUpdate OnUpdate) (PollResult, error) {
	expected, ok := new(big.Int).SetString(p.Params.AmountBaseUnits, 10)
	if !ok {
		logger.Warn("pollUsdcMint missing/invalid amountBaseUnits, cannot match", "flowId", p.FlowID)
		return PollResult{}, nil
	}

	filter := chainadapter.LogFilter{
		Address: p.Params.UsdcAddress,
		Topics: [3]string{
			chainadapter.TransferEventTopic,
			chainadapter.ZeroAddressTopic,
			chainadapter.Pad32Address(p.Params.Recipient),
		},
	}

	deadline := time.Now().Add(p.Timeout)
	nextFrom := p.StartBlock

	for {
		if cancelled(ctx, p.Cancel) {
			return PollResult{}, nil
		}
		if time.Now().After(deadline) {
			return PollResult{TimedOut: true}, nil
		}

		tip, err := adapter.GetBlockNumber(ctx)
		if err != nil {
			logger.Warn("pollUsdcMint: getBlockNumber failed, retrying", "flowId", p.FlowID, "err", err)
			if sleep(ctx, p.Interval, p.Cancel) {
				return PollResult{}, nil
			}
			continue
		}

		if tip >= nextFrom {
			filter.FromBlock = nextFrom
			filter.ToBlock = tip
			logs, err := adapter.GetLogs(ctx, filter)
			if err != nil {
				logger.Warn("pollUsdcMint: getLogs failed, advancing", "flowId", p.FlowID, "err", err)
			} else {
				for _, l := range logs {
					amount, err := chainadapter.ParseLogDataAmount(l.Data)
					if err != nil {
						continue
					}
					if amount.Cmp(expected) == 0 {
						return PollResult{Matched: true, TxHash: l.TxHash, BlockHeight: l.BlockNumber}, nil
					}
				}
			}
			nextFrom = tip + 1
		}

		if sleep(ctx, p.Interval, p.Cancel) {
			return PollResult{}, nil
		}
	}
}
